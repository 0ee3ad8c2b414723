package graph

// Key identifies a node by its origin system and a value unique within that
// system. Keys are compared exactly and case-sensitively.
type Key struct {
	Source string
	Value  string
}

// Node is one entity in a graph. Identity is carried solely by Key; labels and
// properties accumulate across merges.
type Node struct {
	Key        Key
	NodeType   string
	NodeSource string
	Labels     []string
	Properties map[string]any
}

// NewNode creates a node with the given identity key.
func NewNode(key Key) *Node {
	return &Node{
		Key:        key,
		Properties: map[string]any{},
	}
}

// AddLabel appends a label unless the node already carries it.
func (n *Node) AddLabel(label string) {
	for _, l := range n.Labels {
		if l == label {
			return
		}
	}
	n.Labels = append(n.Labels, label)
}

// SetProperty sets a single-valued property. Empty values are dropped.
func (n *Node) SetProperty(name, value string) {
	if value == "" {
		return
	}
	n.Properties[name] = value
}

// AddProperty appends a value to a property, promoting it to a multi-valued
// property when a different value is already present. Duplicate values are
// ignored.
func (n *Node) AddProperty(name, value string) {
	if value == "" {
		return
	}
	switch existing := n.Properties[name].(type) {
	case nil:
		n.Properties[name] = value
	case string:
		if existing != value {
			n.Properties[name] = []string{existing, value}
		}
	case []string:
		for _, v := range existing {
			if v == value {
				return
			}
		}
		n.Properties[name] = append(existing, value)
	}
}

// PropertyValues returns the values of a property as a slice, regardless of
// whether it is single- or multi-valued. Absent properties return nil.
func (n *Node) PropertyValues(name string) []string {
	switch v := n.Properties[name].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	}
	return nil
}

// Relationship is a directed edge between two node keys. Two relationships are
// duplicates iff type, start and end all match.
type Relationship struct {
	Type       string
	Start      Key
	End        Key
	Properties map[string]any
}

// Schema declares an index or uniqueness requirement the graph store must
// enforce before import. It is never enforced in memory.
type Schema struct {
	Label    string
	Property string
	Unique   bool
}

type relationshipKey struct {
	Type  string
	Start Key
	End   Key
}

// Graph accumulates nodes and relationships for one import batch, deduplicated
// by node key and by (type, start, end) respectively.
type Graph struct {
	nodes     map[Key]*Node
	nodeOrder []Key

	relationships map[relationshipKey]*Relationship
	relOrder      []relationshipKey

	root Key
}

func NewGraph() *Graph {
	return &Graph{
		nodes:         map[Key]*Node{},
		relationships: map[relationshipKey]*Relationship{},
	}
}

// AddNode inserts a node. If a node with the same key already exists the call
// is a no-op; properties of existing nodes change only through Merge or
// explicit property calls.
func (g *Graph) AddNode(node *Node) {
	if node == nil {
		return
	}
	if _, ok := g.nodes[node.Key]; ok {
		return
	}
	g.nodes[node.Key] = node
	g.nodeOrder = append(g.nodeOrder, node.Key)
}

// AddRelationship inserts a relationship unless a duplicate by
// (type, start, end) exists. First write wins, later duplicates are dropped
// along with their properties.
func (g *Graph) AddRelationship(rel *Relationship) {
	if rel == nil {
		return
	}
	key := relationshipKey{Type: rel.Type, Start: rel.Start, End: rel.End}
	if _, ok := g.relationships[key]; ok {
		return
	}
	g.relationships[key] = rel
	g.relOrder = append(g.relOrder, key)
}

// SetRootNode designates the entry point node for graphs that represent a
// single resolved work.
func (g *Graph) SetRootNode(node *Node) {
	g.AddNode(node)
	g.root = node.Key
}

// RootNode returns the designated entry point node, or nil when none was set.
func (g *Graph) RootNode() *Node {
	return g.nodes[g.root]
}

// Node returns the node stored under key, or nil.
func (g *Graph) Node(key Key) *Node {
	return g.nodes[key]
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodeOrder))
	for _, key := range g.nodeOrder {
		nodes = append(nodes, g.nodes[key])
	}
	return nodes
}

// Relationships returns all relationships in insertion order.
func (g *Graph) Relationships() []*Relationship {
	rels := make([]*Relationship, 0, len(g.relOrder))
	for _, key := range g.relOrder {
		rels = append(rels, g.relationships[key])
	}
	return rels
}

// NodesCount reports the number of distinct nodes.
func (g *Graph) NodesCount() int {
	return len(g.nodes)
}

// RelationshipsCount reports the number of distinct relationships.
func (g *Graph) RelationshipsCount() int {
	return len(g.relationships)
}
