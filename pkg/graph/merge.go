package graph

// Merge unions other into g in place. Nodes with a key already present in g
// have their labels and properties merged into the existing node; new nodes
// are inserted. Relationships are inserted unless a duplicate by
// (type, start, end) exists. Merge is idempotent: merging the same graph twice
// leaves g unchanged after the first merge.
func (g *Graph) Merge(other *Graph) {
	if other == nil {
		return
	}
	for _, node := range other.Nodes() {
		existing, ok := g.nodes[node.Key]
		if !ok {
			g.AddNode(node)
			continue
		}
		for _, label := range node.Labels {
			existing.AddLabel(label)
		}
		for name, value := range node.Properties {
			mergeProperty(existing, name, value)
		}
	}
	for _, rel := range other.Relationships() {
		g.AddRelationship(rel)
	}
}

// mergeProperty unions an incoming property value into node. Multi-valued
// entries union preserving first-seen order. When both sides hold a single
// value and they conflict, the existing value wins.
func mergeProperty(node *Node, name string, value any) {
	existing := node.Properties[name]
	if existing == nil {
		node.Properties[name] = value
		return
	}
	_, existingSingle := existing.(string)
	incoming, incomingSingle := value.(string)
	if existingSingle && incomingSingle {
		return
	}
	if incomingSingle {
		node.AddProperty(name, incoming)
		return
	}
	values, _ := value.([]string)
	for _, v := range values {
		node.AddProperty(name, v)
	}
}
