package graph

import (
	"reflect"
	"testing"
)

func TestAddNodeFirstWriteWins(t *testing.T) {
	g := NewGraph()
	key := Key{Source: "crossref", Value: "http://dx.doi.org/10.5061/dryad.ab12"}

	first := NewNode(key)
	first.SetProperty(PropertyTitle, "Example Study")
	g.AddNode(first)

	second := NewNode(key)
	second.SetProperty(PropertyTitle, "Different Title")
	g.AddNode(second)

	if g.NodesCount() != 1 {
		t.Fatalf("NodesCount = %d, want 1", g.NodesCount())
	}
	if got := g.Node(key).Properties[PropertyTitle]; got != "Example Study" {
		t.Errorf("title = %v, want Example Study", got)
	}
}

func TestAddRelationshipDeduplicates(t *testing.T) {
	g := NewGraph()
	start := Key{Source: "crossref", Value: "a"}
	end := Key{Source: "crossref", Value: "b"}

	g.AddRelationship(&Relationship{Type: RelationshipRelatedTo, Start: start, End: end,
		Properties: map[string]any{"weight": "1"}})
	g.AddRelationship(&Relationship{Type: RelationshipRelatedTo, Start: start, End: end,
		Properties: map[string]any{"weight": "2"}})

	if g.RelationshipsCount() != 1 {
		t.Fatalf("RelationshipsCount = %d, want 1", g.RelationshipsCount())
	}
	// First write wins, including properties.
	if got := g.Relationships()[0].Properties["weight"]; got != "1" {
		t.Errorf("weight = %v, want 1", got)
	}

	g.AddRelationship(&Relationship{Type: "cites", Start: start, End: end})
	if g.RelationshipsCount() != 2 {
		t.Errorf("RelationshipsCount = %d, want 2 after distinct type", g.RelationshipsCount())
	}
}

func TestAddProperty(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   any
	}{
		{
			name:   "single value stays single",
			values: []string{"A B"},
			want:   "A B",
		},
		{
			name:   "second value promotes to slice",
			values: []string{"A B", "C D"},
			want:   []string{"A B", "C D"},
		},
		{
			name:   "duplicates are ignored",
			values: []string{"A B", "C D", "A B"},
			want:   []string{"A B", "C D"},
		},
		{
			name:   "empty values are dropped",
			values: []string{"", "A B", ""},
			want:   "A B",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := NewNode(Key{Source: "crossref", Value: "k"})
			for _, v := range tt.values {
				node.AddProperty(PropertyAuthors, v)
			}
			if got := node.Properties[PropertyAuthors]; !reflect.DeepEqual(got, tt.want) {
				t.Errorf("property = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPropertyValues(t *testing.T) {
	node := NewNode(Key{Source: "crossref", Value: "k"})
	if got := node.PropertyValues("missing"); got != nil {
		t.Errorf("missing property = %v, want nil", got)
	}
	node.SetProperty(PropertyDOI, "10.1234/abcd")
	if got := node.PropertyValues(PropertyDOI); !reflect.DeepEqual(got, []string{"10.1234/abcd"}) {
		t.Errorf("single value = %v", got)
	}
	node.AddProperty(PropertyAuthors, "A B")
	node.AddProperty(PropertyAuthors, "C D")
	if got := node.PropertyValues(PropertyAuthors); !reflect.DeepEqual(got, []string{"A B", "C D"}) {
		t.Errorf("multi value = %v", got)
	}
}

func TestRootNode(t *testing.T) {
	g := NewGraph()
	if g.RootNode() != nil {
		t.Fatal("empty graph has a root node")
	}
	root := NewNode(Key{Source: "crossref", Value: "pub"})
	g.SetRootNode(root)
	if got := g.RootNode(); got != root {
		t.Errorf("RootNode = %v, want %v", got, root)
	}
	if g.NodesCount() != 1 {
		t.Errorf("NodesCount = %d, want 1", g.NodesCount())
	}
}
