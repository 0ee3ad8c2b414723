package store

import (
	"reflect"
	"testing"
)

func TestDecodeProperties(t *testing.T) {
	data := []byte(`{
		"title": "Example Study",
		"authors": ["Jane Doe", "John Roe"],
		"mixed": ["ok", 42],
		"count": 7
	}`)

	properties, err := decodeProperties(data)
	if err != nil {
		t.Fatalf("decodeProperties: %v", err)
	}

	if got := properties["title"]; got != "Example Study" {
		t.Errorf("title = %v", got)
	}
	if got, want := properties["authors"], []string{"Jane Doe", "John Roe"}; !reflect.DeepEqual(got, want) {
		t.Errorf("authors = %v, want %v", got, want)
	}
	// Non-string slice entries are dropped, non-string scalars entirely.
	if got, want := properties["mixed"], []string{"ok"}; !reflect.DeepEqual(got, want) {
		t.Errorf("mixed = %v, want %v", got, want)
	}
	if _, ok := properties["count"]; ok {
		t.Error("numeric property survived decoding")
	}
}

func TestDecodePropertiesMalformed(t *testing.T) {
	if _, err := decodeProperties([]byte(`not json`)); err == nil {
		t.Error("malformed properties did not fail")
	}
}

func TestIndexName(t *testing.T) {
	tests := []struct {
		label    string
		property string
		want     string
	}{
		{"crossref", "doi", "graph_node_crossref_doi_idx"},
		{"Dryad", "related_publications", "graph_node_dryad_related_publications_idx"},
		{"a b;drop", "x'y", "graph_node_a_b_drop_x_y_idx"},
	}

	for _, tt := range tests {
		if got := indexName(tt.label, tt.property); got != tt.want {
			t.Errorf("indexName(%q, %q) = %q, want %q", tt.label, tt.property, got, tt.want)
		}
	}
}

func TestQuoteLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"doi", "'doi'"},
		{"it's", "'it''s'"},
		{"", "''"},
	}

	for _, tt := range tests {
		if got := quoteLiteral(tt.in); got != tt.want {
			t.Errorf("quoteLiteral(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
