package importer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/researchgraph/crossref/internal/store"
	"github.com/researchgraph/crossref/pkg/graph"
)

type importedBatch struct {
	nodes         int
	relationships []*graph.Relationship
}

type fakeGraphStore struct {
	nodes    []*graph.Node
	indexErr error

	batches     []importedBatch
	schemaCalls int
	indexCalls  int
}

func (s *fakeGraphStore) ImportGraph(_ context.Context, g *graph.Graph) error {
	s.batches = append(s.batches, importedBatch{
		nodes:         g.NodesCount(),
		relationships: g.Relationships(),
	})
	return nil
}

func (s *fakeGraphStore) ImportSchemas(_ context.Context, schemas []graph.Schema) error {
	s.schemaCalls++
	return nil
}

func (s *fakeGraphStore) CreateIndex(_ context.Context, label, property string) error {
	s.indexCalls++
	return s.indexErr
}

func (s *fakeGraphStore) EnumerateAllNodesWithLabelAndProperty(_ context.Context, label, property string, visitor store.NodeVisitor) (int, error) {
	count := 0
	for _, node := range s.nodes {
		count++
		if !visitor(node) {
			break
		}
	}
	return count, nil
}

func (s *fakeGraphStore) allRelationships() []*graph.Relationship {
	var rels []*graph.Relationship
	for _, batch := range s.batches {
		rels = append(rels, batch.relationships...)
	}
	return rels
}

// fakeRequester returns a single-node fragment per known DOI, nil for the rest.
type fakeRequester struct {
	known map[string]bool
	calls map[string]int
}

func newFakeRequester(dois ...string) *fakeRequester {
	r := &fakeRequester{known: map[string]bool{}, calls: map[string]int{}}
	for _, doi := range dois {
		r.known[doi] = true
	}
	return r
}

func (r *fakeRequester) RequestGraph(_ context.Context, doi string) (*graph.Graph, error) {
	r.calls[doi]++
	if !r.known[doi] {
		return nil, nil
	}
	g := graph.NewGraph()
	root := graph.NewNode(graph.Key{Source: "crossref", Value: graph.GenerateDOIURI(doi)})
	root.AddLabel("crossref")
	root.SetProperty(graph.PropertyDOI, doi)
	g.SetRootNode(root)
	return g, nil
}

func (r *fakeRequester) Schemas() []graph.Schema {
	return []graph.Schema{{Label: "crossref", Property: graph.PropertyKey, Unique: true}}
}

func sourceNode(value string, references ...string) *graph.Node {
	node := graph.NewNode(graph.Key{Source: "dryad", Value: value})
	node.AddLabel("dryad")
	for _, ref := range references {
		node.AddProperty("related_publications", ref)
	}
	return node
}

func TestCollectReferences(t *testing.T) {
	st := &fakeGraphStore{nodes: []*graph.Node{
		sourceNode("r1", "http://doi.org/10.1000/aa", "not a doi"),
		sourceNode("r2", "see 10.1000/aa", "10.1000/bb."),
		sourceNode("r3"),
	}}
	session := NewSession(SessionParams{Store: st, Client: newFakeRequester()})

	scanned, err := session.CollectReferences(context.Background(), "dryad", "related_publications")
	if err != nil {
		t.Fatalf("CollectReferences: %v", err)
	}
	if scanned != 3 {
		t.Errorf("scanned = %d, want 3", scanned)
	}
	if got := session.PendingCount(); got != 2 {
		t.Errorf("pending DOIs = %d, want 2", got)
	}
	if st.indexCalls != 1 {
		t.Errorf("index calls = %d, want 1", st.indexCalls)
	}
}

func TestCollectReferencesDeduplicatesAcrossSources(t *testing.T) {
	first := &fakeGraphStore{nodes: []*graph.Node{sourceNode("r1", "10.1000/shared")}}
	session := NewSession(SessionParams{Store: first, Client: newFakeRequester("10.1000/shared")})

	if _, err := session.CollectReferences(context.Background(), "dryad", "related_publications"); err != nil {
		t.Fatalf("CollectReferences: %v", err)
	}

	second := graph.NewNode(graph.Key{Source: "orcid", Value: "p1"})
	second.AddLabel("orcid")
	second.AddProperty("works", "10.1000/shared")
	first.nodes = []*graph.Node{second}
	if _, err := session.CollectReferences(context.Background(), "orcid", "works"); err != nil {
		t.Fatalf("CollectReferences: %v", err)
	}

	if got := session.PendingCount(); got != 1 {
		t.Fatalf("pending DOIs = %d, want 1 shared entry", got)
	}

	requester := newFakeRequester("10.1000/shared")
	session.client = requester
	if err := session.ResolveAndImport(context.Background(), graph.RelationshipRelatedTo); err != nil {
		t.Fatalf("ResolveAndImport: %v", err)
	}
	if got := requester.calls["10.1000/shared"]; got != 1 {
		t.Errorf("fragment fetches = %d, want exactly 1 per DOI", got)
	}
	if got := len(first.allRelationships()); got != 2 {
		t.Errorf("relationships = %d, want one per referrer", got)
	}
}

func TestCollectReferencesIndexFailureIsNonFatal(t *testing.T) {
	st := &fakeGraphStore{
		nodes:    []*graph.Node{sourceNode("r1", "10.1000/aa")},
		indexErr: errors.New("index exists with different definition"),
	}
	session := NewSession(SessionParams{Store: st, Client: newFakeRequester()})

	if _, err := session.CollectReferences(context.Background(), "dryad", "related_publications"); err != nil {
		t.Fatalf("CollectReferences: %v", err)
	}
	if session.PendingCount() != 1 {
		t.Error("scan did not proceed past the index failure")
	}
}

func TestResolveAndImportLinksReferrers(t *testing.T) {
	doi := "10.5061/dryad.ab12"
	st := &fakeGraphStore{nodes: []*graph.Node{sourceNode("r1", doi)}}
	session := NewSession(SessionParams{Store: st, Client: newFakeRequester(doi)})

	ctx := context.Background()
	if _, err := session.CollectReferences(ctx, "dryad", "related_publications"); err != nil {
		t.Fatalf("CollectReferences: %v", err)
	}
	if err := session.ResolveAndImport(ctx, graph.RelationshipRelatedTo); err != nil {
		t.Fatalf("ResolveAndImport: %v", err)
	}

	if st.schemaCalls != 1 {
		t.Errorf("schema imports = %d, want 1", st.schemaCalls)
	}
	rels := st.allRelationships()
	if len(rels) != 1 {
		t.Fatalf("relationships = %d, want 1", len(rels))
	}
	rel := rels[0]
	if rel.Type != graph.RelationshipRelatedTo {
		t.Errorf("relationship type = %q", rel.Type)
	}
	if rel.Start != (graph.Key{Source: "dryad", Value: "r1"}) {
		t.Errorf("relationship start = %+v, want the referrer", rel.Start)
	}
	if rel.End != (graph.Key{Source: "crossref", Value: graph.GenerateDOIURI(doi)}) {
		t.Errorf("relationship end = %+v, want the fragment root", rel.End)
	}
	if session.PendingCount() != 0 {
		t.Error("pending mapping was not cleared after the run")
	}
}

func TestResolveAndImportSkipsUnresolvableDOIs(t *testing.T) {
	st := &fakeGraphStore{nodes: []*graph.Node{
		sourceNode("r1", "10.1000/resolvable", "10.1000/foreign"),
	}}
	session := NewSession(SessionParams{Store: st, Client: newFakeRequester("10.1000/resolvable")})

	ctx := context.Background()
	if _, err := session.CollectReferences(ctx, "dryad", "related_publications"); err != nil {
		t.Fatalf("CollectReferences: %v", err)
	}
	if err := session.ResolveAndImport(ctx, graph.RelationshipRelatedTo); err != nil {
		t.Fatalf("ResolveAndImport: %v", err)
	}

	rels := st.allRelationships()
	if len(rels) != 1 {
		t.Fatalf("relationships = %d, want only the resolvable DOI linked", len(rels))
	}
	if rels[0].End.Value != graph.GenerateDOIURI("10.1000/resolvable") {
		t.Errorf("relationship end = %+v", rels[0].End)
	}
}

func TestResolveAndImportFlushesOnThreshold(t *testing.T) {
	var dois []string
	var nodes []*graph.Node
	for i := 0; i < 25; i++ {
		doi := fmt.Sprintf("10.1000/work.%03d", i)
		dois = append(dois, doi)
		nodes = append(nodes, sourceNode(fmt.Sprintf("r%03d", i), doi))
	}
	st := &fakeGraphStore{nodes: nodes}
	session := NewSession(SessionParams{
		Store:          st,
		Client:         newFakeRequester(dois...),
		FlushThreshold: 10,
		MaxParallel:    1,
	})

	ctx := context.Background()
	if _, err := session.CollectReferences(ctx, "dryad", "related_publications"); err != nil {
		t.Fatalf("CollectReferences: %v", err)
	}
	if err := session.ResolveAndImport(ctx, graph.RelationshipRelatedTo); err != nil {
		t.Fatalf("ResolveAndImport: %v", err)
	}

	if got := len(st.batches); got != 3 {
		t.Fatalf("ImportGraph calls = %d, want 3 for 25 relationships at threshold 10", got)
	}
	total := 0
	for _, batch := range st.batches {
		total += len(batch.relationships)
	}
	if total != 25 {
		t.Errorf("imported relationships = %d, want 25", total)
	}
	for i, batch := range st.batches[:2] {
		if len(batch.relationships) != 10 {
			t.Errorf("batch %d relationships = %d, want 10", i, len(batch.relationships))
		}
	}
	if len(st.batches[2].relationships) != 5 {
		t.Errorf("final batch relationships = %d, want 5", len(st.batches[2].relationships))
	}
}

func TestResolveAndImportEmptyPending(t *testing.T) {
	st := &fakeGraphStore{}
	session := NewSession(SessionParams{Store: st, Client: newFakeRequester()})

	if err := session.ResolveAndImport(context.Background(), graph.RelationshipRelatedTo); err != nil {
		t.Fatalf("ResolveAndImport: %v", err)
	}
	if st.schemaCalls != 0 || len(st.batches) != 0 {
		t.Error("empty run touched the graph store")
	}
}
