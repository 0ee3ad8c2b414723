package store

import (
	"context"

	"github.com/researchgraph/crossref/pkg/crossref"
	"github.com/researchgraph/crossref/pkg/graph"
)

// Identifier is one queued DOI awaiting resolution.
type Identifier struct {
	ID  int64
	DOI string
}

// ResolutionStorage is the relational persistence contract for the resolution
// pipeline: the authority cache, the unresolved-identifier queue and
// transactional persistence of resolved works.
type ResolutionStorage interface {
	Authority(ctx context.Context, doi string) (string, error)
	SaveAuthority(ctx context.Context, doi, authority string) error

	UnresolvedIdentifiers(ctx context.Context) ([]Identifier, error)

	// SaveResolution persists the resolved metadata for a queued identifier
	// and marks it resolved, atomically. Any failure rolls the whole
	// identifier back.
	SaveResolution(ctx context.Context, id int64, work *crossref.StoredWork) error

	// MarkResolved stamps an identifier whose resolution terminated without
	// metadata (foreign authority or missing title) so reruns skip it.
	MarkResolved(ctx context.Context, id int64) error

	Work(ctx context.Context, doi string) (*crossref.StoredWork, error)
	SaveWork(ctx context.Context, work *crossref.StoredWork) (int64, error)
}

// NodeVisitor is invoked once per enumerated node and may stop the
// enumeration early by returning false.
type NodeVisitor func(node *graph.Node) bool

// GraphStorage is the graph-store contract: batched imports, schema and index
// forwarding, and node enumeration for reference scanning.
type GraphStorage interface {
	ImportGraph(ctx context.Context, g *graph.Graph) error
	ImportSchemas(ctx context.Context, schemas []graph.Schema) error
	CreateIndex(ctx context.Context, label, property string) error
	EnumerateAllNodesWithLabelAndProperty(ctx context.Context, label, property string, visitor NodeVisitor) (int, error)
}
