package importer

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/researchgraph/crossref/internal/store"
	"github.com/researchgraph/crossref/pkg/graph"
	"github.com/researchgraph/crossref/pkg/logger"
)

const (
	// DefaultFlushThreshold is the node or relationship count at which an
	// accumulated batch graph is flushed to the graph store.
	DefaultFlushThreshold = 10000

	// DefaultMaxParallel keeps fragment resolution sequential, matching the
	// registry's rate sensitivity. Raising it bounds the worker pool.
	DefaultMaxParallel = 1
)

// GraphRequester produces graph fragments for DOIs and declares the schemas
// their imports require.
type GraphRequester interface {
	RequestGraph(ctx context.Context, doi string) (*graph.Graph, error)
	Schemas() []graph.Schema
}

// Session owns the state of one import run: the pending-references mapping
// built while scanning sources and the batch graph accumulated while
// resolving them.
type Session struct {
	store       store.GraphStorage
	client      GraphRequester
	threshold   int
	maxParallel int

	pending map[string]map[graph.Key]struct{}
	batch   *graph.Graph
	flushes int
}

// SessionParams configures an import session.
type SessionParams struct {
	Store          store.GraphStorage
	Client         GraphRequester
	FlushThreshold int
	MaxParallel    int
}

func NewSession(params SessionParams) *Session {
	s := &Session{
		store:       params.Store,
		client:      params.Client,
		threshold:   params.FlushThreshold,
		maxParallel: params.MaxParallel,
		pending:     map[string]map[graph.Key]struct{}{},
		batch:       graph.NewGraph(),
	}
	if s.threshold <= 0 {
		s.threshold = DefaultFlushThreshold
	}
	if s.maxParallel <= 0 {
		s.maxParallel = DefaultMaxParallel
	}
	return s
}

// PendingCount reports the number of distinct DOIs awaiting resolution.
func (s *Session) PendingCount() int {
	return len(s.pending)
}

// CollectReferences enumerates every graph-store node carrying the label and
// the reference property, extracts DOIs from the property's values and
// accumulates the referring node keys. Strings without a recognizable DOI are
// dropped silently. Returns the number of nodes scanned.
func (s *Session) CollectReferences(ctx context.Context, label, property string) (int, error) {
	if err := s.store.CreateIndex(ctx, label, property); err != nil {
		logger.Warn("[Importer] Index creation failed", "label", label, "property", property, "err", err)
	}

	references := 0
	count, err := s.store.EnumerateAllNodesWithLabelAndProperty(ctx, label, property, func(node *graph.Node) bool {
		for _, raw := range node.PropertyValues(property) {
			doi := graph.ExtractDOI(raw)
			if doi == "" {
				continue
			}
			referrers := s.pending[doi]
			if referrers == nil {
				referrers = map[graph.Key]struct{}{}
				s.pending[doi] = referrers
			}
			referrers[node.Key] = struct{}{}
			references++
		}
		return true
	})
	if err != nil {
		return count, fmt.Errorf("scanning %s.%s: %w", label, property, err)
	}

	logger.Info("[Importer] Scanned source",
		"label", label, "property", property,
		"nodes", count, "references", references, "pending_dois", len(s.pending))
	return count, nil
}

// ResolveAndImport resolves every pending DOI into a graph fragment, merges
// fragments into the batch graph together with one relationship of the given
// type from each referrer to the fragment's root, and flushes the batch to
// the graph store whenever a size threshold is crossed. The pending mapping
// is cleared once the run completes.
func (s *Session) ResolveAndImport(ctx context.Context, relationshipType string) error {
	if len(s.pending) == 0 {
		logger.Info("[Importer] Nothing to import")
		return nil
	}
	if err := s.store.ImportSchemas(ctx, s.client.Schemas()); err != nil {
		return fmt.Errorf("importing schemas: %w", err)
	}

	dois := make([]string, 0, len(s.pending))
	for doi := range s.pending {
		dois = append(dois, doi)
	}
	sort.Strings(dois)

	logger.Info("[Importer] Resolving references", "dois", len(dois), "workers", s.maxParallel)

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(s.maxParallel)
	var mu sync.Mutex

	resolved := 0
	for _, doi := range dois {
		doi := doi
		referrers := s.pending[doi]
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fragment, err := s.client.RequestGraph(gctx, doi)
			if err != nil {
				return fmt.Errorf("requesting graph for %s: %w", doi, err)
			}
			if fragment == nil || fragment.RootNode() == nil {
				return nil
			}
			root := fragment.RootNode().Key

			mu.Lock()
			defer mu.Unlock()

			// Fragment nodes land before the cross-reference relationships so
			// the relationship endpoints are part of the same batch.
			s.batch.Merge(fragment)
			for referrer := range referrers {
				s.batch.AddRelationship(&graph.Relationship{
					Type:  relationshipType,
					Start: referrer,
					End:   root,
				})
			}
			resolved++
			if resolved%progressInterval == 0 {
				logger.Info("[Importer] Progress", "resolved", resolved)
			}

			if s.batch.NodesCount() >= s.threshold || s.batch.RelationshipsCount() >= s.threshold {
				return s.flushLocked(gctx)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	if err := s.flushLocked(ctx); err != nil {
		return err
	}
	s.pending = map[string]map[graph.Key]struct{}{}
	logger.Info("[Importer] Import complete", "resolved", resolved, "flushes", s.flushes)
	return nil
}

const progressInterval = 1000

// flushLocked writes the batch graph to the graph store and replaces it with
// a fresh one. Callers hold the batch mutex.
func (s *Session) flushLocked(ctx context.Context) error {
	if s.batch.NodesCount() == 0 && s.batch.RelationshipsCount() == 0 {
		return nil
	}
	logger.Info("[Importer] Flushing batch",
		"nodes", s.batch.NodesCount(), "relationships", s.batch.RelationshipsCount())
	if err := s.store.ImportGraph(ctx, s.batch); err != nil {
		return fmt.Errorf("importing batch: %w", err)
	}
	s.batch = graph.NewGraph()
	s.flushes++
	return nil
}
