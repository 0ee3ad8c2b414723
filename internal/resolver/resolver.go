package resolver

import (
	"context"
	"fmt"

	"github.com/researchgraph/crossref/internal/store"
	"github.com/researchgraph/crossref/pkg/crossref"
	"github.com/researchgraph/crossref/pkg/graph"
	"github.com/researchgraph/crossref/pkg/logger"
)

const progressInterval = 1000

// MetadataClient is the registry-facing contract the resolver depends on.
// RequestAuthority consults the durable authority store before the registry
// and persists fresh results itself.
type MetadataClient interface {
	RequestAuthority(ctx context.Context, doi string) (string, error)
	RequestWork(ctx context.Context, doi string) (*crossref.Work, error)
}

// Resolver drains the queue of unresolved identifiers and persists the
// metadata of every CrossRef-authority DOI, one identifier at a time.
type Resolver struct {
	store  store.ResolutionStorage
	client MetadataClient
}

func New(storage store.ResolutionStorage, client MetadataClient) *Resolver {
	return &Resolver{store: storage, client: client}
}

// ResolveAll processes every unresolved identifier in queue order and returns
// the number processed. A persistence failure aborts the run; half-persisted
// identifiers are rolled back by the store before the failure surfaces.
func (r *Resolver) ResolveAll(ctx context.Context) (int, error) {
	identifiers, err := r.store.UnresolvedIdentifiers(ctx)
	if err != nil {
		return 0, err
	}
	logger.Info("[Resolver] Starting resolution", "unresolved", len(identifiers))

	counter := 0
	for _, ident := range identifiers {
		if err := ctx.Err(); err != nil {
			return counter, err
		}
		if err := r.resolveOne(ctx, ident); err != nil {
			return counter, fmt.Errorf("resolving %s: %w", ident.DOI, err)
		}
		counter++
		if counter%progressInterval == 0 {
			logger.Info("[Resolver] Progress", "processed", counter)
		}
	}

	logger.Info("[Resolver] Done", "processed", counter)
	return counter, nil
}

func (r *Resolver) resolveOne(ctx context.Context, ident store.Identifier) error {
	authority, err := r.client.RequestAuthority(ctx, ident.DOI)
	if err != nil {
		return err
	}
	if authority != crossref.AuthorityCrossRef {
		logger.Debug("[Resolver] Foreign authority", "doi", ident.DOI, "authority", authority)
		return r.store.MarkResolved(ctx, ident.ID)
	}

	work, err := r.client.RequestWork(ctx, ident.DOI)
	if err != nil {
		return err
	}
	if work == nil || work.FirstTitle() == "" {
		logger.Debug("[Resolver] No metadata", "doi", ident.DOI)
		return r.store.MarkResolved(ctx, ident.ID)
	}

	stored := &crossref.StoredWork{
		DOI:   ident.DOI,
		URL:   graph.GenerateDOIURI(ident.DOI),
		Title: work.FirstTitle(),
		Year:  work.IssuedYear(),
	}
	for _, author := range work.Author {
		stored.Authors = append(stored.Authors, crossref.StoredAuthor{
			FirstName: author.Given,
			LastName:  author.Family,
			FullName:  author.FullName(),
			ORCID:     author.ORCID,
		})
	}
	return r.store.SaveResolution(ctx, ident.ID, stored)
}
