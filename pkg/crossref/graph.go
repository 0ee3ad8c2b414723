package crossref

import (
	"context"
	"fmt"

	"github.com/researchgraph/crossref/pkg/graph"
)

const (
	sourceCrossRef    = "crossref"
	sourceURLCrossRef = "crossref.org"
)

// RequestGraph resolves a DOI into a graph fragment: the publication node, one
// researcher node per author, and the authorship relationships, with the
// publication as root. Works already present in the relational store are
// rebuilt from it without touching the registry; freshly fetched works are
// persisted before the fragment is returned. A DOI outside the CrossRef
// authority, or one without a titled work, yields a nil graph.
func (c *Client) RequestGraph(ctx context.Context, doi string) (*graph.Graph, error) {
	if c.works != nil {
		stored, err := c.works.Work(ctx, doi)
		if err != nil {
			return nil, fmt.Errorf("reading resolved work for %s: %w", doi, err)
		}
		if stored != nil {
			return buildWorkGraph(doi, stored), nil
		}
	}

	authority, err := c.RequestAuthority(ctx, doi)
	if err != nil {
		return nil, err
	}
	if authority != AuthorityCrossRef {
		return nil, nil
	}

	work, err := c.RequestWork(ctx, doi)
	if err != nil || work == nil {
		return nil, err
	}

	stored := &StoredWork{
		DOI:   doi,
		URL:   graph.GenerateDOIURI(doi),
		Title: work.FirstTitle(),
		Year:  work.IssuedYear(),
	}
	for _, author := range work.Author {
		stored.Authors = append(stored.Authors, StoredAuthor{
			FirstName: author.Given,
			LastName:  author.Family,
			FullName:  author.FullName(),
			ORCID:     author.ORCID,
		})
	}

	if c.works != nil {
		if _, err := c.works.SaveWork(ctx, stored); err != nil {
			return nil, fmt.Errorf("saving resolved work for %s: %w", doi, err)
		}
	}
	return buildWorkGraph(doi, stored), nil
}

// Schemas returns the index and uniqueness requirements the graph store must
// enforce before CrossRef fragments are imported.
func (c *Client) Schemas() []graph.Schema {
	return []graph.Schema{
		{Label: sourceCrossRef, Property: graph.PropertyKey, Unique: true},
		{Label: sourceCrossRef, Property: graph.PropertyDOI},
		{Label: sourceCrossRef, Property: graph.PropertyURL},
	}
}

func buildWorkGraph(doi string, work *StoredWork) *graph.Graph {
	g := graph.NewGraph()
	publication := newPublicationNode(doi, work.URL, work.Title, work.Year)
	g.SetRootNode(publication)

	for _, author := range work.Authors {
		publication.AddProperty(graph.PropertyAuthors, author.FullName)
		researcher := newResearcherNode(doi, author)
		g.AddNode(researcher)
		g.AddRelationship(&graph.Relationship{
			Type:  graph.RelationshipRelatedTo,
			Start: publication.Key,
			End:   researcher.Key,
		})
	}
	return g
}

func newPublicationNode(doi, url, title, year string) *graph.Node {
	node := graph.NewNode(graph.Key{Source: sourceCrossRef, Value: url})
	node.NodeType = graph.TypePublication
	node.NodeSource = sourceURLCrossRef
	node.AddLabel(sourceCrossRef)
	node.AddLabel(graph.TypePublication)
	node.SetProperty(graph.PropertyDOI, doi)
	node.SetProperty(graph.PropertyURL, url)
	node.SetProperty(graph.PropertyTitle, title)
	node.SetProperty(graph.PropertyPublishedYear, year)
	return node
}

func newResearcherNode(doi string, author StoredAuthor) *graph.Node {
	node := graph.NewNode(graph.Key{Source: sourceCrossRef, Value: doi + ":" + author.FullName})
	node.NodeType = graph.TypeResearcher
	node.NodeSource = sourceURLCrossRef
	node.AddLabel(sourceCrossRef)
	node.AddLabel(graph.TypeResearcher)
	node.SetProperty(graph.PropertyFirstName, author.FirstName)
	node.SetProperty(graph.PropertyLastName, author.LastName)
	node.SetProperty(graph.PropertyFullName, author.FullName)
	node.SetProperty(graph.PropertyORCID, author.ORCID)
	return node
}
