package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/researchgraph/crossref/internal/importer"
	"github.com/researchgraph/crossref/pkg/graph"
	"github.com/researchgraph/crossref/pkg/logger"
)

var (
	importSources      []string
	importRelationship string
	importThreshold    int
	importParallel     int
)

func init() {
	importCmd.Flags().StringArrayVarP(&importSources, "source", "s", nil,
		"labeled source to scan, as label:property (repeatable)")
	importCmd.Flags().StringVarP(&importRelationship, "relationship", "r", graph.RelationshipRelatedTo,
		"relationship type linking referrers to resolved publications")
	importCmd.Flags().IntVar(&importThreshold, "flush-threshold", 0,
		"node/relationship count that triggers a batch flush")
	importCmd.Flags().IntVar(&importParallel, "parallel", 0,
		"bounded worker pool size for fragment resolution")
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Scan labeled sources for DOI references and import resolved graphs",
	Long: `Scan every named source label for the given reference property, collect
the referenced DOIs deduplicated across all sources, resolve each unique DOI
into a publication/author graph fragment, and import the accumulated graph
into the graph store in size-bounded batches.

Example:
  crossref import -s dryad:referenced_by -s orcid:doi -r knownAs`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(importSources) == 0 {
			return fmt.Errorf("at least one --source label:property is required")
		}
		sources, err := parseSources(importSources)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		pool, db, client, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		threshold := importThreshold
		if threshold <= 0 {
			threshold = cfg.FlushThreshold
		}
		parallel := importParallel
		if parallel <= 0 {
			parallel = cfg.MaxParallel
		}

		session := importer.NewSession(importer.SessionParams{
			Store:          db,
			Client:         client,
			FlushThreshold: threshold,
			MaxParallel:    parallel,
		})

		for _, source := range sources {
			if _, err := session.CollectReferences(ctx, source.label, source.property); err != nil {
				return err
			}
		}
		logger.Info("[Import] Reference collection finished", "pending_dois", session.PendingCount())

		return session.ResolveAndImport(ctx, importRelationship)
	},
}

type sourceSpec struct {
	label    string
	property string
}

func parseSources(raw []string) ([]sourceSpec, error) {
	sources := make([]sourceSpec, 0, len(raw))
	for _, entry := range raw {
		label, property, ok := strings.Cut(entry, ":")
		if !ok || label == "" || property == "" {
			return nil, fmt.Errorf("invalid source %q, expected label:property", entry)
		}
		sources = append(sources, sourceSpec{label: label, property: property})
	}
	return sources, nil
}
