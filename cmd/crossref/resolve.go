package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/researchgraph/crossref/internal/resolver"
	"github.com/researchgraph/crossref/pkg/logger"
)

const (
	versionFile = "crossref"
	dateFormat  = "2006-01-02"
)

func init() {
	rootCmd.AddCommand(resolveCmd)
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve all queued DOIs against the CrossRef registry",
	Long: `Resolve every queued identifier that has no resolved timestamp yet.
DOIs registered with CrossRef get their bibliographic metadata fetched and
persisted; DOIs under other authorities are marked resolved without metadata.
On success a version stamp with the current date is written into the
versions folder.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pool, db, client, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		processed, err := resolver.New(db, client).ResolveAll(ctx)
		if err != nil {
			return err
		}
		logger.Info("[Resolve] Run finished", "processed", processed)

		return writeVersionStamp()
	},
}

// writeVersionStamp records the completion date so downstream imports can
// tell which registry snapshot they are working from.
func writeVersionStamp() error {
	if err := os.MkdirAll(cfg.VersionsFolder, 0o755); err != nil {
		return fmt.Errorf("creating versions folder: %w", err)
	}
	path := filepath.Join(cfg.VersionsFolder, versionFile)
	stamp := time.Now().Format(dateFormat)
	if err := os.WriteFile(path, []byte(stamp), 0o644); err != nil {
		return fmt.Errorf("writing version stamp: %w", err)
	}
	logger.Info("[Resolve] Version stamp written", "path", path, "date", stamp)
	return nil
}
