package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/researchgraph/crossref/pkg/crossref"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe the CrossRef registry",
	Long:  `Fetch one page of the registry's work list to verify connectivity.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := crossref.NewClient(crossref.ClientParams{
			MaxAttempts:  cfg.MaxAttempts,
			AttemptDelay: time.Duration(cfg.AttemptDelayMS) * time.Millisecond,
		})
		works, err := client.RequestWorks(cmd.Context())
		if err != nil {
			return err
		}
		if works == nil {
			return fmt.Errorf("registry returned no work list")
		}
		fmt.Printf("CrossRef reachable: %d works, %d on first page\n", works.TotalResults, len(works.Items))
		return nil
	},
}
