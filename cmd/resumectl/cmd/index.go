package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the index from the source bucket and publish it",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Pipeline == nil {
			return errors.New("rebuild needs blob.source_bucket and index.embedder")
		}

		result, err := cfg.Pipeline.Run(cmd.Context())

		if err != nil {
			return err
		}

		for _, name := range result.Entities {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "published %d entities at %s\n", len(result.Entities), result.Updated.UTC().Format(time.RFC3339Nano))
		return nil
	},
}

var peopleCmd = &cobra.Command{
	Use:   "people",
	Short: "List the people in the local index",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Coordinator == nil {
			return errors.New("no index configured")
		}

		names, err := cfg.Coordinator.Names(cmd.Context())

		if err != nil {
			return err
		}

		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}

		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the local index so the next request rebuilds or downloads it",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Coordinator == nil {
			return errors.New("no index configured")
		}

		return cfg.Coordinator.Reset()
	},
}

func init() {
	rootCmd.AddCommand(rebuildCmd, peopleCmd, resetCmd)
}
