package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gtonic/resumebot/pkg/marker"
)

var markerAt string

var markerCmd = &cobra.Command{
	Use:   "marker",
	Short: "Read or move the index update marker",
}

var markerGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current marker",
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := cfg.Markers.Get(cmd.Context())

		if err != nil {
			return err
		}

		if t == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "not set")
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), t.UTC().Format(time.RFC3339Nano))
		return nil
	},
}

var markerTouchCmd = &cobra.Command{
	Use:   "touch",
	Short: "Move the marker forward so servers download the index again",
	RunE: func(cmd *cobra.Command, args []string) error {
		var at time.Time

		if markerAt != "" {
			t, err := time.Parse(time.RFC3339, markerAt)

			if err != nil {
				return fmt.Errorf("invalid --at: %w", err)
			}

			at = t
		}

		t, err := marker.Touch(cmd.Context(), cfg.Markers, at)

		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), t.UTC().Format(time.RFC3339Nano))
		return nil
	},
}

var markerClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the marker",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cfg.Markers.Clear(cmd.Context())
	},
}

func init() {
	markerTouchCmd.Flags().StringVar(&markerAt, "at", "", "marker time in RFC 3339, defaults to now")

	markerCmd.AddCommand(markerGetCmd, markerTouchCmd, markerClearCmd)
	rootCmd.AddCommand(markerCmd)
}
