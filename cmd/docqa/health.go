package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the server and its index are reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := newClient().Health(cmd.Context())
		if err != nil {
			return fmt.Errorf("server unhealthy: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (index %s)\n", h.Status, h.Index)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
