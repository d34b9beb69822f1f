package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/hfsm"
)

var validateCmd = &cobra.Command{
	Use:   "validate [source]",
	Short: "Check the graph for consistency",
	Long: `Loads the graph and checks parent links, composite regions, arrow and
entry point targets, and that a new machine can be started from it.
Every problem found is reported.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := cfg.Graph
		if len(args) > 0 {
			source = args[0]
		}

		engine, err := hfsm.New(cmd.Context(), source, hfsm.WithLogger(logger), hfsm.WithEntryPoint(cfg.EntryPoint))
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		if _, err := engine.Initial(cmd.Context()); err != nil {
			return fmt.Errorf("validation failed: cannot start a machine through '%s': %w", cfg.EntryPoint, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Graph is valid! ✅ (%d nodes, root '%s')\n", engine.Graph().Len(), engine.Graph().Root())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
