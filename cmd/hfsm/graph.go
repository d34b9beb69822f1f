package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/hfsm/internal/cli"
	"github.com/aretw0/hfsm/internal/presentation/graph"
	"github.com/aretw0/hfsm/pkg/adapters/file"
	"github.com/aretw0/hfsm/pkg/dsl"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the graph",
	Long: `Outputs the graph as a Mermaid flowchart, a Graphviz digraph, or as the
YAML/JSON document the file loader reads. With --machine the active
configuration of that machine is highlighted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		machineID, _ := cmd.Flags().GetString("machine")
		out := cmd.OutOrStdout()

		engine, err := cli.OpenEngine(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		g := engine.Graph()

		switch format {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(dsl.Export(g))
		case "yaml":
			return file.Encode(out, dsl.Export(g))
		}

		var overlay *graph.Overlay
		if machineID != "" {
			backend, err := cli.OpenBackend(cmd.Context(), cfg, storeDir(cmd))
			if err != nil {
				return err
			}
			defer backend.Close()

			state, err := backend.Store.Load(cmd.Context(), machineID)
			if err != nil {
				return fmt.Errorf("machine '%s': %w", machineID, err)
			}
			overlay = graph.NewOverlay(state, nil)
		}

		text, err := graph.Render(g, graph.Format(format), overlay)
		if err != nil {
			return err
		}
		fmt.Fprint(out, text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("format", "f", "mermaid", "Output format: mermaid, dot, json or yaml")
	graphCmd.Flags().StringP("machine", "m", "", "Highlight the active configuration of this stored machine")
}
