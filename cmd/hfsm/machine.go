package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/hfsm/internal/cli"
	"github.com/aretw0/hfsm/internal/presentation/tui"
)

var machineCmd = &cobra.Command{
	Use:     "machine",
	Aliases: []string{"machines"},
	Short:   "Manage stored machines",
	Long:    `List, inspect, and remove machines kept in the configured store (files or Redis).`,
}

var machineLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all stored machines",
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := cli.OpenBackend(cmd.Context(), cfg, storeDir(cmd))
		if err != nil {
			return err
		}
		defer backend.Close()

		machines, err := backend.Store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("error listing machines: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(machines) == 0 {
			fmt.Fprintln(out, "No machines found.")
			return nil
		}
		fmt.Fprintln(out, "Machines:")
		for _, id := range machines {
			fmt.Fprintln(out, "- "+id)
		}
		return nil
	},
}

var machineInspectCmd = &cobra.Command{
	Use:   "inspect <machine-id>",
	Short: "Inspect the state of a machine",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		machineID := args[0]
		tree, _ := cmd.Flags().GetBool("tree")

		backend, err := cli.OpenBackend(cmd.Context(), cfg, storeDir(cmd))
		if err != nil {
			return err
		}
		defer backend.Close()

		state, err := backend.Store.Load(cmd.Context(), machineID)
		if err != nil {
			return fmt.Errorf("error loading machine '%s': %w", machineID, err)
		}

		if tree {
			engine, err := cli.OpenEngine(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.NewRenderer(cmd.OutOrStdout()).State(engine.Graph(), state, nil))
			return nil
		}

		data, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			return fmt.Errorf("error marshaling state: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var machineRmCmd = &cobra.Command{
	Use:   "rm <machine-id>...",
	Short: "Remove one or more machines",
	Args: func(cmd *cobra.Command, args []string) error {
		if all, _ := cmd.Flags().GetBool("all"); all {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := cli.OpenBackend(cmd.Context(), cfg, storeDir(cmd))
		if err != nil {
			return err
		}
		defer backend.Close()

		if all, _ := cmd.Flags().GetBool("all"); all {
			if args, err = backend.Store.List(cmd.Context()); err != nil {
				return fmt.Errorf("error listing machines: %w", err)
			}
		}

		failed := 0
		for _, machineID := range args {
			if err := backend.Store.Delete(cmd.Context(), machineID); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error removing '%s': %v\n", machineID, err)
				failed++
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed machine '%s'\n", machineID)
		}
		if failed > 0 {
			return fmt.Errorf("%d machines could not be removed", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(machineCmd)
	machineCmd.AddCommand(machineLsCmd)
	machineCmd.AddCommand(machineInspectCmd)
	machineCmd.AddCommand(machineRmCmd)

	machineInspectCmd.Flags().Bool("tree", false, "Render the active configuration against the graph")
	machineRmCmd.Flags().Bool("all", false, "Remove every stored machine")
}
