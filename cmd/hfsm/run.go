package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/hfsm"
	"github.com/aretw0/hfsm/internal/cli"
	"github.com/aretw0/hfsm/internal/presentation/tui"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive a machine interactively",
	Long: `Starts an interactive prompt bound to one stored machine. Each line fires
arrows; the active configuration and the changes are printed after every
transition. With --watch the graph is reloaded when its source changes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		machineID, _ := cmd.Flags().GetString("machine")
		watch, _ := cmd.Flags().GetBool("watch")
		fresh, _ := cmd.Flags().GetBool("fresh")

		backend, err := cli.OpenBackend(cmd.Context(), cfg, storeDir(cmd))
		if err != nil {
			return err
		}
		defer backend.Close()

		if fresh {
			if err := backend.Store.Delete(cmd.Context(), machineID); err != nil {
				return err
			}
		}

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		renderer := tui.NewRenderer(os.Stdout)
		renderer.PrintBanner(os.Stdout)

		repl := &cli.REPL{
			In:        os.Stdin,
			Out:       os.Stdout,
			Renderer:  renderer,
			Logger:    logger,
			MachineID: machineID,
			Store:     backend.Store,
			Watch:     watch,
			Open: func(ctx context.Context) (*hfsm.Engine, error) {
				return cli.OpenEngine(ctx, cfg, logger)
			},
		}
		if err := repl.Run(sigCtx); err != nil {
			return err
		}
		if sig := sigCtx.Signal(); sig != nil {
			logger.Info("Interrupted", "signal", sig)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("machine", "m", "cli", "Machine to drive")
	runCmd.Flags().BoolP("watch", "w", false, "Reload the graph when its source changes")
	runCmd.Flags().Bool("fresh", false, "Start the machine over")
}
