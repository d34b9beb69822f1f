package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/hfsm/internal/cli"
	"github.com/aretw0/hfsm/internal/presentation/tui"
	"github.com/aretw0/hfsm/pkg/domain"
	"github.com/aretw0/hfsm/pkg/persistence/middleware"
)

var fireCmd = &cobra.Command{
	Use:   "fire",
	Short: "Fire arrows and print the resulting state",
	Long: `Fires the given arrows together and prints the resulting state as JSON.

Each --arrow lists the steps of one arrow, innermost first:
  --arrow app:settings:audio/close,app:settings/close

Without --machine the transition is stateless: it starts from --state (a JSON
or YAML file, "-" for stdin) or from a new machine. With --machine the stored
machine is loaded (or started), updated and saved.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		texts, _ := cmd.Flags().GetStringArray("arrow")
		statePath, _ := cmd.Flags().GetString("state")
		machineID, _ := cmd.Flags().GetString("machine")
		showDiff, _ := cmd.Flags().GetBool("diff")

		arrows, err := domain.ParseArrows(texts...)
		if err != nil {
			return err
		}
		if machineID != "" && statePath != "" {
			return fmt.Errorf("--state and --machine cannot be used together")
		}

		engine, err := cli.OpenEngine(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}

		var current, next domain.FSMState
		if machineID != "" {
			backend, err := cli.OpenBackend(cmd.Context(), cfg, storeDir(cmd))
			if err != nil {
				return err
			}
			defer backend.Close()
			backend.Use(middleware.NewGraphMiddleware(engine.Graph()))

			out, err := cli.NewManager(engine, backend, logger).Fire(cmd.Context(), machineID, arrows...)
			if err != nil {
				return err
			}
			current, next = out.Previous, out.State
		} else {
			if current, err = readState(cmd.InOrStdin(), statePath); err != nil {
				return err
			}
			if current == nil {
				if current, err = engine.Initial(cmd.Context()); err != nil {
					return err
				}
			}
			if next, err = engine.Transition(cmd.Context(), current, arrows...); err != nil {
				return err
			}
		}

		if showDiff {
			fmt.Fprint(cmd.ErrOrStderr(), tui.NewRenderer(cmd.ErrOrStderr()).Diff(domain.Diff(current, next)))
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(next)
	},
}

// readState decodes a state file; JSON is read as YAML. An empty path yields nil.
func readState(stdin io.Reader, path string) (domain.FSMState, error) {
	var (
		data []byte
		err  error
	)
	switch path {
	case "":
		return nil, nil
	case "-":
		data, err = io.ReadAll(stdin)
	default:
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state: %w", err)
	}

	state := domain.FSMState{}
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return state, nil
}

func init() {
	rootCmd.AddCommand(fireCmd)
	fireCmd.Flags().StringArrayP("arrow", "a", nil, "Arrow to fire (repeatable)")
	fireCmd.Flags().StringP("state", "s", "", "State file to start from (JSON or YAML, - for stdin)")
	fireCmd.Flags().StringP("machine", "m", "", "Stored machine to update")
	fireCmd.Flags().Bool("diff", false, "Print the changes to stderr")
}
