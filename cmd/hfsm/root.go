package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/hfsm/internal/cli"
	"github.com/aretw0/hfsm/internal/config"
)

var (
	cfg    = config.Default()
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "hfsm",
	Short: "hfsm resolves transitions of hierarchical state machines",
	Long: `hfsm loads a hierarchical state machine graph (YAML, JSON, HCL or a Loam
directory), fires arrows into machine states and serves the engine over
HTTP or MCP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded

		// Flags win over the config file and the environment.
		flags := cmd.Flags()
		if flags.Changed("graph") {
			cfg.Graph, _ = flags.GetString("graph")
		}
		if flags.Changed("entry-point") {
			cfg.EntryPoint, _ = flags.GetString("entry-point")
		}
		if flags.Changed("log-level") {
			cfg.LogLevel, _ = flags.GetString("log-level")
		}
		if flags.Changed("redis") {
			cfg.Redis.Addr, _ = flags.GetString("redis")
		}

		logger, err = cli.NewLogger(cfg)
		return err
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	flags := rootCmd.PersistentFlags()
	flags.StringP("graph", "g", cfg.Graph, "Graph source: .yaml, .yml, .json or .hcl file, or a Loam directory")
	flags.String("config", "", "Path to an hfsm YAML config file")
	flags.String("entry-point", cfg.EntryPoint, "Entry point used to start new machines")
	flags.String("log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	flags.String("redis", "", "Redis address for machine state (default: files under --store)")
	flags.String("store", "", "Directory for machine state files (default .hfsm/machines)")
}

func storeDir(cmd *cobra.Command) string {
	dir, _ := cmd.Flags().GetString("store")
	return dir
}
