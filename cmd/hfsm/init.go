package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/hfsm/pkg/adapters/file"
)

// starterGraph is a media player: a stopped leaf and a playing composite
// whose track and volume regions run side by side.
const starterGraph = `root: player
nodes:
  - id: player
    entry_points:
      default: player:stopped
      resume: {target: "player:recent", entry_point: default}
    arrows:
      "player:stopped":
        play: {target: "player:playing", entry_point: default}
      "player:playing":
        stop: player:stopped
  - id: player:stopped
  - id: player:playing
    nodes: ["player:playing:track", "player:playing:volume"]
  - id: player:playing:track
    entry_points:
      default: player:playing:track:first
    arrows:
      "player:playing:track:first":
        next: player:playing:track:second
      "player:playing:track:second":
        next: player:playing:track:first
  - id: player:playing:track:first
  - id: player:playing:track:second
  - id: player:playing:volume
    entry_points:
      default: player:playing:volume:normal
    arrows:
      "player:playing:volume:normal":
        mute: player:playing:volume:muted
      "player:playing:volume:muted":
        unmute: player:playing:volume:normal
  - id: player:playing:volume:normal
  - id: player:playing:volume:muted
`

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a starter graph",
	Long:  `Writes a small media player graph to path (default: the --graph value) to start from.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Graph
		if len(args) > 0 {
			path = args[0]
		}
		force, _ := cmd.Flags().GetBool("force")

		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		doc, err := file.Decode([]byte(starterGraph))
		if err != nil {
			return err
		}
		if _, err := doc.Build(); err != nil {
			return fmt.Errorf("starter graph: %w", err)
		}

		if err := os.WriteFile(path, []byte(starterGraph), 0644); err != nil {
			return fmt.Errorf("failed to write graph: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s. Try: hfsm fire -g %s --arrow player:stopped/play\n", path, path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing file")
}
