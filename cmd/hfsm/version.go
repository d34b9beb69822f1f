package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/hfsm"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of hfsm",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "hfsm version %s\n", strings.TrimSpace(hfsm.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
