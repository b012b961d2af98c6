package cmd

import (
	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X github.com/spigell/careerpath-ai/cmd.version=...".
var version = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the careerpath-ai version",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("%s version: %s\n", app, version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
