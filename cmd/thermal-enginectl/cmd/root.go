// Package cmd wires thermal-enginectl's cobra commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "thermal-enginectl",
	Short:   "Run and inspect the thermal throttling engine",
	Version: version,
}

// Execute runs the root command. Called once from main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "engine.yaml", "engine configuration file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
}
