// Package main provides the entry point for the pipeline observer.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "pipeline_observer",
	Short: "Pipeline state-change observer",
	Long: "Records pipeline, stage and action state changes and publishes a report when an execution finishes. " +
		"Run without a subcommand to serve as a Lambda function.",
	SilenceUsage: true,
	RunE:         runLambda,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to JSON config file (values override the environment)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print detailed debug information")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
