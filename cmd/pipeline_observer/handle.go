package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/pipeline-observer/internal/events"
)

var (
	handleEvent  string
	handleDryRun bool
)

var handleCmd = &cobra.Command{
	Use:   "handle",
	Short: "Process one event document",
	Long:  "Decodes an SNS event or a bare state-change document and applies it to the job store, publishing a report if it closes an execution.",
	RunE:  runHandle,
}

func init() {
	handleCmd.Flags().StringVarP(&handleEvent, "event", "e", "", "Path to event JSON file, or - for stdin (required)")
	handleCmd.Flags().BoolVar(&handleDryRun, "dry-run", false, "Print reports instead of publishing them")

	if err := handleCmd.MarkFlagRequired("event"); err != nil {
		panic(fmt.Sprintf("failed to mark event flag as required: %v", err))
	}

	rootCmd.AddCommand(handleCmd)
}

func runHandle(cmd *cobra.Command, _ []string) error {
	raw, err := readEvent(cmd, handleEvent)
	if err != nil {
		return err
	}
	changes, err := events.Decode(raw)
	if err != nil {
		return fmt.Errorf("failed to decode event: %w", err)
	}

	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	var dryRun io.Writer
	if handleDryRun {
		dryRun = cmd.OutOrStdout()
	}
	d, err := buildDeps(cmd.Context(), cfg, dryRun)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.handler(cfg).HandleAll(cmd.Context(), changes); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Processed %d state change(s)\n", len(changes))
	return nil
}

func readEvent(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read event file: %w", err)
	}
	return data, nil
}
