package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/pipeline-observer/internal/artifacts"
	"github.com/jonathan/pipeline-observer/internal/config"
	"github.com/jonathan/pipeline-observer/internal/observability"
	"github.com/jonathan/pipeline-observer/internal/replay"
)

var replayFile string

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded execution offline",
	Long:  "Feeds the notifications of a YAML fixture through the observer with an in-memory store and prints the resulting report.",
	RunE:  runReplay,
}

func init() {
	replayCmd.Flags().StringVarP(&replayFile, "file", "f", "", "Path to YAML fixture (required)")

	if err := replayCmd.MarkFlagRequired("file"); err != nil {
		panic(fmt.Sprintf("failed to mark file flag as required: %v", err))
	}

	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(func(c *config.Config) {
		c.StoreBackend = config.BackendMemory
	})
	if err != nil {
		return err
	}

	fx, err := replay.LoadFixture(replayFile)
	if err != nil {
		return fmt.Errorf("failed to load fixture: %w", err)
	}

	res, err := replay.Run(cmd.Context(), fx, replay.Options{
		Out:        cmd.OutOrStdout(),
		Files:      artifacts.Files{Lint: cfg.LintFile, Test: cfg.TestFile, Coverage: cfg.CoverageFile},
		ScratchDir: cfg.ScratchDir,
	})
	if err != nil {
		return err
	}

	if verbose {
		observability.NewPrinter(cmd.ErrOrStderr()).PrintTimeline(res.Records)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Replayed %d notification(s) for %s, %d report(s) published\n",
		len(fx.Notifications), res.ExecutionID, res.Reports)
	return nil
}
