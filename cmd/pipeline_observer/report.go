package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/pipeline-observer/internal/jobs"
	"github.com/jonathan/pipeline-observer/internal/observability"
)

var (
	reportPipeline string
	reportExecID   string
	reportState    string
	reportDryRun   bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Compose the report for one execution",
	Long:  "Fetches execution data, job records and test artifacts for an execution and publishes the report immediately.",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportPipeline, "pipeline", "p", "", "Pipeline name (required)")
	reportCmd.Flags().StringVar(&reportExecID, "exec-id", "", "Pipeline execution id (required)")
	reportCmd.Flags().StringVar(&reportState, "state", jobs.StateSucceeded, "Terminal state shown in the report")
	reportCmd.Flags().BoolVar(&reportDryRun, "dry-run", false, "Print the report instead of publishing it")

	for _, name := range []string{"pipeline", "exec-id"} {
		if err := reportCmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
		}
	}

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	var dryRun io.Writer
	if reportDryRun {
		dryRun = cmd.OutOrStdout()
	}
	d, err := buildDeps(cmd.Context(), cfg, dryRun)
	if err != nil {
		return err
	}
	defer d.Close()

	state := strings.ToUpper(reportState)
	reporter := d.reporter(cfg)

	if verbose {
		printer := observability.NewPrinter(cmd.ErrOrStderr())
		data, err := d.fetcher.Fetch(cmd.Context(), reportPipeline, reportExecID)
		if err != nil {
			return fmt.Errorf("failed to fetch execution: %w", err)
		}
		printer.PrintExecution(data)
		rep, err := reporter.Build(cmd.Context(), reportPipeline, reportExecID, state)
		if err != nil {
			return err
		}
		printer.PrintReport(rep)
	}

	return reporter.SendReport(cmd.Context(), reportPipeline, reportExecID, state)
}
