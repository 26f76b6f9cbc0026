// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/pipeline-observer/internal/artifacts"
	"github.com/jonathan/pipeline-observer/internal/executions"
	"github.com/jonathan/pipeline-observer/internal/jobs"
	"github.com/jonathan/pipeline-observer/internal/report"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintExecution outputs the revision and action executions of one run.
func (p *Printer) PrintExecution(data *executions.ExecutionData) {
	if data == nil {
		return
	}

	var sb strings.Builder
	rev := data.Revision()
	sb.WriteString(fmt.Sprintf("Pipeline:  %s (v%d)\n", data.PipelineName, data.PipelineVersion))
	sb.WriteString(fmt.Sprintf("Execution: %s\n", data.ExecutionID))
	sb.WriteString(fmt.Sprintf("Status:    %s\n", data.Status))
	sb.WriteString(fmt.Sprintf("Revision:  %s\n", report.Shorten(rev.ID+" "+rev.Summary, boxWidth-15)))
	sb.WriteString("\n")

	if data.ActionExecutionsErr != nil {
		sb.WriteString(fmt.Sprintf("⚠ actions unavailable: %v\n", data.ActionExecutionsErr))
	} else if len(data.ActionExecutions) > 0 {
		sb.WriteString("Actions:\n")
		count := min(len(data.ActionExecutions), maxItemsToShow)
		for i := 0; i < count; i++ {
			ae := data.ActionExecutions[i]
			sb.WriteString(fmt.Sprintf("  • %s/%s %s\n", ae.StageName, ae.ActionName, ae.Status))
		}
		if len(data.ActionExecutions) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(data.ActionExecutions)-maxItemsToShow))
		}
	}

	p.printBox("EXECUTION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintTimeline outputs the stored job records in timeline order.
func (p *Printer) PrintTimeline(records []jobs.Record) {
	if len(records) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total records: %d\n\n", len(records)))
	for _, rec := range records {
		ended := "open"
		if rec.HasEnded() {
			ended = report.HumanDuration(rec.Started, rec.Ended)
		}
		sb.WriteString(fmt.Sprintf("%s  %-10s %s\n", rec.Started.UTC().Format("15:04:05"), rec.State, rec.Stage))
		sb.WriteString(fmt.Sprintf("          %s\n", ended))
	}

	p.printBox("JOB RECORDS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintArtifacts outputs how each report file was obtained.
func (p *Printer) PrintArtifacts(results artifacts.Results) {
	var sb strings.Builder
	for _, fr := range []artifacts.FileResult{results.Lint, results.Tests, results.Coverage} {
		mark := "✓"
		if fr.Status != artifacts.StatusRead {
			mark = "⚠"
		}
		sb.WriteString(fmt.Sprintf("%s %s (%s)\n", mark, fr.Name, fr.Status))
		if fr.Err != nil {
			sb.WriteString(fmt.Sprintf("  %v\n", fr.Err))
		}
	}

	p.printBox("ARTIFACT FILES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintReport outputs everything gathered for one report.
func (p *Printer) PrintReport(rep *report.Report) {
	if rep == nil {
		return
	}
	p.PrintTimeline(rep.Records)
	p.PrintArtifacts(rep.Artifacts)
}
