package observability

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/pipeline-observer/internal/artifacts"
	"github.com/jonathan/pipeline-observer/internal/executions"
	"github.com/jonathan/pipeline-observer/internal/jobs"
	"github.com/jonathan/pipeline-observer/internal/report"
)

func TestPrintExecution(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	data := &executions.ExecutionData{
		PipelineName:    "YourApp_dev",
		ExecutionID:     "exec-1",
		Status:          "Succeeded",
		PipelineVersion: 3,
		Revisions:       []executions.Revision{{ID: "abcdef12", Summary: "Fix the build"}},
		ActionExecutions: []executions.ActionExecution{
			{StageName: "Source", ActionName: "CodeCommit", Status: "Succeeded"},
			{StageName: "TestAndBuild", ActionName: "Test", Status: "Failed"},
		},
	}

	p.PrintExecution(data)
	output := buf.String()

	assert.Contains(t, output, "EXECUTION")
	assert.Contains(t, output, "YourApp_dev (v3)")
	assert.Contains(t, output, "abcdef12 Fix the build")
	assert.Contains(t, output, "TestAndBuild/Test Failed")
}

func TestPrintExecution_ActionsUnavailable(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintExecution(&executions.ExecutionData{ActionExecutionsErr: errors.New("denied")})

	assert.Contains(t, buf.String(), "actions unavailable: denied")
}

func TestPrintExecution_Nil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintExecution(nil)

	assert.Empty(t, buf.String())
}

func TestPrintTimeline(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	ended := start.Add(45 * time.Second)
	p.PrintTimeline([]jobs.Record{
		{Stage: jobs.PipelineMarker, State: "SUCCEEDED", Started: start, Ended: &ended},
		{Stage: "Deploy: Workload", Action: "Workload", State: "STARTED", Started: start},
	})
	output := buf.String()

	assert.Contains(t, output, "JOB RECORDS")
	assert.Contains(t, output, "Total records: 2")
	assert.Contains(t, output, "10:00:00  SUCCEEDED  AJOB")
	assert.Contains(t, output, "45 seconds")
	assert.Contains(t, output, "open")
}

func TestPrintTimeline_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintTimeline(nil)
	assert.Empty(t, buf.String())
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	files := artifacts.Files{Lint: "pylint.out", Test: "pytest.out", Coverage: "coverage.out"}
	p.PrintReport(&report.Report{Artifacts: artifacts.Unavailable(files, errors.New("NoSuchKey"))})
	output := buf.String()

	assert.Contains(t, output, "ARTIFACT FILES")
	assert.Equal(t, 3, strings.Count(output, "archive_unreadable"))
	assert.Contains(t, output, "NoSuchKey")
	assert.NotContains(t, output, "JOB RECORDS")
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TITLE", strings.Repeat("x", 100))

	assert.Contains(t, buf.String(), "...")
	assert.NotContains(t, buf.String(), strings.Repeat("x", 60))
}
