package observer

import (
	"context"
	"fmt"
	"log"

	"github.com/jonathan/pipeline-observer/internal/artifacts"
	"github.com/jonathan/pipeline-observer/internal/executions"
	"github.com/jonathan/pipeline-observer/internal/jobs"
	"github.com/jonathan/pipeline-observer/internal/notify"
	"github.com/jonathan/pipeline-observer/internal/report"
)

// ArtifactExtractor reads the report files from an artifact archive.
type ArtifactExtractor interface {
	Extract(ctx context.Context, bucket, key string) artifacts.Results
	Files() artifacts.Files
}

// ReportSender composes and publishes the report for one execution.
type ReportSender interface {
	SendReport(ctx context.Context, pipeline, execID, state string) error
}

// Reporter gathers execution data, job records and artifact files into a report.
type Reporter struct {
	fetcher    executions.Fetcher
	store      jobs.Store
	extractor  ArtifactExtractor
	publisher  notify.Publisher
	testAction string
}

// NewReporter returns a Reporter. testAction names the action whose output
// artifact holds the lint, test and coverage files.
func NewReporter(fetcher executions.Fetcher, store jobs.Store, extractor ArtifactExtractor, publisher notify.Publisher, testAction string) *Reporter {
	return &Reporter{
		fetcher:    fetcher,
		store:      store,
		extractor:  extractor,
		publisher:  publisher,
		testAction: testAction,
	}
}

// Build collects everything needed for the report of one execution.
func (r *Reporter) Build(ctx context.Context, pipeline, execID, state string) (*report.Report, error) {
	data, err := r.fetcher.Fetch(ctx, pipeline, execID)
	if err != nil {
		return nil, fmt.Errorf("fetch execution %s: %w", execID, err)
	}

	results := r.testResults(ctx, data)

	records, err := r.store.ListByExecution(ctx, execID)
	if err != nil {
		return nil, fmt.Errorf("list job records for %s: %w", execID, err)
	}
	jobs.SortTimeline(records)

	return &report.Report{
		Pipeline:  pipeline,
		ExecID:    execID,
		State:     state,
		Revision:  data.Revision(),
		Records:   records,
		Artifacts: results,
	}, nil
}

func (r *Reporter) testResults(ctx context.Context, data *executions.ExecutionData) artifacts.Results {
	if data.ActionExecutionsErr != nil {
		return artifacts.Unavailable(r.extractor.Files(), data.ActionExecutionsErr)
	}
	loc, ok := data.OutputArtifact(r.testAction)
	if !ok {
		log.Printf("[report] no output artifact for action %q in %s", r.testAction, data.ExecutionID)
		return artifacts.Unavailable(r.extractor.Files(), fmt.Errorf("action %q not found", r.testAction))
	}
	return r.extractor.Extract(ctx, loc.Bucket, loc.Key)
}

// SendReport builds, renders and publishes the report.
func (r *Reporter) SendReport(ctx context.Context, pipeline, execID, state string) error {
	rep, err := r.Build(ctx, pipeline, execID, state)
	if err != nil {
		return err
	}
	if err := r.publisher.Publish(ctx, notify.Subject(pipeline, state), report.Compose(*rep)); err != nil {
		return err
	}
	log.Printf("[report] published %s report for %s/%s (%d records)", state, pipeline, execID, len(rep.Records))
	return nil
}

var _ ReportSender = (*Reporter)(nil)
