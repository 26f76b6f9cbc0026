package replay

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/jonathan/pipeline-observer/internal/artifacts"
	"github.com/jonathan/pipeline-observer/internal/events"
	"github.com/jonathan/pipeline-observer/internal/executions"
	"github.com/jonathan/pipeline-observer/internal/jobs"
	"github.com/jonathan/pipeline-observer/internal/notify"
	"github.com/jonathan/pipeline-observer/internal/observer"
)

// Options configures a replay run.
type Options struct {
	Out        io.Writer
	Files      artifacts.Files
	ScratchDir string
}

// Result summarizes a replay run.
type Result struct {
	ExecutionID string
	Records     []jobs.Record
	Reports     int
}

// countingPublisher counts what it forwards.
type countingPublisher struct {
	next  notify.Publisher
	count atomic.Int32
}

func (p *countingPublisher) Publish(ctx context.Context, subject, message string) error {
	if err := p.next.Publish(ctx, subject, message); err != nil {
		return err
	}
	p.count.Add(1)
	return nil
}

// Run feeds the fixture's notifications, in order, through a handler backed
// by an in-memory store. Reports are written to opts.Out. End times are
// stamped with each notification's own time.
func Run(ctx context.Context, fx *Fixture, opts Options) (*Result, error) {
	source, cleanup, err := artifactSource(fx, opts.ScratchDir)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	store := jobs.NewMemoryStore()
	pub := &countingPublisher{next: notify.NewWriterPublisher(opts.Out)}
	extractor := artifacts.NewExtractor(source, opts.Files, opts.ScratchDir)
	reporter := observer.NewReporter(&executions.Static{Data: fx.ExecutionData()}, store, extractor, pub, fx.TestAction)

	var current time.Time
	h := observer.NewHandler(store, reporter, observer.Options{
		ReadAttempts: 1,
		GracePeriod:  fx.GracePeriod.Duration(),
		Clock:        func() time.Time { return current },
	})

	for i, n := range fx.Notifications {
		doc, err := n.Document(fx.Pipeline, fx.ExecutionID)
		if err != nil {
			return nil, fmt.Errorf("notification %d: %w", i, err)
		}
		change, err := events.ParseStateChange(doc)
		if err != nil {
			return nil, fmt.Errorf("notification %d: %w", i, err)
		}
		current = change.Time
		if err := h.Handle(ctx, *change); err != nil {
			return nil, fmt.Errorf("notification %d: %w", i, err)
		}
	}

	records, err := store.ListByExecution(ctx, fx.ExecutionID)
	if err != nil {
		return nil, err
	}
	jobs.SortTimeline(records)

	return &Result{
		ExecutionID: fx.ExecutionID,
		Records:     records,
		Reports:     int(pub.count.Load()),
	}, nil
}

func artifactSource(fx *Fixture, scratchDir string) (artifacts.Source, func(), error) {
	noop := func() {}
	if len(fx.Artifact.Files) == 0 {
		return artifacts.DirSource{Root: fx.Artifact.Dir}, noop, nil
	}
	if fx.Artifact.Bucket == "" || fx.Artifact.Key == "" {
		return nil, noop, fmt.Errorf("artifact files need a bucket and key")
	}

	root, err := os.MkdirTemp(scratchDir, "replay-*")
	if err != nil {
		return nil, noop, err
	}
	cleanup := func() { os.RemoveAll(root) }

	path := filepath.Join(root, fx.Artifact.Bucket, filepath.FromSlash(fx.Artifact.Key))
	if err := writeArchive(path, fx.Artifact.Files); err != nil {
		cleanup()
		return nil, noop, err
	}
	return artifacts.DirSource{Root: root}, cleanup, nil
}

func writeArchive(path string, files map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := artifacts.WriteZip(f, files); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
