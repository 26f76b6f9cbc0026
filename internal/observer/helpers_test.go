package observer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonathan/pipeline-observer/internal/events"
	"github.com/jonathan/pipeline-observer/internal/jobs"
)

const (
	testPipeline = "YourApp_dev"
	testExecID   = "3f1c1b1e-8e0a-4a56-9a39-0d6b8a0e1f42"
)

func at(t *testing.T, clock string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, "2024-03-01T"+clock+"Z")
	if err != nil {
		t.Fatalf("bad clock %q: %v", clock, err)
	}
	return ts
}

func change(state, stage, action string, ts time.Time) events.StateChange {
	return events.StateChange{
		Time: ts,
		Detail: events.Detail{
			Pipeline:    testPipeline,
			ExecutionID: testExecID,
			State:       state,
			Stage:       stage,
			Action:      action,
		},
	}
}

// fakeClock is a manually advanced clock whose sleeps advance time.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(ts time.Time) {
	c.mu.Lock()
	c.now = ts
	c.mu.Unlock()
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return ctx.Err()
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

type sentReport struct {
	Pipeline string
	ExecID   string
	State    string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentReport
	err  error
}

func (s *recordingSender) SendReport(_ context.Context, pipeline, execID, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentReport{Pipeline: pipeline, ExecID: execID, State: state})
	return s.err
}

func newTestHandler(store jobs.Store, sender ReportSender, clock *fakeClock, opts Options) *Handler {
	if opts.ReadAttempts == 0 {
		opts.ReadAttempts = 2
	}
	h := NewHandler(store, sender, opts)
	h.now = clock.Now
	h.sleep = clock.Sleep
	return h
}

type capturedMessage struct {
	Subject string
	Message string
}

type capturingPublisher struct {
	mu       sync.Mutex
	messages []capturedMessage
	err      error
}

func (p *capturingPublisher) Publish(_ context.Context, subject, message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, capturedMessage{Subject: subject, Message: message})
	return nil
}
