// Package observer records pipeline progress and reports finished executions.
package observer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jonathan/pipeline-observer/internal/config"
	"github.com/jonathan/pipeline-observer/internal/events"
	"github.com/jonathan/pipeline-observer/internal/jobs"
)

// DefaultSettlePollInterval is how often the settle wait re-reads the store.
const DefaultSettlePollInterval = time.Second

// Options tunes the handler's retry and wait behavior.
type Options struct {
	ReadAttempts      int
	ReadRetryInterval time.Duration
	// GracePeriod is waited after the terminal notification before reporting.
	GracePeriod time.Duration
	// SettleTimeout bounds an extra wait for open stage records. Zero disables it.
	SettleTimeout      time.Duration
	SettlePollInterval time.Duration
	// Clock stamps end times. Nil means time.Now.
	Clock func() time.Time
}

// OptionsFromConfig extracts handler options from cfg.
func OptionsFromConfig(cfg *config.ObserverConfig) Options {
	return Options{
		ReadAttempts:      cfg.ReadAttempts,
		ReadRetryInterval: cfg.ReadRetryInterval,
		GracePeriod:       cfg.GracePeriod,
		SettleTimeout:     cfg.SettleTimeout,
	}
}

// Handler applies state changes to job records and triggers the report
// when the execution-level record closes.
type Handler struct {
	store    jobs.Store
	reporter ReportSender
	opts     Options

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewHandler returns a Handler using the wall clock.
func NewHandler(store jobs.Store, reporter ReportSender, opts Options) *Handler {
	if opts.ReadAttempts < 1 {
		opts.ReadAttempts = 1
	}
	if opts.SettlePollInterval <= 0 {
		opts.SettlePollInterval = DefaultSettlePollInterval
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Handler{
		store:    store,
		reporter: reporter,
		opts:     opts,
		now:      now,
		sleep:    sleepContext,
	}
}

// HandleAll processes changes in order. Every change is attempted; the
// errors are joined.
func (h *Handler) HandleAll(ctx context.Context, changes []events.StateChange) error {
	var errs []error
	for _, c := range changes {
		if err := h.Handle(ctx, c); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c, err))
		}
	}
	return errors.Join(errs...)
}

// Handle processes one state change.
func (h *Handler) Handle(ctx context.Context, change events.StateChange) error {
	log.Printf("[observer] %s", change)

	d := change.Detail
	key := change.Key()

	if d.State == jobs.StateStarted {
		rec := jobs.Record{
			ExecID:  d.ExecutionID,
			Stage:   key.Stage,
			Action:  d.Action,
			State:   d.State,
			Started: change.Time.UTC(),
		}
		if err := h.store.Put(ctx, rec); err != nil {
			return fmt.Errorf("record start of %s: %w", key.Stage, err)
		}
		return nil
	}

	rec, err := jobs.GetWithRetry(ctx, h.store, key, h.opts.ReadAttempts, h.opts.ReadRetryInterval)
	if err != nil {
		return err
	}
	rec.Apply(d.State, h.now())
	if err := h.store.Put(ctx, *rec); err != nil {
		return fmt.Errorf("record %s of %s: %w", d.State, key.Stage, err)
	}

	if !rec.IsPipelineLevel() || !rec.HasEnded() {
		return nil
	}

	// Sibling action notifications may still be in flight.
	if err := h.sleep(ctx, h.opts.GracePeriod); err != nil {
		return err
	}
	if err := h.waitForSettle(ctx, d.ExecutionID); err != nil {
		return err
	}
	return h.reporter.SendReport(ctx, d.Pipeline, d.ExecutionID, d.State)
}

// waitForSettle polls until every stage and action record of the execution
// has ended or SettleTimeout passes. Reporting proceeds either way.
func (h *Handler) waitForSettle(ctx context.Context, execID string) error {
	if h.opts.SettleTimeout <= 0 {
		return nil
	}
	deadline := h.now().Add(h.opts.SettleTimeout)
	for {
		records, err := h.store.ListByExecution(ctx, execID)
		if err != nil {
			log.Printf("[observer] settle check for %s failed: %v", execID, err)
			return nil
		}
		open := jobs.OpenRecords(records)
		if len(open) == 0 {
			return nil
		}
		if !h.now().Before(deadline) {
			log.Printf("[observer] %d records of %s still open after %s, reporting anyway", len(open), execID, h.opts.SettleTimeout)
			return nil
		}
		if err := h.sleep(ctx, h.opts.SettlePollInterval); err != nil {
			return err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
