package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// Store abstracts persistence for job records.
// Implementations must be safe for concurrent use.
type Store interface {
	// Put writes the full record, replacing any existing row for its key.
	Put(ctx context.Context, rec Record) error
	// Get returns the record for key, or ErrNotFound.
	Get(ctx context.Context, key Key) (*Record, error)
	// ListByExecution returns every record of one execution in any order.
	ListByExecution(ctx context.Context, execID string) ([]Record, error)
}

// GetWithRetry reads a record, retrying up to attempts times with interval
// between tries. Reads may lag behind writes made by concurrent invocations.
func GetWithRetry(ctx context.Context, s Store, key Key, attempts int, interval time.Duration) (*Record, error) {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		rec, err := s.Get(ctx, key)
		if err == nil {
			return rec, nil
		}
		lastErr = err
		if !errors.Is(err, ErrNotFound) {
			log.Printf("[jobs] read %s/%s failed (attempt %d/%d): %v", key.ExecID, key.Stage, i, attempts, err)
		}
		if i == attempts {
			break
		}
		if err := sleepContext(ctx, interval); err != nil {
			return nil, err
		}
	}

	if errors.Is(lastErr, ErrNotFound) {
		return nil, fmt.Errorf("%w: %s/%s after %d attempts", ErrRecordNotSynced, key.ExecID, key.Stage, attempts)
	}
	return nil, fmt.Errorf("%w: %s/%s after %d attempts: %w", ErrRecordNotSynced, key.ExecID, key.Stage, attempts, lastErr)
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
