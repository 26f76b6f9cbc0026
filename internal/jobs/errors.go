package jobs

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Store.Get when no record exists for the key.
var ErrNotFound = errors.New("job record not found")

// ErrRecordNotSynced is returned when a record could not be read after all retries.
var ErrRecordNotSynced = errors.New("the job store did not sync in time")

// StoreError represents a failed store operation.
type StoreError struct {
	Op    string
	Key   Key
	Cause error
}

func (e *StoreError) Error() string {
	if e.Key.Stage != "" {
		return fmt.Sprintf("job store %s %s/%s: %v", e.Op, e.Key.ExecID, e.Key.Stage, e.Cause)
	}
	return fmt.Sprintf("job store %s %s: %v", e.Op, e.Key.ExecID, e.Cause)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}
