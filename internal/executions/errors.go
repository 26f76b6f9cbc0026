package executions

import "fmt"

// APIError represents a failed call to the pipeline service
type APIError struct {
	Op       string
	Pipeline string
	Cause    error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pipeline API %s for %s failed: %v", e.Op, e.Pipeline, e.Cause)
}

func (e *APIError) Unwrap() error {
	return e.Cause
}
