package events

import (
	"fmt"
	"strings"
)

// DecodeError represents an inbound document that could not be parsed
type DecodeError struct {
	Message string
	Cause   error
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("decode error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("decode error: %s", e.Message)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// ValidationError represents a parsed notification missing required fields
type ValidationError struct {
	Fields []string
	Cause  error
}

func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("invalid state change: %s", strings.Join(e.Fields, ", "))
	}
	return fmt.Sprintf("invalid state change: %v", e.Cause)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}
