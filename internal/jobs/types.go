// Package jobs persists per-stage progress records for pipeline executions.
package jobs

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

// Execution states reported by the pipeline service.
const (
	StateStarted    = "STARTED"
	StateSucceeded  = "SUCCEEDED"
	StateFailed     = "FAILED"
	StateResumed    = "RESUMED"
	StateStopped    = "STOPPED"
	StateStopping   = "STOPPING"
	StateCanceled   = "CANCELED"
	StateSuperseded = "SUPERSEDED"
)

// KnownStates lists every state a record may carry.
var KnownStates = []string{
	StateStarted, StateSucceeded, StateFailed, StateResumed,
	StateStopped, StateStopping, StateCanceled, StateSuperseded,
}

const (
	// PipelineMarker is the stage value of the execution-level record.
	PipelineMarker = "AJOB"
	// ActionNone is stored in place of an absent action.
	ActionNone = "None"
)

// Timestamp layouts used when records are serialized as strings.
const (
	StartedLayout = "2006-01-02T15:04:05Z"
	EndedLayout   = "2006-01-02T15:04:05.000000Z"
)

// Key identifies one record: the execution id and the composite stage.
type Key struct {
	ExecID string
	Stage  string
}

// Record is the stored progress of one stage, action or whole execution.
type Record struct {
	ExecID  string     `json:"exec_id"`
	Stage   string     `json:"stage"`
	Action  string     `json:"action,omitempty"`
	State   string     `json:"state"`
	Started time.Time  `json:"started"`
	Ended   *time.Time `json:"ended,omitempty"`
}

// CompositeStage builds the sort key for a stage and optional action.
// An empty stage means the execution-level record.
func CompositeStage(stage, action string) string {
	if stage == "" {
		stage = PipelineMarker
	}
	if action == "" || action == ActionNone {
		return stage
	}
	return stage + ": " + action
}

// Key returns the record's primary key.
func (r *Record) Key() Key {
	return Key{ExecID: r.ExecID, Stage: r.Stage}
}

// IsPipelineLevel reports whether r is the execution-level record.
func (r *Record) IsPipelineLevel() bool {
	return r.Stage == PipelineMarker
}

// HasAction reports whether r belongs to an action rather than a whole stage.
func (r *Record) HasAction() bool {
	return r.Action != "" && r.Action != ActionNone
}

// HasEnded reports whether an end time has been recorded.
func (r *Record) HasEnded() bool {
	return r.Ended != nil
}

// Apply sets the new state on r. Every state except RESUMED stamps the end time.
func (r *Record) Apply(state string, now time.Time) {
	r.State = state
	if state != StateResumed {
		ended := now.UTC()
		r.Ended = &ended
	}
}

// SortTimeline orders records by start time. Records starting at the same
// instant keep the execution-level record first, then sort by stage key.
func SortTimeline(records []Record) {
	slices.SortStableFunc(records, func(a, b Record) int {
		if c := a.Started.Compare(b.Started); c != 0 {
			return c
		}
		if a.IsPipelineLevel() != b.IsPipelineLevel() {
			if a.IsPipelineLevel() {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.Stage, b.Stage)
	})
}

// OpenRecords returns the stage and action records that have no end time yet.
func OpenRecords(records []Record) []Record {
	var open []Record
	for _, r := range records {
		if !r.IsPipelineLevel() && !r.HasEnded() {
			open = append(open, r)
		}
	}
	return open
}

func encodeAction(action string) string {
	if action == "" {
		return ActionNone
	}
	return action
}

func decodeAction(action string) string {
	if action == ActionNone {
		return ""
	}
	return action
}

// ParseTimestamp parses the timestamps written by this package and by the
// pipeline service, with or without fractional seconds.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
}
