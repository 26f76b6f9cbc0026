// Package events decodes pipeline state-change notifications delivered to the observer.
package events

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/pipeline-observer/internal/jobs"
)

// Detail types emitted by the pipeline service.
const (
	DetailTypePipeline = "CodePipeline Pipeline Execution State Change"
	DetailTypeStage    = "CodePipeline Stage Execution State Change"
	DetailTypeAction   = "CodePipeline Action Execution State Change"
)

// Detail is the detail body of a state change.
type Detail struct {
	Pipeline    string `json:"pipeline" validate:"required"`
	ExecutionID string `json:"execution-id" validate:"required"`
	State       string `json:"state" validate:"required,oneof=STARTED SUCCEEDED FAILED RESUMED STOPPED STOPPING CANCELED SUPERSEDED"`
	Stage       string `json:"stage,omitempty"`
	Action      string `json:"action,omitempty"`
}

// StateChange is one pipeline, stage or action state transition.
type StateChange struct {
	DetailType string    `json:"detail-type,omitempty"`
	Source     string    `json:"source,omitempty"`
	Time       time.Time `json:"time" validate:"required"`
	Detail     Detail    `json:"detail"`
}

// CompositeStage returns the job record sort key for this change.
func (s StateChange) CompositeStage() string {
	return jobs.CompositeStage(s.Detail.Stage, s.Detail.Action)
}

// IsPipelineLevel reports whether the change concerns the whole execution.
func (s StateChange) IsPipelineLevel() bool {
	return s.Detail.Stage == ""
}

// Key returns the job record key for this change.
func (s StateChange) Key() jobs.Key {
	return jobs.Key{ExecID: s.Detail.ExecutionID, Stage: s.CompositeStage()}
}

func (s StateChange) String() string {
	stage := s.Detail.Stage
	if stage == "" {
		stage = jobs.PipelineMarker
	}
	action := s.Detail.Action
	if action == "" {
		action = jobs.ActionNone
	}
	return fmt.Sprintf("%s: %s/%s/%s %s", s.Detail.State, s.Detail.Pipeline, stage, action, s.Detail.ExecutionID)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the required fields of a parsed state change.
func (s *StateChange) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &ValidationError{Cause: err}
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.TrimPrefix(fe.Namespace(), "StateChange."))
	}
	return &ValidationError{Fields: fields, Cause: err}
}
