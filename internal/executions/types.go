// Package executions fetches execution details from the pipeline service.
package executions

import "fmt"

// Revision is one source revision that triggered an execution.
type Revision struct {
	ID      string `json:"revision_id" yaml:"id"`
	Summary string `json:"revision_summary" yaml:"summary"`
	URL     string `json:"revision_url" yaml:"url"`
}

// ArtifactLocation addresses one artifact object in storage.
type ArtifactLocation struct {
	Bucket string `json:"bucket" yaml:"bucket"`
	Key    string `json:"key" yaml:"key"`
}

// IsZero reports whether the location is unset.
func (l ArtifactLocation) IsZero() bool {
	return l.Bucket == "" && l.Key == ""
}

func (l ArtifactLocation) String() string {
	return fmt.Sprintf("%s/%s", l.Bucket, l.Key)
}

// ActionExecution is one action run within an execution.
type ActionExecution struct {
	ActionName      string
	StageName       string
	Status          string
	OutputArtifacts []ArtifactLocation
}

// ExecutionData collects everything the report needs about one execution.
type ExecutionData struct {
	PipelineName    string
	ExecutionID     string
	Status          string
	Revisions       []Revision
	PipelineVersion int32
	StageStatuses   map[string]string

	ActionExecutions []ActionExecution
	// ActionExecutionsErr records a failed action listing; the report
	// degrades instead of aborting.
	ActionExecutionsErr error
}

// Revision returns the first artifact revision, or a zero Revision.
func (d *ExecutionData) Revision() Revision {
	if d == nil || len(d.Revisions) == 0 {
		return Revision{}
	}
	return d.Revisions[0]
}

// OutputArtifact returns the first output artifact of the first action
// execution named actionName.
func (d *ExecutionData) OutputArtifact(actionName string) (ArtifactLocation, bool) {
	if d == nil {
		return ArtifactLocation{}, false
	}
	for _, ae := range d.ActionExecutions {
		if ae.ActionName != actionName {
			continue
		}
		if len(ae.OutputArtifacts) == 0 || ae.OutputArtifacts[0].IsZero() {
			return ArtifactLocation{}, false
		}
		return ae.OutputArtifacts[0], true
	}
	return ArtifactLocation{}, false
}
