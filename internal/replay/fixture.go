// Package replay runs recorded state-change notifications through the
// observer offline.
package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/pipeline-observer/internal/events"
	"github.com/jonathan/pipeline-observer/internal/executions"
)

// Fixture is one recorded execution.
type Fixture struct {
	Pipeline      string              `yaml:"pipeline" validate:"required"`
	ExecutionID   string              `yaml:"execution_id"` // generated when empty
	Revision      executions.Revision `yaml:"revision"`
	TestAction    string              `yaml:"test_action"`
	Artifact      Artifact            `yaml:"artifact"`
	GracePeriod   Duration            `yaml:"grace_period"`
	Notifications []Notification      `yaml:"notifications" validate:"required,min=1,dive"`
}

// Artifact locates the test action's output archive. Files, when set, are
// zipped into a temporary directory instead of reading Dir.
type Artifact struct {
	Bucket string            `yaml:"bucket"`
	Key    string            `yaml:"key"`
	Dir    string            `yaml:"dir"`
	Files  map[string]string `yaml:"files"`
}

// Notification is one recorded state change.
type Notification struct {
	Time   string `yaml:"time" validate:"required"`
	State  string `yaml:"state" validate:"required"`
	Stage  string `yaml:"stage"`
	Action string `yaml:"action"`
}

// Duration is a time.Duration that unmarshals from YAML strings (e.g. "2s").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the standard time.Duration.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

var validate = validator.New()

// ParseFixture parses YAML bytes into a Fixture and fills defaults.
func ParseFixture(data []byte) (*Fixture, error) {
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if err := validate.Struct(&fx); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}
	if fx.ExecutionID == "" {
		fx.ExecutionID = uuid.NewString()
	}
	if fx.TestAction == "" {
		fx.TestAction = "Test"
	}
	return &fx, nil
}

// LoadFixture reads and parses a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseFixture(data)
}

type document struct {
	Version    string         `json:"version"`
	ID         string         `json:"id"`
	DetailType string         `json:"detail-type"`
	Source     string         `json:"source"`
	Time       string         `json:"time"`
	Detail     documentDetail `json:"detail"`
}

type documentDetail struct {
	Pipeline    string `json:"pipeline"`
	ExecutionID string `json:"execution-id"`
	State       string `json:"state"`
	Stage       string `json:"stage,omitempty"`
	Action      string `json:"action,omitempty"`
}

// Document renders n as the event document the pipeline service would emit.
func (n Notification) Document(pipeline, execID string) ([]byte, error) {
	detailType := events.DetailTypeAction
	switch {
	case n.Stage == "":
		detailType = events.DetailTypePipeline
	case n.Action == "":
		detailType = events.DetailTypeStage
	}
	return json.Marshal(document{
		Version:    "0",
		ID:         uuid.NewString(),
		DetailType: detailType,
		Source:     "aws.codepipeline",
		Time:       n.Time,
		Detail: documentDetail{
			Pipeline:    pipeline,
			ExecutionID: execID,
			State:       n.State,
			Stage:       n.Stage,
			Action:      n.Action,
		},
	})
}

// ExecutionData is the fixture's view of the pipeline service.
func (fx *Fixture) ExecutionData() executions.ExecutionData {
	data := executions.ExecutionData{
		PipelineName: fx.Pipeline,
		ExecutionID:  fx.ExecutionID,
		Revisions:    []executions.Revision{fx.Revision},
	}
	loc := executions.ArtifactLocation{Bucket: fx.Artifact.Bucket, Key: fx.Artifact.Key}
	if !loc.IsZero() {
		data.ActionExecutions = []executions.ActionExecution{{
			ActionName:      fx.TestAction,
			OutputArtifacts: []executions.ArtifactLocation{loc},
		}}
	}
	return data
}
