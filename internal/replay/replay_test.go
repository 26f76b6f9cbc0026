package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/pipeline-observer/internal/artifacts"
	"github.com/jonathan/pipeline-observer/internal/events"
	"github.com/jonathan/pipeline-observer/internal/jobs"
)

var testFiles = artifacts.Files{Lint: "pylint.out", Test: "pytest.out", Coverage: "coverage.out"}

func TestRun_Fixture(t *testing.T) {
	fx, err := LoadFixture(filepath.Join("testdata", "succeeded.yaml"))
	require.NoError(t, err)

	var out bytes.Buffer
	res, err := Run(context.Background(), fx, Options{Out: &out, Files: testFiles, ScratchDir: t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Reports)
	assert.Equal(t, "3f1c1b1e-8e0a-4a56-9a39-0d6b8a0e1f42", res.ExecutionID)
	require.Len(t, res.Records, 10)
	assert.Equal(t, jobs.PipelineMarker, res.Records[0].Stage)
	for _, rec := range res.Records {
		assert.True(t, rec.HasEnded(), "%s should have ended", rec.Stage)
	}

	output := out.String()
	assert.True(t, strings.HasPrefix(output, "Subject: YourApp_dev SUCCEEDED\n\n"))
	assert.Contains(t, output, "SUCCEEDED: [abcdef12] Add coverage reporting to the test action\r\n")
	assert.Contains(t, output, "The job started at 10:00:00 and took 3 minutes 21 seconds\r\n")
	assert.Contains(t, output, "    Test succeeded after 1 minute 30 seconds\r\n")
	assert.Contains(t, output, "\r\nLint:\r\n\r\nYour code has been rated at 9.87/10\r\n")
	assert.Contains(t, output, "\r\nTests:\r\n\r\n42 passed in 3.21s\r\n")
	assert.Contains(t, output, "\r\nCoverage:\r\n\r\nTOTAL    512     12    98%\r\n")

	stages := []string{"Stage Source", "Stage Install", "Stage TestAndBuild", "Stage DeployPipeline", "Stage DeployWorkload"}
	last := -1
	for _, s := range stages {
		idx := strings.Index(output, s)
		require.Greater(t, idx, last, "%s out of order", s)
		last = idx
	}
}

func TestRun_MissingArtifactDir(t *testing.T) {
	fx, err := ParseFixture([]byte(`
pipeline: YourApp_dev
artifact:
  bucket: b
  key: k.zip
  dir: /nonexistent
notifications:
  - {time: "2024-03-01T10:00:00Z", state: STARTED}
  - {time: "2024-03-01T10:00:30Z", state: FAILED}
`))
	require.NoError(t, err)

	var out bytes.Buffer
	res, err := Run(context.Background(), fx, Options{Out: &out, Files: testFiles, ScratchDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Reports)
	assert.Equal(t, 3, strings.Count(out.String(), artifacts.ArchiveUnreadableText))
	assert.Contains(t, out.String(), "FAILED: [] \r\n")
}

func TestRun_UnsyncedRecordFails(t *testing.T) {
	fx, err := ParseFixture([]byte(`
pipeline: YourApp_dev
notifications:
  - {time: "2024-03-01T10:00:30Z", state: SUCCEEDED, stage: Source}
`))
	require.NoError(t, err)

	_, err = Run(context.Background(), fx, Options{Out: &bytes.Buffer{}, Files: testFiles, ScratchDir: t.TempDir()})
	assert.ErrorIs(t, err, jobs.ErrRecordNotSynced)
}

func TestParseFixture(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		fx, err := ParseFixture([]byte(`
pipeline: p
grace_period: 1s
notifications:
  - {time: "2024-03-01T10:00:00Z", state: STARTED}
`))
		require.NoError(t, err)
		assert.Equal(t, "Test", fx.TestAction)
		_, err = uuid.Parse(fx.ExecutionID)
		assert.NoError(t, err, "a missing execution id is generated")
		assert.Equal(t, "1s", fx.GracePeriod.Duration().String())
	})

	tests := []struct {
		name string
		yaml string
	}{
		{name: "no pipeline", yaml: "notifications:\n  - {time: \"2024-03-01T10:00:00Z\", state: STARTED}\n"},
		{name: "no notifications", yaml: "pipeline: p\n"},
		{name: "notification without state", yaml: "pipeline: p\nnotifications:\n  - {time: \"2024-03-01T10:00:00Z\"}\n"},
		{name: "bad duration", yaml: "pipeline: p\ngrace_period: soon\nnotifications:\n  - {time: \"t\", state: STARTED}\n"},
		{name: "not yaml", yaml: "pipeline: [unclosed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFixture([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestNotification_Document(t *testing.T) {
	tests := []struct {
		n          Notification
		detailType string
	}{
		{n: Notification{Time: "2024-03-01T10:00:00Z", State: "STARTED"}, detailType: events.DetailTypePipeline},
		{n: Notification{Time: "2024-03-01T10:00:00Z", State: "STARTED", Stage: "Source"}, detailType: events.DetailTypeStage},
		{n: Notification{Time: "2024-03-01T10:00:00Z", State: "STARTED", Stage: "Source", Action: "CodeCommit"}, detailType: events.DetailTypeAction},
	}
	for _, tt := range tests {
		t.Run(tt.detailType, func(t *testing.T) {
			doc, err := tt.n.Document("p", "e")
			require.NoError(t, err)

			var raw map[string]any
			require.NoError(t, json.Unmarshal(doc, &raw))
			assert.Equal(t, tt.detailType, raw["detail-type"])

			change, err := events.ParseStateChange(doc)
			require.NoError(t, err)
			assert.Equal(t, tt.n.Stage, change.Detail.Stage)
			assert.Equal(t, tt.n.Action, change.Detail.Action)
		})
	}
}
