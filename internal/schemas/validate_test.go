package schemas

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validStateChange = `{
  "version": "0",
  "detail-type": "CodePipeline Action Execution State Change",
  "source": "aws.codepipeline",
  "time": "2024-03-01T10:00:00Z",
  "detail": {
    "pipeline": "YourApp_dev",
    "execution-id": "4f3a0c4e-1111-2222-3333-444455556666",
    "stage": "TestAndBuild",
    "action": "Test",
    "state": "STARTED"
  }
}`

func TestValidateStateChange_Valid(t *testing.T) {
	assert.NoError(t, ValidateStateChange([]byte(validStateChange)))
}

func TestValidateStateChange_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		document  string
		wantField string
	}{
		{
			name:      "missing execution id",
			document:  `{"time": "2024-03-01T10:00:00Z", "detail": {"pipeline": "p", "state": "STARTED"}}`,
			wantField: "detail",
		},
		{
			name:      "missing detail",
			document:  `{"time": "2024-03-01T10:00:00Z"}`,
			wantField: "",
		},
		{
			name:      "wrong type",
			document:  `{"time": "2024-03-01T10:00:00Z", "detail": {"pipeline": 7, "execution-id": "e", "state": "STARTED"}}`,
			wantField: "detail.pipeline",
		},
		{
			name:      "bad timestamp",
			document:  `{"time": "yesterday", "detail": {"pipeline": "p", "execution-id": "e", "state": "STARTED"}}`,
			wantField: "time",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStateChange([]byte(tt.document))
			require.Error(t, err)

			validationErr, ok := err.(*ValidationError)
			require.True(t, ok, "error should be ValidationError type")
			if tt.wantField != "" {
				assert.True(t, hasFieldPrefix(validationErr.Fields(), tt.wantField),
					"fields %v should include %s", validationErr.Fields(), tt.wantField)
			}
			assert.Contains(t, validationErr.Error(), "validation failed")
		})
	}
}

func TestValidateStateChange_MalformedJSON(t *testing.T) {
	err := ValidateStateChange([]byte("{ invalid json }"))
	require.Error(t, err)

	var loadErr *SchemaLoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestValidateDocument_UnknownSchema(t *testing.T) {
	err := ValidateDocument("missing.schema.json", []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema not embedded")
}

func TestValidateJSONString(t *testing.T) {
	schema := `{"type": "object", "required": ["name"], "properties": {"name": {"type": "string"}}}`

	assert.NoError(t, ValidateJSONString(schema, `{"name": "pipeline"}`))

	err := ValidateJSONString(schema, `{"other": 1}`)
	require.Error(t, err)
	validationErr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Len(t, validationErr.Errors, 1)
}

func hasFieldPrefix(fields []string, prefix string) bool {
	for _, f := range fields {
		if strings.HasPrefix(f, prefix) {
			return true
		}
	}
	return false
}
