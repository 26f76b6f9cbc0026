package schemas

import (
	"encoding/json"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllSchemaFiles_ValidJSON(t *testing.T) {
	entries, err := fs.ReadDir(FS, ".")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for _, entry := range entries {
		t.Run(entry.Name(), func(t *testing.T) {
			data, err := FS.ReadFile(entry.Name())
			require.NoError(t, err, "should be able to read schema file")

			var v map[string]interface{}
			err = json.Unmarshal(data, &v)
			require.NoError(t, err, "schema file should be valid JSON: %s", entry.Name())
			assert.True(t, strings.HasSuffix(entry.Name(), ".schema.json"))
			assert.Equal(t, "object", v["type"])
		})
	}
}

func TestStateChangeSchema_RequiresDetailFields(t *testing.T) {
	data, err := FS.ReadFile(StateChange)
	require.NoError(t, err)

	var schema struct {
		Properties struct {
			Detail struct {
				Required []string `json:"required"`
			} `json:"detail"`
		} `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.ElementsMatch(t, []string{"pipeline", "execution-id", "state"}, schema.Properties.Detail.Required)
}
