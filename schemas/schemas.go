// Package schemas embeds the JSON Schema documents for inbound notifications.
package schemas

import "embed"

// StateChange is the file name of the pipeline state-change schema.
const StateChange = "state_change.schema.json"

// FS holds every schema file in this directory.
//
//go:embed *.schema.json
var FS embed.FS
