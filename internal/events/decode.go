package events

import (
	"bytes"
	"encoding/json"
	"errors"

	lambdaevents "github.com/aws/aws-lambda-go/events"

	"github.com/jonathan/pipeline-observer/internal/schemas"
)

// envelope probes which shape an inbound document has.
type envelope struct {
	Records []json.RawMessage `json:"Records"`
	Detail  json.RawMessage   `json:"detail"`
}

// Decode parses an inbound Lambda payload. It accepts an SNS event wrapping
// state-change documents or a bare state-change document.
func Decode(raw []byte) ([]StateChange, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, &DecodeError{Message: "empty payload"}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &DecodeError{Message: "payload is not a JSON object", Cause: err}
	}

	switch {
	case env.Records != nil:
		var snsEvent lambdaevents.SNSEvent
		if err := json.Unmarshal(raw, &snsEvent); err != nil {
			return nil, &DecodeError{Message: "malformed SNS event", Cause: err}
		}
		return DecodeSNS(snsEvent)
	case env.Detail != nil:
		change, err := ParseStateChange(raw)
		if err != nil {
			return nil, err
		}
		return []StateChange{*change}, nil
	default:
		return nil, &DecodeError{Message: "payload has neither Records nor detail"}
	}
}

// DecodeSNS parses the state-change document carried by every SNS record.
func DecodeSNS(evt lambdaevents.SNSEvent) ([]StateChange, error) {
	if len(evt.Records) == 0 {
		return nil, &DecodeError{Message: "SNS event has no records"}
	}
	changes := make([]StateChange, 0, len(evt.Records))
	for _, rec := range evt.Records {
		change, err := ParseStateChange([]byte(rec.SNS.Message))
		if err != nil {
			return nil, err
		}
		changes = append(changes, *change)
	}
	return changes, nil
}

// ParseStateChange validates a state-change document against its schema and
// decodes it.
func ParseStateChange(doc []byte) (*StateChange, error) {
	if err := schemas.ValidateStateChange(doc); err != nil {
		var schemaErr *schemas.ValidationError
		if errors.As(err, &schemaErr) {
			return nil, &ValidationError{Fields: schemaErr.Fields(), Cause: err}
		}
		return nil, &DecodeError{Message: "state change is not valid JSON", Cause: err}
	}

	var change StateChange
	if err := json.Unmarshal(doc, &change); err != nil {
		return nil, &DecodeError{Message: "malformed state change", Cause: err}
	}
	if err := change.Validate(); err != nil {
		return nil, err
	}
	return &change, nil
}
