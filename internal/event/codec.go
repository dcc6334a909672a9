package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// envelope is the wire form of an Event: one self-describing JSON object per
// line. Field order is fixed by the struct; fields keys are sorted by the
// Fields marshaler, so encoding is canonical.
type envelope struct {
	ID        string   `json:"event_id,omitempty"`
	SessionID string   `json:"session_id,omitempty"`
	Timestamp string   `json:"timestamp"`
	Category  Category `json:"category"`
	Level     Level    `json:"level"`
	Fields    Fields   `json:"fields,omitempty"`
}

// Encode serializes an event to one JSON line (no trailing newline). It fails
// only on invalid records, never on field content.
func Encode(e Event) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("event.Encode: %w", err)
	}
	env := envelope{
		SessionID: e.SessionID,
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
		Category:  e.Category,
		Level:     e.Level,
		Fields:    e.Fields,
	}
	if e.ID != uuid.Nil {
		env.ID = e.ID.String()
	}
	b, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("event.Encode: %w", err)
	}
	return b, nil
}

// Decode parses one encoded line back into an Event. Any syntactic or
// structural fault returns an error; readers treat such lines as malformed
// and skip them.
func Decode(line []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return Event{}, fmt.Errorf("event.Decode: %w", err)
	}
	if env.Timestamp == "" {
		return Event{}, fmt.Errorf("event.Decode: missing timestamp")
	}
	ts, err := time.Parse(time.RFC3339Nano, env.Timestamp)
	if err != nil {
		return Event{}, fmt.Errorf("event.Decode: timestamp: %w", err)
	}
	if !env.Category.Valid() {
		return Event{}, fmt.Errorf("event.Decode: %w: %q", ErrInvalidCategory, env.Category)
	}

	e := Event{
		SessionID: env.SessionID,
		Timestamp: ts,
		Category:  env.Category,
		Level:     env.Level,
		Fields:    env.Fields,
	}
	if env.ID != "" {
		id, parseErr := uuid.Parse(env.ID)
		if parseErr != nil {
			return Event{}, fmt.Errorf("event.Decode: event_id: %w", parseErr)
		}
		e.ID = id
	}
	return e, nil
}
