package eventstream

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/cortex/pkg/runevent"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeRunEvent is emitted for every event observed on a run stream.
	EventTypeRunEvent = "cortex.run.event"
)

// RunEventEnvelope is a transport-neutral wrapper around one observed run event.
type RunEventEnvelope struct {
	SchemaVersion int             `json:"schema_version"`
	EventType     string          `json:"event_type"`
	EventID       string          `json:"event_id"`
	EmittedAt     time.Time       `json:"emitted_at"`
	Source        EventSource     `json:"source"`
	RunID         string          `json:"run_id,omitempty"`
	Kind          runevent.Kind   `json:"kind"`
	Payload       json.RawMessage `json:"payload"`
}

// EventSource identifies the run that produced the event.
type EventSource struct {
	// Target is "copilot" or "callable".
	Target string `json:"target"`

	// ID is the copilot or callable id.
	ID string `json:"id"`

	// Version is the requested callable version, if any.
	Version string `json:"version,omitempty"`
}

// NewRunEventEnvelope wraps ev with a fresh event id. The payload is ev's
// wire form as produced by runevent.Encode.
func NewRunEventEnvelope(source EventSource, runID string, ev runevent.Event, now time.Time) (*RunEventEnvelope, error) {
	payload, err := runevent.Encode(ev)
	if err != nil {
		return nil, fmt.Errorf("encoding %s event: %w", ev.Kind(), err)
	}

	return &RunEventEnvelope{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeRunEvent,
		EventID:       uuid.NewString(),
		EmittedAt:     now.UTC(),
		Source:        source,
		RunID:         runID,
		Kind:          ev.Kind(),
		Payload:       payload,
	}, nil
}

// Key returns the partitioning key for the envelope: the run id when known,
// otherwise the source id.
func (e *RunEventEnvelope) Key() string {
	if e.RunID != "" {
		return e.RunID
	}
	return e.Source.ID
}
