// Package eventlog is the single source of truth of the control tower: an
// append-only, per-shipment-sequenced, durably persisted event log.
//
// Appends are serialized behind a process-wide lock and validated against the
// lifecycle and role-authority tables before anything touches disk. Events are
// stored one JSON object per line and fsynced before the append is
// acknowledged.
package eventlog

import (
	"encoding/json"
	"time"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/lifecycle"
)

// Event is an immutable record of a state-changing fact. Once appended it is
// never mutated or deleted.
type Event struct {
	EventID       string              `json:"event_id"`
	Sequence      uint64              `json:"sequence"`
	Timestamp     time.Time           `json:"timestamp"`
	ShipmentID    string              `json:"shipment_id"`
	EventType     lifecycle.EventType `json:"event_type"`
	PreviousState lifecycle.State     `json:"previous_state"`
	NewState      lifecycle.State     `json:"new_state"`
	ActorRole     lifecycle.Role      `json:"actor_role"`
	Metadata      map[string]any      `json:"metadata,omitempty"`
}

// Candidate is an event before the log has assigned identity, sequence and
// timestamp.
type Candidate struct {
	ShipmentID    string
	EventType     lifecycle.EventType
	PreviousState lifecycle.State
	NewState      lifecycle.State
	ActorRole     lifecycle.Role
	Metadata      map[string]any
}

// eventSchema validates serialized event records when an existing log file is
// loaded. A line that fails the schema means the file was edited by hand or
// corrupted, which is a storage-level failure.
const eventSchema = `{
  "type": "object",
  "required": ["event_id", "sequence", "timestamp", "shipment_id",
               "event_type", "previous_state", "new_state", "actor_role"],
  "properties": {
    "event_id":       {"type": "string", "minLength": 1},
    "sequence":       {"type": "integer", "minimum": 1},
    "timestamp":      {"type": "string"},
    "shipment_id":    {"type": "string", "pattern": "^SHP-[0-9]{10}$"},
    "event_type":     {"type": "string", "minLength": 1},
    "previous_state": {"type": "string", "minLength": 1},
    "new_state":      {"type": "string", "minLength": 1},
    "actor_role":     {"type": "string", "minLength": 1},
    "metadata":       {"type": "object"}
  }
}`

func marshalEvent(ev Event) ([]byte, error) {
	ev.Timestamp = ev.Timestamp.UTC()
	return json.Marshal(ev)
}
