// Package projection derives read models from the event log.
//
// BuildState is a pure function: the same event sequence always yields the
// same shipment rows. No business logic, no external calls; anything that
// needs validation happened before the events were appended.
package projection

import (
	"fmt"
	"time"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/eventlog"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/lifecycle"
)

// ShipmentRow is the materialized view of a single shipment.
type ShipmentRow struct {
	ShipmentID   string          `json:"shipment_id"`
	CurrentState lifecycle.State `json:"current_state"`
	CreatedAt    time.Time       `json:"created_at"`
	LastUpdated  time.Time       `json:"last_updated"`
	EventCount   int             `json:"event_count"`

	Source                   string  `json:"source,omitempty"`
	Destination              string  `json:"destination,omitempty"`
	SourceState              string  `json:"source_state,omitempty"`
	DestinationState         string  `json:"destination_state,omitempty"`
	SourceGeoConfidence      float64 `json:"source_geo_confidence,omitempty"`
	DestinationGeoConfidence float64 `json:"destination_geo_confidence,omitempty"`

	// Corridor is "<source_state> -> <destination_state>", set once from
	// SHIPMENT_CREATED and immutable afterwards.
	Corridor string `json:"corridor,omitempty"`

	History        []eventlog.Event `json:"history"`
	CurrentPayload map[string]any   `json:"current_payload,omitempty"`
}

// BuildState replays events into per-shipment rows in a single pass.
func BuildState(events []eventlog.Event) map[string]*ShipmentRow {
	rows := make(map[string]*ShipmentRow)

	for _, ev := range events {
		row, ok := rows[ev.ShipmentID]
		if !ok {
			row = &ShipmentRow{
				ShipmentID:   ev.ShipmentID,
				CurrentState: ev.PreviousState,
				CreatedAt:    ev.Timestamp,
			}
			rows[ev.ShipmentID] = row
		}

		if ev.EventType == lifecycle.EventShipmentCreated {
			applyCreationGeo(row, ev.Metadata)
		}
		if ev.EventType == lifecycle.EventMetadataUpdated {
			// Source/destination display strings may be corrected; geo
			// projection and corridor stay frozen.
			if s, ok := stringField(ev.Metadata, "source"); ok {
				row.Source = s
			}
			if d, ok := stringField(ev.Metadata, "destination"); ok {
				row.Destination = d
			}
		}

		if ev.NewState != "" && ev.EventType != lifecycle.EventMetadataUpdated {
			row.CurrentState = ev.NewState
		}
		for k, v := range ev.Metadata {
			if row.CurrentPayload == nil {
				row.CurrentPayload = make(map[string]any)
			}
			row.CurrentPayload[k] = v
		}

		row.History = append(row.History, ev)
		row.EventCount = len(row.History)
		row.LastUpdated = ev.Timestamp
	}

	return rows
}

func applyCreationGeo(row *ShipmentRow, md map[string]any) {
	if s, ok := stringField(md, "source"); ok {
		row.Source = s
	}
	if d, ok := stringField(md, "destination"); ok {
		row.Destination = d
	}
	if s, ok := stringField(md, "source_state"); ok {
		row.SourceState = s
	}
	if d, ok := stringField(md, "destination_state"); ok {
		row.DestinationState = d
	}
	row.SourceGeoConfidence = floatField(md, "source_geo_confidence")
	row.DestinationGeoConfidence = floatField(md, "destination_geo_confidence")

	if row.Corridor == "" && row.SourceState != "" && row.DestinationState != "" {
		row.Corridor = fmt.Sprintf("%s -> %s", row.SourceState, row.DestinationState)
	}
}

func stringField(md map[string]any, key string) (string, bool) {
	if md == nil {
		return "", false
	}
	v, ok := md[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

func floatField(md map[string]any, key string) float64 {
	if md == nil {
		return 0
	}
	switch v := md[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}
