package projection

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/eventlog"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/lifecycle"
)

func sampleEvents() []eventlog.Event {
	t0 := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	return []eventlog.Event{
		{
			EventID: "e1", Sequence: 1, Timestamp: t0,
			ShipmentID:    "SHP-0000000001",
			EventType:     lifecycle.EventShipmentCreated,
			PreviousState: lifecycle.StateNone, NewState: lifecycle.StateCreated,
			ActorRole: lifecycle.RoleSender,
			Metadata: map[string]any{
				"source": "Mumbai", "destination": "Ahmedabad",
				"source_state": "Maharashtra", "destination_state": "Gujarat",
				"source_geo_confidence": 0.9, "destination_geo_confidence": 0.9,
				"weight_kg": 120.0,
			},
		},
		{
			EventID: "e2", Sequence: 2, Timestamp: t0.Add(2 * time.Hour),
			ShipmentID:    "SHP-0000000001",
			EventType:     lifecycle.EventManagerApproved,
			PreviousState: lifecycle.StateCreated, NewState: lifecycle.StateManagerApproved,
			ActorRole: lifecycle.RoleSenderManager,
			Metadata:  map[string]any{"approved_by": "ops-7"},
		},
		{
			EventID: "e3", Sequence: 3, Timestamp: t0.Add(3 * time.Hour),
			ShipmentID:    "SHP-0000000001",
			EventType:     lifecycle.EventMetadataUpdated,
			PreviousState: lifecycle.StateManagerApproved, NewState: lifecycle.StateManagerApproved,
			ActorRole: lifecycle.RoleSenderManager,
			Metadata:  map[string]any{"source": "Navi Mumbai", "weight_kg": 130.0},
		},
	}
}

func TestBuildStateProjectsRow(t *testing.T) {
	rows := BuildState(sampleEvents())
	require.Len(t, rows, 1)

	row := rows["SHP-0000000001"]
	require.NotNil(t, row)
	assert.Equal(t, lifecycle.StateManagerApproved, row.CurrentState)
	assert.Equal(t, 3, row.EventCount)
	assert.Len(t, row.History, row.EventCount)
	assert.Equal(t, "Maharashtra -> Gujarat", row.Corridor)
	assert.Equal(t, "Maharashtra", row.SourceState)
	assert.Equal(t, "Gujarat", row.DestinationState)

	// METADATA_UPDATED corrected the display string but not the geo
	// projection or lifecycle state.
	assert.Equal(t, "Navi Mumbai", row.Source)

	// current_payload is last-writer-wins across all metadata.
	assert.Equal(t, 130.0, row.CurrentPayload["weight_kg"])
	assert.Equal(t, "ops-7", row.CurrentPayload["approved_by"])
}

func TestCurrentStateEqualsLastEvent(t *testing.T) {
	events := sampleEvents()
	rows := BuildState(events)
	row := rows["SHP-0000000001"]
	assert.Equal(t, events[len(events)-1].NewState, row.CurrentState)
}

func TestCorridorRequiresBothStates(t *testing.T) {
	ev := sampleEvents()[0]
	delete(ev.Metadata, "destination_state")
	rows := BuildState([]eventlog.Event{ev})
	assert.Empty(t, rows["SHP-0000000001"].Corridor)
}

func TestBuildIndexes(t *testing.T) {
	rows := BuildState(sampleEvents())
	idx := BuildIndexes(rows)

	assert.Equal(t, []string{"SHP-0000000001"}, idx.ByState["MANAGER_APPROVED"])
	assert.Equal(t, []string{"SHP-0000000001"}, idx.BySourceState["Maharashtra"])
	assert.Equal(t, []string{"SHP-0000000001"}, idx.ByDestinationState["Gujarat"])
	assert.Equal(t, []string{"SHP-0000000001"}, idx.ByCorridor["Maharashtra -> Gujarat"])
}

// Replaying the same events must always produce the same read model.
func TestBuildStateDeterminismProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("replay is deterministic", prop.ForAll(
		func(n uint8, source, dest string, weight float64) bool {
			t0 := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
			events := []eventlog.Event{{
				EventID: "e1", Sequence: 1, Timestamp: t0,
				ShipmentID:    "SHP-0000000001",
				EventType:     lifecycle.EventShipmentCreated,
				PreviousState: lifecycle.StateNone,
				NewState:      lifecycle.StateCreated,
				ActorRole:     lifecycle.RoleSender,
				Metadata: map[string]any{
					"source": source, "destination": dest, "weight_kg": weight,
				},
			}}
			for i := uint8(0); i < n%16; i++ {
				events = append(events, eventlog.Event{
					EventID:  "h" + string(rune('a'+i)),
					Sequence: uint64(i) + 2, Timestamp: t0.Add(time.Duration(i+1) * time.Hour),
					ShipmentID:    "SHP-0000000001",
					EventType:     lifecycle.EventMetadataUpdated,
					PreviousState: lifecycle.StateCreated,
					NewState:      lifecycle.StateCreated,
					ActorRole:     lifecycle.RoleSenderManager,
					Metadata:      map[string]any{"note": source, "revision": float64(i)},
				})
			}
			return reflect.DeepEqual(BuildState(events), BuildState(events))
		},
		gen.UInt8(), gen.AlphaString(), gen.AlphaString(), gen.Float64Range(0, 1e6),
	))

	properties.TestingRun(t)
}

func TestCachedProjectorInvalidation(t *testing.T) {
	ctx := context.Background()
	log, err := eventlog.Open(filepath.Join(t.TempDir(), "events.jsonl"))
	require.NoError(t, err)

	_, err = log.Append(ctx, eventlog.Candidate{
		ShipmentID:    "SHP-0000000001",
		EventType:     lifecycle.EventShipmentCreated,
		PreviousState: lifecycle.StateNone,
		NewState:      lifecycle.StateCreated,
		ActorRole:     lifecycle.RoleSender,
	})
	require.NoError(t, err)

	p := NewCachedProjector(log)
	rows, err := p.Rows(ctx)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateCreated, rows["SHP-0000000001"].CurrentState)

	_, err = log.Append(ctx, eventlog.Candidate{
		ShipmentID:    "SHP-0000000001",
		EventType:     lifecycle.EventManagerApproved,
		PreviousState: lifecycle.StateCreated,
		NewState:      lifecycle.StateManagerApproved,
		ActorRole:     lifecycle.RoleSenderManager,
	})
	require.NoError(t, err)

	rows, err = p.Rows(ctx)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateManagerApproved, rows["SHP-0000000001"].CurrentState)
}
