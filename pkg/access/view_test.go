package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/lifecycle"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/projection"
)

type recordedDenial struct {
	role       lifecycle.Role
	shipmentID string
	reason     DenialReason
}

type sinkSpy struct {
	denials []recordedDenial
}

func (s *sinkSpy) Record(_ context.Context, role lifecycle.Role, shipmentID string, reason DenialReason) error {
	s.denials = append(s.denials, recordedDenial{role, shipmentID, reason})
	return nil
}

func TestScopedViewFiltersAndRecords(t *testing.T) {
	rows := map[string]*projection.ShipmentRow{
		"SHP-0000000001": {ShipmentID: "SHP-0000000001", SourceState: "Gujarat", DestinationState: "Kerala"},
		"SHP-0000000002": {ShipmentID: "SHP-0000000002", SourceState: "Maharashtra", DestinationState: "Kerala"},
		"SHP-0000000003": {ShipmentID: "SHP-0000000003", DestinationState: "Kerala"},
	}

	sink := &sinkSpy{}
	view := NewScopedView(sink)

	visible := view.Visible(context.Background(), lifecycle.RoleSenderManager, rows, []string{"Maharashtra"})
	require.Len(t, visible, 1)
	assert.Equal(t, "SHP-0000000002", visible[0].ShipmentID)

	require.Len(t, sink.denials, 2)
	assert.Equal(t, recordedDenial{lifecycle.RoleSenderManager, "SHP-0000000001", DenialGeoScopeMismatch}, sink.denials[0])
	assert.Equal(t, recordedDenial{lifecycle.RoleSenderManager, "SHP-0000000003", DenialMissingGeoData}, sink.denials[1])
}

func TestScopedViewGlobalRoleSeesEverything(t *testing.T) {
	rows := map[string]*projection.ShipmentRow{
		"SHP-0000000001": {ShipmentID: "SHP-0000000001", SourceState: "Gujarat"},
		"SHP-0000000002": {ShipmentID: "SHP-0000000002"},
	}

	sink := &sinkSpy{}
	view := NewScopedView(sink)

	visible := view.Visible(context.Background(), lifecycle.RoleCOO, rows, nil)
	assert.Len(t, visible, 2)
	assert.Empty(t, sink.denials)
}

func TestScopedViewNilSink(t *testing.T) {
	rows := map[string]*projection.ShipmentRow{
		"SHP-0000000001": {ShipmentID: "SHP-0000000001", SourceState: "Gujarat"},
	}

	view := NewScopedView(nil)
	visible := view.Visible(context.Background(), lifecycle.RoleSenderManager, rows, []string{"Kerala"})
	assert.Empty(t, visible)
}
