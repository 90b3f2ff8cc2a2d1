package audit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/access"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/lifecycle"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "denials.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndListByRole(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, lifecycle.RoleSenderManager, "SHP-0000000001", access.DenialGeoScopeMismatch))
	require.NoError(t, s.Record(ctx, lifecycle.RoleSenderManager, "SHP-0000000002", access.DenialMissingGeoData))
	require.NoError(t, s.Record(ctx, lifecycle.RoleReceiverManager, "SHP-0000000001", access.DenialRegionListEmpty))

	denials, err := s.ListByRole(ctx, lifecycle.RoleSenderManager)
	require.NoError(t, err)
	require.Len(t, denials, 2)
	assert.Equal(t, "SHP-0000000001", denials[0].ShipmentID)
	assert.Equal(t, "GEO_SCOPE_MISMATCH", denials[0].ReasonCode)
	assert.Equal(t, "MISSING_GEO_DATA", denials[1].ReasonCode)
}

func TestCountsByReason(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, lifecycle.RoleSenderManager, "SHP-0000000001", access.DenialGeoScopeMismatch))
	require.NoError(t, s.Record(ctx, lifecycle.RoleViewer, "SHP-0000000002", access.DenialGeoScopeMismatch))
	require.NoError(t, s.Record(ctx, lifecycle.RoleViewer, "SHP-0000000003", access.DenialRoleUnknown))

	counts, err := s.CountsByReason(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts["GEO_SCOPE_MISMATCH"])
	assert.Equal(t, 1, counts["ROLE_UNKNOWN"])
}

func TestSummaryPayloadCarriesNoContent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Record(ctx, lifecycle.RoleSenderManager, "SHP-0000000001", access.DenialGeoScopeMismatch))

	payload, err := s.SummaryPayload(ctx)
	require.NoError(t, err)

	byRole, ok := payload["denials_by_role"].(map[string][]Denial)
	require.True(t, ok)
	require.Len(t, byRole["SENDER_MANAGER"], 1)
	// Ids and reason codes only.
	assert.Equal(t, Denial{ShipmentID: "SHP-0000000001", ReasonCode: "GEO_SCOPE_MISMATCH"}, byRole["SENDER_MANAGER"][0])
}
