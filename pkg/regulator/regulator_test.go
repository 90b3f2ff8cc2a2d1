package regulator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyGuardAllowList(t *testing.T) {
	g := NewPolicyGuard([]string{"shipment-index-20260305T100000"})

	require.NoError(t, g.Authorize(OpReadSnapshot, "shipment-index-20260305T100000"))
	require.NoError(t, g.Authorize(OpRequestExport, ""))
	require.NoError(t, g.Authorize(OpViewDenialSummary, ""))
	require.NoError(t, g.Authorize(OpViewDenialCounts, ""))

	err := g.Authorize(OpReadSnapshot, "corridor-sla-20260305T100000")
	require.ErrorIs(t, err, ErrOperationDenied)
}

func TestPolicyGuardDenyListCannotBeBypassed(t *testing.T) {
	g := NewPolicyGuard(nil).AllowAllSnapshots()

	for _, op := range []Operation{OpEmitEvent, OpReadLiveModel, OpRunLiveAnalytics} {
		require.ErrorIs(t, g.Authorize(op, ""), ErrOperationDenied, "op %s", op)
	}
}

func TestPolicyGuardFailsClosedOnUnknownOperation(t *testing.T) {
	g := NewPolicyGuard(nil).AllowAllSnapshots()
	require.ErrorIs(t, g.Authorize(Operation("DELETE_SNAPSHOT"), ""), ErrOperationDenied)
}

func TestPolicyGuardEmptyAllowListDeniesReads(t *testing.T) {
	g := NewPolicyGuard(nil)
	require.ErrorIs(t, g.Authorize(OpReadSnapshot, "anything"), ErrOperationDenied)

	g.AllowAllSnapshots()
	require.NoError(t, g.Authorize(OpReadSnapshot, "anything"))
}

func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	issuer := NewTokenIssuer([]byte("shared-secret"), time.Hour).
		WithClock(func() time.Time { return now })

	token, err := issuer.Issue("auditor-17", "Directorate of Logistics Compliance")
	require.NoError(t, err)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "REGULATOR", claims.Role)
	assert.Equal(t, "auditor-17", claims.Subject)
	assert.Equal(t, "Directorate of Logistics Compliance", claims.Agency)
}

func TestTokenExpiry(t *testing.T) {
	now := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	issuer := NewTokenIssuer([]byte("shared-secret"), time.Hour).
		WithClock(func() time.Time { return now })

	token, err := issuer.Issue("auditor-17", "")
	require.NoError(t, err)

	issuer.WithClock(func() time.Time { return now.Add(2 * time.Hour) })
	_, err = issuer.Verify(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenWrongKeyRejected(t *testing.T) {
	issuer := NewTokenIssuer([]byte("key-a"), time.Hour)
	token, err := issuer.Issue("auditor-17", "")
	require.NoError(t, err)

	other := NewTokenIssuer([]byte("key-b"), time.Hour)
	_, err = other.Verify(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}
