package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/canonical"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	signer, err := NewSigner("test-master-key", false)
	require.NoError(t, err)
	return NewEngine(store, signer)
}

func TestSignerRequiresKey(t *testing.T) {
	_, err := NewSigner("", false)
	require.ErrorIs(t, err, ErrSigningKeyMissing)

	// Dev fallback only with the explicit non-production flag.
	s, err := NewSigner("", true)
	require.NoError(t, err)
	require.NotNil(t, s)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	signer, err := NewSigner("k1", false)
	require.NoError(t, err)

	sig := signer.Sign("deadbeef")
	assert.Len(t, sig, 64)
	assert.True(t, signer.Verify("deadbeef", sig))
	assert.False(t, signer.Verify("deadbeee", sig))

	other, err := NewSigner("k2", false)
	require.NoError(t, err)
	assert.False(t, other.Verify("deadbeef", sig))
}

func TestWriteProducesVerifiableMetadata(t *testing.T) {
	e := testEngine(t)
	payload := map[string]any{"shipments": 3, "corridor": "Maharashtra -> Gujarat"}

	meta, err := e.Write("shipment-index-0001", payload)
	require.NoError(t, err)

	assert.Equal(t, Genesis, meta.PrevHash)
	assert.Equal(t, 0, meta.Sequence)

	body, err := e.Store().ReadPayload("shipment-index-0001")
	require.NoError(t, err)
	assert.Equal(t, canonical.SHA256Hex(body), meta.ContentHash)
	assert.True(t, e.Signer().Verify(meta.ContentHash, meta.Signature))
	assert.Equal(t, len(body), meta.SizeBytes)
}

func TestChainLinksConsecutiveSnapshots(t *testing.T) {
	e := testEngine(t)

	m1, err := e.Write("s1", map[string]any{"n": 1})
	require.NoError(t, err)
	m2, err := e.Write("s2", map[string]any{"n": 2})
	require.NoError(t, err)
	m3, err := e.Write("s3", map[string]any{"n": 3})
	require.NoError(t, err)

	assert.Equal(t, Genesis, m1.PrevHash)
	assert.Equal(t, m1.ContentHash, m2.PrevHash)
	assert.Equal(t, m2.ContentHash, m3.PrevHash)
	assert.Equal(t, []int{0, 1, 2}, []int{m1.Sequence, m2.Sequence, m3.Sequence})

	chain, err := e.Store().Chain()
	require.NoError(t, err)
	require.Len(t, chain, 3)
	assert.Equal(t, "s2", chain[1].SnapshotName)
}

func TestReadBackPayload(t *testing.T) {
	e := testEngine(t)
	_, err := e.Write("heatmap-x", map[string]any{"Gujarat": 0.4})
	require.NoError(t, err)

	payload, err := e.Read("heatmap-x")
	require.NoError(t, err)
	assert.Equal(t, 0.4, payload["Gujarat"])

	_, err = e.Read("never-written")
	require.ErrorIs(t, err, ErrSnapshotMissing)
}

func TestMetadataSchemaRejectsGarbage(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, atomicWrite(store.metadataPath("bad"), []byte(`{"snapshot_name":"bad"}`)))

	_, err = store.ReadMetadata("bad")
	require.ErrorIs(t, err, ErrMetadataInvalid)
}

func TestSchedulerRunOnceFreezesFamilies(t *testing.T) {
	e := testEngine(t)
	now := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	e.WithClock(func() time.Time { return now })

	sched := NewScheduler(e, []Family{
		{Name: "shipment-index", Collect: func(context.Context) (any, error) {
			return map[string]any{"count": 2}, nil
		}},
		{Name: "corridor-sla", Collect: func(context.Context) (any, error) {
			return map[string]any{"corridors": 1}, nil
		}},
	}, time.Minute, 17, time.UTC).WithClock(func() time.Time { return now })

	require.NoError(t, sched.RunOnce(context.Background()))

	assert.True(t, e.Store().Exists("shipment-index-20260305T100000"))
	assert.True(t, e.Store().Exists("corridor-sla-20260305T100000"))
}

func TestSchedulerRollupFiresOncePerDay(t *testing.T) {
	e := testEngine(t)
	now := time.Date(2026, 3, 5, 17, 30, 0, 0, time.UTC)
	e.WithClock(func() time.Time { return now })

	sched := NewScheduler(e, nil, time.Minute, 17, time.UTC).
		WithClock(func() time.Time { return now }).
		WithRollup(Family{Name: "daily-metrics-rollup", Collect: func(context.Context) (any, error) {
			return map[string]any{"rolled": true}, nil
		}})

	sched.maybeRollup(context.Background())
	assert.True(t, e.Store().Exists("daily-metrics-rollup-2026-03-05"))

	// A second trigger the same day is a no-op.
	chainBefore, err := e.Store().Chain()
	require.NoError(t, err)
	sched.maybeRollup(context.Background())
	chainAfter, err := e.Store().Chain()
	require.NoError(t, err)
	assert.Equal(t, len(chainBefore), len(chainAfter))

	// Before 17:00 nothing fires.
	now = time.Date(2026, 3, 6, 9, 0, 0, 0, time.UTC)
	sched.maybeRollup(context.Background())
	assert.False(t, e.Store().Exists("daily-metrics-rollup-2026-03-06"))
}
