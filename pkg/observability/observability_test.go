package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	require.Equal(t, "logistics-control-tower", config.ServiceName)
	require.Equal(t, "development", config.Environment)
	require.Equal(t, "localhost:4317", config.OTLPEndpoint)
	require.Equal(t, 1.0, config.SampleRate)
	require.True(t, config.Enabled)
	require.False(t, config.Insecure)
}

func TestNewProviderDisabled(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, p)

	// All recording paths must be safe no-ops when disabled.
	p.RecordEventAppended(context.Background(), "SHIPMENT_CREATED")
	p.RecordSnapshotWritten(context.Background(), "shipment-index")
	p.RecordAccessDenial(context.Background(), "SENDER_MANAGER", "GEO_SCOPE_MISMATCH")
	p.RecordIntegrityAlarm(context.Background(), "s1", "TAMPERED")

	ctx, done := p.TrackOperation(context.Background(), "emit",
		attribute.String("event_type", "SHIPMENT_CREATED"))
	require.NotNil(t, ctx)
	done(errors.New("append failed"))

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestTrackOperationReturnsUsableSpan(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)

	ctx, done := p.TrackOperation(context.Background(), "snapshot-write")
	require.NotNil(t, ctx)
	done(nil)

	require.NotNil(t, p.Tracer())
	require.NotNil(t, p.Meter())
}
