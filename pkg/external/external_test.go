package external

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeatherClientParsesProviderResponse(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Contains(t, r.URL.RawQuery, "q=Mumbai")
		w.Write([]byte(`{"weather":[{"main":"Thunderstorm"}],"wind":{"speed":18}}`))
	}))
	defer srv.Close()

	c := NewWeatherClient(srv.URL, "test-key")
	signal := c.RiskFor(context.Background(), "Mumbai")

	assert.True(t, signal.APIAvailable)
	assert.Equal(t, "Thunderstorm", signal.Condition)
	assert.InDelta(t, 95, signal.RiskScore, 1e-9)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWeatherClientCachesWithinTTL(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"weather":[{"main":"Clear"}],"wind":{"speed":2}}`))
	}))
	defer srv.Close()

	now := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	c := NewWeatherClient(srv.URL, "test-key").WithClock(func() time.Time { return now })

	first := c.RiskFor(context.Background(), "Mumbai")
	second := c.RiskFor(context.Background(), "Mumbai")
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())

	// Past the TTL the provider is consulted again.
	now = now.Add(31 * time.Minute)
	c.RiskFor(context.Background(), "Mumbai")
	assert.Equal(t, int32(2), calls.Load())
}

func TestWeatherClientFallsBackOnProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewWeatherClient(srv.URL, "test-key")
	signal := c.RiskFor(context.Background(), "Mumbai")

	assert.False(t, signal.APIAvailable)
	assert.Equal(t, "UNKNOWN", signal.Condition)
	assert.GreaterOrEqual(t, signal.RiskScore, 20.0)
	assert.Less(t, signal.RiskScore, 50.0)

	// Heuristic is deterministic per location.
	assert.Equal(t, signal.RiskScore, heuristicWeather("Mumbai").RiskScore)
}

func TestRoutingClientParsesAndCaches(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))
		w.Write([]byte(`{"routes":[{"summary":{"distance":530000,"duration":36000}}]}`))
	}))
	defer srv.Close()

	c := NewRoutingClient(srv.URL, "test-key")
	est := c.Estimate(context.Background(), "Mumbai", "Ahmedabad")

	assert.True(t, est.APIAvailable)
	assert.InDelta(t, 530, est.DistanceKM, 1e-9)
	assert.InDelta(t, 10, est.DurationHours, 1e-9)

	c.Estimate(context.Background(), "Mumbai", "Ahmedabad")
	assert.Equal(t, int32(1), calls.Load())

	// A different corridor is a different cache key.
	c.Estimate(context.Background(), "Mumbai", "Surat")
	assert.Equal(t, int32(2), calls.Load())
}

func TestRoutingClientHeuristicFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewRoutingClient(srv.URL, "test-key")
	est := c.Estimate(context.Background(), "Mumbai", "Ahmedabad")

	assert.False(t, est.APIAvailable)
	assert.Greater(t, est.DistanceKM, 0.0)
	assert.InDelta(t, est.DistanceKM/45, est.DurationHours, 1e-9)
}

func TestEmailClientRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.Equal(t, "test-key", r.Header.Get("api-key"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewEmailClient(srv.URL, "test-key")
	c.backoff = time.Millisecond

	err := c.Send(context.Background(), EmailMessage{
		To: "ops@example.in", Subject: "Corridor alert", Body: "<p>breach</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestEmailClientGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewEmailClient(srv.URL, "test-key")
	c.backoff = time.Millisecond

	err := c.Send(context.Background(), EmailMessage{To: "ops@example.in"})
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}
