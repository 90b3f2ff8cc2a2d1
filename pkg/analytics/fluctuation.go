package analytics

import (
	"hash/fnv"
	"math/rand"
	"time"
)

// Fluctuator produces demo-grade pseudo-metrics that are stable within a
// wall-clock hour: the same (seed, shipment_id, hour) always yields the same
// value, so dashboards refresh hourly instead of flickering per request.
type Fluctuator struct {
	seed  int64
	clock func() time.Time
}

// NewFluctuator builds a fluctuator with the given base seed.
func NewFluctuator(seed int64) *Fluctuator {
	return &Fluctuator{seed: seed, clock: time.Now}
}

// WithClock overrides the clock for testing.
func (f *Fluctuator) WithClock(clock func() time.Time) *Fluctuator {
	f.clock = clock
	return f
}

// Value returns a pseudo-random value in [min, max) for the shipment at the
// current hour.
func (f *Fluctuator) Value(shipmentID string, min, max float64) float64 {
	hour := f.clock().UTC().Truncate(time.Hour).Unix()

	h := fnv.New64a()
	h.Write([]byte(shipmentID))
	derived := int64(h.Sum64()) ^ f.seed ^ hour

	rng := rand.New(rand.NewSource(derived))
	return min + rng.Float64()*(max-min)
}

// Components returns pseudo external risk signals for a shipment, for use
// when real provider data is unavailable.
func (f *Fluctuator) Components(shipmentID string) RiskComponents {
	return RiskComponents{
		Weather:         f.Value(shipmentID+":weather", 5, 75),
		CorridorHistory: f.Value(shipmentID+":corridor", 5, 75),
		ETAUncertainty:  f.Value(shipmentID+":eta", 5, 75),
	}
}
