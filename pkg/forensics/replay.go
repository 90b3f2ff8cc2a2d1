// Package forensics serves the compliance read path: snapshot replay,
// incident timelines, and evidence export. Everything here reads snapshots
// only; the live event log is out of reach by construction.
package forensics

import (
	"errors"
	"fmt"
	"time"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/integrity"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/snapshot"
)

// ErrReplayRefused is returned when a snapshot fails integrity detection.
var ErrReplayRefused = errors.New("replay refused")

// ErrTimestampBeforeSnapshot is returned when at_timestamp predates the
// snapshot itself.
var ErrTimestampBeforeSnapshot = errors.New("requested timestamp predates snapshot")

// ReplayResult is the verified view of a snapshot at a point in time.
type ReplayResult struct {
	Name            string            `json:"name"`
	Timestamp       time.Time         `json:"timestamp"`
	Content         map[string]any    `json:"content"`
	Metadata        snapshot.Metadata `json:"metadata"`
	IntegrityStatus integrity.Status  `json:"integrity_status"`
}

// Replayer reconstructs verified snapshot views.
type Replayer struct {
	engine   *snapshot.Engine
	detector *integrity.Detector
	clock    func() time.Time
}

// NewReplayer wires a replayer.
func NewReplayer(engine *snapshot.Engine, detector *integrity.Detector) *Replayer {
	return &Replayer{engine: engine, detector: detector, clock: time.Now}
}

// WithClock overrides the clock for testing.
func (r *Replayer) WithClock(clock func() time.Time) *Replayer {
	r.clock = clock
	return r
}

// Replay verifies and loads one snapshot. at is optional; when set it must
// not be earlier than the snapshot's own timestamp, since a snapshot cannot
// describe a moment before it was frozen.
func (r *Replayer) Replay(name string, at *time.Time) (ReplayResult, error) {
	report := r.detector.Detect(name)
	if report.Status != integrity.StatusIntact {
		return ReplayResult{}, fmt.Errorf("%w: %s is %s (%v)",
			ErrReplayRefused, name, report.Status, report.ViolatedRules)
	}

	meta, err := r.engine.Store().ReadMetadata(name)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay %q: %w", name, err)
	}
	frozenAt := epochToTime(meta.Timestamp)

	if at != nil && at.Before(frozenAt) {
		return ReplayResult{}, fmt.Errorf("%w: %s frozen at %s, requested %s",
			ErrTimestampBeforeSnapshot, name, frozenAt.Format(time.RFC3339), at.Format(time.RFC3339))
	}

	content, err := r.engine.Read(name)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay %q: %w", name, err)
	}

	ts := frozenAt
	if at != nil {
		ts = *at
	}
	return ReplayResult{
		Name:            name,
		Timestamp:       ts,
		Content:         content,
		Metadata:        meta,
		IntegrityStatus: report.Status,
	}, nil
}

func epochToTime(epoch float64) time.Time {
	sec := int64(epoch)
	nsec := int64((epoch - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC()
}
