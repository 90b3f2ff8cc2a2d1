package projection

import (
	"context"
	"sync"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/eventlog"
)

// CachedProjector memoizes BuildState keyed by the event log version.
// Rebuilds are double-checked under the lock and published atomically, so
// concurrent readers never observe a half-built state.
type CachedProjector struct {
	log *eventlog.Log

	mu      sync.RWMutex
	version uint64
	rows    map[string]*ShipmentRow
	indexes Indexes
}

// NewCachedProjector binds a projector to a log.
func NewCachedProjector(log *eventlog.Log) *CachedProjector {
	return &CachedProjector{log: log}
}

// Rows returns the current shipment rows, rebuilding if the log advanced.
func (p *CachedProjector) Rows(ctx context.Context) (map[string]*ShipmentRow, error) {
	rows, _, err := p.materialize(ctx)
	return rows, err
}

// IndexesFor returns the derived indexes, rebuilding if the log advanced.
func (p *CachedProjector) IndexesFor(ctx context.Context) (Indexes, error) {
	_, idx, err := p.materialize(ctx)
	return idx, err
}

// Row returns a single shipment row, or nil when unknown.
func (p *CachedProjector) Row(ctx context.Context, shipmentID string) (*ShipmentRow, error) {
	rows, err := p.Rows(ctx)
	if err != nil {
		return nil, err
	}
	return rows[shipmentID], nil
}

func (p *CachedProjector) materialize(ctx context.Context) (map[string]*ShipmentRow, Indexes, error) {
	v := p.log.Version()

	p.mu.RLock()
	if p.rows != nil && p.version == v {
		rows, idx := p.rows, p.indexes
		p.mu.RUnlock()
		return rows, idx, nil
	}
	p.mu.RUnlock()

	events, err := p.log.ReadAll(ctx)
	if err != nil {
		return nil, Indexes{}, err
	}
	// Reading may itself have advanced the version (lazy cache build).
	v = p.log.Version()

	rows := BuildState(events)
	idx := BuildIndexes(rows)

	p.mu.Lock()
	if p.rows == nil || p.version < v {
		p.rows = rows
		p.indexes = idx
		p.version = v
	} else {
		rows, idx = p.rows, p.indexes
	}
	p.mu.Unlock()
	return rows, idx, nil
}
