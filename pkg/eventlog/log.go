package eventlog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/lifecycle"
)

// Log is the append-only event log. A single logical writer is enforced by
// the mutex; reads are served from an mtime-keyed in-memory cache that is
// updated in place on every successful append.
type Log struct {
	mu      sync.RWMutex
	path    string
	version uint64
	cache   *eventCache
	schema  *jsonschema.Schema
	clock   func() time.Time
	logger  *slog.Logger
}

type eventCache struct {
	mtime      time.Time
	size       int64
	events     []Event
	byShipment map[string][]Event
}

// IntegrityReport is the result of a full-log verification pass.
type IntegrityReport struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Open prepares an event log at path. The file is created lazily on first
// append; an existing file is schema-validated on first read.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}
	schema, err := jsonschema.CompileString("event.schema.json", eventSchema)
	if err != nil {
		return nil, fmt.Errorf("compile event schema: %w", err)
	}
	return &Log{
		path:   path,
		schema: schema,
		clock:  time.Now,
		logger: slog.Default().With("component", "eventlog"),
	}, nil
}

// WithClock overrides the clock for testing.
func (l *Log) WithClock(clock func() time.Time) *Log {
	l.clock = clock
	return l
}

// Version increases by one on every successful append. Projector caches key
// off it.
func (l *Log) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

// Append validates the candidate against prior events and the lifecycle/role
// tables, persists it durably, and updates the cache. Validation failures
// leave the log untouched; persistence failures return a fatal *StorageError.
func (l *Log) Append(ctx context.Context, c Candidate) (Event, error) {
	if err := ctx.Err(); err != nil {
		return Event{}, fmt.Errorf("append cancelled: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.loadLocked(); err != nil {
		return Event{}, err
	}

	prior := l.cache.byShipment[c.ShipmentID]

	if c.EventType == lifecycle.EventShipmentCreated && len(prior) > 0 {
		return Event{}, fmt.Errorf("%w: %s", ErrDuplicateCreation, c.ShipmentID)
	}
	if len(prior) == 0 {
		if c.EventType != lifecycle.EventShipmentCreated {
			return Event{}, fmt.Errorf("%w: first event for %s must be %s, got %s",
				lifecycle.ErrUnknownCurrentState, c.ShipmentID, lifecycle.EventShipmentCreated, c.EventType)
		}
		if c.PreviousState != lifecycle.StateNone {
			return Event{}, fmt.Errorf("%w: creation must start from %s",
				lifecycle.ErrUnknownCurrentState, lifecycle.StateNone)
		}
	} else {
		last := prior[len(prior)-1]
		if c.PreviousState != last.NewState {
			return Event{}, fmt.Errorf("%w: shipment %s is in %s, candidate claims %s",
				lifecycle.ErrUnknownCurrentState, c.ShipmentID, last.NewState, c.PreviousState)
		}
	}

	if err := lifecycle.ValidateRoleAuthority(c.ActorRole, c.PreviousState, c.EventType); err != nil {
		return Event{}, err
	}
	if c.EventType == lifecycle.EventMetadataUpdated {
		// Metadata updates carry no lifecycle effect.
		if c.NewState != c.PreviousState {
			return Event{}, fmt.Errorf("%w: %s must not change state",
				lifecycle.ErrInvalidTransition, lifecycle.EventMetadataUpdated)
		}
	} else if err := lifecycle.ValidateTransition(c.PreviousState, c.NewState); err != nil {
		return Event{}, err
	}

	now := l.clock().UTC()
	if len(prior) > 0 && now.Before(prior[len(prior)-1].Timestamp) {
		// Timestamps are non-decreasing within a shipment even under
		// clock skew.
		now = prior[len(prior)-1].Timestamp
	}

	ev := Event{
		EventID:       uuid.New().String(),
		Sequence:      uint64(len(prior)) + 1,
		Timestamp:     now,
		ShipmentID:    c.ShipmentID,
		EventType:     c.EventType,
		PreviousState: c.PreviousState,
		NewState:      c.NewState,
		ActorRole:     c.ActorRole,
		Metadata:      c.Metadata,
	}

	if err := l.persistLocked(ev); err != nil {
		return Event{}, err
	}

	l.cache.events = append(l.cache.events, ev)
	l.cache.byShipment[ev.ShipmentID] = append(l.cache.byShipment[ev.ShipmentID], ev)
	l.version++
	return ev, nil
}

func (l *Log) persistLocked(ev Event) error {
	line, err := marshalEvent(ev)
	if err != nil {
		return &StorageError{Op: "marshal", Err: err}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		return &StorageError{Op: "open", Err: err}
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return &StorageError{Op: "write", Err: err}
	}
	if err := f.Sync(); err != nil {
		return &StorageError{Op: "fsync", Err: err}
	}

	if info, err := os.Stat(l.path); err == nil {
		l.cache.mtime = info.ModTime()
		l.cache.size = info.Size()
	}
	return nil
}

// loadLocked (re)builds the event cache when the backing file changed out
// from under us, or builds it on first use.
func (l *Log) loadLocked() error {
	info, err := os.Stat(l.path)
	if os.IsNotExist(err) {
		if l.cache == nil {
			l.cache = &eventCache{byShipment: make(map[string][]Event)}
		}
		return nil
	}
	if err != nil {
		return &StorageError{Op: "stat", Err: err}
	}
	if l.cache != nil && l.cache.mtime.Equal(info.ModTime()) && l.cache.size == info.Size() {
		return nil
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return &StorageError{Op: "read", Err: err}
	}

	cache := &eventCache{
		mtime:      info.ModTime(),
		size:       info.Size(),
		byShipment: make(map[string][]Event),
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var generic any
		if err := json.Unmarshal(line, &generic); err != nil {
			return &StorageError{Op: "decode", Err: fmt.Errorf("line %d: %w", lineNo, err)}
		}
		if err := l.schema.Validate(generic); err != nil {
			return &StorageError{Op: "validate", Err: fmt.Errorf("line %d: %w", lineNo, err)}
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			return &StorageError{Op: "decode", Err: fmt.Errorf("line %d: %w", lineNo, err)}
		}
		cache.events = append(cache.events, ev)
		cache.byShipment[ev.ShipmentID] = append(cache.byShipment[ev.ShipmentID], ev)
	}
	if err := scanner.Err(); err != nil {
		return &StorageError{Op: "scan", Err: err}
	}

	l.cache = cache
	l.version++
	return nil
}

// ReadAll returns every event in append order.
func (l *Log) ReadAll(ctx context.Context) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.loadLocked(); err != nil {
		return nil, err
	}
	out := make([]Event, len(l.cache.events))
	copy(out, l.cache.events)
	return out, nil
}

// ReadByShipment returns the ordered events of one shipment.
func (l *Log) ReadByShipment(ctx context.Context, shipmentID string) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.loadLocked(); err != nil {
		return nil, err
	}
	events := l.cache.byShipment[shipmentID]
	out := make([]Event, len(events))
	copy(out, events)
	return out, nil
}

// ListShipmentIDs returns all shipment ids, sorted.
func (l *Log) ListShipmentIDs(ctx context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.loadLocked(); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(l.cache.byShipment))
	for id := range l.cache.byShipment {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// VerifyIntegrity checks every shipment for gapless 1..k sequences,
// non-decreasing timestamps, and legal transitions.
func (l *Log) VerifyIntegrity(ctx context.Context) (IntegrityReport, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.loadLocked(); err != nil {
		return IntegrityReport{}, err
	}

	report := IntegrityReport{Valid: true, Errors: []string{}}
	for id, events := range l.cache.byShipment {
		for i, ev := range events {
			if ev.Sequence != uint64(i)+1 {
				report.Errors = append(report.Errors,
					fmt.Sprintf("%s: sequence gap at position %d (got %d)", id, i, ev.Sequence))
			}
			if i > 0 {
				prev := events[i-1]
				if ev.Timestamp.Before(prev.Timestamp) {
					report.Errors = append(report.Errors,
						fmt.Sprintf("%s: timestamp regression at sequence %d", id, ev.Sequence))
				}
				if ev.PreviousState != prev.NewState {
					report.Errors = append(report.Errors,
						fmt.Sprintf("%s: state discontinuity at sequence %d", id, ev.Sequence))
				}
			}
			if ev.EventType != lifecycle.EventMetadataUpdated {
				if err := lifecycle.ValidateTransition(ev.PreviousState, ev.NewState); err != nil {
					report.Errors = append(report.Errors,
						fmt.Sprintf("%s: forbidden transition at sequence %d: %v", id, ev.Sequence, err))
				}
			}
		}
	}
	report.Valid = len(report.Errors) == 0
	return report, nil
}
