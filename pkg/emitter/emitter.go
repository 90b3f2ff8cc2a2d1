// Package emitter is the single write path into the event log. It enriches
// creation events with resolved geo data, appends through the log's
// validation gauntlet, and fans the accepted event out to subscribers.
package emitter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/eventlog"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/geo"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/lifecycle"
)

// Subscriber receives accepted events after they are durable. A subscriber
// failure never affects the append; the event is already committed.
type Subscriber interface {
	OnEvent(ctx context.Context, ev eventlog.Event)
}

// SubscriberFunc adapts a function to the Subscriber interface.
type SubscriberFunc func(ctx context.Context, ev eventlog.Event)

func (f SubscriberFunc) OnEvent(ctx context.Context, ev eventlog.Event) { f(ctx, ev) }

// Emitter validates, enriches, and appends events.
type Emitter struct {
	log      *eventlog.Log
	resolver geo.Resolver
	logger   *slog.Logger

	mu          sync.RWMutex
	subscribers []Subscriber

	geoTimeout time.Duration
}

// New builds an emitter over a log and a geo resolver.
func New(log *eventlog.Log, resolver geo.Resolver) *Emitter {
	return &Emitter{
		log:        log,
		resolver:   resolver,
		logger:     slog.Default().With("component", "emitter"),
		geoTimeout: 5 * time.Second,
	}
}

// Subscribe registers a post-append subscriber.
func (e *Emitter) Subscribe(s Subscriber) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscribers = append(e.subscribers, s)
}

// Emit appends one lifecycle event. Validation order is owned by the log:
// duplicate creation, first-event rule, state continuity, role authority,
// transition legality. On SHIPMENT_CREATED the source and destination are
// resolved and merged into metadata under stable keys before the append, so
// the projector never needs the resolver.
func (e *Emitter) Emit(ctx context.Context, shipmentID string, currentState, nextState lifecycle.State, eventType lifecycle.EventType, actorRole lifecycle.Role, metadata map[string]any) (eventlog.Event, error) {
	md := make(map[string]any, len(metadata)+8)
	for k, v := range metadata {
		md[k] = v
	}

	if eventType == lifecycle.EventShipmentCreated {
		e.enrichGeo(ctx, md)
	}

	ev, err := e.log.Append(ctx, eventlog.Candidate{
		ShipmentID:    shipmentID,
		EventType:     eventType,
		PreviousState: currentState,
		NewState:      nextState,
		ActorRole:     actorRole,
		Metadata:      md,
	})
	if err != nil {
		return eventlog.Event{}, err
	}

	e.fanOut(ev)
	return ev, nil
}

// enrichGeo resolves source and destination and merges the results under
// stable keys. Resolution failures degrade to unenriched metadata; a shipment
// without a corridor is valid, a lost creation event is not.
func (e *Emitter) enrichGeo(ctx context.Context, md map[string]any) {
	ctx, cancel := context.WithTimeout(ctx, e.geoTimeout)
	defer cancel()

	e.mergeResolution(ctx, md, "source")
	e.mergeResolution(ctx, md, "destination")
}

func (e *Emitter) mergeResolution(ctx context.Context, md map[string]any, key string) {
	raw, ok := md[key].(string)
	if !ok || raw == "" {
		return
	}
	res, err := e.resolver.Resolve(ctx, raw)
	if err != nil {
		e.logger.Warn("geo resolution failed", "field", key, "value", raw, "error", err)
		return
	}
	if !res.Resolved() {
		return
	}
	md[key+"_city"] = res.City
	md[key+"_state"] = res.State
	md[key+"_state_code"] = res.StateCode
	md[key+"_geo_confidence"] = res.Confidence
}

// fanOut notifies subscribers asynchronously. Panics are contained per
// subscriber; the append is already acknowledged.
func (e *Emitter) fanOut(ev eventlog.Event) {
	e.mu.RLock()
	subs := make([]Subscriber, len(e.subscribers))
	copy(subs, e.subscribers)
	e.mu.RUnlock()

	for _, s := range subs {
		go func(s Subscriber) {
			defer func() {
				if r := recover(); r != nil {
					e.logger.Error("subscriber panicked",
						"event_id", ev.EventID, "panic", r)
				}
			}()
			s.OnEvent(context.Background(), ev)
		}(s)
	}
}
