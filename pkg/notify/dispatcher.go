package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/analytics"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/eventlog"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/lifecycle"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/projection"
)

// RowLookup fetches the current read-model row for a shipment, nil when
// unknown. Backed by the cached projector in production.
type RowLookup func(ctx context.Context, shipmentID string) *projection.ShipmentRow

// Dispatcher routes accepted lifecycle events to notification emissions. It
// subscribes to the emitter; every failure is logged and swallowed because
// the triggering event is already durable.
type Dispatcher struct {
	store        *Store
	lookup       RowLookup
	slaThreshold float64
	logger       *slog.Logger
}

// NewDispatcher wires a dispatcher. slaThreshold is the utilization above
// which an acknowledgement counts as delayed.
func NewDispatcher(store *Store, lookup RowLookup, slaThreshold float64) *Dispatcher {
	return &Dispatcher{
		store:        store,
		lookup:       lookup,
		slaThreshold: slaThreshold,
		logger:       slog.Default().With("component", "dispatcher"),
	}
}

// eventTemplates maps event types to their primary notification template.
var eventTemplates = map[lifecycle.EventType]string{
	lifecycle.EventShipmentCreated:      TmplShipmentCreated,
	lifecycle.EventManagerApproved:      TmplManagerApproved,
	lifecycle.EventManagerOnHold:        TmplManagerOnHold,
	lifecycle.EventHoldForReview:        TmplHoldForReview,
	lifecycle.EventOverrideApplied:      TmplOverrideApplied,
	lifecycle.EventInTransit:            TmplInTransit,
	lifecycle.EventReceiverAcknowledged: TmplReceiverAckToSender,
	lifecycle.EventOutForDelivery:       TmplOutForDelivery,
	lifecycle.EventDeliveryFailed:       TmplDeliveryFailed,
	lifecycle.EventDelivered:            TmplDelivered,
	lifecycle.EventCancelled:            TmplCancelled,
}

// OnEvent implements the emitter subscriber contract.
func (d *Dispatcher) OnEvent(ctx context.Context, ev eventlog.Event) {
	name, ok := eventTemplates[ev.EventType]
	if !ok {
		return
	}

	tctx := d.templateContext(ctx, ev)
	if _, err := d.store.Emit(name, ev.ShipmentID, tctx, nil); err != nil {
		d.logger.Error("notification emission failed",
			"template", name, "shipment_id", ev.ShipmentID, "error", err)
	}

	if ev.EventType == lifecycle.EventReceiverAcknowledged {
		d.maybeEmitDelayedAck(ctx, ev, tctx)
	}
}

// maybeEmitDelayedAck escalates acknowledgements arriving over the SLA
// utilization threshold.
func (d *Dispatcher) maybeEmitDelayedAck(ctx context.Context, ev eventlog.Event, tctx map[string]string) {
	if d.lookup == nil {
		return
	}
	row := d.lookup(ctx, ev.ShipmentID)
	if row == nil {
		return
	}
	report := analytics.PredictSLA(row)
	if report.Utilization < d.slaThreshold {
		return
	}
	tctx["hours_elapsed"] = fmt.Sprintf("%.1f", report.HoursElapsed)
	if _, err := d.store.Emit(TmplReceiverAckDelayed, ev.ShipmentID, tctx, map[string]any{
		"sla_utilization": report.Utilization,
		"eta_hours":       report.ETAHours,
	}); err != nil {
		d.logger.Error("delayed-ack emission failed",
			"shipment_id", ev.ShipmentID, "error", err)
	}
}

func (d *Dispatcher) templateContext(ctx context.Context, ev eventlog.Event) map[string]string {
	tctx := map[string]string{
		"shipment_id": ev.ShipmentID,
		"event_type":  string(ev.EventType),
		"new_state":   string(ev.NewState),
	}
	for _, key := range []string{"source", "destination", "reason"} {
		if v, ok := ev.Metadata[key].(string); ok && v != "" {
			tctx[key] = v
		}
	}
	if d.lookup != nil {
		if row := d.lookup(ctx, ev.ShipmentID); row != nil && row.Corridor != "" {
			tctx["corridor"] = row.Corridor
		}
	}
	return tctx
}

// EmitCorridorAlerts turns analytics alerts into CRITICAL notifications. The
// shipment id is empty because corridor alerts are not about one shipment.
func (d *Dispatcher) EmitCorridorAlerts(alerts []analytics.Alert) {
	for _, a := range alerts {
		_, err := d.store.Emit(TmplCorridorAlert, "", map[string]string{
			"corridor": a.Corridor,
			"fused":    fmt.Sprintf("%.2f", a.Fused),
			"reason":   a.Reason,
		}, map[string]any{"severity": a.Severity})
		if err != nil {
			d.logger.Error("corridor alert emission failed",
				"corridor", a.Corridor, "error", err)
		}
	}
}
