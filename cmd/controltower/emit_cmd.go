package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/config"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/emitter"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/eventlog"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/geo"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/lifecycle"
)

// runEmitCmd appends one lifecycle event through the emitter. The current
// state is read from the log, never trusted from the caller.
//
// Exit codes:
//
//	0 = event appended
//	1 = event rejected (policy or state violation)
//	2 = runtime error
func runEmitCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("emit", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		shipmentID  string
		eventType   string
		nextState   string
		role        string
		source      string
		destination string
		reason      string
	)
	cmd.StringVar(&shipmentID, "shipment", "", "Shipment id; allocated when empty on SHIPMENT_CREATED")
	cmd.StringVar(&eventType, "event", "", "Event type, e.g. MANAGER_APPROVED (REQUIRED)")
	cmd.StringVar(&nextState, "to", "", "Resulting state; defaults to the event type's state")
	cmd.StringVar(&role, "role", "", "Acting role (REQUIRED)")
	cmd.StringVar(&source, "source", "", "Source location for SHIPMENT_CREATED")
	cmd.StringVar(&destination, "destination", "", "Destination location for SHIPMENT_CREATED")
	cmd.StringVar(&reason, "reason", "", "Optional reason recorded in metadata")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if eventType == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --event is required")
		return 2
	}
	if role == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --role is required")
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	log, err := eventlog.Open(cfg.EventLogPath())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: open event log: %v\n", err)
		return 2
	}

	ctx := context.Background()
	et := lifecycle.EventType(eventType)

	if shipmentID == "" {
		if et != lifecycle.EventShipmentCreated {
			_, _ = fmt.Fprintln(stderr, "Error: --shipment is required for non-creation events")
			return 2
		}
		allocator, err := eventlog.NewShipmentIDAllocator(cfg.CounterPath())
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		shipmentID, err = allocator.Next()
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
	}

	current := lifecycle.StateNone
	prior, err := log.ReadByShipment(ctx, shipmentID)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if len(prior) > 0 {
		current = prior[len(prior)-1].NewState
	}

	to := lifecycle.State(nextState)
	if nextState == "" {
		// Most event types name their resulting state; metadata updates
		// keep the current one.
		if et == lifecycle.EventMetadataUpdated {
			to = current
		} else {
			to = lifecycle.State(eventType)
		}
	}

	metadata := map[string]any{}
	if source != "" {
		metadata["source"] = source
	}
	if destination != "" {
		metadata["destination"] = destination
	}
	if reason != "" {
		metadata["reason"] = reason
	}

	resolver := geo.NewCachedResolver(geo.NewStaticResolver(), 30*time.Minute)
	emit := emitter.New(log, resolver)

	ev, err := emit.Emit(ctx, shipmentID, current, to, et, lifecycle.Role(role), metadata)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	data, _ := json.MarshalIndent(ev, "", "  ")
	_, _ = fmt.Fprintln(stdout, string(data))
	return 0
}
