package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/analytics"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/audit"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/config"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/emitter"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/eventlog"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/forensics"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/geo"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/notify"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/observability"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/projection"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/snapshot"
)

// runServeCmd boots the control tower: event log, emitter, projector,
// notification dispatcher, and the snapshot scheduler. Runs until SIGINT or
// SIGTERM.
func runServeCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("serve", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		profilesDir string
		profileCode string
	)
	cmd.StringVar(&profilesDir, "profiles", "./profiles", "Deployment profiles directory")
	cmd.StringVar(&profileCode, "profile", "in", "Deployment profile code")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	profile, err := config.LoadProfile(profilesDir, profileCode)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	loc, err := profile.Snapshots.Location()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: create data dir: %v\n", err)
		return 2
	}

	logger := slog.New(slog.NewJSONHandler(stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs, err := observability.New(ctx, &observability.Config{
		ServiceName:    "logistics-control-tower",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   "localhost:4317",
		SampleRate:     1.0,
		BatchTimeout:   5 * time.Second,
		Enabled:        cfg.IsProduction(),
		Insecure:       !cfg.IsProduction(),
	})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: observability: %v\n", err)
		return 2
	}
	defer obs.Shutdown(context.Background())

	// Event log and projector.
	log, err := eventlog.Open(cfg.EventLogPath())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: open event log: %v\n", err)
		return 2
	}
	projector := projection.NewCachedProjector(log)

	// Geo resolver: in-memory TTL cache, shared Redis layer when configured.
	var resolver geo.Resolver = geo.NewCachedResolver(geo.NewStaticResolver(), 30*time.Minute)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		resolver = geo.NewRedisResolver(resolver, client, 30*time.Minute)
	}

	emit := emitter.New(log, resolver)
	emit.Subscribe(emitter.SubscriberFunc(func(ctx context.Context, ev eventlog.Event) {
		obs.RecordEventAppended(ctx, string(ev.EventType))
	}))

	// Notifications.
	registry := notify.NewRegistry()
	notifications, err := notify.OpenStore(cfg.NotificationPath(), registry)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: open notification store: %v\n", err)
		return 2
	}
	if cfg.PostgresDSN != "" {
		archive, err := notify.OpenArchive(cfg.PostgresDSN)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: open notification archive: %v\n", err)
			return 2
		}
		defer archive.Close()
		if err := archive.EnsureSchema(ctx); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		notifications.Mirror(archive)
	}
	lookup := func(ctx context.Context, shipmentID string) *projection.ShipmentRow {
		row, err := projector.Row(ctx, shipmentID)
		if err != nil {
			return nil
		}
		return row
	}
	dispatcher := notify.NewDispatcher(notifications, lookup, profile.SLA.DelayedAckUtilization)
	emit.Subscribe(dispatcher)

	// Audit denial store.
	denials, err := audit.Open(cfg.DenialDBPath())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: open denial store: %v\n", err)
		return 2
	}
	defer denials.Close()

	// Snapshot engine and scheduler.
	store, err := snapshot.NewStore(cfg.SnapshotDir())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: open snapshot store: %v\n", err)
		return 2
	}
	signer, err := snapshot.NewSigner(cfg.SnapshotSigningKey, !cfg.IsProduction())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	engine := snapshot.NewEngine(store, signer)

	// Offsite evidence replication when a bucket is configured.
	var replicator *forensics.Replicator
	if cfg.S3Bucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: aws config: %v\n", err)
			return 2
		}
		replicator = forensics.NewReplicator(s3.NewFromConfig(awsCfg), store, cfg.S3Bucket, "snapshots")
	}

	alertEngine, err := analytics.NewAlertEngine(profile.SLA.CorridorAlertThreshold, profile.AlertRules)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	families := snapshotFamilies(projector, alertEngine, dispatcher, denials)
	scheduler := snapshot.NewScheduler(engine, families,
		profile.Snapshots.Interval(), profile.Snapshots.RollupHour, loc).
		WithRollup(snapshot.Family{
			Name: "daily-metrics-rollup",
			Collect: func(ctx context.Context) (any, error) {
				return rollupPayload(ctx, projector, notifications)
			},
		}).
		WithWrittenHook(func(name string) {
			obs.RecordSnapshotWritten(context.Background(), name)
			if replicator != nil {
				replicator.ReplicateAsync(name)
			}
		})

	logger.Info("control tower started",
		"environment", cfg.Environment,
		"profile", profile.Code,
		"snapshot_interval", profile.Snapshots.Interval(),
		"data_dir", cfg.DataDir)

	if err := scheduler.Run(ctx); err != nil && ctx.Err() == nil {
		_, _ = fmt.Fprintf(stderr, "Error: scheduler: %v\n", err)
		return 1
	}
	logger.Info("control tower stopped")
	return 0
}

// snapshotFamilies binds each snapshot family to its read-model collector.
func snapshotFamilies(projector *projection.CachedProjector, alertEngine *analytics.AlertEngine, dispatcher *notify.Dispatcher, denials *audit.Store) []snapshot.Family {
	return []snapshot.Family{
		{Name: "shipment-index", Collect: func(ctx context.Context) (any, error) {
			rows, err := projector.Rows(ctx)
			if err != nil {
				return nil, err
			}
			indexes, err := projector.IndexesFor(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{"shipments": rows, "indexes": indexes}, nil
		}},
		{Name: "corridor-sla", Collect: func(ctx context.Context) (any, error) {
			rows, err := projector.Rows(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"corridors": analytics.CorridorSLAHealth(rows),
				"sla":       analytics.PredictAll(rows),
			}, nil
		}},
		{Name: "heatmap", Collect: func(ctx context.Context) (any, error) {
			rows, err := projector.Rows(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{"cells": analytics.BuildHeatmap(rows)}, nil
		}},
		{Name: "alerts", Collect: func(ctx context.Context) (any, error) {
			rows, err := projector.Rows(ctx)
			if err != nil {
				return nil, err
			}
			alerts := alertEngine.Evaluate(analytics.CorridorSLAHealth(rows))
			dispatcher.EmitCorridorAlerts(alerts)
			return map[string]any{"alerts": alerts}, nil
		}},
		{Name: "audit-denials", Collect: func(ctx context.Context) (any, error) {
			return denials.SummaryPayload(ctx)
		}},
	}
}

// rollupPayload aggregates the daily operational picture.
func rollupPayload(ctx context.Context, projector *projection.CachedProjector, notifications *notify.Store) (any, error) {
	rows, err := projector.Rows(ctx)
	if err != nil {
		return nil, err
	}
	byState := make(map[string]int)
	for _, row := range rows {
		byState[string(row.CurrentState)]++
	}
	return map[string]any{
		"shipment_count":        len(rows),
		"shipments_by_state":    byState,
		"corridors":             analytics.CorridorSLAHealth(rows),
		"heatmap":               analytics.BuildHeatmap(rows),
		"notification_severity": notifications.CountsBySeverity(),
	}, nil
}
