package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/config"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/forensics"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/integrity"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/regulator"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/snapshot"
)

// runReplayCmd replays a verified snapshot, refusing tampered ones. When a
// regulator token is presented the profile's policy guard authorizes the
// snapshot read first.
//
// Exit codes:
//
//	0 = replay succeeded
//	1 = replay refused (integrity violation or regulator policy)
//	2 = runtime error
func runReplayCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("replay", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		name        string
		at          string
		token       string
		profilesDir string
		profileCode string
	)
	cmd.StringVar(&name, "snapshot", "", "Snapshot name to replay (REQUIRED)")
	cmd.StringVar(&at, "at", "", "Replay as of this RFC 3339 timestamp (must not predate the snapshot)")
	cmd.StringVar(&token, "token", "", "Regulator session token; enforces the snapshot allow-list")
	cmd.StringVar(&profilesDir, "profiles", "./profiles", "Deployment profiles directory")
	cmd.StringVar(&profileCode, "profile", "in", "Deployment profile code")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --snapshot is required")
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if token != "" {
		guard, err := regulatorSession(cfg, token, profilesDir, profileCode)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if err := guard.Authorize(regulator.OpReadSnapshot, name); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}

	replayer, err := buildReplayer(cfg)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	var atTime *time.Time
	if at != "" {
		parsed, err := time.Parse(time.RFC3339, at)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: invalid --at timestamp: %v\n", err)
			return 2
		}
		atTime = &parsed
	}

	result, err := replayer.Replay(name, atTime)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	data, _ := json.MarshalIndent(result, "", "  ")
	_, _ = fmt.Fprintln(stdout, string(data))
	return 0
}

func buildReplayer(cfg config.Config) (*forensics.Replayer, error) {
	store, err := snapshot.NewStore(cfg.SnapshotDir())
	if err != nil {
		return nil, err
	}
	signer, err := snapshot.NewSigner(cfg.SnapshotSigningKey, !cfg.IsProduction())
	if err != nil {
		return nil, err
	}
	engine := snapshot.NewEngine(store, signer)
	detector := integrity.NewDetector(store, signer)
	return forensics.NewReplayer(engine, detector), nil
}
