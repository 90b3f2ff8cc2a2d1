package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/config"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/forensics"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/integrity"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/regulator"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/snapshot"
)

// runExportCmd produces evidence bundles for regulators. When a regulator
// token is presented the profile's policy guard authorizes the export and
// every snapshot name before anything is read.
//
// Exit codes:
//
//	0 = export written
//	1 = denied by regulator policy
//	2 = runtime error
func runExportCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("export", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		names       string
		out         string
		format      string
		timeline    bool
		chain       string
		token       string
		profilesDir string
		profileCode string
	)
	cmd.StringVar(&names, "snapshots", "", "Comma-separated snapshot names (REQUIRED)")
	cmd.StringVar(&out, "out", "./evidence", "Output directory")
	cmd.StringVar(&format, "format", "archive", "Export format: archive, json, or csv")
	cmd.BoolVar(&timeline, "timeline", false, "Include a human-readable incident timeline")
	cmd.StringVar(&chain, "chain", "", "Comma-separated ordered snapshot names for a chain proof")
	cmd.StringVar(&token, "token", "", "Regulator session token; enforces the snapshot allow-list")
	cmd.StringVar(&profilesDir, "profiles", "./profiles", "Deployment profiles directory")
	cmd.StringVar(&profileCode, "profile", "in", "Deployment profile code")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if names == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --snapshots is required")
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	nameList := strings.Split(names, ",")
	if token != "" {
		guard, err := regulatorSession(cfg, token, profilesDir, profileCode)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if err := guard.Authorize(regulator.OpRequestExport, ""); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		for _, name := range nameList {
			if err := guard.Authorize(regulator.OpReadSnapshot, name); err != nil {
				_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
				return 1
			}
		}
	}
	store, err := snapshot.NewStore(cfg.SnapshotDir())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	signer, err := snapshot.NewSigner(cfg.SnapshotSigningKey, !cfg.IsProduction())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	engine := snapshot.NewEngine(store, signer)
	detector := integrity.NewDetector(store, signer)
	replayer := forensics.NewReplayer(engine, detector)
	exporter := forensics.NewExporter(engine, detector, replayer)

	opts := forensics.ExportOptions{IncludeTimeline: timeline}
	if chain != "" {
		opts.ChainNames = strings.Split(chain, ",")
	}

	if err := exporter.ExportMany(nameList, out, forensics.Format(format), opts); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	_, _ = fmt.Fprintf(stdout, "Exported %d snapshot(s) to %s (format %s, bundle version %s)\n",
		len(nameList), out, format, forensics.FormatVersion())
	return 0
}
