package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/regulator"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/snapshot"
)

func TestRunUnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"controltower", "frobnicate"}, &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "Unknown command")
}

func TestRunHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"controltower", "help"}, &stdout, &stderr)
	assert.Equal(t, 0, code)
	for _, sub := range []string{"serve", "emit", "verify", "replay", "export", "view", "issue-token"} {
		assert.True(t, strings.Contains(stdout.String(), sub), "usage missing %s", sub)
	}
}

func TestVerifyRequiresArguments(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := runVerifyCmd(nil, &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "--snapshot or --chain")
}

func TestReplayRequiresSnapshot(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := runReplayCmd(nil, &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "--snapshot is required")
}

func TestExportRequiresSnapshots(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := runExportCmd(nil, &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "--snapshots is required")
}

func TestEmitRequiresEventAndRole(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := runEmitCmd(nil, &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "--event is required")

	stderr.Reset()
	code = runEmitCmd([]string{"--event", "MANAGER_APPROVED"}, &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "--role is required")
}

func TestViewRequiresRole(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := runViewCmd(nil, &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "--role is required")
}

func TestIssueTokenRequiresSubject(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := runIssueTokenCmd(nil, &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "--subject is required")
}

const guardedProfileYAML = `name: Command Test
code: in
snapshots:
  interval_minutes: 15
  rollup_hour: 17
  timezone: UTC
sla:
  corridor_alert_threshold: 0.6
  delayed_ack_utilization: 0.85
regulator:
  allow_all_snapshots: false
  snapshot_allow_list:
    - corridor-sla-20260101T000000
  token_ttl_hours: 2
`

const openProfileYAML = `name: Open Test
code: open
snapshots:
  interval_minutes: 15
  rollup_hour: 17
  timezone: UTC
sla:
  corridor_alert_threshold: 0.6
  delayed_ack_utilization: 0.85
regulator:
  allow_all_snapshots: true
  token_ttl_hours: 2
`

// regulatorFixture writes one frozen snapshot plus guarded and open profiles
// and mints a valid regulator token.
func regulatorFixture(t *testing.T) (profilesDir, token string) {
	t.Helper()

	dataDir := t.TempDir()
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("SNAPSHOT_SIGNING_KEY", "")
	t.Setenv("REGULATOR_TOKEN_KEY", "cmd-test-key")

	store, err := snapshot.NewStore(filepath.Join(dataDir, "snapshots"))
	require.NoError(t, err)
	signer, err := snapshot.NewSigner("", true)
	require.NoError(t, err)
	engine := snapshot.NewEngine(store, signer)
	_, err = engine.Write("heatmap-20260101T000000", map[string]any{"cells": []any{}})
	require.NoError(t, err)

	profilesDir = t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(profilesDir, "profile_in.yaml"), []byte(guardedProfileYAML), 0o644))
	require.NoError(t, os.WriteFile(
		filepath.Join(profilesDir, "profile_open.yaml"), []byte(openProfileYAML), 0o644))

	issuer := regulator.NewTokenIssuer([]byte("cmd-test-key"), time.Hour)
	token, err = issuer.Issue("auditor-1", "NLCT")
	require.NoError(t, err)
	return profilesDir, token
}

func TestExportDeniedOutsideAllowList(t *testing.T) {
	profilesDir, token := regulatorFixture(t)

	var stdout, stderr bytes.Buffer
	code := runExportCmd([]string{
		"--snapshots", "heatmap-20260101T000000",
		"--out", t.TempDir(),
		"--token", token,
		"--profiles", profilesDir,
	}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "not in the allow-list")
}

func TestExportAllowedWithOpenProfile(t *testing.T) {
	profilesDir, token := regulatorFixture(t)
	out := t.TempDir()

	var stdout, stderr bytes.Buffer
	code := runExportCmd([]string{
		"--snapshots", "heatmap-20260101T000000",
		"--out", out,
		"--token", token,
		"--profiles", profilesDir,
		"--profile", "open",
	}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	_, err := os.Stat(filepath.Join(out, "heatmap-20260101T000000", "manifest.json"))
	assert.NoError(t, err)
}

func TestExportRejectsForgedToken(t *testing.T) {
	profilesDir, _ := regulatorFixture(t)

	forged, err := regulator.NewTokenIssuer([]byte("other-key"), time.Hour).Issue("auditor-1", "NLCT")
	require.NoError(t, err)

	var stdout, stderr bytes.Buffer
	code := runExportCmd([]string{
		"--snapshots", "heatmap-20260101T000000",
		"--out", t.TempDir(),
		"--token", forged,
		"--profiles", profilesDir,
	}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "regulator token invalid")
}

func TestReplayDeniedOutsideAllowList(t *testing.T) {
	profilesDir, token := regulatorFixture(t)

	var stdout, stderr bytes.Buffer
	code := runReplayCmd([]string{
		"--snapshot", "heatmap-20260101T000000",
		"--token", token,
		"--profiles", profilesDir,
	}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "not in the allow-list")
}

func TestReplayWithoutTokenStaysOperatorPath(t *testing.T) {
	regulatorFixture(t)

	var stdout, stderr bytes.Buffer
	code := runReplayCmd([]string{
		"--snapshot", "heatmap-20260101T000000",
	}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "heatmap-20260101T000000")
}

func TestIssueTokenTTLDefaultsFromProfile(t *testing.T) {
	profilesDir, _ := regulatorFixture(t)

	var stdout, stderr bytes.Buffer
	code := runIssueTokenCmd([]string{
		"--subject", "auditor-1",
		"--profiles", profilesDir,
	}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	issuer := regulator.NewTokenIssuer([]byte("cmd-test-key"), time.Hour)
	claims, err := issuer.Verify(strings.TrimSpace(stdout.String()))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}
