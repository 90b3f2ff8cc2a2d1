// Package regulator gives external auditors a snapshot-only window into the
// system. The policy guard fails closed: an operation is denied unless the
// allow-list explicitly names it, and the deny-list can never be overridden.
package regulator

import (
	"errors"
	"fmt"
	"log/slog"
)

// Operation names the actions a regulator session may attempt.
type Operation string

const (
	OpReadSnapshot      Operation = "READ_SNAPSHOT"
	OpRequestExport     Operation = "REQUEST_EXPORT"
	OpViewDenialSummary Operation = "VIEW_DENIAL_SUMMARY"
	OpViewDenialCounts  Operation = "VIEW_DENIAL_COUNTS"

	// Permanently denied operations. Listed so attempts are auditable by
	// name instead of falling into the generic unknown bucket.
	OpEmitEvent         Operation = "EMIT_EVENT"
	OpReadLiveModel     Operation = "READ_LIVE_MODEL"
	OpRunLiveAnalytics  Operation = "RUN_LIVE_ANALYTICS"
)

// ErrOperationDenied is returned for every rejected operation.
var ErrOperationDenied = errors.New("operation denied by regulator policy")

var allowedOps = map[Operation]bool{
	OpReadSnapshot:      true,
	OpRequestExport:     true,
	OpViewDenialSummary: true,
	OpViewDenialCounts:  true,
}

var deniedOps = map[Operation]bool{
	OpEmitEvent:        true,
	OpReadLiveModel:    true,
	OpRunLiveAnalytics: true,
}

// PolicyGuard enforces the regulator operation policy plus a per-deployment
// snapshot allow-list.
type PolicyGuard struct {
	snapshotAllowList map[string]bool
	allowAllSnapshots bool
	logger            *slog.Logger
}

// NewPolicyGuard builds a guard over an explicit snapshot allow-list. An
// empty list allows no snapshot reads; use AllowAllSnapshots for deployments
// that expose every snapshot.
func NewPolicyGuard(snapshotNames []string) *PolicyGuard {
	g := &PolicyGuard{
		snapshotAllowList: make(map[string]bool, len(snapshotNames)),
		logger:            slog.Default().With("component", "regulator-policy"),
	}
	for _, name := range snapshotNames {
		g.snapshotAllowList[name] = true
	}
	return g
}

// AllowAllSnapshots opens snapshot reads to every name. Operation policy is
// unaffected.
func (g *PolicyGuard) AllowAllSnapshots() *PolicyGuard {
	g.allowAllSnapshots = true
	return g
}

// Authorize checks one operation. target is the snapshot name for
// READ_SNAPSHOT and ignored otherwise.
func (g *PolicyGuard) Authorize(op Operation, target string) error {
	if deniedOps[op] {
		g.logger.Warn("regulator attempted denied operation", "operation", op)
		return fmt.Errorf("%w: %s is deny-listed", ErrOperationDenied, op)
	}
	if !allowedOps[op] {
		g.logger.Warn("regulator attempted unknown operation", "operation", op)
		return fmt.Errorf("%w: %s is not allow-listed", ErrOperationDenied, op)
	}
	if op == OpReadSnapshot && !g.allowAllSnapshots && !g.snapshotAllowList[target] {
		g.logger.Warn("regulator snapshot read outside allow-list", "snapshot", target)
		return fmt.Errorf("%w: snapshot %q is not in the allow-list", ErrOperationDenied, target)
	}
	return nil
}
