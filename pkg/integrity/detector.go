// Package integrity verifies persisted snapshots: content hash, HMAC
// signature, and chain linkage. Violations are never recovered silently;
// callers get a structured report or a hard error.
package integrity

import (
	"errors"
	"fmt"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/canonical"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/snapshot"
)

// Status classifies the outcome of a detection pass.
type Status string

const (
	StatusIntact   Status = "INTACT"
	StatusTampered Status = "TAMPERED"
	StatusMissing  Status = "MISSING"
	StatusError    Status = "ERROR"
)

// Severity grades a violation.
type Severity string

const (
	SeverityNone     Severity = "NONE"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Rule identifiers reported in violated_rules.
const (
	RuleSnapshotMissing  = "SNAPSHOT_MISSING"
	RuleMetadataMissing  = "METADATA_MISSING"
	RuleMetadataInvalid  = "METADATA_INVALID"
	RuleHashMismatch     = "HASH_MISMATCH"
	RuleSignatureInvalid = "SIGNATURE_INVALID"
	RuleChainBreak       = "CHAIN_BREAK"
)

// Report is the structured result of Detect.
type Report struct {
	SnapshotName  string   `json:"snapshot_name"`
	Status        Status   `json:"status"`
	ViolatedRules []string `json:"violated_rules"`
	Severity      Severity `json:"severity"`
	Details       string   `json:"details,omitempty"`
}

// ChainReport is the result of chain verification over an ordered name list.
type ChainReport struct {
	Valid    bool   `json:"valid"`
	BrokenAt string `json:"broken_at,omitempty"`
	Details  string `json:"details,omitempty"`
}

// ViolationError is raised by AssertIntegrity. It always carries the report.
type ViolationError struct {
	Report Report
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("integrity violation on %s: %s (%v)",
		e.Report.SnapshotName, e.Report.Status, e.Report.ViolatedRules)
}

// Detector verifies snapshots against a store and signer.
type Detector struct {
	store  *snapshot.Store
	signer *snapshot.Signer
}

// NewDetector wires a detector.
func NewDetector(store *snapshot.Store, signer *snapshot.Signer) *Detector {
	return &Detector{store: store, signer: signer}
}

// Detect runs the ordered checks: payload exists, metadata exists and parses,
// recomputed content hash matches, signature verifies in constant time.
func (d *Detector) Detect(name string) Report {
	report := Report{SnapshotName: name, Status: StatusIntact, Severity: SeverityNone, ViolatedRules: []string{}}

	body, err := d.store.ReadPayload(name)
	if errors.Is(err, snapshot.ErrSnapshotMissing) {
		report.Status = StatusMissing
		report.Severity = SeverityHigh
		report.ViolatedRules = append(report.ViolatedRules, RuleSnapshotMissing)
		report.Details = err.Error()
		return report
	}
	if err != nil {
		report.Status = StatusError
		report.Severity = SeverityHigh
		report.Details = err.Error()
		return report
	}

	meta, err := d.store.ReadMetadata(name)
	if errors.Is(err, snapshot.ErrMetadataMissing) {
		report.Status = StatusTampered
		report.Severity = SeverityCritical
		report.ViolatedRules = append(report.ViolatedRules, RuleMetadataMissing)
		report.Details = err.Error()
		return report
	}
	if errors.Is(err, snapshot.ErrMetadataInvalid) {
		report.Status = StatusTampered
		report.Severity = SeverityCritical
		report.ViolatedRules = append(report.ViolatedRules, RuleMetadataInvalid)
		report.Details = err.Error()
		return report
	}
	if err != nil {
		report.Status = StatusError
		report.Severity = SeverityHigh
		report.Details = err.Error()
		return report
	}

	// Recompute the hash over the canonical form of what is on disk. A
	// payload edited into invalid JSON fails canonicalization and is
	// tampering by definition.
	canon, err := canonical.Transform(body)
	if err != nil {
		report.Status = StatusTampered
		report.Severity = SeverityCritical
		report.ViolatedRules = append(report.ViolatedRules, RuleHashMismatch)
		report.Details = fmt.Sprintf("payload is not valid JSON: %v", err)
		return report
	}
	if got := canonical.SHA256Hex(canon); got != meta.ContentHash {
		report.Status = StatusTampered
		report.Severity = SeverityCritical
		report.ViolatedRules = append(report.ViolatedRules, RuleHashMismatch)
		report.Details = fmt.Sprintf("content hash mismatch: stored %s, recomputed %s", meta.ContentHash, got)
		return report
	}

	if !d.signer.Verify(meta.ContentHash, meta.Signature) {
		report.Status = StatusTampered
		report.Severity = SeverityCritical
		report.ViolatedRules = append(report.ViolatedRules, RuleSignatureInvalid)
		report.Details = "HMAC signature verification failed"
		return report
	}

	return report
}

// VerifyChain confirms linkage over an ordered list of snapshot names: the
// first references Genesis, each subsequent prev_hash equals its
// predecessor's content_hash. Reports the first break.
func (d *Detector) VerifyChain(names []string) ChainReport {
	prev := snapshot.Genesis
	for _, name := range names {
		meta, err := d.store.ReadMetadata(name)
		if err != nil {
			return ChainReport{Valid: false, BrokenAt: name, Details: err.Error()}
		}
		if meta.PrevHash != prev {
			return ChainReport{
				Valid:    false,
				BrokenAt: name,
				Details:  fmt.Sprintf("prev_hash %s does not match predecessor content_hash %s", meta.PrevHash, prev),
			}
		}
		// A link is only trustworthy if the linked content is intact.
		if rep := d.Detect(name); rep.Status != StatusIntact {
			return ChainReport{Valid: false, BrokenAt: name, Details: rep.Details}
		}
		prev = meta.ContentHash
	}
	return ChainReport{Valid: true}
}

// AssertIntegrity returns a *ViolationError for any non-INTACT status.
func (d *Detector) AssertIntegrity(name string) error {
	report := d.Detect(name)
	if report.Status != StatusIntact {
		return &ViolationError{Report: report}
	}
	return nil
}
