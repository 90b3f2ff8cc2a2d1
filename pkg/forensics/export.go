package forensics

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/integrity"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/snapshot"
)

// formatVersion is the evidence bundle layout version. Consumers compare it
// with semver semantics before parsing.
const formatVersion = "1.2.0"

// Format selects the evidence export shape.
type Format string

const (
	FormatArchive Format = "archive"
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
)

// Bundle file names inside a per-snapshot evidence directory.
const (
	filePayload      = "snapshot_payload.json"
	fileMetadata     = "snapshot_metadata.json"
	fileIntegrity    = "integrity_report.json"
	fileInstructions = "verification_instructions.txt"
	fileTimeline     = "incident_timeline.txt"
	fileChainProof   = "chain_proof.json"
	fileManifest     = "manifest.json"
	fileExportError  = "EXPORT_ERROR.txt"
)

// manifest describes an evidence bundle.
type manifest struct {
	FormatVersion string    `json:"format_version"`
	SnapshotName  string    `json:"snapshot_name"`
	ExportedAt    time.Time `json:"exported_at"`
	Files         []string  `json:"files"`
}

// ExportOptions tune a single export.
type ExportOptions struct {
	// IncludeTimeline adds a human-readable incident timeline.
	IncludeTimeline bool
	// ChainNames, when set, adds a chain proof over these snapshots.
	ChainNames []string
}

// Exporter produces evidence bundles for regulators.
type Exporter struct {
	engine   *snapshot.Engine
	detector *integrity.Detector
	replayer *Replayer
	clock    func() time.Time
	logger   *slog.Logger
}

// NewExporter wires an exporter.
func NewExporter(engine *snapshot.Engine, detector *integrity.Detector, replayer *Replayer) *Exporter {
	return &Exporter{
		engine:   engine,
		detector: detector,
		replayer: replayer,
		clock:    time.Now,
		logger:   slog.Default().With("component", "evidence-export"),
	}
}

// WithClock overrides the clock for testing.
func (e *Exporter) WithClock(clock func() time.Time) *Exporter {
	e.clock = clock
	return e
}

// FormatVersion returns the bundle layout version.
func FormatVersion() *semver.Version {
	return semver.MustParse(formatVersion)
}

// Export writes an evidence bundle for one snapshot under destDir. The bundle
// is written even for tampered snapshots; the integrity report inside carries
// the verdict, because "we found tampering" is itself evidence.
func (e *Exporter) Export(name, destDir string, format Format, opts ExportOptions) (string, error) {
	switch format {
	case FormatArchive:
		return e.exportArchive(name, destDir, opts)
	case FormatJSON:
		return e.exportJSON(name, destDir)
	case FormatCSV:
		return e.exportCSV(name, destDir)
	default:
		return "", fmt.Errorf("unknown export format %q", format)
	}
}

// ExportMany exports several snapshots under per-snapshot directories. An
// individual failure leaves a sentinel error file in that snapshot's
// directory instead of aborting the remaining exports.
func (e *Exporter) ExportMany(names []string, destDir string, format Format, opts ExportOptions) error {
	if err := os.MkdirAll(destDir, 0750); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	for _, name := range names {
		if _, err := e.Export(name, destDir, format, opts); err != nil {
			e.logger.Error("snapshot export failed", "snapshot", name, "error", err)
			dir := filepath.Join(destDir, name)
			if mkErr := os.MkdirAll(dir, 0750); mkErr != nil {
				return fmt.Errorf("create sentinel dir for %q: %w", name, mkErr)
			}
			sentinel := fmt.Sprintf("export of snapshot %q failed at %s:\n%v\n",
				name, e.clock().UTC().Format(time.RFC3339), err)
			if wErr := os.WriteFile(filepath.Join(dir, fileExportError), []byte(sentinel), 0640); wErr != nil {
				return fmt.Errorf("write sentinel for %q: %w", name, wErr)
			}
		}
	}
	return nil
}

func (e *Exporter) exportArchive(name, destDir string, opts ExportOptions) (string, error) {
	payload, err := e.engine.Store().ReadPayload(name)
	if err != nil {
		return "", fmt.Errorf("export %q: %w", name, err)
	}
	meta, err := e.engine.Store().ReadMetadata(name)
	if err != nil {
		return "", fmt.Errorf("export %q: %w", name, err)
	}
	report := e.detector.Detect(name)

	dir := filepath.Join(destDir, name)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("create bundle dir: %w", err)
	}

	files := []string{filePayload, fileMetadata, fileIntegrity, fileInstructions}
	if err := os.WriteFile(filepath.Join(dir, filePayload), payload, 0640); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, fileMetadata), meta); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, fileIntegrity), report); err != nil {
		return "", err
	}
	instructions := verificationInstructions(name, meta)
	if err := os.WriteFile(filepath.Join(dir, fileInstructions), []byte(instructions), 0640); err != nil {
		return "", err
	}

	if opts.IncludeTimeline {
		timeline := e.replayer.Timeline([]string{name})
		var text string
		for _, entry := range timeline {
			text += fmt.Sprintf("[%s] %-17s %-8s %s\n",
				entry.Timestamp.Format(time.RFC3339), entry.EventType, entry.Severity, entry.Description)
		}
		if err := os.WriteFile(filepath.Join(dir, fileTimeline), []byte(text), 0640); err != nil {
			return "", err
		}
		files = append(files, fileTimeline)
	}

	if len(opts.ChainNames) > 0 {
		proof := e.detector.VerifyChain(opts.ChainNames)
		if err := writeJSON(filepath.Join(dir, fileChainProof), proof); err != nil {
			return "", err
		}
		files = append(files, fileChainProof)
	}

	m := manifest{
		FormatVersion: formatVersion,
		SnapshotName:  name,
		ExportedAt:    e.clock().UTC(),
		Files:         append(files, fileManifest),
	}
	if err := writeJSON(filepath.Join(dir, fileManifest), m); err != nil {
		return "", err
	}

	e.logger.Info("evidence bundle exported", "snapshot", name, "dir", dir)
	return dir, nil
}

// exportJSON flattens the bundle into a single JSON document.
func (e *Exporter) exportJSON(name, destDir string) (string, error) {
	meta, err := e.engine.Store().ReadMetadata(name)
	if err != nil {
		return "", fmt.Errorf("export %q: %w", name, err)
	}
	content, err := e.engine.Read(name)
	if err != nil {
		return "", fmt.Errorf("export %q: %w", name, err)
	}

	doc := map[string]any{
		"format_version":            formatVersion,
		"exported_at":               e.clock().UTC(),
		"snapshot_payload":          content,
		"snapshot_metadata":         meta,
		"integrity_report":          e.detector.Detect(name),
		"verification_instructions": verificationInstructions(name, meta),
	}

	if err := os.MkdirAll(destDir, 0750); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(destDir, name+".evidence.json")
	if err := writeJSON(path, doc); err != nil {
		return "", err
	}
	return path, nil
}

// exportCSV writes metadata-only tabular evidence.
func (e *Exporter) exportCSV(name, destDir string) (string, error) {
	meta, err := e.engine.Store().ReadMetadata(name)
	if err != nil {
		return "", fmt.Errorf("export %q: %w", name, err)
	}
	report := e.detector.Detect(name)

	if err := os.MkdirAll(destDir, 0750); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(destDir, name+".evidence.csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	rows := [][]string{
		{"snapshot_name", "content_hash", "signature", "prev_hash", "sequence",
			"timestamp", "size_bytes", "integrity_status", "format_version"},
		{meta.SnapshotName, meta.ContentHash, meta.Signature, meta.PrevHash,
			strconv.Itoa(meta.Sequence),
			strconv.FormatFloat(meta.Timestamp, 'f', -1, 64),
			strconv.Itoa(meta.SizeBytes),
			string(report.Status), formatVersion},
	}
	if err := w.WriteAll(rows); err != nil {
		return "", fmt.Errorf("write csv: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return path, nil
}

func verificationInstructions(name string, meta snapshot.Metadata) string {
	return fmt.Sprintf(`Verification instructions for snapshot %s
===========================================================

1. Canonicalize snapshot_payload.json per RFC 8785 (JSON Canonicalization
   Scheme). The file as exported is already in canonical form; any
   re-serialization must reproduce it byte for byte.

2. Compute SHA-256 over the canonical bytes and hex-encode the digest.
   Expected content_hash:
   %s

3. Compute HMAC-SHA256 over the ASCII content_hash using the snapshot
   signing key (derived from the master key via HKDF-SHA256 with info
   "snapshot-signing-v1"). Hex-encode and compare in constant time.
   Expected signature:
   %s

4. Confirm prev_hash matches the content_hash of the preceding snapshot in
   the chain (or the all-zero genesis value for the first snapshot).
   Recorded prev_hash:
   %s

Any mismatch at steps 2-4 means the evidence has been altered since it was
frozen at sequence %d.
`, name, meta.ContentHash, meta.Signature, meta.PrevHash, meta.Sequence)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0640); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
