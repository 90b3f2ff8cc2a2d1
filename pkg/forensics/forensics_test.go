package forensics

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/integrity"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/snapshot"
)

type fixture struct {
	engine   *snapshot.Engine
	detector *integrity.Detector
	replayer *Replayer
	exporter *Exporter
	dir      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	store, err := snapshot.NewStore(dir)
	require.NoError(t, err)
	signer, err := snapshot.NewSigner("forensics-test-key", false)
	require.NoError(t, err)
	engine := snapshot.NewEngine(store, signer)
	detector := integrity.NewDetector(store, signer)
	replayer := NewReplayer(engine, detector)
	return &fixture{
		engine:   engine,
		detector: detector,
		replayer: replayer,
		exporter: NewExporter(engine, detector, replayer),
		dir:      dir,
	}
}

func (f *fixture) write(t *testing.T, name string, payload map[string]any) snapshot.Metadata {
	t.Helper()
	meta, err := f.engine.Write(name, payload)
	require.NoError(t, err)
	return meta
}

func (f *fixture) tamper(t *testing.T, name string) {
	t.Helper()
	path := filepath.Join(f.dir, name+".payload.json")
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	body[len(body)/2] ^= 0xFF
	require.NoError(t, os.WriteFile(path, body, 0640))
}

func TestReplayIntactSnapshot(t *testing.T) {
	f := newFixture(t)
	f.write(t, "shipment-index-1", map[string]any{"count": 7})

	result, err := f.replayer.Replay("shipment-index-1", nil)
	require.NoError(t, err)

	assert.Equal(t, "shipment-index-1", result.Name)
	assert.Equal(t, integrity.StatusIntact, result.IntegrityStatus)
	assert.Equal(t, float64(7), result.Content["count"])
	assert.Equal(t, snapshot.Genesis, result.Metadata.PrevHash)
}

func TestReplayRefusesTamperedSnapshot(t *testing.T) {
	f := newFixture(t)
	f.write(t, "s1", map[string]any{"n": 1})
	f.tamper(t, "s1")

	_, err := f.replayer.Replay("s1", nil)
	require.ErrorIs(t, err, ErrReplayRefused)
}

func TestReplayRejectsTimestampBeforeSnapshot(t *testing.T) {
	f := newFixture(t)
	meta := f.write(t, "s1", map[string]any{"n": 1})

	before := epochToTime(meta.Timestamp).Add(-time.Hour)
	_, err := f.replayer.Replay("s1", &before)
	require.ErrorIs(t, err, ErrTimestampBeforeSnapshot)

	after := epochToTime(meta.Timestamp).Add(time.Hour)
	result, err := f.replayer.Replay("s1", &after)
	require.NoError(t, err)
	assert.True(t, result.Timestamp.Equal(after))
}

func TestTimelineCoversCreationAndIntegrity(t *testing.T) {
	f := newFixture(t)
	f.write(t, "s1", map[string]any{"n": 1})
	f.write(t, "s2", map[string]any{"n": 2})
	f.tamper(t, "s2")

	entries := f.replayer.Timeline([]string{"s1", "s2"})
	require.Len(t, entries, 4)

	var kinds []string
	tamperSeen := false
	for _, e := range entries {
		kinds = append(kinds, e.EventType)
		if e.Snapshot == "s2" && e.EventType == "INTEGRITY_CHECK" {
			assert.Equal(t, "CRITICAL", e.Severity)
			tamperSeen = true
		}
	}
	assert.Contains(t, kinds, "SNAPSHOT_CREATED")
	assert.Contains(t, kinds, "INTEGRITY_CHECK")
	assert.True(t, tamperSeen)

	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i].Timestamp.Before(entries[i-1].Timestamp))
	}
}

func TestTimelineUsesInjectedClock(t *testing.T) {
	f := newFixture(t)
	f.write(t, "s1", map[string]any{"n": 1})

	checkedAt := time.Date(2027, 3, 1, 12, 0, 0, 0, time.UTC)
	f.replayer.WithClock(func() time.Time { return checkedAt })

	entries := f.replayer.Timeline([]string{"s1"})
	require.Len(t, entries, 2)

	found := false
	for _, e := range entries {
		if e.EventType == "INTEGRITY_CHECK" {
			assert.Equal(t, checkedAt, e.Timestamp)
			found = true
		}
	}
	assert.True(t, found)
}

func TestExportArchiveBundle(t *testing.T) {
	f := newFixture(t)
	meta := f.write(t, "s1", map[string]any{"corridor": "Maharashtra -> Gujarat"})
	f.write(t, "s2", map[string]any{"n": 2})

	dest := t.TempDir()
	dir, err := f.exporter.Export("s1", dest, FormatArchive, ExportOptions{
		IncludeTimeline: true,
		ChainNames:      []string{"s1", "s2"},
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "s1"), dir)

	for _, name := range []string{
		filePayload, fileMetadata, fileIntegrity, fileInstructions, fileTimeline, fileChainProof, fileManifest,
	} {
		_, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, "missing %s", name)
	}

	var m manifest
	data, err := os.ReadFile(filepath.Join(dir, fileManifest))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, formatVersion, m.FormatVersion)
	assert.Contains(t, m.Files, fileChainProof)

	instructions, err := os.ReadFile(filepath.Join(dir, fileInstructions))
	require.NoError(t, err)
	assert.Contains(t, string(instructions), meta.ContentHash)
	assert.Contains(t, string(instructions), "HMAC-SHA256")

	var proof integrity.ChainReport
	data, err = os.ReadFile(filepath.Join(dir, fileChainProof))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &proof))
	assert.True(t, proof.Valid)
}

func TestExportTamperedSnapshotStillProducesBundle(t *testing.T) {
	f := newFixture(t)
	f.write(t, "s1", map[string]any{"n": 1})
	f.tamper(t, "s1")

	dir, err := f.exporter.Export("s1", t.TempDir(), FormatArchive, ExportOptions{})
	require.NoError(t, err)

	var report integrity.Report
	data, err := os.ReadFile(filepath.Join(dir, fileIntegrity))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, integrity.StatusTampered, report.Status)
}

func TestExportJSONAndCSV(t *testing.T) {
	f := newFixture(t)
	meta := f.write(t, "s1", map[string]any{"n": 1})

	dest := t.TempDir()

	jsonPath, err := f.exporter.Export("s1", dest, FormatJSON, ExportOptions{})
	require.NoError(t, err)
	var doc map[string]any
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, formatVersion, doc["format_version"])
	assert.NotNil(t, doc["snapshot_payload"])
	assert.NotNil(t, doc["integrity_report"])

	csvPath, err := f.exporter.Export("s1", dest, FormatCSV, ExportOptions{})
	require.NoError(t, err)
	cf, err := os.Open(csvPath)
	require.NoError(t, err)
	defer cf.Close()
	rows, err := csv.NewReader(cf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "snapshot_name", rows[0][0])
	assert.Equal(t, meta.ContentHash, rows[1][1])
	assert.Equal(t, "INTACT", rows[1][7])

	_, err = f.exporter.Export("s1", dest, Format("xml"), ExportOptions{})
	require.Error(t, err)
}

func TestExportManyWritesSentinelOnFailure(t *testing.T) {
	f := newFixture(t)
	f.write(t, "good", map[string]any{"n": 1})

	dest := t.TempDir()
	require.NoError(t, f.exporter.ExportMany([]string{"good", "absent"}, dest, FormatArchive, ExportOptions{}))

	_, err := os.Stat(filepath.Join(dest, "good", fileManifest))
	require.NoError(t, err)

	sentinel, err := os.ReadFile(filepath.Join(dest, "absent", fileExportError))
	require.NoError(t, err)
	assert.Contains(t, string(sentinel), "absent")
}

func TestFormatVersionIsSemver(t *testing.T) {
	v := FormatVersion()
	assert.Equal(t, uint64(1), v.Major())
}

type fakeS3 struct {
	keys   []string
	bodies map[string][]byte
	fail   bool
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.fail {
		return nil, assert.AnError
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.bodies == nil {
		f.bodies = make(map[string][]byte)
	}
	f.keys = append(f.keys, *in.Key)
	f.bodies[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func TestReplicatorUploadsPayloadAndMetadata(t *testing.T) {
	f := newFixture(t)
	f.write(t, "s1", map[string]any{"n": 1})

	fake := &fakeS3{}
	r := NewReplicator(fake, f.engine.Store(), "evidence-bucket", "snapshots")
	require.NoError(t, r.Replicate(context.Background(), "s1"))

	require.Len(t, fake.keys, 2)
	assert.Equal(t, "snapshots/s1.payload.json", fake.keys[0])
	assert.Equal(t, "snapshots/s1.metadata.json", fake.keys[1])

	var meta snapshot.Metadata
	require.NoError(t, json.Unmarshal(fake.bodies["snapshots/s1.metadata.json"], &meta))
	assert.Equal(t, "s1", meta.SnapshotName)
}

func TestReplicatorMissingSnapshot(t *testing.T) {
	f := newFixture(t)
	fake := &fakeS3{}
	r := NewReplicator(fake, f.engine.Store(), "evidence-bucket", "snapshots")

	err := r.Replicate(context.Background(), "absent")
	require.ErrorIs(t, err, snapshot.ErrSnapshotMissing)
	assert.Empty(t, fake.keys)
}
