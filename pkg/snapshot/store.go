package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	// ErrSnapshotMissing is returned when the payload file does not exist.
	ErrSnapshotMissing = errors.New("snapshot missing")
	// ErrMetadataMissing is returned when the metadata file does not exist.
	ErrMetadataMissing = errors.New("snapshot metadata missing")
	// ErrMetadataInvalid is returned when the metadata file fails to parse
	// or violates the metadata schema.
	ErrMetadataInvalid = errors.New("snapshot metadata invalid")
)

// Metadata describes a persisted snapshot. It is written beside the payload
// but persisted independently.
type Metadata struct {
	SnapshotName string  `json:"snapshot_name"`
	ContentHash  string  `json:"content_hash"`
	Signature    string  `json:"signature"`
	PrevHash     string  `json:"prev_hash"`
	Sequence     int     `json:"sequence"`
	Timestamp    float64 `json:"timestamp"`
	SizeBytes    int     `json:"size_bytes"`
}

// ChainRecord is one link in the snapshot chain.
type ChainRecord struct {
	SnapshotName string  `json:"snapshot_name"`
	ContentHash  string  `json:"content_hash"`
	PrevHash     string  `json:"prev_hash"`
	Timestamp    float64 `json:"timestamp"`
	Sequence     int     `json:"sequence"`
}

const metadataSchema = `{
  "type": "object",
  "required": ["snapshot_name", "content_hash", "signature", "prev_hash",
               "sequence", "timestamp", "size_bytes"],
  "properties": {
    "snapshot_name": {"type": "string", "minLength": 1},
    "content_hash":  {"type": "string", "pattern": "^[0-9a-f]{64}$"},
    "signature":     {"type": "string", "pattern": "^[0-9a-f]{64}$"},
    "prev_hash":     {"type": "string", "pattern": "^[0-9a-f]{64}$"},
    "sequence":      {"type": "integer", "minimum": 0},
    "timestamp":     {"type": "number"},
    "size_bytes":    {"type": "integer", "minimum": 0}
  }
}`

// Store owns the snapshot directory. Payload and metadata writes are atomic
// (write-to-tmp + rename) and serialized by a lock; a crash leaves either
// both or neither visible for a given snapshot version.
type Store struct {
	mu     sync.Mutex
	dir    string
	schema *jsonschema.Schema
}

// NewStore opens a snapshot store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	schema, err := jsonschema.CompileString("snapshot-metadata.schema.json", metadataSchema)
	if err != nil {
		return nil, fmt.Errorf("compile metadata schema: %w", err)
	}
	return &Store{dir: dir, schema: schema}, nil
}

// Dir returns the store root.
func (s *Store) Dir() string { return s.dir }

func (s *Store) payloadPath(name string) string {
	return filepath.Join(s.dir, name+".payload.json")
}

func (s *Store) metadataPath(name string) string {
	return filepath.Join(s.dir, name+".metadata.json")
}

func (s *Store) chainPath() string {
	return filepath.Join(s.dir, "chain.json")
}

// Put persists canonical payload bytes and metadata for name.
func (s *Store) Put(name string, payload []byte, meta Metadata, chain []ChainRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := atomicWrite(s.payloadPath(name), payload); err != nil {
		return fmt.Errorf("write payload %q: %w", name, err)
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata %q: %w", name, err)
	}
	if err := atomicWrite(s.metadataPath(name), metaBytes); err != nil {
		return fmt.Errorf("write metadata %q: %w", name, err)
	}
	chainBytes, err := json.Marshal(chain)
	if err != nil {
		return fmt.Errorf("marshal chain: %w", err)
	}
	if err := atomicWrite(s.chainPath(), chainBytes); err != nil {
		return fmt.Errorf("write chain: %w", err)
	}
	return nil
}

// ReadPayload returns the raw payload bytes of a snapshot.
func (s *Store) ReadPayload(name string) ([]byte, error) {
	data, err := os.ReadFile(s.payloadPath(name))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotMissing, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read payload %q: %w", name, err)
	}
	return data, nil
}

// Exists reports whether the payload file for name is present.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.payloadPath(name))
	return err == nil
}

// ReadMetadata parses and schema-validates the metadata of a snapshot.
func (s *Store) ReadMetadata(name string) (Metadata, error) {
	data, err := os.ReadFile(s.metadataPath(name))
	if os.IsNotExist(err) {
		return Metadata{}, fmt.Errorf("%w: %s", ErrMetadataMissing, name)
	}
	if err != nil {
		return Metadata{}, fmt.Errorf("read metadata %q: %w", name, err)
	}

	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return Metadata{}, fmt.Errorf("%w: %s: %v", ErrMetadataInvalid, name, err)
	}
	if err := s.schema.Validate(generic); err != nil {
		return Metadata{}, fmt.Errorf("%w: %s: %v", ErrMetadataInvalid, name, err)
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, fmt.Errorf("%w: %s: %v", ErrMetadataInvalid, name, err)
	}
	return meta, nil
}

// Chain returns the ordered chain records, empty when no snapshot exists yet.
func (s *Store) Chain() ([]ChainRecord, error) {
	data, err := os.ReadFile(s.chainPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read chain: %w", err)
	}
	var chain []ChainRecord
	if err := json.Unmarshal(data, &chain); err != nil {
		return nil, fmt.Errorf("parse chain: %w", err)
	}
	return chain, nil
}

// atomicWrite writes to a temp file in the same directory and renames it into
// place, then fsyncs the data before the rename.
func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
