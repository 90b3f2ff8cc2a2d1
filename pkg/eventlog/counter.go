package eventlog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// ShipmentIDAllocator hands out SHP-prefixed, zero-padded shipment ids backed
// by a durable append-only counter file. On restart the allocator resumes
// from the last line.
type ShipmentIDAllocator struct {
	mu     sync.Mutex
	path   string
	last   uint64
	loaded bool
}

// NewShipmentIDAllocator creates an allocator persisting at path.
func NewShipmentIDAllocator(path string) (*ShipmentIDAllocator, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, &StorageError{Op: "counter open", Err: err}
	}
	return &ShipmentIDAllocator{path: path}, nil
}

// Next allocates and durably records the next shipment id.
func (a *ShipmentIDAllocator) Next() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.loaded {
		if err := a.loadLocked(); err != nil {
			return "", err
		}
	}

	n := a.last + 1

	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		return "", &StorageError{Op: "counter open", Err: err}
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "%d\n", n); err != nil {
		return "", &StorageError{Op: "counter write", Err: err}
	}
	if err := f.Sync(); err != nil {
		return "", &StorageError{Op: "counter fsync", Err: err}
	}

	a.last = n
	return FormatShipmentID(n), nil
}

func (a *ShipmentIDAllocator) loadLocked() error {
	f, err := os.Open(a.path)
	if os.IsNotExist(err) {
		a.loaded = true
		return nil
	}
	if err != nil {
		return &StorageError{Op: "counter read", Err: err}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lastLine string
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lastLine = line
		}
	}
	if err := scanner.Err(); err != nil {
		return &StorageError{Op: "counter scan", Err: err}
	}
	if lastLine != "" {
		n, err := strconv.ParseUint(lastLine, 10, 64)
		if err != nil {
			return &StorageError{Op: "counter parse", Err: err}
		}
		a.last = n
	}
	a.loaded = true
	return nil
}

// FormatShipmentID renders n as SHP- plus a 10-digit zero-padded counter.
func FormatShipmentID(n uint64) string {
	return fmt.Sprintf("SHP-%010d", n)
}
