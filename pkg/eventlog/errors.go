package eventlog

import (
	"errors"
	"fmt"
)

// ErrDuplicateCreation is returned when a SHIPMENT_CREATED event is appended
// for a shipment that already has one.
var ErrDuplicateCreation = errors.New("duplicate shipment creation")

// StorageError wraps a durability failure. It is fatal: the appender must
// retry or shut down, because the log may no longer be consistent with what
// callers were told.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("event log storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageError reports whether err is (or wraps) a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
