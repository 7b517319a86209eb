package serialization

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrInvalidMagic       = errors.New("invalid magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrTruncated          = errors.New("archive is truncated")
	ErrNoRecords          = errors.New("archive has no records")
	ErrDuplicateKey       = errors.New("duplicate record key")
	ErrTooManyRecords     = errors.New("too many records in archive")
	ErrRecordNotFound     = errors.New("record not found")
	ErrRecordTooLarge     = errors.New("record exceeds maximum size")
	ErrClosed             = errors.New("reader is closed")
)

// ArchiveOpenError is returned when an archive path cannot be opened.
type ArchiveOpenError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ArchiveOpenError) Error() string {
	return fmt.Sprintf("load: could not open file %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ArchiveOpenError) Unwrap() error {
	return e.Err
}

// ArchiveReadError is returned when the archive is corrupt, truncated, or a
// requested record is missing.
type ArchiveReadError struct {
	Op     string // Operation that failed (e.g., "scan", "read record")
	Key    uint64 // Record key, when HasKey is set
	HasKey bool
	Err    error
}

// Error implements the error interface.
func (e *ArchiveReadError) Error() string {
	if e.HasKey {
		return fmt.Sprintf("archive %s %d: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("archive %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ArchiveReadError) Unwrap() error {
	return e.Err
}

func scanError(err error) error {
	return &ArchiveReadError{Op: "scan", Err: err}
}

func recordError(key uint64, err error) error {
	return &ArchiveReadError{Op: "read record", Key: key, HasKey: true, Err: err}
}
