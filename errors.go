// Package jsonlkv provides an embedded, append-only JSON key/value
// store: a line-delimited log on disk and an ordered in-memory index
// built by replaying it.
package jsonlkv

import (
	"errors"
	"fmt"

	"github.com/jpl-au/jsonlkv/internal/lockfile"
	"github.com/jpl-au/jsonlkv/internal/replay"
)

// Sentinel and structured errors returned by package operations: plain
// exported sentinels for simple conditions, small structured types
// when a caller needs more than a fixed message.
var (
	// ErrNotOpen is returned by any operation attempted on a DB that
	// has not been opened, or has already been closed.
	ErrNotOpen = errors.New("jsonlkv: database is not open")

	// ErrAlreadyOpen reports an attempt to open a database that is
	// already open. Open returns a fresh *DB on every call, so no
	// function in this package returns it.
	ErrAlreadyOpen = errors.New("jsonlkv: database is already open")

	// ErrUnsupportedValue is returned when a mutation cannot be
	// stored: a value that cannot be encoded as JSON (e.g. NaN/Inf
	// numbers), malformed JSON passed as SetObject's preSerialized, a
	// non-primitive Go type passed to SetPrimitive, or an empty key.
	ErrUnsupportedValue = errors.New("jsonlkv: unsupported value")

	// ErrLockBusy is returned by Open when another process already
	// holds the database's lockfile. Its text always contains
	// "Lockfile is in use", matching lockfile.ErrBusy.
	ErrLockBusy = lockfile.ErrBusy
)

// ConfigError reports an invalid Config field, naming the offending
// field so callers can report exactly what needs fixing.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("jsonlkv: invalid config field %q: %s", e.Field, e.Reason)
}

// InvalidDataError reports a corrupt log line found during replay, at
// its 1-based line number.
type InvalidDataError struct {
	Line   int
	Reason error
}

func (e *InvalidDataError) Error() string {
	return fmt.Sprintf("jsonlkv: invalid data at line %d: %v", e.Line, e.Reason)
}

func (e *InvalidDataError) Unwrap() error { return e.Reason }

func fromReplayError(err error) error {
	var invalid *replay.InvalidDataError
	if errors.As(err, &invalid) {
		return &InvalidDataError{Line: invalid.Line, Reason: errors.Unwrap(invalid)}
	}
	return err
}

// IOError wraps an underlying filesystem error with the path that
// caused it.
type IOError struct {
	Path  string
	Cause error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("jsonlkv: io error on %q: %v", e.Path, e.Cause)
}

func (e *IOError) Unwrap() error { return e.Cause }
