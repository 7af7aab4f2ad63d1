package jsonlkv

import (
	"time"

	"github.com/jpl-au/jsonlkv/internal/autocompact"
	"github.com/jpl-au/jsonlkv/internal/lockfile"
)

// ThrottleFS configures how the write pipeline batches appends to
// disk.
type ThrottleFS struct {
	// IntervalMs batches writes, flushing at most once per interval
	// instead of once per Set/Delete call. 0 disables batching:
	// every mutation is flushed immediately.
	IntervalMs int

	// MaxBufferedCommands bounds how many encoded lines may be
	// queued before Set/Delete blocks the caller, providing
	// backpressure instead of unbounded memory growth. 0 means
	// unbounded.
	MaxBufferedCommands int
}

// AutoCompact configures when the engine rewrites its log in the
// background. The zero value disables all triggers.
type AutoCompact struct {
	// SizeFactor triggers a compaction once the live file exceeds
	// SizeFactor times its size at the last compaction (or Open). 0
	// disables the trigger; otherwise must be > 1.
	SizeFactor float64

	// SizeFactorMinimumSize suppresses the SizeFactor trigger below
	// this file size, in bytes.
	SizeFactorMinimumSize int64

	IntervalMs int
	MinChanges int
	OnOpen     bool
	OnClose    bool
}

func (a AutoCompact) toPolicy() autocompact.Policy {
	return autocompact.Policy{
		SizeFactor:            a.SizeFactor,
		SizeFactorMinimumSize: a.SizeFactorMinimumSize,
		Interval:              time.Duration(a.IntervalMs) * time.Millisecond,
		MinChanges:            a.MinChanges,
		OnOpen:                a.OnOpen,
		OnClose:               a.OnClose,
	}
}

// LockTokenAlgorithm selects how the cross-process lockfile's owner
// token is derived.
type LockTokenAlgorithm int

const (
	LockTokenXXH3 LockTokenAlgorithm = iota
	LockTokenBlake2b
)

// Config configures Open. Every field has a usable zero value;
// Open fills in defaults before use.
type Config struct {
	// IgnoreReadErrors makes replay tolerant of corrupt lines
	// instead of failing Open outright.
	IgnoreReadErrors bool

	// ThrottleFS controls write batching and backpressure.
	ThrottleFS ThrottleFS

	// AutoCompact controls background compaction triggers.
	AutoCompact AutoCompact

	// LockfileDirectory overrides where the sidecar ".lock" file is
	// created; empty means next to the database file.
	LockfileDirectory string

	// LockTokenAlgorithm selects the lockfile owner-token hash.
	// Defaults to LockTokenXXH3.
	LockTokenAlgorithm LockTokenAlgorithm

	// MaxRecordSize bounds a single log line, guarding replay's
	// scanner buffer against an unbounded read. Defaults to 16 MiB.
	MaxRecordSize int

	// IndexPaths declares which JSON-pointer-style paths feed the
	// secondary index. A path only contributes a term when the value
	// it resolves to is a string; paths not listed here are never
	// indexed.
	IndexPaths []string

	// CompactOnOpenIfNeeded runs a compaction right after Open when
	// lenient replay detected corruption that needs cleaning up,
	// independent of AutoCompact.OnOpen.
	CompactOnOpenIfNeeded bool
}

const defaultMaxRecordSize = 16 << 20

// validate checks Config fields, naming the offending field in the
// returned *ConfigError, and returns a defaulted copy. A zero-valued
// AutoCompact field disables that trigger rather than being rejected,
// so range checks only fire once the trigger is actually in use.
func (c Config) validate() (Config, error) {
	if c.ThrottleFS.IntervalMs < 0 {
		return c, &ConfigError{Field: "ThrottleFS.IntervalMs", Reason: "must be >= 0"}
	}
	if c.ThrottleFS.MaxBufferedCommands < 0 {
		return c, &ConfigError{Field: "ThrottleFS.MaxBufferedCommands", Reason: "must be >= 0"}
	}
	if c.AutoCompact.SizeFactor != 0 && c.AutoCompact.SizeFactor <= 1 {
		return c, &ConfigError{Field: "AutoCompact.SizeFactor", Reason: "must be > 1"}
	}
	if c.AutoCompact.SizeFactorMinimumSize < 0 {
		return c, &ConfigError{Field: "AutoCompact.SizeFactorMinimumSize", Reason: "must be >= 0"}
	}
	if c.AutoCompact.IntervalMs != 0 && c.AutoCompact.IntervalMs < 10 {
		return c, &ConfigError{Field: "AutoCompact.IntervalMs", Reason: "must be >= 10"}
	}
	if c.AutoCompact.MinChanges < 0 {
		return c, &ConfigError{Field: "AutoCompact.MinChanges", Reason: "must be >= 0"}
	}
	if c.AutoCompact.IntervalMs != 0 && c.AutoCompact.MinChanges < 1 {
		return c, &ConfigError{Field: "AutoCompact.MinChanges", Reason: "must be >= 1 when AutoCompact.IntervalMs is set"}
	}
	if c.MaxRecordSize < 0 {
		return c, &ConfigError{Field: "MaxRecordSize", Reason: "must be >= 0"}
	}

	out := c
	if out.MaxRecordSize == 0 {
		out.MaxRecordSize = defaultMaxRecordSize
	}
	return out, nil
}

func (c Config) lockAlgorithm() lockfile.TokenAlgorithm {
	if c.LockTokenAlgorithm == LockTokenBlake2b {
		return lockfile.TokenBlake2b
	}
	return lockfile.TokenXXH3
}
