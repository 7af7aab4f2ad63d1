// Package autocompact decides when a compaction should run; the
// engine evaluates it after every Set, Delete and Clear.
//
// A config-like struct whose zero value means "off" rather than
// panicking or requiring every field to be set.
package autocompact

import "time"

// Policy configures when auto-compaction should trigger.
type Policy struct {
	// SizeFactor triggers a compaction once the live log has grown
	// to SizeFactor times the size it was immediately after the last
	// compaction (or after Open, if none has run yet). 0 disables
	// this trigger.
	SizeFactor float64

	// SizeFactorMinimumSize suppresses the SizeFactor trigger while
	// the live log is still smaller than this many bytes, so a
	// freshly opened or just-compacted tiny file doesn't immediately
	// re-trigger on the next few writes.
	SizeFactorMinimumSize int64

	// Interval triggers a compaction once this much time has passed
	// since the last one, provided at least MinChanges mutations
	// have been applied meanwhile. 0 disables this trigger.
	Interval time.Duration

	// MinChanges gates the Interval trigger so an idle database
	// doesn't get rewritten on a timer for no reason.
	MinChanges int

	// OnOpen runs a compaction once immediately after Open.
	OnOpen bool

	// OnClose runs a compaction once immediately before Close
	// releases the lock.
	OnClose bool
}

// Evaluator tracks the state a Policy needs to decide whether "now"
// is a good time to compact.
type Evaluator struct {
	policy Policy

	baselineSize int64
	lastRun      time.Time
	changes      int
}

// NewEvaluator creates an Evaluator seeded with the log's current
// size, so the first SizeFactor check has a baseline to compare
// against.
func NewEvaluator(p Policy, initialSize int64, now time.Time) *Evaluator {
	return &Evaluator{policy: p, baselineSize: initialSize, lastRun: now}
}

// RecordChange notes that one mutation (set/delete/clear) was applied
// since the last compaction, feeding the MinChanges gate.
func (e *Evaluator) RecordChange() {
	e.changes++
}

// ShouldCompact reports whether a compaction should run now, given
// the log's current on-disk size.
func (e *Evaluator) ShouldCompact(currentSize int64, now time.Time) bool {
	if e.policy.SizeFactor > 1 && currentSize >= e.policy.SizeFactorMinimumSize {
		// A zero baseline (empty log at Open, or a compaction that
		// produced an empty file) would otherwise make the factor
		// check vacuously true or permanently false; floor it at 1
		// byte so growth is still measured sensibly either way.
		base := e.baselineSize
		if base <= 0 {
			base = 1
		}
		if float64(currentSize) >= float64(base)*e.policy.SizeFactor {
			return true
		}
	}
	if e.policy.Interval > 0 && now.Sub(e.lastRun) >= e.policy.Interval {
		if e.changes >= e.policy.MinChanges {
			return true
		}
	}
	return false
}

// MarkCompacted resets the evaluator's baseline after a compaction
// (triggered by this policy or any other reason) completes.
func (e *Evaluator) MarkCompacted(newSize int64, now time.Time) {
	e.baselineSize = newSize
	e.lastRun = now
	e.changes = 0
}

// RunOnOpen reports whether the policy requests a compaction immediately
// after Open.
func (p Policy) RunOnOpen() bool { return p.OnOpen }

// RunOnClose reports whether the policy requests a compaction
// immediately before Close.
func (p Policy) RunOnClose() bool { return p.OnClose }
