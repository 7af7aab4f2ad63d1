// Package replay streams a log file and applies each record to a
// sink, in strict or lenient mode, reporting 1-based line numbers on
// corruption.
package replay

import (
	"bufio"
	"fmt"
	"io"

	"github.com/jpl-au/jsonlkv/internal/record"
	"github.com/jpl-au/jsonlkv/internal/value"
)

// InvalidDataError reports a corrupt line at a specific 1-based line
// number.
type InvalidDataError struct {
	Line   int
	Reason error
}

func (e *InvalidDataError) Error() string {
	return fmt.Sprintf("replay: invalid data at line %d: %v", e.Line, e.Reason)
}

func (e *InvalidDataError) Unwrap() error { return e.Reason }

// Sink receives each decoded record during replay, in file order.
type Sink interface {
	Apply(key string, v value.Value, isDelete bool)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(key string, v value.Value, isDelete bool)

func (f SinkFunc) Apply(key string, v value.Value, isDelete bool) { f(key, v, isDelete) }

// Options configures a Load call.
type Options struct {
	// IgnoreReadErrors makes Load tolerate corrupt lines: the bad
	// line is skipped, replay continues, and NeedsCompaction is set
	// on the returned Result instead of aborting with an error.
	IgnoreReadErrors bool

	// MaxRecordSize bounds the scanner's buffer against unbounded
	// lines.
	MaxRecordSize int
}

// Result summarizes a completed replay.
type Result struct {
	Lines int
	// NeedsCompaction is set in lenient mode when at least one
	// corrupt line was skipped: replay continues past the corruption
	// but flags the log for a rewrite.
	NeedsCompaction bool
}

const defaultMaxRecordSize = 16 << 20

// Load streams r line by line, decoding each through the record
// package and calling sink.Apply for every set/delete. Blank lines are
// always skipped silently. On a genuinely malformed line: strict mode
// returns *InvalidDataError immediately; lenient mode skips the line,
// continues, and reports NeedsCompaction=true.
func Load(r io.Reader, sink Sink, opts Options) (Result, error) {
	maxSize := opts.MaxRecordSize
	if maxSize <= 0 {
		maxSize = defaultMaxRecordSize
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxSize)

	var res Result
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		res.Lines = lineNo

		d, err := record.Decode(scanner.Bytes())
		if err != nil {
			if err == record.ErrBlankLine {
				continue
			}
			if opts.IgnoreReadErrors {
				res.NeedsCompaction = true
				continue
			}
			return res, &InvalidDataError{Line: lineNo, Reason: err}
		}

		sink.Apply(d.Key, d.Value, d.IsDelete)
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("replay: read: %w", err)
	}
	return res, nil
}
