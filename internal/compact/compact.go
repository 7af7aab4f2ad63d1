// Package compact rewrites a log file to contain only its live
// entries, atomically, and folds concurrent requests into one
// in-flight operation: write a full replacement to a temp file in the
// same directory, fsync it, then rename it over the live file so a
// crash mid-write never corrupts the original.
package compact

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jpl-au/jsonlkv/internal/record"
	"github.com/jpl-au/jsonlkv/internal/value"
)

// Source enumerates the live entries to write into the compacted log,
// in order. It must not block on anything the compaction holds.
type Source func(yield func(key string, v value.Value) bool)

// Options configures one compaction run.
type Options struct {
	// Fsync forces fsync of the rewritten file and its parent
	// directory before returning, so the rename is durable too.
	Fsync bool
	// WriteMeta writes a "<name>.meta" sidecar summarizing the run,
	// zstd-compressed.
	WriteMeta bool
}

// Stats summarizes one compaction run, also used as the body of the
// optional ".meta" sidecar.
type Stats struct {
	RecordsWritten int           `json:"records_written"`
	BytesWritten   int64         `json:"bytes_written"`
	Duration       time.Duration `json:"duration_ns"`
}

// Compactor serializes concurrent Run calls into a single in-flight
// operation: callers that arrive while a compaction is running share
// its result instead of racing to rewrite the same file twice.
type Compactor struct {
	mu      sync.Mutex
	current *call
}

type call struct {
	wg    sync.WaitGroup
	stats Stats
	err   error
}

// Run rewrites path to contain exactly the entries source yields,
// atomically. Concurrent Run calls on the same Compactor fold into
// the one already executing.
func (c *Compactor) Run(path string, source Source, opts Options) (Stats, error) {
	c.mu.Lock()
	if c.current != nil {
		inFlight := c.current
		c.mu.Unlock()
		inFlight.wg.Wait()
		return inFlight.stats, inFlight.err
	}
	cl := &call{}
	cl.wg.Add(1)
	c.current = cl
	c.mu.Unlock()

	stats, err := runOnce(path, source, opts)
	cl.stats, cl.err = stats, err

	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
	cl.wg.Done()

	return stats, err
}

func runOnce(path string, source Source, opts Options) (Stats, error) {
	start := time.Now()
	dir := filepath.Dir(path)
	dumpPath := path + ".dump"

	f, err := os.OpenFile(dumpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return Stats{}, fmt.Errorf("compact: create %s: %w", dumpPath, err)
	}

	bw := bufio.NewWriter(f)
	var stats Stats
	var yieldErr error
	source(func(key string, v value.Value) bool {
		line, err := record.Encode(key, v)
		if err != nil {
			yieldErr = err
			return false
		}
		n, err := bw.Write(line)
		if err != nil {
			yieldErr = err
			return false
		}
		stats.RecordsWritten++
		stats.BytesWritten += int64(n)
		return true
	})
	if yieldErr != nil {
		f.Close()
		os.Remove(dumpPath)
		return Stats{}, fmt.Errorf("compact: write entries: %w", yieldErr)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		os.Remove(dumpPath)
		return Stats{}, fmt.Errorf("compact: flush: %w", err)
	}
	if opts.Fsync {
		if err := f.Sync(); err != nil {
			f.Close()
			return Stats{}, fmt.Errorf("compact: sync dump: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return Stats{}, fmt.Errorf("compact: close dump: %w", err)
	}

	if err := os.Rename(dumpPath, path); err != nil {
		return Stats{}, fmt.Errorf("compact: rename %s -> %s: %w", dumpPath, path, err)
	}

	if opts.Fsync {
		if err := syncDir(dir); err != nil {
			return Stats{}, fmt.Errorf("compact: sync dir %s: %w", dir, err)
		}
	}

	stats.Duration = time.Since(start)

	if opts.WriteMeta {
		if err := writeMeta(path+".meta", stats); err != nil {
			return stats, fmt.Errorf("compact: write meta: %w", err)
		}
	}

	return stats, nil
}

// syncDir fsyncs the directory entry itself after a rename: a rename
// is not guaranteed durable until the containing directory is synced
// too.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
