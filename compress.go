package jsonlkv

import (
	"os"
	"time"

	"github.com/jpl-au/jsonlkv/internal/compact"
	"github.com/jpl-au/jsonlkv/internal/value"
)

// compactLocked rewrites the log in place before the writer has
// started (used during Open's on-disk repair pass), so there is no
// append handle to pause/resume.
func (db *DB) compactLocked() error {
	_, err := db.compr.Run(db.path, db.indexSource(), compact.Options{Fsync: true, WriteMeta: true})
	if err != nil {
		return &IOError{Path: db.path, Cause: err}
	}
	db.needsCompaction.Store(false)
	return nil
}

// Compress rewrites the live log to contain only current entries,
// atomically. Concurrent Compress calls fold into
// one in-flight rewrite. The write pipeline is paused for the
// duration and repointed at the freshly renamed file once the
// rewrite completes, so no durable append is lost or misdirected.
func (db *DB) Compress() error {
	if err := db.requireOpen(); err != nil {
		return err
	}

	db.w.Pause()
	stats, err := db.compr.Run(db.path, db.indexSource(), compact.Options{Fsync: true, WriteMeta: true})
	if err != nil {
		db.w.Resume()
		return &IOError{Path: db.path, Cause: err}
	}

	newFile, err := os.OpenFile(db.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		db.w.Resume()
		return &IOError{Path: db.path, Cause: err}
	}
	if old := db.w.SwapFile(newFile); old != nil {
		old.Close()
	}

	db.needsCompaction.Store(false)
	db.autoMu.Lock()
	if db.autoEval != nil {
		db.autoEval.MarkCompacted(stats.BytesWritten, time.Now())
	}
	db.autoMu.Unlock()
	return nil
}

func (db *DB) indexSource() compact.Source {
	return func(yield func(key string, v value.Value) bool) {
		db.idx.ForEach(func(k string, v value.Value) bool { return yield(k, v) })
	}
}
