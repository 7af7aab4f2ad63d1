package jsonlkv

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"

	"github.com/jpl-au/jsonlkv/internal/autocompact"
	"github.com/jpl-au/jsonlkv/internal/compact"
	"github.com/jpl-au/jsonlkv/internal/index"
	"github.com/jpl-au/jsonlkv/internal/lockfile"
	"github.com/jpl-au/jsonlkv/internal/record"
	"github.com/jpl-au/jsonlkv/internal/replay"
	"github.com/jpl-au/jsonlkv/internal/value"
	"github.com/jpl-au/jsonlkv/internal/writer"
)

// A single-writer embedded store only ever needs two states: a
// separate "reads only" mode has no purpose here.
const (
	stateClosed int32 = iota
	stateOpen
)

// DB is an open append-only JSON key/value store. The zero value is
// not usable; obtain one with Open.
type DB struct {
	path   string
	config Config

	lock  *lockfile.Lock
	w     *writer.Writer
	idx   *index.Index
	compr *compact.Compactor

	// mu guards Close against concurrent Close calls. Compress
	// coordinates with the writer directly (Pause/SwapFile) rather
	// than through mu, since Close's own on-close trigger calls
	// Compress while already holding mu.
	mu sync.Mutex

	state atomic.Int32
	count atomic.Int64

	autoPolicy autocompact.Policy
	autoMu     sync.Mutex
	autoEval   *autocompact.Evaluator

	needsCompaction atomic.Bool
}

// Open opens (creating if necessary) the database log at path,
// replays it into memory, acquires the cross-process lockfile, and
// starts the background write pipeline: validate config, create
// missing ancestor directories, acquire the lock, replay, then bring
// up the write pipeline.
func Open(path string, cfg Config) (*DB, error) {
	cfg, err := cfg.validate()
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &IOError{Path: dir, Cause: err}
		}
	}

	lock, err := lockfile.Acquire(path, cfg.LockfileDirectory, cfg.lockAlgorithm())
	if err != nil {
		return nil, err
	}

	db := &DB{
		path:       path,
		config:     cfg,
		lock:       lock,
		idx:        index.New(cfg.IndexPaths),
		compr:      &compact.Compactor{},
		autoPolicy: cfg.AutoCompact.toPolicy(),
	}

	if err := db.loadAndStart(); err != nil {
		lock.Release()
		return nil, err
	}

	db.state.Store(stateOpen)
	return db, nil
}

func (db *DB) loadAndStart() error {
	readFile, err := os.OpenFile(db.path, os.O_CREATE|os.O_RDONLY, 0o644)
	if err != nil {
		return &IOError{Path: db.path, Cause: err}
	}

	sink := replay.SinkFunc(func(key string, v value.Value, isDelete bool) {
		if isDelete {
			db.idx.Delete(key)
			return
		}
		db.idx.Set(key, v)
	})

	res, err := replay.Load(readFile, sink, replay.Options{
		IgnoreReadErrors: db.config.IgnoreReadErrors,
		MaxRecordSize:    db.config.MaxRecordSize,
	})
	closeErr := readFile.Close()
	if err != nil {
		return fromReplayError(err)
	}
	if closeErr != nil {
		return &IOError{Path: db.path, Cause: closeErr}
	}
	db.count.Store(int64(db.idx.Size()))
	db.needsCompaction.Store(res.NeedsCompaction)

	if db.needsCompaction.Load() && db.config.CompactOnOpenIfNeeded {
		if err := db.compactLocked(); err != nil {
			return err
		}
	}

	appendFile, err := os.OpenFile(db.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return &IOError{Path: db.path, Cause: err}
	}
	db.w = writer.Open(appendFile, writer.Options{
		IntervalMs:          db.config.ThrottleFS.IntervalMs,
		MaxBufferedCommands: db.config.ThrottleFS.MaxBufferedCommands,
		SyncWrites:          db.config.ThrottleFS.IntervalMs == 0,
	})

	info, err := os.Stat(db.path)
	var initialSize int64
	if err == nil {
		initialSize = info.Size()
	}
	db.autoMu.Lock()
	db.autoEval = autocompact.NewEvaluator(db.autoPolicy, initialSize, time.Now())
	db.autoMu.Unlock()

	// Compress (and every other exported method) requires the engine
	// to already be in stateOpen, so the on-open trigger below needs
	// the state set before it runs; Open's own store afterward is then
	// just a harmless no-op confirmation.
	db.state.Store(stateOpen)

	if db.autoPolicy.RunOnOpen() {
		if err := db.Compress(); err != nil {
			return err
		}
	}
	return nil
}

// IsOpen reports whether the database is currently open.
func (db *DB) IsOpen() bool {
	return db.state.Load() == stateOpen
}

func (db *DB) requireOpen() error {
	if db.state.Load() != stateOpen {
		return ErrNotOpen
	}
	return nil
}

// Close runs the on-close auto-compact trigger if configured, then
// stops the write pipeline (flushing and fsyncing pending writes) and
// releases the lockfile in that order.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if !db.state.CompareAndSwap(stateOpen, stateClosed) {
		return ErrNotOpen
	}

	if db.autoPolicy.RunOnClose() {
		db.state.Store(stateOpen)
		_ = db.Compress()
		db.state.Store(stateClosed)
	}

	var firstErr error
	if err := db.w.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := db.w.Sync(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := db.lock.Release(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Size returns the number of live keys.
func (db *DB) Size() int64 { return db.count.Load() }

// Has reports whether key currently has a value.
func (db *DB) Has(key string) (bool, error) {
	if err := db.requireOpen(); err != nil {
		return false, err
	}
	return db.idx.Has(key), nil
}

// Get returns the value stored under key.
func (db *DB) Get(key string) (value.Value, bool, error) {
	if err := db.requireOpen(); err != nil {
		return value.Value{}, false, err
	}
	v, ok := db.idx.Get(key)
	return v, ok, nil
}

// Set stores v under key, updating the in-memory index synchronously
// and queuing the durable append. See SetPrimitive/SetObject for
// typed convenience wrappers over the same path.
func (db *DB) Set(key string, v value.Value) error {
	if err := db.requireOpen(); err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("%w: key must be a non-empty string", ErrUnsupportedValue)
	}
	line, err := record.Encode(key, v)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
	}
	db.idx.Set(key, v)
	db.count.Store(int64(db.idx.Size()))
	db.noteChange()
	if err := db.w.Submit(line); err != nil {
		return &IOError{Path: db.path, Cause: err}
	}
	return db.maybeAutoCompact()
}

// SetPrimitive stores a bool, number, or string under key, the typed
// convenience wrapper over Set (including Set's empty-key rejection).
func (db *DB) SetPrimitive(key string, v interface{}) error {
	val, err := fromPrimitive(v)
	if err != nil {
		return err
	}
	return db.Set(key, val)
}

func fromPrimitive(v interface{}) (value.Value, error) {
	switch x := v.(type) {
	case nil:
		return value.Null, nil
	case bool:
		return value.Bool(x), nil
	case string:
		return value.String(x), nil
	case float64:
		return value.Number(x), nil
	case int:
		return value.Number(float64(x)), nil
	case int64:
		return value.Number(float64(x)), nil
	default:
		return value.Value{}, fmt.Errorf("%w: %T is not a primitive", ErrUnsupportedValue, v)
	}
}

// SetObject stores a structured value under key. preSerialized, if
// non-nil, is parsed as JSON and used as the stored value instead of
// re-encoding v from scratch — an escape hatch for callers that
// already hold a validated JSON document. indexTerms is ignored: the
// key's secondary-index terms always come from Config.IndexPaths.
func (db *DB) SetObject(key string, v value.Value, preSerialized []byte, indexTerms []string) error {
	if preSerialized != nil {
		var parsed value.Value
		if err := json.Unmarshal(preSerialized, &parsed); err != nil {
			return fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
		}
		v = parsed
	}
	_ = indexTerms // unused; idx.Set derives the terms from Config.IndexPaths
	return db.Set(key, v)
}

// Delete removes key, if present.
func (db *DB) Delete(key string) error {
	if err := db.requireOpen(); err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("%w: key must be a non-empty string", ErrUnsupportedValue)
	}
	line, err := record.EncodeDelete(key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
	}
	db.idx.Delete(key)
	db.count.Store(int64(db.idx.Size()))
	db.noteChange()
	if err := db.w.Submit(line); err != nil {
		return &IOError{Path: db.path, Cause: err}
	}
	return db.maybeAutoCompact()
}

// Clear removes every key. A Clear that lands during an in-flight
// Compress folds in as an ordinary mutation rather than cancelling
// the compaction.
func (db *DB) Clear() error {
	if err := db.requireOpen(); err != nil {
		return err
	}
	keys := db.idx.Keys()
	db.idx.Clear()
	db.count.Store(0)
	for _, k := range keys {
		line, err := record.EncodeDelete(k)
		if err != nil {
			continue
		}
		if err := db.w.Submit(line); err != nil {
			return &IOError{Path: db.path, Cause: err}
		}
	}
	db.noteChange()
	return db.maybeAutoCompact()
}

// GetMany returns entries with lo <= key <= hi, optionally filtered
// to keys whose secondary index contains term.
func (db *DB) GetMany(lo, hi, term string) ([]Entry, error) {
	if err := db.requireOpen(); err != nil {
		return nil, err
	}
	return db.idx.Range(lo, hi, term), nil
}

// Keys returns a sorted snapshot of every live key.
func (db *DB) Keys() ([]string, error) {
	if err := db.requireOpen(); err != nil {
		return nil, err
	}
	return db.idx.Keys(), nil
}

// ForEach calls fn for every key in ascending order until fn returns
// false.
func (db *DB) ForEach(fn func(key string, v value.Value) bool) error {
	if err := db.requireOpen(); err != nil {
		return err
	}
	db.idx.ForEach(fn)
	return nil
}

func (db *DB) noteChange() {
	db.autoMu.Lock()
	if db.autoEval != nil {
		db.autoEval.RecordChange()
	}
	db.autoMu.Unlock()
}

func (db *DB) maybeAutoCompact() error {
	db.autoMu.Lock()
	eval := db.autoEval
	db.autoMu.Unlock()
	if eval == nil {
		return nil
	}
	info, err := os.Stat(db.path)
	if err != nil {
		return nil
	}
	if eval.ShouldCompact(info.Size(), time.Now()) {
		return db.Compress()
	}
	return nil
}
