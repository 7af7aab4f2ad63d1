package jsonlkv

import (
	"bufio"
	"os"

	"github.com/jpl-au/jsonlkv/internal/jsonio"
	"github.com/jpl-au/jsonlkv/internal/record"
	"github.com/jpl-au/jsonlkv/internal/value"
)

// Dump writes a snapshot of the current index to file as a fresh
// line-delimited log, independent of the live database file — useful
// for backups. Unlike Compress, this never touches the live log or
// the write pipeline.
func (db *DB) Dump(file string) error {
	if err := db.requireOpen(); err != nil {
		return err
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return &IOError{Path: file, Cause: err}
	}
	bw := bufio.NewWriter(f)

	var writeErr error
	db.idx.ForEach(func(key string, v value.Value) bool {
		line, err := record.Encode(key, v)
		if err != nil {
			writeErr = err
			return false
		}
		if _, err := bw.Write(line); err != nil {
			writeErr = err
			return false
		}
		return true
	})
	if writeErr == nil {
		writeErr = bw.Flush()
	}
	if writeErr == nil {
		writeErr = f.Sync()
	}
	closeErr := f.Close()
	if writeErr != nil {
		return &IOError{Path: file, Cause: writeErr}
	}
	if closeErr != nil {
		return &IOError{Path: file, Cause: closeErr}
	}
	return nil
}

// ExportJSON writes every key/value pair as a single JSON object to
// file, in key order, optionally pretty-printed.
func (db *DB) ExportJSON(file string, pretty bool) error {
	if err := db.requireOpen(); err != nil {
		return err
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return &IOError{Path: file, Cause: err}
	}
	defer f.Close()

	keys := db.idx.Keys()
	entries := make([]jsonio.Entry, 0, len(keys))
	db.idx.ForEach(func(key string, v value.Value) bool {
		entries = append(entries, jsonio.Entry{Key: key, Value: v})
		return true
	})

	if err := jsonio.ExportOrdered(f, entries, pretty); err != nil {
		return &IOError{Path: file, Cause: err}
	}
	return nil
}

// ImportJSONFile clears the database and repopulates it from the JSON
// object stored in file, then compresses.
func (db *DB) ImportJSONFile(file string) error {
	if err := db.requireOpen(); err != nil {
		return err
	}
	f, err := os.Open(file)
	if err != nil {
		return &IOError{Path: file, Cause: err}
	}
	defer f.Close()
	entries, err := jsonio.Import(f)
	if err != nil {
		return &IOError{Path: file, Cause: err}
	}
	return db.importEntries(entries)
}

// ImportJSONString clears the database and repopulates it from an
// in-memory JSON object, then compresses.
func (db *DB) ImportJSONString(text string) error {
	if err := db.requireOpen(); err != nil {
		return err
	}
	entries, err := jsonio.ImportString(text)
	if err != nil {
		return err
	}
	return db.importEntries(entries)
}

func (db *DB) importEntries(entries []jsonio.Entry) error {
	if err := db.Clear(); err != nil {
		return err
	}
	for _, e := range entries {
		if err := db.Set(e.Key, e.Value); err != nil {
			return err
		}
	}
	return db.Compress()
}
