package jsonlkv

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Compress must shrink a log containing dead entries (an overwritten
// key, a deleted key) down to exactly the live key set, and the
// database must remain fully usable afterward — both for reads of
// pre-existing keys and for new writes, which must land in the freshly
// renamed file rather than a stale handle.
func TestCompressShrinksToLiveEntriesAndStaysWritable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.jsonl")
	db, err := Open(path, Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := db.Set("a", NumberValue(1)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := db.Set("a", NumberValue(2)); err != nil { // overwritten, one dead line
		t.Fatalf("Set: %v", err)
	}
	if err := db.Set("b", NumberValue(3)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := db.Delete("b"); err != nil { // deleted, two dead lines
		t.Fatalf("Delete: %v", err)
	}
	if err := db.Set("c", NumberValue(4)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := db.Compress(); err != nil {
		t.Fatalf("Compress: %v", err)
	}

	lines := countLines(t, path)
	if lines != 2 {
		t.Fatalf("compacted log has %d lines, want 2 (a and c)", lines)
	}

	v, ok, err := db.Get("a")
	if err != nil || !ok || v.Number != 2 {
		t.Fatalf("Get(a) after Compress = (%v, %v, %v), want (2, true, nil)", v, ok, err)
	}

	if err := db.Set("d", NumberValue(5)); err != nil {
		t.Fatalf("Set after Compress: %v", err)
	}
	if err := db.w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	v, ok, _ = db.Get("d")
	if !ok || v.Number != 5 {
		t.Fatalf("Get(d) after post-compress Set = (%v, %v), want (5, true)", v, ok)
	}
	if countLines(t, path) != 3 {
		t.Fatalf("expected the post-compress write to land in the live file")
	}
}

// A database opened with AutoCompact.SizeFactor set must compact on
// its own once the log has grown past the threshold, without the
// caller ever calling Compress explicitly.
func TestAutoCompactOnSizeFactor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.jsonl")
	db, err := Open(path, Config{AutoCompact: AutoCompact{SizeFactor: 1.01}})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	for i := 0; i < 50; i++ {
		if err := db.Set("same-key", NumberValue(float64(i))); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	lines := countLines(t, path)
	if lines >= 50 {
		t.Fatalf("expected auto-compaction to have kept the log far below %d lines, got %d", 50, lines)
	}
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			n++
		}
	}
	return n
}
