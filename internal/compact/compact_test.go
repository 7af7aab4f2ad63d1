package compact

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jpl-au/jsonlkv/internal/value"
)

func sourceFromMap(entries map[string]value.Value, order []string) Source {
	return func(yield func(key string, v value.Value) bool) {
		for _, k := range order {
			if !yield(k, entries[k]) {
				return
			}
		}
	}
}

// Run must atomically replace the live file's contents with exactly
// the entries the Source yields, leaving no ".dump" temp file behind
// on success.
func TestRunReplacesFileAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.jsonl")
	if err := os.WriteFile(path, []byte("garbage that should be replaced\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	entries := map[string]value.Value{"a": value.Number(1), "b": value.String("x")}
	order := []string{"a", "b"}

	c := &Compactor{}
	stats, err := c.Run(path, sourceFromMap(entries, order), Options{Fsync: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.RecordsWritten != 2 {
		t.Fatalf("RecordsWritten = %d, want 2", stats.RecordsWritten)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), data)
	}
	if strings.Contains(string(data), "garbage") {
		t.Fatalf("old content survived compaction: %q", data)
	}

	if _, err := os.Stat(path + ".dump"); !os.IsNotExist(err) {
		t.Fatalf("temp .dump file should not remain after a successful Run")
	}
}

// Concurrent Run calls on the same Compactor must fold into one
// in-flight rewrite rather than racing to write the file twice.
func TestConcurrentRunsFoldIntoOne(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.jsonl")
	entries := map[string]value.Value{"a": value.Number(1)}
	order := []string{"a"}

	c := &Compactor{}
	var wg sync.WaitGroup
	results := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.Run(path, sourceFromMap(entries, order), Options{})
			results[i] = err
		}(i)
	}
	wg.Wait()

	for i, err := range results {
		if err != nil {
			t.Fatalf("Run[%d]: %v", i, err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open result: %v", err)
	}
	defer f.Close()
	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			n++
		}
	}
	if n != 1 {
		t.Fatalf("expected exactly one record line after folded compactions, got %d", n)
	}
}

// WriteMeta must produce a sidecar that ReadMeta can decode back to
// the same stats.
func TestMetaRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.jsonl")
	c := &Compactor{}
	stats, err := c.Run(path, sourceFromMap(map[string]value.Value{"a": value.Number(1)}, []string{"a"}), Options{WriteMeta: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, err := ReadMeta(path + ".meta")
	if err != nil {
		t.Fatalf("ReadMeta: %v", err)
	}
	if got.RecordsWritten != stats.RecordsWritten {
		t.Fatalf("RecordsWritten = %d, want %d", got.RecordsWritten, stats.RecordsWritten)
	}
}
