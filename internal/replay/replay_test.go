package replay

import (
	"errors"
	"strings"
	"testing"

	"github.com/jpl-au/jsonlkv/internal/value"
)

type recording struct {
	sets    map[string]value.Value
	deletes []string
}

func (r *recording) Apply(key string, v value.Value, isDelete bool) {
	if isDelete {
		r.deletes = append(r.deletes, key)
		delete(r.sets, key)
		return
	}
	if r.sets == nil {
		r.sets = map[string]value.Value{}
	}
	r.sets[key] = v
}

// Replay must apply set and delete records in file order, and skip
// blank lines without treating them as corruption — a trailing
// newline or a blanked-out line must not derail an otherwise valid log.
func TestLoadAppliesInOrderAndSkipsBlankLines(t *testing.T) {
	log := `{"k":"a","v":1}
{"k":"b","v":2}

{"k":"a"}
{"k":"c","v":3}
`
	r := &recording{}
	res, err := Load(strings.NewReader(log), r, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.NeedsCompaction {
		t.Fatalf("clean log must not need compaction")
	}
	if _, ok := r.sets["a"]; ok {
		t.Fatalf("key a should have been deleted")
	}
	if r.sets["b"].Number != 2 {
		t.Fatalf("key b = %v, want 2", r.sets["b"])
	}
	if r.sets["c"].Number != 3 {
		t.Fatalf("key c = %v, want 3", r.sets["c"])
	}
}

// Strict mode must report the 1-based line number of the first
// corrupt line and stop.
func TestLoadStrictReportsLineNumber(t *testing.T) {
	log := "{\"k\":\"a\",\"v\":1}\n{not json}\n{\"k\":\"b\",\"v\":2}\n"
	r := &recording{}
	_, err := Load(strings.NewReader(log), r, Options{})
	var invalid *InvalidDataError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected *InvalidDataError, got %v", err)
	}
	if invalid.Line != 2 {
		t.Fatalf("Line = %d, want 2", invalid.Line)
	}
}

// Lenient mode must skip the corrupt line, keep applying the records
// around it, and flag NeedsCompaction so the auto-compact policy can
// rewrite the log clean.
func TestLoadLenientSkipsAndFlagsCompaction(t *testing.T) {
	log := "{\"k\":\"a\",\"v\":1}\n{not json}\n{\"k\":\"b\",\"v\":2}\n"
	r := &recording{}
	res, err := Load(strings.NewReader(log), r, Options{IgnoreReadErrors: true})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !res.NeedsCompaction {
		t.Fatalf("expected NeedsCompaction=true after skipping a corrupt line")
	}
	if r.sets["a"].Number != 1 || r.sets["b"].Number != 2 {
		t.Fatalf("surrounding valid records must still apply: %v", r.sets)
	}
}
