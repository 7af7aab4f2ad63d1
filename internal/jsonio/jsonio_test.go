package jsonio

import (
	"strings"
	"testing"

	"github.com/jpl-au/jsonlkv/internal/value"
)

// ExportOrdered must preserve the order entries are given in, since
// export order is user-visible (ExportJSON walks the index in key
// order) and a plain map round-trip would not preserve it.
func TestExportOrderedPreservesOrder(t *testing.T) {
	entries := []Entry{
		{Key: "b", Value: value.Number(2)},
		{Key: "a", Value: value.Number(1)},
	}
	var sb strings.Builder
	if err := ExportOrdered(&sb, entries, false); err != nil {
		t.Fatalf("ExportOrdered: %v", err)
	}
	got := sb.String()
	wantBBeforeA := strings.Index(got, `"b"`) < strings.Index(got, `"a"`)
	if !wantBBeforeA {
		t.Fatalf("export %q did not preserve given order", got)
	}
}

// Import must parse every key/value pair back out, in source order,
// for a subsequent round-trip test.
func TestImportRoundTrip(t *testing.T) {
	entries := []Entry{
		{Key: "first", Value: value.String("x")},
		{Key: "second", Value: value.Number(3.5)},
		{Key: "third", Value: value.Bool(true)},
	}
	var sb strings.Builder
	if err := ExportOrdered(&sb, entries, false); err != nil {
		t.Fatalf("ExportOrdered: %v", err)
	}

	got, err := Import(strings.NewReader(sb.String()))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(got), len(entries))
	}
	for i, e := range entries {
		if got[i].Key != e.Key {
			t.Fatalf("entry %d key = %q, want %q", i, got[i].Key, e.Key)
		}
		if !value.Equal(got[i].Value, e.Value) {
			t.Fatalf("entry %d value = %v, want %v", i, got[i].Value, e.Value)
		}
	}
}

// Importing a non-object top-level JSON value must fail clearly
// rather than silently returning zero entries.
func TestImportRejectsNonObject(t *testing.T) {
	_, err := Import(strings.NewReader(`[1,2,3]`))
	if err == nil {
		t.Fatalf("expected an error importing a top-level array")
	}
}
