// Package jsonio implements JSON export/import of the full key space,
// using goccy/go-json for every (un)marshal.
package jsonio

import (
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/jpl-au/jsonlkv/internal/value"
)

// Export writes entries as a single JSON object, {"key": value, ...},
// to w. The given order is not kept: entries are collected into a Go
// map, which the encoder writes in sorted key order, and a repeated
// key keeps its last value. ExportOrdered keeps the given order.
func Export(w io.Writer, entries []Entry, pretty bool) error {
	obj := make(map[string]value.Value, len(entries))
	for _, e := range entries {
		obj[e.Key] = e.Value
	}
	return marshalTo(w, obj, pretty)
}

// Entry pairs a key with its value for export.
type Entry struct {
	Key   string
	Value value.Value
}

// ExportOrdered writes entries as a JSON object preserving the order
// entries are given in, by hand-assembling the object's braces the
// same way record.go builds its wire format piecemeal instead of
// fully round-tripping through a generic map.
func ExportOrdered(w io.Writer, entries []Entry, pretty bool) error {
	indent := ""
	nl := ""
	if pretty {
		indent = "  "
		nl = "\n"
	}
	if _, err := io.WriteString(w, "{"+nl); err != nil {
		return err
	}
	for i, e := range entries {
		key, err := json.Marshal(e.Key)
		if err != nil {
			return fmt.Errorf("jsonio: marshal key %q: %w", e.Key, err)
		}
		val, err := json.Marshal(e.Value)
		if err != nil {
			return fmt.Errorf("jsonio: marshal value for %q: %w", e.Key, err)
		}
		line := indent + string(key) + ":"
		if pretty {
			line += " "
		}
		line += string(val)
		if i < len(entries)-1 {
			line += ","
		}
		line += nl
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "}"+nl)
	return err
}

func marshalTo(w io.Writer, v interface{}, pretty bool) error {
	var body []byte
	var err error
	if pretty {
		body, err = json.MarshalIndent(v, "", "  ")
	} else {
		body, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("jsonio: marshal: %w", err)
	}
	_, err = w.Write(body)
	return err
}

// Import parses a JSON object from r into an ordered slice of
// entries, in the object's source field order, using goccy/go-json's
// streaming decoder token-by-token so field order survives (a plain
// map[string]Value unmarshal would not preserve it).
func Import(r io.Reader) ([]Entry, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("jsonio: read opening token: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("jsonio: expected a JSON object at top level")
	}

	var entries []Entry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("jsonio: read key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("jsonio: expected string key, got %T", keyTok)
		}

		var v value.Value
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("jsonio: decode value for %q: %w", key, err)
		}
		entries = append(entries, Entry{Key: key, Value: v})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("jsonio: read closing token: %w", err)
	}
	return entries, nil
}

// ImportString is a convenience wrapper over Import for an in-memory
// JSON document, used by the façade's ImportJSONString.
func ImportString(text string) ([]Entry, error) {
	return Import(strings.NewReader(text))
}
