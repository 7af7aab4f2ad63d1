// Package record implements the on-disk line format: one JSON object
// per line, either {"k":<key>,"v":<value>} for a set or {"k":<key>}
// for a delete (the "v" field absent, not null — null is a valid
// stored value and must stay distinguishable from "no value"). Uses
// goccy/go-json for the actual (un)marshal, with a cheap byte-level
// valid() pre-check before committing to a full decode.
package record

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/jpl-au/jsonlkv/internal/value"
)

// ErrBlankLine is returned by Decode for an empty or whitespace-only
// line. The replay loader treats this as "skip", not "corrupt".
var ErrBlankLine = errors.New("record: blank line")

// wire is the on-disk shape. Value is a pointer so Encode always
// writes "v" for a set, including one storing JSON null; on decode a
// JSON null leaves the pointer nil just like an absent "v" does, so
// Decode checks separately whether "v" is present. Key is a pointer so
// Decode can tell "k"
// absent (or JSON null) from "k":"" — a missing or non-string key
// makes the line corrupt, not a record with an empty key.
type wire struct {
	Key   *string      `json:"k"`
	Value *value.Value `json:"v,omitempty"`
}

// Encode renders a set record: {"k":key,"v":v}.
func Encode(key string, v value.Value) ([]byte, error) {
	w := wire{Key: &key, Value: &v}
	line, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("record: encode %q: %w", key, err)
	}
	return append(line, '\n'), nil
}

// EncodeDelete renders a delete record: {"k":key}.
func EncodeDelete(key string) ([]byte, error) {
	line, err := json.Marshal(struct {
		Key string `json:"k"`
	}{Key: key})
	if err != nil {
		return nil, fmt.Errorf("record: encode delete %q: %w", key, err)
	}
	return append(line, '\n'), nil
}

// Decoded is one parsed log line.
type Decoded struct {
	Key      string
	Value    value.Value
	IsDelete bool
}

// Decode parses one log line. Blank lines (after trimming ASCII
// whitespace) report ErrBlankLine so callers can skip them without
// treating them as corruption — lines blanked by a prior compaction
// should replay cleanly, not fail it.
func Decode(line []byte) (Decoded, error) {
	if !valid(line) {
		return Decoded{}, ErrBlankLine
	}
	var w wire
	if err := json.Unmarshal(line, &w); err != nil {
		return Decoded{}, fmt.Errorf("record: decode: %w", err)
	}
	if w.Key == nil {
		return Decoded{}, fmt.Errorf("record: decode: %q missing or non-string", "k")
	}
	if w.Value == nil {
		var fields map[string]interface{}
		if err := json.Unmarshal(line, &fields); err == nil {
			if _, present := fields["v"]; present {
				return Decoded{Key: *w.Key, Value: value.Null}, nil
			}
		}
		return Decoded{Key: *w.Key, IsDelete: true}, nil
	}
	return Decoded{Key: *w.Key, Value: *w.Value}, nil
}

// valid does a cheap scan for the first non-whitespace byte rather
// than handing every line to json.Unmarshal.
func valid(line []byte) bool {
	for _, b := range line {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			return true
		}
	}
	return false
}
