package jsonlkv

import (
	"github.com/jpl-au/jsonlkv/internal/index"
	"github.com/jpl-au/jsonlkv/internal/value"
)

// Entry is a (key, value) pair returned by GetMany.
type Entry = index.Entry

// Value is the tagged-union JSON value type used throughout the
// public API. It is a type alias for the internal representation so
// that internal packages and the façade share one type without
// requiring callers to import an internal path.
type Value = value.Value

// Kind discriminates the JSON shape a Value holds.
type Kind = value.Kind

const (
	KindNull   = value.KindNull
	KindBool   = value.KindBool
	KindNumber = value.KindNumber
	KindString = value.KindString
	KindArray  = value.KindArray
	KindObject = value.KindObject
)

// NullValue is the canonical null Value.
var NullValue = value.Null

func BoolValue(b bool) Value      { return value.Bool(b) }
func NumberValue(n float64) Value { return value.Number(n) }
func StringValue(s string) Value  { return value.String(s) }

func ArrayValue(items ...Value) Value { return value.Array(items...) }

func ObjectValue(fields map[string]Value) Value { return value.Object(fields) }
