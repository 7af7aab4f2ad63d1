// Package value implements the tagged-union JSON value stored against
// each key in the log: null, bool, number, string, array or object. A
// Value round-trips through goccy/go-json directly — no custom byte
// layout, just a discriminated union that knows how to decode
// whichever JSON shape it finds.
package value

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Kind discriminates the JSON shape held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is an immutable-by-convention JSON value. Callers should treat
// Array and Object as read-only after construction; Set/Get copy the
// top-level Value but not deeply, matching how a JS host would pass a
// parsed JSON tree by reference.
type Value struct {
	Kind   Kind
	Bool   bool
	Number float64
	Str    string
	Array  []Value
	Object map[string]Value
}

// Null is the canonical null value.
var Null = Value{Kind: KindNull}

func Bool(b bool) Value      { return Value{Kind: KindBool, Bool: b} }
func Number(n float64) Value { return Value{Kind: KindNumber, Number: n} }
func String(s string) Value  { return Value{Kind: KindString, Str: s} }

func Array(items ...Value) Value {
	return Value{Kind: KindArray, Array: items}
}

func Object(fields map[string]Value) Value {
	return Value{Kind: KindObject, Object: fields}
}

// MarshalJSON implements json.Marshaler for goccy/go-json and the
// standard library alike.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.Bool)
	case KindNumber:
		return json.Marshal(v.Number)
	case KindString:
		return json.Marshal(v.Str)
	case KindArray:
		return json.Marshal(v.Array)
	case KindObject:
		return json.Marshal(v.Object)
	default:
		return nil, fmt.Errorf("value: unsupported kind %v", v.Kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler, inferring Kind from the
// raw JSON token the way record.go's valid() sniffs the first byte of
// a line before committing to a full decode.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out, err := fromInterface(raw)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

func fromInterface(raw interface{}) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null, nil
	case bool:
		return Bool(x), nil
	case float64:
		return Number(x), nil
	case string:
		return String(x), nil
	case []interface{}:
		items := make([]Value, len(x))
		for i, item := range x {
			v, err := fromInterface(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return Value{Kind: KindArray, Array: items}, nil
	case map[string]interface{}:
		fields := make(map[string]Value, len(x))
		for k, item := range x {
			v, err := fromInterface(item)
			if err != nil {
				return Value{}, err
			}
			fields[k] = v
		}
		return Value{Kind: KindObject, Object: fields}, nil
	default:
		return Value{}, fmt.Errorf("value: unsupported JSON token %T", raw)
	}
}

// Equal reports whether two Values represent the same JSON tree.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull:
		return true
	case KindBool:
		return a.Bool == b.Bool
	case KindNumber:
		return a.Number == b.Number
	case KindString:
		return a.Str == b.Str
	case KindArray:
		if len(a.Array) != len(b.Array) {
			return false
		}
		for i := range a.Array {
			if !Equal(a.Array[i], b.Array[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.Object) != len(b.Object) {
			return false
		}
		for k, av := range a.Object {
			bv, ok := b.Object[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders a compact, debug-friendly representation. Not used
// for persistence — only for log messages and test failure output.
func (v Value) String() string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("<invalid value: %v>", err)
	}
	return string(b)
}
