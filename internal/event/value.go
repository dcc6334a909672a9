package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind discriminates the Value union.
type Kind uint8

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindMap
)

// Value is a tagged union of the scalar kinds an event field may hold, plus a
// nested mapping. Serialization is total over the variants; no reflection.
type Value struct {
	kind Kind
	str  string
	i    int64
	f    float64
	b    bool
	m    Fields
}

// Fields maps field keys to values. Keys are unique by construction.
type Fields map[string]Value

// String wraps a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Int wraps an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float wraps a floating-point value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Bool wraps a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Map wraps a nested field mapping.
func Map(m Fields) Value { return Value{kind: KindMap, m: m} }

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// AsString returns the string payload if the value is a string.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsInt returns the integer payload if the value is an integer.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns the float payload if the value is a float.
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

// AsBool returns the boolean payload if the value is a boolean.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsMap returns the nested mapping if the value is a map.
func (v Value) AsMap() (Fields, bool) { return v.m, v.kind == KindMap }

// Number returns the value as a float64 for aggregation, covering both the
// integer and float variants.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Any returns the payload as a plain Go value.
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindMap:
		return v.m
	default:
		return nil
	}
}

// Equal reports deep equality of two values, including nested mappings.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	case KindMap:
		return v.m.Equal(o.m)
	default:
		return false
	}
}

// Equal reports deep equality of two field mappings.
func (f Fields) Equal(o Fields) bool {
	if len(f) != len(o) {
		return false
	}
	for k, v := range f {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Coerce converts an arbitrary caller-supplied value into a Value. The second
// return is false when the input had no native representation and was coerced
// to its string form; callers then attach a format_warning field. Coerce never
// fails: the write path must not block on formatting.
func Coerce(v any) (Value, bool) {
	switch x := v.(type) {
	case Value:
		return x, true
	case string:
		return String(x), true
	case bool:
		return Bool(x), true
	case int:
		return Int(int64(x)), true
	case int8:
		return Int(int64(x)), true
	case int16:
		return Int(int64(x)), true
	case int32:
		return Int(int64(x)), true
	case int64:
		return Int(x), true
	case uint:
		return Int(int64(x)), true //nolint:gosec // log metadata, wraparound acceptable
	case uint8:
		return Int(int64(x)), true
	case uint16:
		return Int(int64(x)), true
	case uint32:
		return Int(int64(x)), true
	case float32:
		return Float(float64(x)), true
	case float64:
		return Float(x), true
	case json.Number:
		return coerceNumber(x), true
	case map[string]any:
		m := make(Fields, len(x))
		clean := true
		for k, mv := range x {
			cv, ok := Coerce(mv)
			if !ok {
				clean = false
			}
			m[k] = cv
		}
		return Map(m), clean
	case map[string]string:
		m := make(Fields, len(x))
		for k, mv := range x {
			m[k] = String(mv)
		}
		return Map(m), true
	case nil:
		return String(""), false
	default:
		return String(fmt.Sprintf("%v", v)), false
	}
}

func coerceNumber(n json.Number) Value {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := n.Int64(); err == nil {
			return Int(i)
		}
	}
	f, err := n.Float64()
	if err != nil {
		return String(s)
	}
	return Float(f)
}

// MarshalJSON implements json.Marshaler. Integer and float variants stay
// distinct on the wire: floats always carry a decimal point or exponent.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindInt:
		return strconv.AppendInt(nil, v.i, 10), nil
	case KindFloat:
		return marshalFloat(v.f), nil
	case KindBool:
		return strconv.AppendBool(nil, v.b), nil
	case KindMap:
		return v.m.MarshalJSON()
	default:
		return []byte("null"), nil
	}
}

func marshalFloat(f float64) []byte {
	// JSON has no NaN or Inf; fall back to the quoted string form.
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.AppendQuote(nil, strconv.FormatFloat(f, 'g', -1, 64))
	}
	b := strconv.AppendFloat(nil, f, 'g', -1, 64)
	if !bytes.ContainsAny(b, ".eE") {
		b = append(b, '.', '0')
	}
	return b
}

// MarshalJSON implements json.Marshaler with sorted keys, so a record has one
// canonical encoded form.
func (f Fields) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("{}"), nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := f[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler, preserving the integer/float
// distinction via json.Number.
func (f *Fields) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	out := make(Fields, len(raw))
	for k, v := range raw {
		out[k] = fromDecoded(v)
	}
	*f = out
	return nil
}

func fromDecoded(v any) Value {
	switch x := v.(type) {
	case string:
		return String(x)
	case bool:
		return Bool(x)
	case json.Number:
		return coerceNumber(x)
	case map[string]any:
		m := make(Fields, len(x))
		for k, mv := range x {
			m[k] = fromDecoded(mv)
		}
		return Map(m)
	default:
		return String(fmt.Sprintf("%v", v))
	}
}
