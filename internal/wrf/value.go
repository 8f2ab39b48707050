package wrf

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind int

// Value kinds. KindInvalid is the kind of the zero Value.
const (
	KindInvalid Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindMap
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindMap:
		return "map"
	default:
		return "invalid"
	}
}

// Value is a configuration value: an integer, float, boolean, string, or a
// nested mapping. The zero Value is invalid.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	s    string
	m    *Tree
}

// Int returns an integer Value.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Float returns a floating-point Value.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// Bool returns a boolean Value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// String returns a string Value.
func String(v string) Value { return Value{kind: KindString, s: v} }

// MapValue wraps a nested mapping. A nil tree is treated as empty.
func MapValue(t *Tree) Value {
	if t == nil {
		t = NewTree()
	}
	return Value{kind: KindMap, m: t}
}

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v is not the zero Value.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// IsScalar reports whether v holds anything other than a mapping.
func (v Value) IsScalar() bool { return v.kind != KindInvalid && v.kind != KindMap }

// AsInt returns the integer held by v and whether v is an Int.
func (v Value) AsInt() (int64, bool) {
	return v.i, v.kind == KindInt
}

// AsFloat returns the float held by v and whether v is a Float.
func (v Value) AsFloat() (float64, bool) {
	return v.f, v.kind == KindFloat
}

// AsBool returns the boolean held by v and whether v is a Bool.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsString returns the string held by v and whether v is a String.
func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

// AsMap returns the nested mapping held by v and whether v is a Map.
func (v Value) AsMap() (*Tree, bool) {
	return v.m, v.kind == KindMap
}

// Interface returns the held value as int64, float64, bool, string or
// map[string]any. Invalid values return nil.
func (v Value) Interface() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindString:
		return v.s
	case KindMap:
		out := make(map[string]any, v.m.Len())
		v.m.Range(func(k string, child Value) bool {
			out[k] = child.Interface()
			return true
		})
		return out
	default:
		return nil
	}
}

// Equal reports whether v and o hold the same kind and value. Numbers of
// different kinds are never equal: Int(2) != Float(2).
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	case KindString:
		return v.s == o.s
	case KindMap:
		return v.m.Equal(o.m)
	default:
		return true
	}
}

// String formats v for display. Strings are not quoted.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindString:
		return v.s
	case KindMap:
		var sb strings.Builder
		sb.WriteByte('{')
		first := true
		v.m.Range(func(k string, child Value) bool {
			if !first {
				sb.WriteString(", ")
			}
			first = false
			sb.WriteString(k)
			sb.WriteString(": ")
			sb.WriteString(child.String())
			return true
		})
		sb.WriteByte('}')
		return sb.String()
	default:
		return "<invalid>"
	}
}

// ValueOf converts a Go value into a Value. Integers of any width become
// KindInt, float32 and float64 become KindFloat, and map[string]any or *Tree
// become KindMap. Unsigned values above math.MaxInt64 and other types are
// rejected with ErrConfig.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case Value:
		if !t.IsValid() {
			return Value{}, fmt.Errorf("invalid value: %w", ErrConfig)
		}
		return t, nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return uintValue(uint64(t))
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return uintValue(t)
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case *Tree:
		return MapValue(t), nil
	case map[string]any:
		tree, err := TreeFromMap(t)
		if err != nil {
			return Value{}, err
		}
		return MapValue(tree), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T: %w", x, ErrConfig)
	}
}

func uintValue(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Value{}, fmt.Errorf("unsigned value %d overflows int64: %w", u, ErrConfig)
	}
	return Int(int64(u)), nil
}

// Tree is an ordered string-keyed mapping of Values. Keys keep the order in
// which they were first set.
type Tree struct {
	keys []string
	vals map[string]Value
}

// NewTree returns an empty Tree.
func NewTree() *Tree {
	return &Tree{vals: make(map[string]Value)}
}

// TreeFromMap builds a Tree from a Go map. Go maps carry no order, so keys are
// inserted in sorted order.
func TreeFromMap(m map[string]any) (*Tree, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := NewTree()
	for _, k := range keys {
		v, err := ValueOf(m[k])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		t.Set(k, v)
	}
	return t, nil
}

// Set stores v under key. A new key is appended; an existing key keeps its
// position.
func (t *Tree) Set(key string, v Value) {
	if _, ok := t.vals[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.vals[key] = v
}

// Get returns the value stored under key. A nil Tree holds nothing.
func (t *Tree) Get(key string) (Value, bool) {
	if t == nil {
		return Value{}, false
	}
	v, ok := t.vals[key]
	return v, ok
}

// Keys returns a copy of the keys in insertion order.
func (t *Tree) Keys() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.keys...)
}

// Len returns the number of keys.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// Range calls fn for each entry in order until fn returns false.
func (t *Tree) Range(fn func(key string, v Value) bool) {
	if t == nil {
		return
	}
	for _, k := range t.keys {
		if !fn(k, t.vals[k]) {
			return
		}
	}
}

// Equal compares contents, ignoring key order.
func (t *Tree) Equal(o *Tree) bool {
	if t.Len() != o.Len() {
		return false
	}
	equal := true
	t.Range(func(k string, v Value) bool {
		ov, ok := o.Get(k)
		if !ok || !v.Equal(ov) {
			equal = false
		}
		return equal
	})
	return equal
}
