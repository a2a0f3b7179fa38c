// Package domain holds the release-independent data model shared by every
// component of the clone pipeline: the tagged-variant payload tree, the
// snapshot/record shapes, and the closed set of entity kinds.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Value is a recursive, release-independent representation of a Monitor
// payload fragment. Normalizer processors rewrite Values rather than typed
// structs so the same code can walk a 4.0-shaped or a 7.0-shaped object.
type Value struct {
	kind  valueKind
	b     bool
	n     float64
	s     string
	list  []Value
	pairs map[string]Value
	// order preserves map key insertion order (tests assert on this). Maps
	// built by FromAny/UnmarshalJSON get an unspecified key order, not the
	// order of the decoded document.
	order []string
}

type valueKind int

const (
	KindNull valueKind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
)

func Null() Value                 { return Value{kind: KindNull} }
func Bool(b bool) Value           { return Value{kind: KindBool, b: b} }
func Number(n float64) Value      { return Value{kind: KindNumber, n: n} }
func String(s string) Value       { return Value{kind: KindString, s: s} }
func List(items ...Value) Value   { return Value{kind: KindList, list: items} }
func Map() Value                  { return Value{kind: KindMap, pairs: map[string]Value{}} }

func (v Value) Kind() valueKind { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }

func (v Value) Bool() (bool, bool)       { return v.b, v.kind == KindBool }
func (v Value) Number() (float64, bool)  { return v.n, v.kind == KindNumber }
func (v Value) String() (string, bool)   { return v.s, v.kind == KindString }
func (v Value) List() ([]Value, bool)    { return v.list, v.kind == KindList }

// IsEmptyOrZero reports whether v is the kind of "absence" a release
// interprets as default: null, "", 0, false, an empty list, or an empty map.
func (v Value) IsEmptyOrZero() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return !v.b
	case KindNumber:
		return v.n == 0
	case KindString:
		return v.s == ""
	case KindList:
		return len(v.list) == 0
	case KindMap:
		return len(v.pairs) == 0
	}
	return false
}

// Get returns the value at key and whether the map contains it. Get on a
// non-map value always reports false.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	val, ok := v.pairs[key]
	return val, ok
}

// Set returns a copy of v (which must be a map, or will become one if
// null) with key bound to val. Values are immutable-by-convention; callers
// thread the returned Value forward instead of mutating in place.
func (v Value) Set(key string, val Value) Value {
	if v.kind == KindNull {
		v = Map()
	}
	if v.kind != KindMap {
		panic(fmt.Sprintf("domain: Set on non-map Value (kind=%d)", v.kind))
	}
	out := v.clone()
	if _, exists := out.pairs[key]; !exists {
		out.order = append(out.order, key)
	}
	out.pairs[key] = val
	return out
}

// Delete returns a copy of v with key removed.
func (v Value) Delete(key string) Value {
	if v.kind != KindMap {
		return v
	}
	out := v.clone()
	if _, ok := out.pairs[key]; !ok {
		return v
	}
	delete(out.pairs, key)
	for i, k := range out.order {
		if k == key {
			out.order = append(out.order[:i], out.order[i+1:]...)
			break
		}
	}
	return out
}

// Keys returns map keys in insertion order.
func (v Value) Keys() []string {
	if v.kind != KindMap {
		return nil
	}
	out := make([]string, len(v.order))
	copy(out, v.order)
	return out
}

func (v Value) clone() Value {
	out := v
	out.pairs = make(map[string]Value, len(v.pairs))
	for k, val := range v.pairs {
		out.pairs[k] = val
	}
	out.order = append([]string(nil), v.order...)
	return out
}

// Walk visits every map key in the tree, depth-first, calling fn with the
// field name and its value. fn's return value replaces the field in place.
// This is the generic identifier-rewriting primitive design notes call for:
// callers combine it with identity.Map.MethodForIDField to rewrite ids.
func (v Value) Walk(fn func(key string, val Value) Value) Value {
	switch v.kind {
	case KindMap:
		out := Map()
		for _, k := range v.order {
			child := v.pairs[k].Walk(fn)
			out = out.Set(k, fn(k, child))
		}
		return out
	case KindList:
		items := make([]Value, len(v.list))
		for i, item := range v.list {
			items[i] = item.Walk(fn)
		}
		return Value{kind: KindList, list: items}
	default:
		return v
	}
}

// FromAny converts a decoded JSON value (the output of json.Unmarshal into
// interface{}) into a Value tree.
func FromAny(a any) Value {
	switch t := a.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	case json.Number:
		f, _ := t.Float64()
		return Number(f)
	case string:
		return String(t)
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = FromAny(item)
		}
		return List(items...)
	case map[string]any:
		out := Map()
		for k, val := range t {
			out = out.Set(k, FromAny(val))
		}
		return out
	default:
		panic(fmt.Sprintf("domain: unsupported value type %T", a))
	}
}

// ToAny converts a Value tree back into plain Go values suitable for
// json.Marshal.
func (v Value) ToAny() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.ToAny()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.pairs))
		for k, val := range v.pairs {
			out[k] = val.ToAny()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.ToAny())
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var raw any
	if err := decoder.Decode(&raw); err != nil {
		return err
	}
	*v = FromAny(raw)
	return nil
}
