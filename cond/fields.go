// Package cond holds the condition model: ordered field maps, condition sets,
// condition lists (OR branches) and the soft-delete policy.
package cond

import "sort"

// Pair is a single field/value entry.
type Pair struct {
	Key   string
	Value any
}

// P builds a Pair.
func P(key string, value any) Pair {
	return Pair{Key: key, Value: value}
}

// Fields is an insertion-ordered field map. Keys are unique.
//
// Compilation walks Fields in order, so the order of entries is the order of
// the generated backend calls. All methods leave the receiver untouched and
// return fresh slices.
type Fields []Pair

// FromMap builds Fields from a Go map in sorted key order.
func FromMap(m map[string]any) Fields {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(Fields, 0, len(keys))
	for _, k := range keys {
		out = append(out, Pair{Key: k, Value: m[k]})
	}
	return out
}

// Len returns the number of entries.
func (f Fields) Len() int { return len(f) }

// Get returns the value stored under key.
func (f Fields) Get(key string) (any, bool) {
	for _, p := range f {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// Has reports whether key is present.
func (f Fields) Has(key string) bool {
	_, ok := f.Get(key)
	return ok
}

// Keys returns the keys in order.
func (f Fields) Keys() []string {
	keys := make([]string, len(f))
	for i, p := range f {
		keys[i] = p.Key
	}
	return keys
}

// Clone returns a copy that shares no backing array with f.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	copy(out, f)
	return out
}

// Set returns a copy with key bound to value. An existing key keeps its
// position; a new key is appended.
func (f Fields) Set(key string, value any) Fields {
	out := f.Clone()
	for i := range out {
		if out[i].Key == key {
			out[i].Value = value
			return out
		}
	}
	return append(out, Pair{Key: key, Value: value})
}

// Delete returns a copy without key.
func (f Fields) Delete(key string) Fields {
	out := make(Fields, 0, len(f))
	for _, p := range f {
		if p.Key != key {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Merge returns f overlaid with other: other wins on collisions, keys keep
// the position of their first appearance.
func (f Fields) Merge(other Fields) Fields {
	out := f.Clone()
next:
	for _, p := range other {
		for i := range out {
			if out[i].Key == p.Key {
				out[i].Value = p.Value
				continue next
			}
		}
		out = append(out, p)
	}
	return out
}

// Map converts to a Go map. Order is lost.
func (f Fields) Map() map[string]any {
	m := make(map[string]any, len(f))
	for _, p := range f {
		m[p.Key] = p.Value
	}
	return m
}
