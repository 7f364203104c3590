package parser

import (
	"sort"
	"strings"
)

// Header is the parsed key/value block of a file. Keys are canonical names
// from the metadata vocabulary, kept in file order. A nil value records a key
// that was present without a value.
type Header struct {
	keys   []string
	values map[string]*string
}

// NewHeader returns an empty header.
func NewHeader() *Header {
	return &Header{values: map[string]*string{}}
}

// Set stores v under k; a repeated key keeps its first position.
func (h *Header) Set(k string, v *string) {
	if _, ok := h.values[k]; !ok {
		h.keys = append(h.keys, k)
	}
	h.values[k] = v
}

// Lookup returns the raw value and whether the key was present at all.
func (h *Header) Lookup(k string) (*string, bool) {
	v, ok := h.values[k]
	return v, ok
}

// Has reports whether k was present, with or without a value.
func (h *Header) Has(k string) bool {
	_, ok := h.values[k]
	return ok
}

// Value returns the value of the first present key with a value, or "".
func (h *Header) Value(keys ...string) string {
	for _, k := range keys {
		if v := h.values[k]; v != nil {
			return *v
		}
	}
	return ""
}

// Keys returns keys in file order.
func (h *Header) Keys() []string {
	return append([]string(nil), h.keys...)
}

// Len is the number of keys.
func (h *Header) Len() int { return len(h.keys) }

// Map copies the header into a plain map.
func (h *Header) Map() map[string]*string {
	out := make(map[string]*string, len(h.values))
	for k, v := range h.values {
		out[k] = v
	}
	return out
}

// SortedKeys returns keys in lexical order, for stable output.
func (h *Header) SortedKeys() []string {
	keys := h.Keys()
	sort.Strings(keys)
	return keys
}

func isDateTimeKey(k string) bool {
	return strings.Contains(k, "date") || strings.Contains(k, "time")
}
