// Package normalization provides type-safe string-to-enum normalization used
// by the config package for user-facing enumerations (log levels, backoff
// modes). Input is lowercased and trimmed before lookup.
package normalization

import (
	"fmt"
	"sort"
	"strings"
)

// Normalizer maps raw user strings onto a typed enumeration with a default
// for unrecognized input.
type Normalizer[T comparable] struct {
	values       map[string]T
	defaultValue T
	validKeys    []string
}

// NewNormalizer builds a normalizer from valid string->value pairs. Keys are
// canonicalized so lookups are case and whitespace insensitive.
func NewNormalizer[T comparable](values map[string]T, defaultValue T) *Normalizer[T] {
	canonical := make(map[string]T, len(values))
	keys := make([]string, 0, len(values))
	for k, v := range values {
		key := canonicalize(k)
		canonical[key] = v
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return &Normalizer[T]{values: canonical, defaultValue: defaultValue, validKeys: keys}
}

// Normalize converts raw input to the enum value, falling back to the default
// for unrecognized strings.
func (n *Normalizer[T]) Normalize(raw string) T {
	if v, ok := n.values[canonicalize(raw)]; ok {
		return v
	}
	return n.defaultValue
}

// NormalizeStrict converts raw input to the enum value, returning an error
// naming the valid options when the string is not recognized. Empty input
// yields the default without error.
func (n *Normalizer[T]) NormalizeStrict(raw string) (T, error) {
	cleaned := canonicalize(raw)
	if cleaned == "" {
		return n.defaultValue, nil
	}
	if v, ok := n.values[cleaned]; ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid value %q, valid options: %v", raw, n.validKeys)
}

// ValidKeys returns the sorted canonical keys, for help text.
func (n *Normalizer[T]) ValidKeys() []string {
	out := make([]string, len(n.validKeys))
	copy(out, n.validKeys)
	return out
}

func canonicalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
