// Package state implements the schema-validated shared state of one run:
// a lock-backed local store, an HTTP replica, and the extractor that turns
// free-form model output into candidate updates.
package state

import (
	"encoding/json"
	"sort"
)

// Schema is the fixed mapping of permitted keys to their default-typed
// values, agreed before the run starts. It is never mutated afterwards.
type Schema map[string]any

func (s Schema) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Keys returns the schema's keys in a stable order.
func (s Schema) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ExampleJSON renders the schema's defaults as an indented JSON object,
// used verbatim in the state report prompt.
func (s Schema) ExampleJSON() string {
	b, err := json.MarshalIndent(map[string]any(s), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
