package state

import (
	"encoding/json"
	"fmt"

	agenterrors "agent-lab/errors"
)

// Extractor turns a free-form state report into a candidate update.
// A report is accepted only if it parses as a single JSON object whose
// top-level keys are all members of the schema; anything else is discarded
// so a malformed report can never reach the store.
type Extractor struct {
	schema Schema
}

func NewExtractor(schema Schema) *Extractor {
	return &Extractor{schema: schema}
}

func (e *Extractor) Extract(text string) (map[string]any, error) {
	var candidate map[string]any
	if err := json.Unmarshal([]byte(text), &candidate); err != nil {
		return nil, fmt.Errorf("%w: not a JSON object: %v", agenterrors.ErrMalformedStateReport, err)
	}

	for key := range candidate {
		if !e.schema.Has(key) {
			return nil, fmt.Errorf("%w: disallowed key %q", agenterrors.ErrMalformedStateReport, key)
		}
	}
	return candidate, nil
}
