package state

import (
	"fmt"
	"sync"

	agenterrors "agent-lab/errors"
)

// LocalStore is the lock-backed StateStore used by agents sharing a process.
// Critical sections are map mutation only; no I/O happens under the lock.
type LocalStore struct {
	mu     sync.Mutex
	schema Schema
	record map[string]any
}

func NewLocalStore(schema Schema) *LocalStore {
	return &LocalStore{
		schema: schema,
		record: make(map[string]any),
	}
}

func (s *LocalStore) Get(key string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.record[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", agenterrors.ErrUnknownKey, key)
	}
	return value, nil
}

func (s *LocalStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.schema.Has(key) {
		return fmt.Errorf("%w: %q", agenterrors.ErrSchemaViolation, key)
	}
	s.record[key] = value
	return nil
}

// Update commits every key or none. Validation runs over the whole update
// before the first write, so a rejected update leaves the prior record
// exactly as it was — never half-applied.
func (s *LocalStore) Update(updates map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range updates {
		if !s.schema.Has(key) {
			return fmt.Errorf("%w: %q", agenterrors.ErrSchemaViolation, key)
		}
	}
	for key, value := range updates {
		s.record[key] = value
	}
	return nil
}

// Snapshot returns a copy of the committed record.
func (s *LocalStore) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[string]any, len(s.record))
	for k, v := range s.record {
		snapshot[k] = v
	}
	return snapshot
}
