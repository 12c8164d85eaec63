package state

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	agenterrors "agent-lab/errors"
)

// ReplicaClient speaks the replica's HTTP surface. Pushes are best-effort:
// callers treat failures as non-fatal mirroring gaps, not run errors.
type ReplicaClient struct {
	baseURL string
	client  *http.Client
	log     *slog.Logger
}

func NewReplicaClient(baseURL string, timeout time.Duration, log *slog.Logger) *ReplicaClient {
	return &ReplicaClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

// ReplicaEntry is the payload appended per update, matching the wire shape
// {agent_id, timestamp, state}.
type ReplicaEntry struct {
	AgentID   string         `json:"agent_id"`
	Timestamp float64        `json:"timestamp"`
	State     map[string]any `json:"state"`
}

func (c *ReplicaClient) PushUpdate(ctx context.Context, agentID string, update map[string]any) error {
	entry := ReplicaEntry{
		AgentID:   agentID,
		Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
		State:     update,
	}
	return c.post(ctx, entry)
}

func (c *ReplicaClient) post(ctx context.Context, body any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/update_state", bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("replica returned %s", resp.Status)
	}
	return nil
}

// LastState fetches the most recently appended entry, or an empty object if
// the history is empty.
func (c *ReplicaClient) LastState(ctx context.Context) (map[string]any, error) {
	var last map[string]any
	if err := c.get(ctx, "/get_state", &last); err != nil {
		return nil, err
	}
	return last, nil
}

// History fetches the full ordered history.
func (c *ReplicaClient) History(ctx context.Context) ([]map[string]any, error) {
	var history []map[string]any
	if err := c.get(ctx, "/get_states", &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (c *ReplicaClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("replica returned %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ReplicaStore implements contract.StateStore over the replica for agents
// outside the local lock's reach. It validates against the schema on the
// client side so agents keep uniform semantics, merges locally, and appends
// the merged record as one history entry per commit. Reads go to the replica;
// last write wins, no versioning.
type ReplicaStore struct {
	mu     sync.Mutex
	schema Schema
	merged map[string]any
	client *ReplicaClient
	log    *slog.Logger
}

func NewReplicaStore(schema Schema, client *ReplicaClient, log *slog.Logger) *ReplicaStore {
	return &ReplicaStore{
		schema: schema,
		merged: make(map[string]any),
		client: client,
		log:    log,
	}
}

func (s *ReplicaStore) Get(key string) (any, error) {
	last, err := s.client.LastState(context.Background())
	if err != nil {
		return nil, err
	}
	value, ok := last[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", agenterrors.ErrUnknownKey, key)
	}
	return value, nil
}

// Snapshot returns a copy of the locally merged record.
func (s *ReplicaStore) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[string]any, len(s.merged))
	for k, v := range s.merged {
		snapshot[k] = v
	}
	return snapshot
}

func (s *ReplicaStore) Set(key string, value any) error {
	return s.Update(map[string]any{key: value})
}

func (s *ReplicaStore) Update(updates map[string]any) error {
	s.mu.Lock()
	for key := range updates {
		if !s.schema.Has(key) {
			s.mu.Unlock()
			return fmt.Errorf("%w: %q", agenterrors.ErrSchemaViolation, key)
		}
	}
	for key, value := range updates {
		s.merged[key] = value
	}
	record := make(map[string]any, len(s.merged))
	for k, v := range s.merged {
		record[k] = v
	}
	s.mu.Unlock()

	// Network I/O happens outside the lock.
	return s.client.post(context.Background(), record)
}

// MirroredStore commits to the local store and mirrors each committed update
// to the replica as fire-and-forget best effort. A mirror failure is logged
// and never fails the turn.
type MirroredStore struct {
	local   *LocalStore
	client  *ReplicaClient
	agentID string
	timeout time.Duration
	log     *slog.Logger
}

func NewMirroredStore(local *LocalStore, client *ReplicaClient, agentID string, log *slog.Logger) *MirroredStore {
	return &MirroredStore{
		local:   local,
		client:  client,
		agentID: agentID,
		timeout: 5 * time.Second,
		log:     log,
	}
}

func (s *MirroredStore) Get(key string) (any, error) { return s.local.Get(key) }

// Snapshot returns a copy of the local committed record.
func (s *MirroredStore) Snapshot() map[string]any { return s.local.Snapshot() }

func (s *MirroredStore) Set(key string, value any) error {
	if err := s.local.Set(key, value); err != nil {
		return err
	}
	s.mirror(map[string]any{key: value})
	return nil
}

func (s *MirroredStore) Update(updates map[string]any) error {
	if err := s.local.Update(updates); err != nil {
		return err
	}
	s.mirror(updates)
	return nil
}

func (s *MirroredStore) mirror(updates map[string]any) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.client.PushUpdate(ctx, s.agentID, updates); err != nil {
			s.log.Warn("State mirror push failed", "agent", s.agentID, "error", err)
		}
	}()
}
