package state

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
)

// ServerConfig controls the replica's optional behaviors. Schema enforcement
// is off by default: the network boundary deliberately accepts any JSON
// object so hosts with divergent schema revisions can still mirror. Turning
// it on makes the replica as strict as the local store (422 on violation).
type ServerConfig struct {
	EnforceSchema bool
	Schema        Schema
}

// HistoryAppender persists accepted entries. Optional; the in-memory history
// stays authoritative for reads either way.
type HistoryAppender interface {
	AppendState(entry map[string]any) error
}

// Server is the network-accessible mirror of the state store. It keeps an
// append-only, time-ordered, in-memory history guarded by its own lock; the
// history is never rewritten.
type Server struct {
	mu      sync.Mutex
	history []map[string]any
	config  ServerConfig
	repo    HistoryAppender
	log     *slog.Logger
}

func NewServer(config ServerConfig, repo HistoryAppender, log *slog.Logger) *Server {
	return &Server{config: config, repo: repo, log: log}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /update_state", s.handleUpdateState)
	mux.HandleFunc("GET /get_state", s.handleGetState)
	mux.HandleFunc("GET /get_states", s.handleGetStates)
	return mux
}

func (s *Server) handleUpdateState(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil || len(body) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "No JSON received"})
		return
	}

	var entry map[string]any
	if err := json.Unmarshal(body, &entry); err != nil || entry == nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "No JSON received"})
		return
	}

	if s.config.EnforceSchema {
		if key, ok := disallowedKey(entry, s.config.Schema); !ok {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": "key not in schema: " + key})
			return
		}
	}

	s.mu.Lock()
	s.history = append(s.history, entry)
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.AppendState(entry); err != nil {
			s.log.Warn("Failed to persist state entry", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	current := map[string]any{}
	if len(s.history) > 0 {
		current = s.history[len(s.history)-1]
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, current)
}

func (s *Server) handleGetStates(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	history := make([]map[string]any, len(s.history))
	copy(history, s.history)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, history)
}

// disallowedKey validates the posted record against the schema. Mirror
// pushes arrive as the {agent_id, timestamp, state} wrapper, so when that
// shape is present the check applies to the inner state object; a raw record
// is checked as-is. Returns the first offending key, or ok=true.
func disallowedKey(entry map[string]any, schema Schema) (string, bool) {
	record := entry
	if inner, isWrapper := entry["state"].(map[string]any); isWrapper {
		if _, hasAgent := entry["agent_id"]; hasAgent {
			record = inner
		}
	}
	for key := range record {
		if !schema.Has(key) {
			return key, false
		}
	}
	return "", true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
