package state

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, config ServerConfig) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(NewServer(config, nil, testLogger()).Handler())
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url+"/update_state", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestUpdateStateRejectsMissingJSON(t *testing.T) {
	server := newTestServer(t, ServerConfig{})

	for name, body := range map[string]string{
		"Empty body":   "",
		"Invalid JSON": "{not json",
		"JSON null":    "null",
	} {
		t.Run(name, func(t *testing.T) {
			resp := postJSON(t, server.URL, body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			payload := decodeBody[map[string]any](t, resp)
			assert.Equal(t, "No JSON received", payload["error"])
		})
	}
}

func TestUpdateStateAppendsInOrder(t *testing.T) {
	server := newTestServer(t, ServerConfig{})

	first := postJSON(t, server.URL, `{"agent_id": "writer", "state": {"revision": 1}}`)
	require.Equal(t, http.StatusOK, first.StatusCode)
	assert.Equal(t, "ok", decodeBody[map[string]any](t, first)["status"])

	second := postJSON(t, server.URL, `{"agent_id": "editor", "state": {"revision": 2}}`)
	require.Equal(t, http.StatusOK, second.StatusCode)

	resp, err := http.Get(server.URL + "/get_states")
	require.NoError(t, err)
	defer resp.Body.Close()
	history := decodeBody[[]map[string]any](t, resp)
	require.Len(t, history, 2)
	assert.Equal(t, "writer", history[0]["agent_id"])
	assert.Equal(t, "editor", history[1]["agent_id"])
}

func TestGetStateReturnsLastEntry(t *testing.T) {
	server := newTestServer(t, ServerConfig{})

	t.Run("Empty history yields an empty object", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/get_state")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Empty(t, decodeBody[map[string]any](t, resp))
	})

	t.Run("Last appended entry wins", func(t *testing.T) {
		postJSON(t, server.URL, `{"revision": 1}`)
		postJSON(t, server.URL, `{"revision": 2}`)

		resp, err := http.Get(server.URL + "/get_state")
		require.NoError(t, err)
		defer resp.Body.Close()
		current := decodeBody[map[string]any](t, resp)
		assert.Equal(t, float64(2), current["revision"])
	})
}

func TestUpdateStateSchemaEnforcement(t *testing.T) {
	server := newTestServer(t, ServerConfig{
		EnforceSchema: true,
		Schema:        articleSchema(),
	})

	t.Run("Keys inside the schema pass", func(t *testing.T) {
		resp := postJSON(t, server.URL, `{"title": "x", "revision": 3}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Key outside the schema is unprocessable", func(t *testing.T) {
		resp := postJSON(t, server.URL, `{"author": "nobody"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})
}

func TestUpdateStateEnforcementAcceptsMirrorPushes(t *testing.T) {
	server := newTestServer(t, ServerConfig{
		EnforceSchema: true,
		Schema:        articleSchema(),
	})
	client := NewReplicaClient(server.URL, 2*time.Second, testLogger())

	t.Run("Schema-conformant push from the run's client", func(t *testing.T) {
		err := client.PushUpdate(context.Background(), "writer", map[string]any{"title": "Draft"})
		require.NoError(t, err)

		history, err := client.History(context.Background())
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, "writer", history[0]["agent_id"])
	})

	t.Run("Wrapper with an out-of-schema state key is unprocessable", func(t *testing.T) {
		resp := postJSON(t, server.URL, `{"agent_id": "writer", "timestamp": 1.5, "state": {"author": "nobody"}}`)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})
}

func TestUpdateStateWithoutEnforcementAcceptsAnyObject(t *testing.T) {
	server := newTestServer(t, ServerConfig{})

	resp := postJSON(t, server.URL, `{"anything": "goes", "nested": {"too": true}}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
