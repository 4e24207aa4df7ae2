// Package testutil provides testing utilities for the forum batch client.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// Envelope mirrors the forum API response shape for building mock replies.
type Envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data,omitempty"`
}

// MockForum is a configurable mock forum API server for testing.
type MockForum struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	// Tracking
	RequestCount    int
	RequestsByPath  map[string]int
	LastRequestBody []byte
}

// NewMockForum creates a new mock forum API server.
func NewMockForum() *MockForum {
	mock := &MockForum{
		handlers:       make(map[string]http.HandlerFunc),
		RequestsByPath: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		mock.mu.Lock()
		mock.RequestCount++
		mock.RequestsByPath[r.URL.Path]++
		mock.LastRequestBody = body
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		http.NotFound(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockForum) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockForum) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockForum) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.RequestsByPath = make(map[string]int)
	m.LastRequestBody = nil
}

// Requests returns how many requests hit the given path.
func (m *MockForum) Requests(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestsByPath[path]
}

// Handle registers a custom handler for a path.
func (m *MockForum) Handle(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// RespondEnvelope registers a handler that always replies with the given
// envelope, after an optional delay.
func (m *MockForum) RespondEnvelope(path string, env Envelope, delay time.Duration) {
	m.Handle(path, func(w http.ResponseWriter, r *http.Request) {
		if delay > 0 {
			time.Sleep(delay)
		}
		WriteEnvelope(w, env)
	})
}

// RespondStatus registers a handler that replies with a bare HTTP status.
func (m *MockForum) RespondStatus(path string, status int) {
	m.Handle(path, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
}

// WriteEnvelope serializes an envelope response.
func WriteEnvelope(w http.ResponseWriter, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(env)
}

// UserData builds a user/show data payload for the given ID and name.
func UserData(id int64, name string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"id":%d,"user_name":%q,"sex_text":"m"}`, id, name))
}

// PostListData builds a circle/list data payload with one post per author ID.
func PostListData(authorIDs ...int64) json.RawMessage {
	posts := make([]string, len(authorIDs))
	for i, id := range authorIDs {
		posts[i] = fmt.Sprintf(`{"id":%d,"user_id":%d,"user":{"id":%d}}`, int64(i+1), id, id)
	}
	out := "["
	for i, p := range posts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	out += "]"
	return json.RawMessage(out)
}
