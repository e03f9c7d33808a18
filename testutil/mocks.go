package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// APIPrefix is the path the mock serves the upstream API under.
const APIPrefix = "/api/v2/"

// MockTBAServer creates a test server that mocks The Blue Alliance API.
// Handlers are keyed by path stub (event/2016nytr/matches) and every request
// is counted so tests can assert on network traffic.
type MockTBAServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc

	mu       sync.Mutex
	hits     map[string]int
	requests []*http.Request
}

// NewMockTBAServer creates a new mock upstream API server.
func NewMockTBAServer(t *testing.T) *MockTBAServer {
	t.Helper()
	m := &MockTBAServer{
		Handlers: make(map[string]http.HandlerFunc),
		hits:     make(map[string]int),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stub := strings.TrimPrefix(r.URL.Path, APIPrefix)
		m.mu.Lock()
		m.hits[stub]++
		m.requests = append(m.requests, r.Clone(r.Context()))
		handler, ok := m.Handlers[stub]
		m.mu.Unlock()
		if ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// BaseURL is the API root to configure a client with.
func (m *MockTBAServer) BaseURL() string { return m.URL + APIPrefix }

// Handle registers a handler for a path stub.
func (m *MockTBAServer) Handle(stub string, h http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Handlers[stub] = h
}

// MockJSON serves body with status 200 for stub. An empty cacheControl omits
// the Cache-Control header.
func (m *MockTBAServer) MockJSON(stub, body, cacheControl, lastModified string) {
	m.Handle(stub, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if cacheControl != "" {
			w.Header().Set("Cache-Control", cacheControl)
		}
		if lastModified != "" {
			w.Header().Set("Last-Modified", lastModified)
		}
		_, _ = w.Write([]byte(body)) //nolint:errcheck // test mock response
	})
}

// MockValue encodes v as the response for stub, cacheable for a minute.
func (m *MockTBAServer) MockValue(stub string, v any) {
	m.Handle(stub, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=60")
		_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // test mock response
	})
}

// MockStatus answers stub with a bare status code.
func (m *MockTBAServer) MockStatus(stub string, status int) {
	m.Handle(stub, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
}

// Hits returns how many requests reached stub.
func (m *MockTBAServer) Hits(stub string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits[stub]
}

// TotalHits returns the number of requests served.
func (m *MockTBAServer) TotalHits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// LastRequest returns the most recent request, or nil.
func (m *MockTBAServer) LastRequest() *http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}
