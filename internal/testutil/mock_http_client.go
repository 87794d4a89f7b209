package testutil

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/clubledger/clubledger/internal/httpclient"
)

// MockHTTPClient implements a mock HTTP client for testing. Responses are
// registered per method and path suffix, and every request sent through the
// client is recorded for later assertions.
type MockHTTPClient struct {
	mu       sync.RWMutex
	routes   map[string]MockResponse
	requests []*httpclient.Request
}

// MockResponse represents a mock HTTP response
type MockResponse struct {
	StatusCode int
	Body       []byte
	Headers    map[string]string
}

// NewMockHTTPClient creates a new mock HTTP client
func NewMockHTTPClient() *MockHTTPClient {
	return &MockHTTPClient{
		routes: make(map[string]MockResponse),
	}
}

// RegisterResponse registers a mock response for a method and path suffix
func (m *MockHTTPClient) RegisterResponse(method, path string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[routeKey(method, path)] = resp
}

// Requests returns the requests recorded so far, in send order
func (m *MockHTTPClient) Requests() []*httpclient.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*httpclient.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// LastRequest returns the most recent request, or nil
func (m *MockHTTPClient) LastRequest() *httpclient.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

// Send implements the httpclient.Client interface. Non-2xx responses are
// returned as typed errors exactly like the real client.
func (m *MockHTTPClient) Send(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched MockResponse
	var found bool
	for route, resp := range m.routes {
		method, path, ok := strings.Cut(route, " ")
		if !ok {
			continue
		}
		if req.Method == method && strings.HasSuffix(urlPath(req.URL), path) {
			matched = resp
			found = true
			break
		}
	}

	if !found {
		return nil, httpclient.NewError(http.StatusNotFound, []byte(`{"success":false,"error":{"message":"not found"}}`))
	}

	if matched.StatusCode >= 400 {
		return nil, httpclient.NewError(matched.StatusCode, matched.Body)
	}

	return &httpclient.Response{
		StatusCode: matched.StatusCode,
		Body:       matched.Body,
		Headers:    matched.Headers,
	}, nil
}

// Clear removes all registered responses and recorded requests
func (m *MockHTTPClient) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = make(map[string]MockResponse)
	m.requests = nil
}

func routeKey(method, path string) string {
	return method + " " + path
}

// urlPath strips the query string so suffix matching works on filtered GETs
func urlPath(url string) string {
	if idx := strings.IndexByte(url, '?'); idx >= 0 {
		return url[:idx]
	}
	return url
}
