// Package testutil provides testing helpers for API clients: a stub
// transport with canned responses that records every outgoing request.
// This package is import-cycle safe and can be used from any package.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
)

// StubTransport implements the transport interface with canned responses,
// recording each request (and a snapshot of its body) as it goes out.
// Safe for concurrent use.
type StubTransport struct {
	mu        sync.Mutex
	requests  []*http.Request
	bodies    [][]byte
	responder func(*http.Request) (*http.Response, error)
}

// NewStub creates a stub transport that answers 200 with an empty body until
// configured otherwise.
func NewStub() *StubTransport {
	s := &StubTransport{}
	return s.Respond(http.StatusOK, "")
}

// Respond configures a fixed status and body for every subsequent request.
func (s *StubTransport) Respond(status int, body string) *StubTransport {
	return s.RespondWith(func(*http.Request) (*http.Response, error) {
		return Response(status, body), nil
	})
}

// RespondJSON configures a fixed status and a JSON-encoded body.
func (s *StubTransport) RespondJSON(status int, v any) *StubTransport {
	data, err := json.Marshal(v)
	if err != nil {
		panic("testutil: cannot marshal stub response: " + err.Error())
	}
	return s.RespondWith(func(*http.Request) (*http.Response, error) {
		resp := Response(status, string(data))
		resp.Header.Set("Content-Type", "application/json")
		return resp, nil
	})
}

// RespondError configures the stub to fail every request with err, simulating
// a transport-level failure.
func (s *StubTransport) RespondError(err error) *StubTransport {
	return s.RespondWith(func(*http.Request) (*http.Response, error) {
		return nil, err
	})
}

// RespondWith configures an arbitrary responder function.
func (s *StubTransport) RespondWith(fn func(*http.Request) (*http.Response, error)) *StubTransport {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responder = fn
	return s
}

// Do records the request and answers with the configured response.
func (s *StubTransport) Do(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		req.Body.Close()
		req.Body = io.NopCloser(bytes.NewReader(body))
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.bodies = append(s.bodies, body)
	fn := s.responder
	s.mu.Unlock()

	resp, err := fn(req)
	if resp != nil && resp.Request == nil {
		resp.Request = req
	}
	return resp, err
}

// Requests returns all recorded requests in order.
func (s *StubTransport) Requests() []*http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*http.Request(nil), s.requests...)
}

// LastRequest returns the most recent request, failing the test if none was
// sent.
func (s *StubTransport) LastRequest(t *testing.T) *http.Request {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		t.Fatal("no request was sent")
	}
	return s.requests[len(s.requests)-1]
}

// LastBody returns the body snapshot of the most recent request.
func (s *StubTransport) LastBody(t *testing.T) []byte {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.bodies) == 0 {
		t.Fatal("no request was sent")
	}
	return s.bodies[len(s.bodies)-1]
}

// Response builds an *http.Response with the given status and body, suitable
// for responder functions.
func Response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// AssertHeader checks that a recorded request carries the expected header.
func AssertHeader(t *testing.T, req *http.Request, key, expected string) {
	t.Helper()
	if actual := req.Header.Get(key); actual != expected {
		t.Errorf("expected header %s=%q, got %q", key, expected, actual)
	}
}

// AssertQuery checks the raw query string of a recorded request.
func AssertQuery(t *testing.T, req *http.Request, expected string) {
	t.Helper()
	if actual := req.URL.RawQuery; actual != expected {
		t.Errorf("expected query %q, got %q", expected, actual)
	}
}

// DecodeJSONBody decodes a recorded request body into v.
func DecodeJSONBody(t *testing.T, body []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("failed to decode request body: %v\nBody: %s", err, body)
	}
}
