// Package testkit holds test helpers shared by the service, provider and
// kernel tests: a RoundTripper that answers outgoing calls from stubs, and
// a small client for driving an http.Handler and decoding the JSON envelope.
package testkit

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
)

// Stub answers requests whose method matches (empty = any) and whose URL
// starts with URLPrefix.
type Stub struct {
	Method    string
	URLPrefix string
	Status    int
	Body      string
	Err       error
}

// Call is one intercepted request.
type Call struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// MockTransport implements http.RoundTripper. Install it on the shared
// client before the test:
//
//	mt := testkit.NewMockTransport(testkit.Stub{URLPrefix: "https://llm.test", Body: `{...}`})
//	httpc.DefaultClient.Transport = mt
//	defer httpc.ResetTransport()
//	...
//	mt.AssertAllCalled(t)
type MockTransport struct {
	mu     sync.Mutex
	stubs  []Stub
	counts []int
	calls  []Call
}

// NewMockTransport answers from stubs, first match wins. Unmatched
// requests fail with an error.
func NewMockTransport(stubs ...Stub) *MockTransport {
	return &MockTransport{stubs: stubs, counts: make([]int, len(stubs))}
}

// RoundTrip records the request and replies with the matching stub.
func (mt *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		req.Body.Close()
	}

	mt.mu.Lock()
	defer mt.mu.Unlock()

	mt.calls = append(mt.calls, Call{
		Method: req.Method,
		URL:    req.URL.String(),
		Header: req.Header.Clone(),
		Body:   body,
	})

	for i, s := range mt.stubs {
		if s.Method != "" && !strings.EqualFold(s.Method, req.Method) {
			continue
		}
		if !strings.HasPrefix(req.URL.String(), s.URLPrefix) {
			continue
		}
		mt.counts[i]++
		if s.Err != nil {
			return nil, s.Err
		}
		status := s.Status
		if status == 0 {
			status = http.StatusOK
		}
		header := make(http.Header)
		header.Set("Content-Type", "application/json")
		return &http.Response{
			StatusCode: status,
			Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
			Header:     header,
			Body:       io.NopCloser(bytes.NewReader([]byte(s.Body))),
			Request:    req,
		}, nil
	}

	return nil, fmt.Errorf("testkit: unexpected outgoing HTTP call to %s %s", req.Method, req.URL)
}

// Calls returns every intercepted request in order.
func (mt *MockTransport) Calls() []Call {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return append([]Call(nil), mt.calls...)
}

// AssertAllCalled fails t for every stub that never matched.
func (mt *MockTransport) AssertAllCalled(t testing.TB) {
	t.Helper()
	mt.mu.Lock()
	defer mt.mu.Unlock()
	for i, s := range mt.stubs {
		if mt.counts[i] == 0 {
			t.Errorf("testkit: stub %s %q was never called", s.Method, s.URLPrefix)
		}
	}
}
