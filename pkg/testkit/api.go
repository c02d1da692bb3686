package testkit

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// Envelope mirrors the JSON body every API response carries.
type Envelope struct {
	Status  int               `json:"status"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

// Result is a recorded response.
type Result struct {
	Code   int
	Header http.Header
	Body   []byte
}

// Envelope decodes the response body.
func (r *Result) Envelope(t testing.TB) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(r.Body, &env), "body: %s", r.Body)
	return env
}

// Data decodes the envelope's data field into dest.
func (r *Result) Data(t testing.TB, dest interface{}) {
	t.Helper()
	env := r.Envelope(t)
	require.NoError(t, json.Unmarshal(env.Data, dest), "data: %s", env.Data)
}

// Request configures an in-process request.
type Request struct {
	Method  string
	Path    string
	Body    interface{}
	Cookies []*http.Cookie
	Header  map[string]string
}

// Do serves req on h and records the response. A non-nil Body that is not
// already []byte is JSON-encoded.
func Do(t testing.TB, h http.Handler, req Request) *Result {
	t.Helper()

	var body io.Reader
	switch b := req.Body.(type) {
	case nil:
	case []byte:
		body = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	r := httptest.NewRequest(req.Method, req.Path, body)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Header {
		r.Header.Set(k, v)
	}
	for _, c := range req.Cookies {
		r.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return &Result{Code: rec.Code, Header: rec.Header(), Body: rec.Body.Bytes()}
}
