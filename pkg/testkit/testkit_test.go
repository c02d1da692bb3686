package testkit

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockTransportMatchesFirstStub(t *testing.T) {
	mt := NewMockTransport(
		Stub{Method: http.MethodPost, URLPrefix: "https://llm.test/v1", Body: `{"ok":true}`},
		Stub{URLPrefix: "https://down.test", Err: errors.New("dial tcp: refused")},
	)
	client := &http.Client{Transport: mt}

	resp, err := client.Post("https://llm.test/v1/chat/completions", "application/json", strings.NewReader(`{"q":1}`))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, `{"ok":true}`, string(body))

	_, err = client.Get("https://down.test/")
	assert.ErrorContains(t, err, "refused")

	_, err = client.Get("https://elsewhere.test/")
	assert.ErrorContains(t, err, "unexpected outgoing HTTP call")

	calls := mt.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, `{"q":1}`, string(calls[0].Body))
	mt.AssertAllCalled(t)
}

func TestDoDecodesEnvelope(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":200,"data":` + string(body) + `}`))
	})

	res := Do(t, h, Request{Method: http.MethodPost, Path: "/echo", Body: map[string]int{"n": 3}})
	assert.Equal(t, http.StatusOK, res.Code)

	var got map[string]int
	res.Data(t, &got)
	assert.Equal(t, 3, got["n"])
}
