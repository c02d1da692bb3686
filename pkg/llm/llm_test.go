package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/humanebio/storefront/pkg/apperr"
	httpc "github.com/humanebio/storefront/pkg/http"
	"github.com/humanebio/storefront/pkg/llm"
	"github.com/humanebio/storefront/pkg/testkit"
)

func TestCompleteSendsConversation(t *testing.T) {
	mt := testkit.NewMockTransport(testkit.Stub{
		Method:    http.MethodPost,
		URLPrefix: "https://llm.test/v1/chat/completions",
		Body:      `{"choices":[{"message":{"role":"assistant","content":"Try L-theanine."}}]}`,
	})
	httpc.DefaultClient.Transport = mt
	defer httpc.ResetTransport()

	client := llm.NewClient("https://llm.test/v1/chat/completions", "sk-test", "gpt-4o-mini")
	reply, err := client.Complete(context.Background(), llm.Request{Messages: []llm.Message{
		{Role: "system", Content: "be helpful"},
		{Role: "user", Content: "focus?"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "Try L-theanine.", reply)

	calls := mt.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Bearer sk-test", calls[0].Header.Get("Authorization"))

	var sent struct {
		Model    string        `json:"model"`
		Messages []llm.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(calls[0].Body, &sent))
	assert.Equal(t, "gpt-4o-mini", sent.Model)
	assert.Len(t, sent.Messages, 2)
}

func TestCompleteEndpointOverride(t *testing.T) {
	mt := testkit.NewMockTransport(testkit.Stub{
		URLPrefix: "https://override.test/",
		Body:      `{"choices":[{"message":{"content":"ok"}}]}`,
	})
	httpc.DefaultClient.Transport = mt
	defer httpc.ResetTransport()

	reply, err := llm.NewClient("https://default.test/", "", "").
		Complete(context.Background(), llm.Request{Endpoint: "https://override.test/chat"})
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
	assert.Empty(t, mt.Calls()[0].Header.Get("Authorization"))
}

func TestCompleteFailures(t *testing.T) {
	cases := map[string]testkit.Stub{
		"client error":  {Status: http.StatusUnauthorized, Body: `{"error":"bad key"}`},
		"no choices":    {Body: `{"choices":[]}`},
		"blank content": {Body: `{"choices":[{"message":{"content":"  "}}]}`},
		"not json":      {Body: `<html>`},
	}
	for name, stub := range cases {
		t.Run(name, func(t *testing.T) {
			stub.URLPrefix = "https://llm.test"
			httpc.DefaultClient.Transport = testkit.NewMockTransport(stub)
			defer httpc.ResetTransport()

			_, err := llm.NewClient("https://llm.test/v1", "", "").Complete(context.Background(), llm.Request{})
			require.Error(t, err)
			assert.Equal(t, apperr.LLMProvider, apperr.KindOf(err))
		})
	}
}

func TestCompleteNotConfigured(t *testing.T) {
	_, err := llm.NewClient("", "", "").Complete(context.Background(), llm.Request{})
	assert.Equal(t, apperr.LLMProvider, apperr.KindOf(err))
	assert.False(t, errors.Is(err, llm.ErrEmptyReply))
}
