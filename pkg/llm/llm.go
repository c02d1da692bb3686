// Package llm calls an OpenAI-compatible chat completions endpoint.
package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/humanebio/storefront/pkg/apperr"
	httpc "github.com/humanebio/storefront/pkg/http"
)

// Message is one turn of the conversation sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a completion call. Endpoint overrides the client's default URL
// when set.
type Request struct {
	Endpoint string
	Messages []Message
}

// Provider produces the assistant reply for a conversation.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ErrEmptyReply is returned when the model answered without text.
var ErrEmptyReply = errors.New("llm: empty reply")

type Client struct {
	endpoint string
	apiKey   string
	model    string
	timeout  time.Duration
}

func NewClient(endpoint, apiKey, model string) *Client {
	return &Client{endpoint: endpoint, apiKey: apiKey, model: model, timeout: 30 * time.Second}
}

type completionRequest struct {
	Model    string    `json:"model,omitempty"`
	Messages []Message `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content interface{} `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete posts the conversation and returns the first choice's text.
// Failures are LLMProvider errors.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	endpoint := strings.TrimSpace(req.Endpoint)
	if endpoint == "" {
		endpoint = c.endpoint
	}
	if endpoint == "" {
		return "", apperr.New(apperr.LLMProvider, "llm.complete", "LLM endpoint is not configured")
	}

	resp, err := httpc.Post(endpoint).
		WithContext(ctx).
		Bearer(c.apiKey).
		Timeout(c.timeout).
		Retry(2, 300*time.Millisecond).
		Body(completionRequest{Model: c.model, Messages: req.Messages}).
		Send()
	if err == nil {
		err = resp.Throw()
	}
	if err != nil {
		return "", apperr.Wrap(apperr.LLMProvider, "llm.complete", err)
	}

	var out completionResponse
	if err := resp.JSON(&out); err != nil {
		return "", apperr.Wrap(apperr.LLMProvider, "llm.complete", err)
	}
	if len(out.Choices) == 0 {
		return "", apperr.Wrap(apperr.LLMProvider, "llm.complete", ErrEmptyReply)
	}
	// content may be a string or, for multimodal models, a list of parts
	text, ok := out.Choices[0].Message.Content.(string)
	if !ok || strings.TrimSpace(text) == "" {
		return "", apperr.Wrap(apperr.LLMProvider, "llm.complete", ErrEmptyReply)
	}
	return text, nil
}
