// Package azopenai implements [chat.Client] backed by an Azure OpenAI
// chat-completions deployment.
//
// Authentication is either an api-key header or an Azure AD token obtained
// from an [azcore.TokenCredential]:
//
//	client := azopenai.New(endpoint, deployment,
//	    azopenai.WithCredential(cred),
//	)
package azopenai

import (
	"context"
	"fmt"
	"io"

	"github.com/gurdaan/agentic-workflow-backend/internal/chat"
)

const defaultAPIVersion = "2024-10-21"

// Client implements [chat.Client] using the Azure OpenAI Chat Completions
// API. Use [New] to create one.
type Client struct {
	tp         transport
	deployment string
}

// Verify interface compliance at compile time.
var _ chat.Client = (*Client)(nil)

// New creates an Azure OpenAI [Client] for the given resource endpoint and
// model deployment.
func New(endpoint, deployment string, opts ...Option) *Client {
	cfg := &clientConfig{apiVersion: defaultAPIVersion}
	for _, o := range opts {
		o(cfg)
	}
	return &Client{
		tp:         newHTTPTransport(endpoint, cfg),
		deployment: deployment,
	}
}

// newWithTransport creates a Client with a custom transport (for testing).
func newWithTransport(tp transport, deployment string) *Client {
	return &Client{tp: tp, deployment: deployment}
}

// Complete sends a chat completion request and returns the full reply.
func (c *Client) Complete(ctx context.Context, messages []chat.Message, opts *chat.Options) (*chat.Response, error) {
	req := buildRequest(messages, opts, c.deployment)

	path := fmt.Sprintf("/openai/deployments/%s/chat/completions", c.deployment)
	resp, err := c.tp.do(ctx, "POST", path, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %v", chat.ErrService, err)
	}

	raw, err := unmarshalChatResponse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", chat.ErrService, err)
	}

	result := parseChatResponse(raw)
	result.Raw = raw
	return result, nil
}
