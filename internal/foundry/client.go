// Package foundry runs pre-built Azure AI Foundry agents over the Agents
// REST API: create a thread, post the request, start a run, poll it to
// completion, and return the agent's reply text.
package foundry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	"github.com/gurdaan/agentic-workflow-backend/internal/chat"
)

const defaultAPIVersion = "2025-05-01"

const (
	pollInterval = time.Second
	runTimeout   = 3 * time.Minute
)

// Client talks to an Azure AI Foundry project's Agents API. Use [New] to
// create one.
type Client struct {
	tp transport
}

// clientConfig holds construction options.
type clientConfig struct {
	apiVersion string
	httpClient *http.Client
	credential azcore.TokenCredential
}

// Option configures a [Client].
type Option func(*clientConfig)

// WithAPIVersion overrides the Agents API version.
func WithAPIVersion(version string) Option {
	return func(cfg *clientConfig) { cfg.apiVersion = version }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(cfg *clientConfig) { cfg.httpClient = client }
}

// New creates a Client for the given Foundry project endpoint, authenticating
// with the credential.
func New(endpoint string, credential azcore.TokenCredential, opts ...Option) *Client {
	cfg := &clientConfig{apiVersion: defaultAPIVersion, credential: credential}
	for _, o := range opts {
		o(cfg)
	}
	return &Client{tp: newHTTPTransport(endpoint, cfg)}
}

// newWithTransport creates a Client with a custom transport (for testing).
func newWithTransport(tp transport) *Client {
	return &Client{tp: tp}
}

// RunAgent sends the request text to the agent on a fresh thread, waits for
// the run to finish, and returns the agent's reply text.
func (c *Client) RunAgent(ctx context.Context, agentID, request string) (string, error) {
	threadID, err := c.createThread(ctx)
	if err != nil {
		return "", err
	}
	slog.DebugContext(ctx, "created agent thread", "thread_id", threadID, "agent_id", agentID)

	if err := c.postMessage(ctx, threadID, request); err != nil {
		return "", err
	}

	runID, err := c.createRun(ctx, threadID, agentID)
	if err != nil {
		return "", err
	}

	if err := c.waitForRun(ctx, threadID, runID); err != nil {
		return "", err
	}

	reply, err := c.latestAssistantText(ctx, threadID)
	if err != nil {
		return "", err
	}

	slog.InfoContext(ctx, "agent run completed", "agent_id", agentID, "thread_id", threadID, "reply_len", len(reply))
	return reply, nil
}

func (c *Client) createThread(ctx context.Context) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, "POST", "/threads", map[string]any{}, &out); err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return out.ID, nil
}

func (c *Client) postMessage(ctx context.Context, threadID, content string) error {
	body := map[string]any{"role": "user", "content": content}
	if err := c.doJSON(ctx, "POST", "/threads/"+threadID+"/messages", body, nil); err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	return nil
}

func (c *Client) createRun(ctx context.Context, threadID, agentID string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	body := map[string]any{"assistant_id": agentID}
	if err := c.doJSON(ctx, "POST", "/threads/"+threadID+"/runs", body, &out); err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	return out.ID, nil
}

// waitForRun polls the run until it reaches a terminal status.
func (c *Client) waitForRun(ctx context.Context, threadID, runID string) error {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		var out struct {
			Status    string `json:"status"`
			LastError *struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"last_error"`
		}
		if err := c.doJSON(ctx, "GET", "/threads/"+threadID+"/runs/"+runID, nil, &out); err != nil {
			return fmt.Errorf("poll run: %w", err)
		}

		switch out.Status {
		case "completed":
			return nil
		case "failed", "cancelled", "expired":
			msg := out.Status
			if out.LastError != nil {
				msg = fmt.Sprintf("%s: %s", out.LastError.Code, out.LastError.Message)
			}
			return fmt.Errorf("%w: agent run %s", chat.ErrService, msg)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: agent run did not finish: %v", chat.ErrService, ctx.Err())
		case <-ticker.C:
		}
	}
}

// latestAssistantText returns the text of the newest assistant message on
// the thread.
func (c *Client) latestAssistantText(ctx context.Context, threadID string) (string, error) {
	var out struct {
		Data []struct {
			Role    string `json:"role"`
			Content []struct {
				Type string `json:"type"`
				Text struct {
					Value string `json:"value"`
				} `json:"text"`
			} `json:"content"`
		} `json:"data"`
	}
	if err := c.doJSON(ctx, "GET", "/threads/"+threadID+"/messages", nil, &out); err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}

	// Messages come newest-first.
	for _, msg := range out.Data {
		if msg.Role != "assistant" {
			continue
		}
		for _, part := range msg.Content {
			if part.Type == "text" && part.Text.Value != "" {
				return part.Text.Value, nil
			}
		}
	}
	return "", fmt.Errorf("%w: agent produced no reply", chat.ErrService)
}

// doJSON performs a request and decodes the JSON response into out when
// out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.tp.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
