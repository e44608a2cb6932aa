// Package boards writes and queries Azure Boards work items through the
// Azure DevOps REST API, authenticating with a personal access token.
package boards

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gurdaan/agentic-workflow-backend/internal/chat"
)

const apiVersion = "7.1"

// Client is an Azure DevOps work-item client scoped to one project.
type Client struct {
	httpClient      *http.Client
	organizationURL string
	project         string
	authHeader      string
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.httpClient = client }
}

// New creates a Client for the organization URL and project, authenticating
// with the personal access token.
func New(organizationURL, project, pat string, opts ...Option) *Client {
	c := &Client{
		httpClient:      http.DefaultClient,
		organizationURL: strings.TrimRight(organizationURL, "/"),
		project:         project,
		authHeader:      "Basic " + base64.StdEncoding.EncodeToString([]byte(":"+pat)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WorkItem is the subset of work-item fields the orchestrator reports back.
type WorkItem struct {
	ID    int    `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
	State string `json:"state"`
	URL   string `json:"url"`
}

// patchOperation is one JSON-Patch entry in a work-item write.
type patchOperation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// CreateWorkItem creates a work item of the given type. The description must
// already be HTML, Azure Boards renders the field as rich text.
func (c *Client) CreateWorkItem(ctx context.Context, workItemType, title, descriptionHTML string) (*WorkItem, error) {
	patch := []patchOperation{
		{Op: "add", Path: "/fields/System.Title", Value: title},
	}
	if descriptionHTML != "" {
		patch = append(patch, patchOperation{Op: "add", Path: "/fields/System.Description", Value: descriptionHTML})
	}

	endpoint := fmt.Sprintf("%s/%s/_apis/wit/workitems/$%s?api-version=%s",
		c.organizationURL, url.PathEscape(c.project), url.PathEscape(workItemType), apiVersion)

	body, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("marshal patch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json-patch+json")
	req.Header.Set("Authorization", c.authHeader)

	var raw workItemResponse
	if err := c.send(req, &raw); err != nil {
		return nil, fmt.Errorf("create work item: %w", err)
	}

	item := raw.toWorkItem()
	slog.InfoContext(ctx, "work item created", "id", item.ID, "type", item.Type, "title", item.Title)
	return &item, nil
}

// QueryWorkItems runs a WIQL query and returns the matched items with their
// display fields.
func (c *Client) QueryWorkItems(ctx context.Context, wiql string) ([]WorkItem, error) {
	endpoint := fmt.Sprintf("%s/%s/_apis/wit/wiql?api-version=%s",
		c.organizationURL, url.PathEscape(c.project), apiVersion)

	body, err := json.Marshal(map[string]string{"query": wiql})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.authHeader)

	var result struct {
		WorkItems []struct {
			ID int `json:"id"`
		} `json:"workItems"`
	}
	if err := c.send(req, &result); err != nil {
		return nil, fmt.Errorf("run wiql query: %w", err)
	}

	if len(result.WorkItems) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(result.WorkItems))
	for _, wi := range result.WorkItems {
		ids = append(ids, strconv.Itoa(wi.ID))
	}
	return c.getWorkItems(ctx, ids)
}

// getWorkItems fetches display fields for a batch of work-item ids.
func (c *Client) getWorkItems(ctx context.Context, ids []string) ([]WorkItem, error) {
	endpoint := fmt.Sprintf("%s/%s/_apis/wit/workitems?ids=%s&fields=System.Title,System.State,System.WorkItemType&api-version=%s",
		c.organizationURL, url.PathEscape(c.project), strings.Join(ids, ","), apiVersion)

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)

	var result struct {
		Value []workItemResponse `json:"value"`
	}
	if err := c.send(req, &result); err != nil {
		return nil, fmt.Errorf("get work items: %w", err)
	}

	items := make([]WorkItem, 0, len(result.Value))
	for _, raw := range result.Value {
		items = append(items, raw.toWorkItem())
	}
	return items, nil
}

// workItemResponse is the wire shape of a work item.
type workItemResponse struct {
	ID     int    `json:"id"`
	URL    string `json:"url"`
	Fields struct {
		Title        string `json:"System.Title"`
		State        string `json:"System.State"`
		WorkItemType string `json:"System.WorkItemType"`
	} `json:"fields"`
}

func (r workItemResponse) toWorkItem() WorkItem {
	return WorkItem{
		ID:    r.ID,
		Type:  r.Fields.WorkItemType,
		Title: r.Fields.Title,
		State: r.Fields.State,
		URL:   r.URL,
	}
}

// send executes the request and decodes the JSON response into out.
func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &apiErr)
		msg := apiErr.Message
		if msg == "" {
			msg = string(body)
		}

		svcErr := &chat.ServiceError{StatusCode: resp.StatusCode, Message: msg}
		switch resp.StatusCode {
		case 401, 403:
			svcErr.Err = chat.ErrAuth
		case 400:
			svcErr.Err = chat.ErrInvalidRequest
		default:
			svcErr.Err = chat.ErrService
		}
		return svcErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
