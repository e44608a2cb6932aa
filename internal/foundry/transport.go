package foundry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"

	"github.com/gurdaan/agentic-workflow-backend/internal/chat"
)

const aiFoundryScope = "https://ai.azure.com/.default"

// transport is an unexported interface for HTTP communication.
// The default implementation uses net/http; tests inject a mock.
type transport interface {
	do(ctx context.Context, method, path string, body any) (*http.Response, error)
}

// httpTransport is the default transport using net/http.
type httpTransport struct {
	client     *http.Client
	endpoint   string
	apiVersion string
	credential azcore.TokenCredential
}

func newHTTPTransport(endpoint string, cfg *clientConfig) *httpTransport {
	t := &httpTransport{
		client:     cfg.httpClient,
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiVersion: cfg.apiVersion,
		credential: cfg.credential,
	}
	if t.client == nil {
		t.client = http.DefaultClient
	}
	return t
}

func (t *httpTransport) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	url := t.endpoint + path + "?api-version=" + t.apiVersion
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	slog.DebugContext(ctx, "acquiring Azure AD token for AI Foundry")
	token, err := t.credential.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{aiFoundryScope},
	})
	if err != nil {
		return nil, fmt.Errorf("get azure token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.Token)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, parseErrorResponse(resp)
	}

	return resp, nil
}

// parseErrorResponse reads an error response body and returns a typed error.
func parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var apiErr struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &apiErr)

	msg := apiErr.Error.Message
	if msg == "" {
		msg = string(body)
	}

	svcErr := &chat.ServiceError{
		StatusCode: resp.StatusCode,
		Message:    msg,
		Code:       apiErr.Error.Code,
	}

	switch {
	case resp.StatusCode == 401 || resp.StatusCode == 403:
		svcErr.Err = chat.ErrAuth
	case resp.StatusCode == 400:
		svcErr.Err = chat.ErrInvalidRequest
	default:
		svcErr.Err = chat.ErrService
	}

	return svcErr
}
