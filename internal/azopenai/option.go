package azopenai

import (
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

// clientConfig holds resolved configuration for the client.
type clientConfig struct {
	apiKey     string
	apiVersion string
	httpClient *http.Client
	credential azcore.TokenCredential
}

// Option configures a [Client].
type Option func(*clientConfig)

// WithAPIKey authenticates requests with the resource's api-key header.
func WithAPIKey(key string) Option {
	return func(c *clientConfig) { c.apiKey = key }
}

// WithAPIVersion overrides the api-version query parameter.
func WithAPIVersion(v string) Option {
	return func(c *clientConfig) { c.apiVersion = v }
}

// WithHTTPClient provides a custom http.Client for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) { c.httpClient = client }
}

// WithCredential enables Azure AD token authentication using the provided
// credential. Takes precedence over an api-key.
func WithCredential(cred azcore.TokenCredential) Option {
	return func(c *clientConfig) { c.credential = cred }
}
