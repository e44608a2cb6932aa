package chat

import (
	"context"
	"strings"
)

// ToolChoice controls how the model selects tools.
type ToolChoice string

const (
	ToolChoiceAuto     ToolChoice = "auto"
	ToolChoiceRequired ToolChoice = "required"
	ToolChoiceNone     ToolChoice = "none"
)

// Options configures a single chat completion request.
// Pointer fields use nil to represent "unset" (provider default).
type Options struct {
	ModelID     string
	Temperature *float64
	MaxTokens   *int
	Tools       []Tool
	ToolChoice  ToolChoice
}

// Response is the complete reply from a [Client].
type Response struct {
	Messages     []Message
	ResponseID   string
	ModelID      string
	FinishReason FinishReason
	Raw          any
}

// Text returns the concatenated text of all messages in this response.
func (r *Response) Text() string {
	var b strings.Builder
	for i := range r.Messages {
		b.WriteString(r.Messages[i].Text())
	}
	return b.String()
}

// Client is a chat completion backend.
type Client interface {
	// Complete sends the messages and returns the model's reply.
	Complete(ctx context.Context, messages []Message, opts *Options) (*Response, error)
}
