package azopenai

import (
	"encoding/json"

	"github.com/gurdaan/agentic-workflow-backend/internal/chat"
)

// chatRequest is the Chat Completions API request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_completion_tokens,omitempty"`
	Tools       []toolSpec    `json:"tools,omitempty"`
	ToolChoice  any           `json:"tool_choice,omitempty"`
}

type chatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type toolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function functionCallSpec `json:"function"`
}

type functionCallSpec struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type toolSpec struct {
	Type     string       `json:"type"`
	Function functionSpec `json:"function"`
}

type functionSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// buildRequest converts transcript messages and options into an API request.
func buildRequest(messages []chat.Message, opts *chat.Options, deployment string) *chatRequest {
	req := &chatRequest{
		Model: deployment,
	}
	if opts != nil {
		if opts.ModelID != "" {
			req.Model = opts.ModelID
		}
		req.Temperature = opts.Temperature
		req.MaxTokens = opts.MaxTokens

		for _, t := range opts.Tools {
			req.Tools = append(req.Tools, toolSpec{
				Type: "function",
				Function: functionSpec{
					Name:        t.Name(),
					Description: t.Description(),
					Parameters:  t.Parameters(),
				},
			})
		}
		if opts.ToolChoice != "" {
			req.ToolChoice = string(opts.ToolChoice)
		}
	}

	req.Messages = convertMessages(messages)
	return req
}

// convertMessages translates transcript messages into API chat messages.
func convertMessages(messages []chat.Message) []chatMessage {
	result := make([]chatMessage, 0, len(messages))

	for _, msg := range messages {
		cm := chatMessage{Role: string(msg.Role)}

		switch msg.Role {
		case chat.RoleTool:
			// Tool messages carry a single function result.
			for _, c := range msg.Contents {
				if fr, ok := c.(*chat.FunctionResultContent); ok {
					cm.ToolCallID = fr.CallID
					cm.Content, _ = marshalResult(fr.Result)
				}
			}

		case chat.RoleAssistant:
			// Assistant messages may carry text plus tool calls.
			for _, c := range msg.Contents {
				switch v := c.(type) {
				case *chat.TextContent:
					cm.Content += v.Text
				case *chat.FunctionCallContent:
					cm.ToolCalls = append(cm.ToolCalls, toolCall{
						ID:   v.CallID,
						Type: "function",
						Function: functionCallSpec{
							Name:      v.Name,
							Arguments: v.Arguments,
						},
					})
				}
			}

		default:
			cm.Content = msg.Text()
		}

		result = append(result, cm)
	}

	return result
}

func marshalResult(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(v)
	return string(b), err
}
