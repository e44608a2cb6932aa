package azopenai

import (
	"encoding/json"

	"github.com/gurdaan/agentic-workflow-backend/internal/chat"
)

// chatCompletionResponse is the Chat Completions API response.
type chatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
}

type choice struct {
	Index        int         `json:"index"`
	Message      respMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type respMessage struct {
	Role      string     `json:"role"`
	Content   *string    `json:"content"`
	ToolCalls []toolCall `json:"tool_calls,omitempty"`
}

// parseChatResponse converts the API response into transcript types.
func parseChatResponse(raw *chatCompletionResponse) *chat.Response {
	resp := &chat.Response{
		ResponseID: raw.ID,
		ModelID:    raw.Model,
	}

	if len(raw.Choices) > 0 {
		c := raw.Choices[0]
		resp.FinishReason = mapFinishReason(c.FinishReason)

		msg := chat.Message{Role: chat.Role(c.Message.Role)}

		if c.Message.Content != nil && *c.Message.Content != "" {
			msg.Contents = append(msg.Contents, &chat.TextContent{Text: *c.Message.Content})
		}

		for _, tc := range c.Message.ToolCalls {
			msg.Contents = append(msg.Contents, &chat.FunctionCallContent{
				CallID:    tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}

		resp.Messages = []chat.Message{msg}
	}

	return resp
}

// unmarshalChatResponse parses the JSON response body.
func unmarshalChatResponse(data []byte) (*chatCompletionResponse, error) {
	var resp chatCompletionResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func mapFinishReason(s string) chat.FinishReason {
	switch s {
	case "stop":
		return chat.FinishReasonStop
	case "length":
		return chat.FinishReasonLength
	case "tool_calls":
		return chat.FinishReasonToolCalls
	case "content_filter":
		return chat.FinishReasonContentFilter
	default:
		return chat.FinishReason(s)
	}
}
