package chat

import (
	"strings"
	"time"
)

// Role identifies the author of a [Message].
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// FinishReason indicates why the model stopped generating.
type FinishReason string

const (
	FinishReasonStop          FinishReason = "stop"
	FinishReasonLength        FinishReason = "length"
	FinishReasonToolCalls     FinishReason = "tool_calls"
	FinishReasonContentFilter FinishReason = "content_filter"
)

// Message is a single entry in a conversation transcript.
type Message struct {
	Role      Role
	Contents  Contents
	Timestamp time.Time
}

// Text returns the concatenated text of all [TextContent] items in this message.
func (m *Message) Text() string {
	var b strings.Builder
	for _, c := range m.Contents {
		if tc, ok := c.(*TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// NewSystemMessage creates a system-role [Message] from text.
func NewSystemMessage(text string) Message {
	return Message{Role: RoleSystem, Contents: Contents{&TextContent{Text: text}}, Timestamp: time.Now()}
}

// NewUserMessage creates a user-role [Message] from text.
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Contents: Contents{&TextContent{Text: text}}, Timestamp: time.Now()}
}

// NewAssistantMessage creates an assistant-role [Message] from text.
func NewAssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Contents: Contents{&TextContent{Text: text}}, Timestamp: time.Now()}
}

// NewToolMessage creates a tool-role [Message] carrying a function result.
func NewToolMessage(callID string, result any) Message {
	return Message{
		Role:      RoleTool,
		Contents:  Contents{&FunctionResultContent{CallID: callID, Result: result}},
		Timestamp: time.Now(),
	}
}
