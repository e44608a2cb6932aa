package chat

// ContentType identifies the kind of content within a message.
type ContentType string

const (
	ContentTypeText           ContentType = "text"
	ContentTypeFunctionCall   ContentType = "functionCall"
	ContentTypeFunctionResult ContentType = "functionResult"
	ContentTypeError          ContentType = "error"
)

// Content is a sealed interface for a piece of content within a [Message].
// Use a type switch to inspect the underlying type.
type Content interface {
	// Type returns the discriminator for this content item.
	Type() ContentType

	// sealed prevents external implementations.
	sealed()
}

// Contents is an ordered list of content items.
type Contents []Content

type base struct{}

func (base) sealed() {}

// TextContent holds plain text.
type TextContent struct {
	base
	Text string
}

func (c *TextContent) Type() ContentType { return ContentTypeText }

// FunctionCallContent represents a tool call requested by the model.
type FunctionCallContent struct {
	base
	CallID    string
	Name      string
	Arguments string // JSON-encoded arguments
}

func (c *FunctionCallContent) Type() ContentType { return ContentTypeFunctionCall }

// FunctionResultContent carries the result of a tool call back to the model.
type FunctionResultContent struct {
	base
	CallID string
	Result any
}

func (c *FunctionResultContent) Type() ContentType { return ContentTypeFunctionResult }

// ErrorContent represents an error surfaced as message content.
type ErrorContent struct {
	base
	Message   string
	ErrorCode string
}

func (c *ErrorContent) Type() ContentType { return ContentTypeError }
