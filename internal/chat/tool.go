package chat

import (
	"context"
	"encoding/json"
)

// Tool defines a callable function that can be exposed to the model.
type Tool interface {
	// Name returns the function name as exposed to the model.
	Name() string

	// Description returns a human-readable description for the model.
	Description() string

	// Parameters returns the JSON Schema describing the function's input.
	Parameters() json.RawMessage

	// Invoke calls the function with the given JSON arguments.
	Invoke(ctx context.Context, args json.RawMessage) (any, error)
}

// FuncTool is a [Tool] backed by a Go function.
type FuncTool struct {
	name        string
	description string
	parameters  json.RawMessage
	fn          func(ctx context.Context, args json.RawMessage) (any, error)
}

// NewTool creates a [FuncTool] with a raw JSON schema and handler.
func NewTool(name, description string, parameters json.RawMessage, fn func(ctx context.Context, args json.RawMessage) (any, error)) *FuncTool {
	return &FuncTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

func (t *FuncTool) Name() string                { return t.name }
func (t *FuncTool) Description() string         { return t.description }
func (t *FuncTool) Parameters() json.RawMessage { return t.parameters }

// Invoke calls the tool's backing function.
func (t *FuncTool) Invoke(ctx context.Context, args json.RawMessage) (any, error) {
	if t.fn == nil {
		return nil, &ToolError{ToolName: t.name, Message: "tool has no handler", Err: ErrToolExecution}
	}
	return t.fn(ctx, args)
}
