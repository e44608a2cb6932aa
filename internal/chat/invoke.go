package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// InvocationConfig controls the function invocation loop behavior.
type InvocationConfig struct {
	// MaxIterations is the maximum number of model round-trips for tool
	// calling. Default: 10.
	MaxIterations int

	// MaxConsecutiveErrors is the maximum number of consecutive tool errors
	// before aborting. Default: 3.
	MaxConsecutiveErrors int
}

// DefaultInvocationConfig returns the default configuration.
func DefaultInvocationConfig() InvocationConfig {
	return InvocationConfig{
		MaxIterations:        10,
		MaxConsecutiveErrors: 3,
	}
}

// RunWithTools runs the tool-calling loop: send the messages, extract
// function calls from the reply, invoke the matched tools, append the
// results, and re-call the model until it answers without tool calls.
func RunWithTools(ctx context.Context, client Client, messages []Message, opts *Options, config InvocationConfig) (*Response, error) {
	if config.MaxIterations <= 0 {
		config.MaxIterations = 10
	}
	if config.MaxConsecutiveErrors <= 0 {
		config.MaxConsecutiveErrors = 3
	}

	toolMap := make(map[string]Tool, len(opts.Tools))
	for _, t := range opts.Tools {
		toolMap[t.Name()] = t
	}

	consecutiveErrors := 0

	for iteration := 0; iteration < config.MaxIterations; iteration++ {
		resp, err := client.Complete(ctx, messages, opts)
		if err != nil {
			return nil, err
		}

		calls := extractFunctionCalls(resp)
		if len(calls) == 0 {
			return resp, nil
		}

		var resultMessages []Message
		for _, call := range calls {
			tool, ok := toolMap[call.Name]
			if !ok {
				slog.WarnContext(ctx, "unknown tool called", "tool", call.Name)
				resultMessages = append(resultMessages, NewToolMessage(call.CallID, "error: unknown tool"))
				consecutiveErrors++
				continue
			}

			slog.InfoContext(ctx, "invoking tool", "tool", call.Name, "iteration", iteration)
			result, invokeErr := tool.Invoke(ctx, json.RawMessage(call.Arguments))
			if invokeErr != nil {
				consecutiveErrors++
				slog.WarnContext(ctx, "tool invocation error",
					"tool", call.Name,
					"error", invokeErr,
					"consecutive_errors", consecutiveErrors,
				)
				if consecutiveErrors >= config.MaxConsecutiveErrors {
					return nil, fmt.Errorf("%w: max consecutive errors reached (%d)", ErrToolExecution, consecutiveErrors)
				}
				resultMessages = append(resultMessages, NewToolMessage(call.CallID, invokeErr.Error()))
				continue
			}

			consecutiveErrors = 0
			resultMessages = append(resultMessages, NewToolMessage(call.CallID, result))
		}

		messages = append(messages, resp.Messages...)
		messages = append(messages, resultMessages...)
	}

	return nil, fmt.Errorf("%w: max iterations reached (%d)", ErrToolExecution, config.MaxIterations)
}

type functionCall struct {
	CallID    string
	Name      string
	Arguments string
}

// extractFunctionCalls finds all FunctionCallContent in a response's messages.
func extractFunctionCalls(resp *Response) []functionCall {
	var calls []functionCall
	for _, msg := range resp.Messages {
		for _, c := range msg.Contents {
			if fc, ok := c.(*FunctionCallContent); ok {
				calls = append(calls, functionCall{
					CallID:    fc.CallID,
					Name:      fc.Name,
					Arguments: fc.Arguments,
				})
			}
		}
	}
	return calls
}
