package chat

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is.
var (
	// ErrService is the base error for backend service failures.
	ErrService = errors.New("service error")

	// ErrContentFilter indicates the request was rejected by a content filter.
	ErrContentFilter = fmt.Errorf("%w: content filter", ErrService)

	// ErrInvalidRequest indicates the request was malformed or invalid.
	ErrInvalidRequest = fmt.Errorf("%w: invalid request", ErrService)

	// ErrAuth indicates an authentication or authorization failure.
	ErrAuth = fmt.Errorf("%w: authentication", ErrService)

	// ErrTool is the base error for tool-related failures.
	ErrTool = errors.New("tool error")

	// ErrToolExecution indicates a failure during tool invocation.
	ErrToolExecution = fmt.Errorf("%w: execution", ErrTool)
)

// ServiceError provides rich context for backend service failures.
// Use errors.As to extract it from a wrapped error chain.
type ServiceError struct {
	StatusCode int
	Message    string
	Code       string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("service error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("service error %d: %s", e.StatusCode, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// ToolError provides context for tool invocation failures.
type ToolError struct {
	ToolName string
	Message  string
	Err      error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %q: %s", e.ToolName, e.Message)
}

func (e *ToolError) Unwrap() error { return e.Err }
