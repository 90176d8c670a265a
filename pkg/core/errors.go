package core

import (
	"errors"
	"fmt"
)

// Error is the error type shared by all boardroom packages.
type Error struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Code       string    `json:"code,omitempty"`
	Underlying error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code: %s)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error wrapping.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// ErrorType categorizes errors.
type ErrorType string

const (
	// ErrConfig covers missing credentials, an empty persona set, or any
	// other precondition caught before a resource is opened.
	ErrConfig ErrorType = "config_error"
	// ErrTransport covers stream-level failures reported by the engine
	// channel or by HTTP transports.
	ErrTransport ErrorType = "transport_error"
	// ErrTool covers tool handler failures; these never tear down a session.
	ErrTool ErrorType = "tool_error"
	// ErrDelegation covers remote agent dispatch failures.
	ErrDelegation ErrorType = "delegation_error"
	// ErrAudio covers audio device failures.
	ErrAudio ErrorType = "audio_error"
	// ErrNotFound covers registry/storage lookups that come back empty.
	ErrNotFound ErrorType = "not_found_error"
)

// NewConfigError creates a configuration error.
func NewConfigError(message string) *Error {
	return &Error{Type: ErrConfig, Message: message}
}

// NewTransportError creates a transport error wrapping the underlying cause.
func NewTransportError(message string, underlying error) *Error {
	return &Error{Type: ErrTransport, Message: message, Underlying: underlying}
}

// NewToolError creates a tool execution error.
func NewToolError(message string) *Error {
	return &Error{Type: ErrTool, Message: message}
}

// NewDelegationError creates a remote delegation error.
func NewDelegationError(message string, underlying error) *Error {
	return &Error{Type: ErrDelegation, Message: message, Underlying: underlying}
}

// NewAudioError creates an audio device error.
func NewAudioError(message string, underlying error) *Error {
	return &Error{Type: ErrAudio, Message: message, Underlying: underlying}
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(message string) *Error {
	return &Error{Type: ErrNotFound, Message: message}
}

// IsType reports whether err is a *core.Error of the given type.
func IsType(err error, t ErrorType) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Type == t
	}
	return false
}
