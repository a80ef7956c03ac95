// Package api exposes the WhatsApp gateway operations as MCP tools.
package api

import (
	"encoding/json"
	"fmt"
)

// Error codes
const (
	ErrInvalidInput  = "INVALID_INPUT"
	ErrNotFound      = "NOT_FOUND"
	ErrMessageFailed = "MESSAGE_FAILED"
	ErrMediaFailed   = "MEDIA_FAILED"
	ErrUnavailable   = "INTEGRATION_UNAVAILABLE"
	ErrInternal      = "INTERNAL_ERROR"
)

// MCPError represents a structured error for MCP responses.
type MCPError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// JSON returns the error as a JSON string.
func (e *MCPError) JSON() string {
	data, _ := json.Marshal(e)
	return string(data)
}

// NewInvalidInputError creates an error for invalid input.
func NewInvalidInputError(message string) *MCPError {
	return &MCPError{
		Code:    ErrInvalidInput,
		Message: message,
		Retry:   false,
	}
}

// NewNotFoundError creates an error for missing chats or messages.
func NewNotFoundError(resource string) *MCPError {
	return &MCPError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("Resource not found: %s", resource),
		Retry:   false,
	}
}

// NewMessageFailedError creates an error for failed message sending.
func NewMessageFailedError(err error) *MCPError {
	return &MCPError{
		Code:    ErrMessageFailed,
		Message: fmt.Sprintf("Failed to send message: %s", err.Error()),
		Retry:   true,
	}
}

// NewMediaFailedError creates an error for failed media transfer.
func NewMediaFailedError(err error) *MCPError {
	return &MCPError{
		Code:    ErrMediaFailed,
		Message: fmt.Sprintf("Media operation failed: %s", err.Error()),
		Retry:   true,
	}
}

// NewUnavailableError creates an error for the unavailable backend.
func NewUnavailableError() *MCPError {
	return &MCPError{
		Code:    ErrUnavailable,
		Message: "WhatsApp integration is not available",
		Retry:   false,
	}
}

// NewInternalError creates an error for internal errors.
func NewInternalError(err error) *MCPError {
	return &MCPError{
		Code:    ErrInternal,
		Message: fmt.Sprintf("Internal error: %s", err.Error()),
		Retry:   false,
	}
}
