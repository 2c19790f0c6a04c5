package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code surfaced to callers.
type ErrorCode string

const (
	// ErrTimeout: the provider call timed out and the retry budget is spent.
	ErrTimeout ErrorCode = "TIMEOUT"
	// ErrQuotaExceeded: upstream quota or rate limit, distinguished so
	// callers can apply a longer cooldown.
	ErrQuotaExceeded ErrorCode = "QUOTA_EXCEEDED"
	// ErrInstallationFailed: the external binary is missing and remediation
	// failed or was unavailable.
	ErrInstallationFailed ErrorCode = "INSTALLATION_FAILED"
	// ErrProviderFailure: generic provider failure after retries exhausted.
	ErrProviderFailure ErrorCode = "PROVIDER_FAILURE"
)

// Error is a structured, classified error with the last underlying cause,
// the number of attempts made, and a bounded prompt snippet for diagnostics.
type Error struct {
	Code          ErrorCode `json:"code"`
	Message       string    `json:"message"`
	Provider      string    `json:"provider,omitempty"`
	Retryable     bool      `json:"retryable"`
	Attempts      int       `json:"attempts,omitempty"`
	PromptSnippet string    `json:"prompt_snippet,omitempty"`
	Cause         error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithAttempts records how many attempts were made before surfacing.
func (e *Error) WithAttempts(attempts int) *Error {
	e.Attempts = attempts
	return e
}

// WithPromptSnippet records a bounded prefix of the prompt. The snippet is
// truncated to maxLen runes; full prompt text is never carried on errors.
func (e *Error) WithPromptSnippet(prompt string, maxLen int) *Error {
	runes := []rune(prompt)
	if len(runes) > maxLen {
		runes = runes[:maxLen]
	}
	e.PromptSnippet = string(runes)
	return e
}

// GetErrorCode extracts the error code from anywhere in an error chain.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
