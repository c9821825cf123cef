package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies failures raised by discovery and the protocol adapters.
type ErrorKind string

const (
	KindUnsupportedModel  ErrorKind = "unsupported_model"
	KindMissingCredential ErrorKind = "missing_credential"
	KindNoLocalBackend    ErrorKind = "no_local_backend"
	KindProviderError     ErrorKind = "provider_error"
	KindTimeout           ErrorKind = "timeout"
)

// Error is the typed failure returned below the orchestrator.
type Error struct {
	Kind     ErrorKind
	Provider string
	Model    string
	Detail   string
	Hint     string
	Err      error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindUnsupportedModel:
		if e.Detail != "" {
			return fmt.Sprintf("Unsupported model: %s (%s)", e.Model, e.Detail)
		}
		return fmt.Sprintf("Unsupported model: %s", e.Model)
	case KindMissingCredential:
		return fmt.Sprintf("%s API key not found", e.Provider)
	case KindNoLocalBackend:
		msg := fmt.Sprintf("No local backend available for model %s", e.Model)
		if e.Hint != "" {
			msg += ". " + e.Hint
		}
		return msg
	case KindTimeout:
		if e.Detail != "" {
			return fmt.Sprintf("Timeout: %s", e.Detail)
		}
		return fmt.Sprintf("Timeout: %s took too long to respond. Please try again.", e.Provider)
	default:
		return fmt.Sprintf("API Error: %s", e.Detail)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether a caller-driven fallback to another backend makes sense.
func (e *Error) Retryable() bool {
	return e.Kind == KindProviderError || e.Kind == KindTimeout
}

// KindOf extracts the ErrorKind from err, or "" when err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func UnsupportedModel(model, detail string) *Error {
	return &Error{Kind: KindUnsupportedModel, Model: model, Detail: detail}
}

func MissingCredential(provider string) *Error {
	return &Error{Kind: KindMissingCredential, Provider: provider}
}

// NoLocalBackendAvailable names every supported local platform in its hint.
func NoLocalBackendAvailable(model string, platforms []string) *Error {
	hint := "Start one of the supported local model servers and pull the model: " + strings.Join(platforms, ", ")
	return &Error{Kind: KindNoLocalBackend, Model: model, Hint: hint}
}

func ProviderError(provider, detail string, err error) *Error {
	return &Error{Kind: KindProviderError, Provider: provider, Detail: detail, Err: err}
}

// Timeout builds the inner per-backend timeout failure.
func Timeout(provider string, err error) *Error {
	return &Error{Kind: KindTimeout, Provider: provider, Err: err}
}

// DeadlineExceeded builds the outer orchestrator deadline failure.
func DeadlineExceeded(provider, detail string) *Error {
	return &Error{Kind: KindTimeout, Provider: provider, Detail: detail}
}
