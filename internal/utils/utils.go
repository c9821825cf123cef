package utils

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// IsTransient reports whether err looks like a temporary upstream condition
// (rate limiting, overload, dropped connection) rather than a permanent failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var openAIErr *openai.APIError
	if errors.As(err, &openAIErr) {
		return openAIErr.HTTPStatusCode >= 500 || openAIErr.HTTPStatusCode == 429
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode >= 500 || reqErr.HTTPStatusCode == 429
	}
	errMsg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"rate limit",
		"429",
		"500 internal server error",
		"502 bad gateway",
		"503 service unavailable",
		"504 gateway timeout",
		"timeout",
		"connection reset by peer",
		"connection refused",
	} {
		if strings.Contains(errMsg, marker) {
			return true
		}
	}
	return false
}

// DetermineFileType returns the lower-cased extension of filename without the
// leading dot, or "txt" when it has none.
func DetermineFileType(filename string) string {
	ext := path.Ext(filename)
	if ext == "" || ext == "." {
		return "txt"
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
