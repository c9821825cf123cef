package utils

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
)

func TestDetermineFileType(t *testing.T) {
	cases := map[string]string{
		"index.html":      "html",
		"styles.css":      "css",
		"script.js":       "js",
		"README":          "txt",
		"assets/Logo.SVG": "svg",
		"archive.tar.gz":  "gz",
	}
	for name, want := range cases {
		assert.Equal(t, want, DetermineFileType(name), name)
	}
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.True(t, IsTransient(fmt.Errorf("send: %w", context.DeadlineExceeded)))
	assert.True(t, IsTransient(&openai.APIError{HTTPStatusCode: 429}))
	assert.True(t, IsTransient(&openai.APIError{HTTPStatusCode: 503}))
	assert.False(t, IsTransient(&openai.APIError{HTTPStatusCode: 401}))
	assert.True(t, IsTransient(errors.New("dial tcp 127.0.0.1:11434: connect: connection refused")))
	assert.False(t, IsTransient(errors.New("invalid api key")))
}
