package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIAdapter talks to the hosted OpenAI chat completion API.
type OpenAIAdapter struct {
	apiKey string
	client *openai.Client
}

// NewOpenAIAdapter builds the hosted_a adapter. An empty apiKey is allowed;
// Send then fails with MissingCredential.
func NewOpenAIAdapter(apiKey, baseURL string, httpClient *http.Client) *OpenAIAdapter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAIAdapter{
		apiKey: apiKey,
		client: openai.NewClientWithConfig(cfg),
	}
}

func (a *OpenAIAdapter) Send(ctx context.Context, target Target, msg Message) (Completion, error) {
	provider := HostedA.Label()
	if a.apiKey == "" {
		return Completion{}, MissingCredential("OpenAI")
	}
	text, err := chatComplete(ctx, a.client, target.PhysicalModel, target.TokenLimit, msg)
	if err != nil {
		return Completion{}, classifyOpenAIError(ctx, provider, err)
	}
	return Completion{
		Text:          text,
		Backend:       HostedA,
		Model:         target.Model.Name,
		PhysicalModel: target.PhysicalModel,
	}, nil
}

// chatComplete is shared by the hosted and OpenAI-compatible local adapters.
func chatComplete(ctx context.Context, client *openai.Client, model string, maxTokens int, msg Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: msg.System},
			{Role: openai.ChatMessageRoleUser, Content: msg.User},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.7,
	}
	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("response contained no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func classifyOpenAIError(ctx context.Context, provider string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Timeout(provider, err)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return ProviderError(provider, fmt.Sprintf("status %d: %s", apiErr.HTTPStatusCode, apiErr.Message), err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return ProviderError(provider, fmt.Sprintf("status %d: %s", reqErr.HTTPStatusCode, strings.TrimSpace(reqErr.Error())), err)
	}
	return classifyTransport(ctx, provider, err)
}
