package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/ollama/ollama/api"
)

// nativeTemperature is the sampling temperature for single-shot generation.
const nativeTemperature = 0.7

func newOllamaClient(httpClient *http.Client, baseURL string) (*api.Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %q: %w", baseURL, err)
	}
	return api.NewClient(u, httpClient), nil
}

func listOllamaModels(ctx context.Context, httpClient *http.Client, baseURL string) ([]string, error) {
	client, err := newOllamaClient(httpClient, baseURL)
	if err != nil {
		return nil, err
	}
	resp, err := client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		if m.Name != "" {
			names = append(names, m.Name)
		} else if m.Model != "" {
			names = append(names, m.Model)
		}
	}
	return names, nil
}

// NativePrompt frames a role-separated message for a completion-only API.
func NativePrompt(msg Message) string {
	return fmt.Sprintf("System: %s\n\nUser: %s\n\nAssistant:", msg.System, msg.User)
}

// OllamaAdapter calls the native generate endpoint of an Ollama server.
type OllamaAdapter struct {
	httpClient *http.Client

	mu      sync.Mutex
	clients map[string]*api.Client
}

func NewOllamaAdapter(client *http.Client) *OllamaAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &OllamaAdapter{httpClient: client, clients: make(map[string]*api.Client)}
}

func (a *OllamaAdapter) client(baseURL string) (*api.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok := a.clients[baseURL]; ok {
		return c, nil
	}
	c, err := newOllamaClient(a.httpClient, baseURL)
	if err != nil {
		return nil, err
	}
	a.clients[baseURL] = c
	return c, nil
}

func (a *OllamaAdapter) Send(ctx context.Context, target Target, msg Message) (Completion, error) {
	provider := target.Provider()
	if target.Endpoint == nil {
		return Completion{}, ProviderError(provider, "missing endpoint", nil)
	}
	client, err := a.client(target.Endpoint.BaseURL)
	if err != nil {
		return Completion{}, ProviderError(provider, err.Error(), err)
	}

	stream := false
	req := &api.GenerateRequest{
		Model:  target.PhysicalModel,
		Prompt: NativePrompt(msg),
		Stream: &stream,
		Options: map[string]any{
			"temperature": nativeTemperature,
			"num_predict": target.TokenLimit,
		},
	}

	var text strings.Builder
	err = client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		text.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		var status api.StatusError
		if errors.As(err, &status) {
			detail := strings.TrimSpace(status.ErrorMessage)
			if detail == "" {
				detail = status.Status
			}
			return Completion{}, ProviderError(provider, fmt.Sprintf("status %d: %s", status.StatusCode, detail), err)
		}
		return Completion{}, classifyTransport(ctx, provider, err)
	}

	return Completion{
		Text:          text.String(),
		Backend:       SelfHosted,
		Model:         target.Model.Name,
		PhysicalModel: target.PhysicalModel,
		Endpoint:      target.Endpoint.DisplayName,
	}, nil
}
