package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"
)

// local servers ignore the bearer token but go-openai always sends one
const localAPIKey = "local"

type errorBodyKey struct{}

// errorBody records the body of the last non-2xx response seen on a request.
type errorBody struct {
	status int
	body   []byte
}

// bodyCapture keeps a copy of error response bodies so failures can report
// what the local server actually said.
type bodyCapture struct {
	next *http.Client
}

func (b bodyCapture) Do(req *http.Request) (*http.Response, error) {
	resp, err := b.next.Do(req)
	if err != nil || resp.StatusCode < 300 {
		return resp, err
	}
	holder, ok := req.Context().Value(errorBodyKey{}).(*errorBody)
	if !ok {
		return resp, nil
	}
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	holder.status = resp.StatusCode
	holder.body = raw
	resp.Body = io.NopCloser(bytes.NewReader(raw))
	return resp, nil
}

func newCompatClient(httpClient *http.Client, baseURL string) *openai.Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	cfg := openai.DefaultConfig(localAPIKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/") + "/v1"
	cfg.HTTPClient = bodyCapture{next: httpClient}
	return openai.NewClientWithConfig(cfg)
}

func listCompatModels(ctx context.Context, httpClient *http.Client, baseURL string) ([]string, error) {
	list, err := newCompatClient(httpClient, baseURL).ListModels(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		names = append(names, m.ID)
	}
	return names, nil
}

// CompatAdapter sends role-structured chat completions to an
// OpenAI-compatible local server (LM Studio, LocalAI, Text Generation WebUI).
type CompatAdapter struct {
	httpClient *http.Client

	mu      sync.Mutex
	clients map[string]*openai.Client
}

func NewCompatAdapter(httpClient *http.Client) *CompatAdapter {
	return &CompatAdapter{
		httpClient: httpClient,
		clients:    make(map[string]*openai.Client),
	}
}

func (a *CompatAdapter) client(baseURL string) *openai.Client {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.clients[baseURL]
	if !ok {
		c = newCompatClient(a.httpClient, baseURL)
		a.clients[baseURL] = c
	}
	return c
}

func (a *CompatAdapter) Send(ctx context.Context, target Target, msg Message) (Completion, error) {
	provider := target.Provider()
	if target.Endpoint == nil {
		return Completion{}, ProviderError(provider, "missing endpoint", nil)
	}
	holder := &errorBody{}
	text, err := chatComplete(context.WithValue(ctx, errorBodyKey{}, holder), a.client(target.Endpoint.BaseURL), target.PhysicalModel, target.TokenLimit, msg)
	if err != nil {
		if holder.status != 0 {
			detail := fmt.Sprintf("status %d: %s", holder.status, strings.TrimSpace(string(holder.body)))
			return Completion{}, ProviderError(provider, detail, err)
		}
		return Completion{}, classifyOpenAIError(ctx, provider, err)
	}
	return Completion{
		Text:          text,
		Backend:       SelfHosted,
		Model:         target.Model.Name,
		PhysicalModel: target.PhysicalModel,
		Endpoint:      target.Endpoint.DisplayName,
	}, nil
}
