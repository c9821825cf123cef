package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// GeminiAdapter talks to the hosted Gemini API. The genai client is built on
// first use so a missing key only fails the calls that need it.
type GeminiAdapter struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	mu  sync.Mutex
	cli *genai.Client
}

func NewGeminiAdapter(apiKey, baseURL string, httpClient *http.Client) *GeminiAdapter {
	return &GeminiAdapter{apiKey: apiKey, baseURL: baseURL, httpClient: httpClient}
}

func (a *GeminiAdapter) client(ctx context.Context) (*genai.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cli != nil {
		return a.cli, nil
	}
	cfg := &genai.ClientConfig{
		APIKey:     a.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: a.httpClient,
	}
	if a.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: a.baseURL}
	}
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.cli = cli
	return cli, nil
}

func (a *GeminiAdapter) Send(ctx context.Context, target Target, msg Message) (Completion, error) {
	provider := HostedB.Label()
	if a.apiKey == "" {
		return Completion{}, MissingCredential("Gemini")
	}
	cli, err := a.client(ctx)
	if err != nil {
		return Completion{}, ProviderError(provider, "create client: "+err.Error(), err)
	}

	resp, err := cli.Models.GenerateContent(ctx, target.PhysicalModel,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: msg.User}}}},
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: msg.System}}},
			MaxOutputTokens:   int32(target.TokenLimit),
			Temperature:       genai.Ptr[float32](0.7),
		},
	)
	if err != nil {
		return Completion{}, classifyTransport(ctx, provider, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return Completion{}, ProviderError(provider, "response contained no candidates", errors.New("empty response"))
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return Completion{
		Text:          sb.String(),
		Backend:       HostedB,
		Model:         target.Model.Name,
		PhysicalModel: target.PhysicalModel,
	}, nil
}
