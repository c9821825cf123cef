package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMsg = Message{System: "be a web developer", User: "build a bakery site"}

const chatCompletionJSON = `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"m",
"choices":[{"index":0,"message":{"role":"assistant","content":"=== FILE: index.html ===\n<h1>Bakery</h1>"},"finish_reason":"stop"}]}`

func hostedTarget(kind BackendKind, model string) Target {
	d, _ := DefaultRegistry().Lookup(model)
	return Target{Model: d, Kind: kind, PhysicalModel: model, TokenLimit: d.TokenLimit}
}

func TestOpenAIAdapterSendsRoleMessages(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatCompletionJSON))
	}))
	defer srv.Close()

	a := NewOpenAIAdapter("sk-test", srv.URL+"/v1", srv.Client())
	out, err := a.Send(context.Background(), hostedTarget(HostedA, "gpt-4.1"), testMsg)
	require.NoError(t, err)
	assert.Equal(t, "=== FILE: index.html ===\n<h1>Bakery</h1>", out.Text)
	assert.Equal(t, HostedA, out.Backend)
	assert.Equal(t, "gpt-4.1", out.Model)

	assert.Equal(t, "gpt-4.1", got["model"])
	assert.EqualValues(t, hostedTokenLimit, got["max_tokens"])
	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
}

func TestOpenAIAdapterMissingCredential(t *testing.T) {
	a := NewOpenAIAdapter("", "", nil)
	_, err := a.Send(context.Background(), hostedTarget(HostedA, "gpt-4.1"), testMsg)
	assert.Equal(t, KindMissingCredential, KindOf(err))
}

func TestOpenAIAdapterProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"model overloaded","type":"server_error"}}`))
	}))
	defer srv.Close()

	a := NewOpenAIAdapter("sk-test", srv.URL+"/v1", srv.Client())
	_, err := a.Send(context.Background(), hostedTarget(HostedA, "gpt-4.1"), testMsg)
	require.Error(t, err)
	assert.Equal(t, KindProviderError, KindOf(err))
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestOpenAIAdapterTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	a := NewOpenAIAdapter("sk-test", srv.URL+"/v1", srv.Client())
	_, err := a.Send(ctx, hostedTarget(HostedA, "gpt-4.1"), testMsg)
	require.Error(t, err)
	assert.Equal(t, KindTimeout, KindOf(err))
	assert.Equal(t, "Timeout: openai took too long to respond. Please try again.", err.Error())
}

func TestCompatAdapterIncludesBodyOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	d, _ := DefaultRegistry().Lookup("mistral:7b")
	target := Target{
		Model: d, Kind: SelfHosted, PhysicalModel: "mistral-7b-instruct-v0.3", TokenLimit: d.TokenLimit,
		Endpoint: &BackendEndpoint{DisplayName: "LM Studio", BaseURL: srv.URL, Protocol: OpenAIChat},
	}
	_, err := NewCompatAdapter(srv.Client()).Send(context.Background(), target, testMsg)
	require.Error(t, err)
	assert.Equal(t, KindProviderError, KindOf(err))
	assert.Contains(t, err.Error(), "upstream exploded")
	assert.Contains(t, err.Error(), "502")
}

func TestCompatAdapterChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "mistral-7b-instruct-v0.3", req.Model)
		if assert.Len(t, req.Messages, 2) {
			assert.Equal(t, testMsg.System, req.Messages[0].Content)
			assert.Equal(t, testMsg.User, req.Messages[1].Content)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatCompletionJSON))
	}))
	defer srv.Close()

	d, _ := DefaultRegistry().Lookup("mistral:7b")
	target := Target{
		Model: d, Kind: SelfHosted, PhysicalModel: "mistral-7b-instruct-v0.3", TokenLimit: d.TokenLimit,
		Endpoint: &BackendEndpoint{DisplayName: "LM Studio", BaseURL: srv.URL, Protocol: OpenAIChat},
	}
	out, err := NewCompatAdapter(srv.Client()).Send(context.Background(), target, testMsg)
	require.NoError(t, err)
	assert.Equal(t, SelfHosted, out.Backend)
	assert.Equal(t, "LM Studio", out.Endpoint)
	assert.Contains(t, out.Text, "<h1>Bakery</h1>")
}

func TestOllamaAdapterFramesPrompt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var req api.GenerateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.1:latest", req.Model)
		if assert.NotNil(t, req.Stream) {
			assert.False(t, *req.Stream)
		}
		assert.Equal(t, "System: be a web developer\n\nUser: build a bakery site\n\nAssistant:", req.Prompt)
		assert.EqualValues(t, nativeTemperature, req.Options["temperature"])
		_, _ = w.Write([]byte(`{"model":"llama3.1:latest","response":"hello from llama","done":true}`))
	}))
	defer srv.Close()

	d, _ := DefaultRegistry().Lookup("llama3.1:8b")
	target := Target{
		Model: d, Kind: SelfHosted, PhysicalModel: "llama3.1:latest", TokenLimit: d.TokenLimit,
		Endpoint: &BackendEndpoint{DisplayName: "Ollama", BaseURL: srv.URL, Protocol: NativeGenerate},
	}
	out, err := NewOllamaAdapter(srv.Client()).Send(context.Background(), target, testMsg)
	require.NoError(t, err)
	assert.Equal(t, "hello from llama", out.Text)
	assert.Equal(t, "llama3.1:8b", out.Model)
	assert.Equal(t, "llama3.1:latest", out.PhysicalModel)
}

func TestOllamaAdapterNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	d, _ := DefaultRegistry().Lookup("llama3.1:8b")
	target := Target{
		Model: d, Kind: SelfHosted, PhysicalModel: "llama3.1:8b", TokenLimit: d.TokenLimit,
		Endpoint: &BackendEndpoint{DisplayName: "Ollama", BaseURL: srv.URL, Protocol: NativeGenerate},
	}
	_, err := NewOllamaAdapter(nil).Send(context.Background(), target, testMsg)
	require.Error(t, err)
	assert.Equal(t, KindProviderError, KindOf(err))
	assert.Contains(t, err.Error(), "model not found")
}

func TestOllamaAdapterTimeoutAndClientReuse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	d, _ := DefaultRegistry().Lookup("llama3.1:8b")
	target := Target{
		Model: d, Kind: SelfHosted, PhysicalModel: "llama3.1:8b", TokenLimit: d.TokenLimit,
		Endpoint: &BackendEndpoint{DisplayName: "Ollama", BaseURL: srv.URL, Protocol: NativeGenerate},
	}
	a := NewOllamaAdapter(srv.Client())
	for i := 0; i < 2; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		_, err := a.Send(ctx, target, testMsg)
		cancel()
		require.Error(t, err)
		assert.Equal(t, KindTimeout, KindOf(err))
	}
	assert.Len(t, a.clients, 1)
}

func TestGeminiAdapterMissingCredential(t *testing.T) {
	a := NewGeminiAdapter("", "", nil)
	_, err := a.Send(context.Background(), hostedTarget(HostedB, "gemini-1.5-pro"), testMsg)
	assert.Equal(t, KindMissingCredential, KindOf(err))
	assert.Equal(t, "Gemini API key not found", err.Error())
}

func TestGeminiAdapterGenerateContent(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-1.5-pro:generateContent"), r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":\"```html\\n<p>x</p>\\n```\"}]}}]}"))
	}))
	defer srv.Close()

	a := NewGeminiAdapter("g-key", srv.URL, srv.Client())
	out, err := a.Send(context.Background(), hostedTarget(HostedB, "gemini-1.5-pro"), testMsg)
	require.NoError(t, err)
	assert.Equal(t, "```html\n<p>x</p>\n```", out.Text)
	assert.Equal(t, HostedB, out.Backend)
	assert.Contains(t, body, "systemInstruction")
}

type stubAdapter struct{ name string }

func (s stubAdapter) Send(context.Context, Target, Message) (Completion, error) {
	return Completion{Text: s.name}, nil
}

func TestRouterPicksAdapterByKindAndProtocol(t *testing.T) {
	r := &Router{
		HostedA: stubAdapter{"a"},
		HostedB: stubAdapter{"b"},
		Native:  stubAdapter{"native"},
		Compat:  stubAdapter{"compat"},
	}
	cases := []struct {
		target Target
		want   string
	}{
		{Target{Kind: HostedA}, "a"},
		{Target{Kind: HostedB}, "b"},
		{Target{Kind: SelfHosted, Endpoint: &BackendEndpoint{Protocol: NativeGenerate}}, "native"},
		{Target{Kind: SelfHosted, Endpoint: &BackendEndpoint{Protocol: OpenAIChat}}, "compat"},
	}
	for _, tc := range cases {
		out, err := r.Send(context.Background(), tc.target, testMsg)
		require.NoError(t, err)
		assert.Equal(t, tc.want, out.Text)
	}

	_, err := (&Router{}).Send(context.Background(), Target{Kind: HostedA}, testMsg)
	assert.Equal(t, KindProviderError, KindOf(err))
}
