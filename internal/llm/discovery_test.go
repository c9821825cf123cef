package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeProber struct {
	mu     sync.Mutex
	models map[string][]string
	errs   map[string]error
	calls  []string
}

func (f *fakeProber) ListModels(ctx context.Context, ep BackendEndpoint) ([]string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, ep.DisplayName)
	f.mu.Unlock()
	if err := f.errs[ep.DisplayName]; err != nil {
		return nil, err
	}
	return f.models[ep.DisplayName], nil
}

func newTestResolver(t *testing.T, p Prober) *Resolver {
	t.Helper()
	return NewResolver(DefaultRegistry(), DefaultEndpoints(), p, time.Second, zaptest.NewLogger(t))
}

func TestResolveHostedIsLocal(t *testing.T) {
	p := &fakeProber{}
	r := newTestResolver(t, p)

	target, err := r.Resolve(context.Background(), "", HostedA)
	require.NoError(t, err)
	assert.Equal(t, HostedA, target.Kind)
	assert.Equal(t, "gpt-4.1", target.PhysicalModel)
	assert.Equal(t, hostedTokenLimit, target.TokenLimit)
	assert.Nil(t, target.Endpoint)

	target, err = r.Resolve(context.Background(), "gemini-1.5-pro", HostedB)
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-pro", target.PhysicalModel)

	assert.Empty(t, p.calls)
}

func TestResolveUnsupportedModel(t *testing.T) {
	r := newTestResolver(t, &fakeProber{})

	_, err := r.Resolve(context.Background(), "made-up-model-xyz", HostedA)
	require.Error(t, err)
	assert.Equal(t, KindUnsupportedModel, KindOf(err))
	assert.Contains(t, err.Error(), "made-up-model-xyz")
}

func TestResolveRejectsModelOfOtherBackend(t *testing.T) {
	r := newTestResolver(t, &fakeProber{})

	_, err := r.Resolve(context.Background(), "gpt-4o", HostedB)
	assert.Equal(t, KindUnsupportedModel, KindOf(err))
}

func TestResolveLocalFirstAliasInOrderWins(t *testing.T) {
	p := &fakeProber{
		errs: map[string]error{"Ollama": errors.New("connection refused")},
		models: map[string][]string{
			"LM Studio": {"llama3.1", "llama-3.1-8b-instruct"},
			"LocalAI":   {"llama3.1:8b"},
		},
	}
	r := newTestResolver(t, p)

	for i := 0; i < 3; i++ {
		target, err := r.Resolve(context.Background(), "llama3.1:8b", SelfHosted)
		require.NoError(t, err)
		assert.Equal(t, "llama3.1", target.PhysicalModel)
		require.NotNil(t, target.Endpoint)
		assert.Equal(t, "LM Studio", target.Endpoint.DisplayName)
		assert.Equal(t, OpenAIChat, target.Endpoint.Protocol)
	}
}

func TestResolveLocalDefaultModel(t *testing.T) {
	p := &fakeProber{models: map[string][]string{"Ollama": {"llama3.1:latest"}}}
	r := newTestResolver(t, p)

	target, err := r.Resolve(context.Background(), "", SelfHosted)
	require.NoError(t, err)
	assert.Equal(t, "llama3.1:8b", target.Model.Name)
	assert.Equal(t, "llama3.1:latest", target.PhysicalModel)
	assert.Equal(t, []string{"Ollama"}, p.calls)
}

func TestResolveLocalLiteralNameWithoutAliases(t *testing.T) {
	p := &fakeProber{models: map[string][]string{"LocalAI": {"phi3:mini"}}}
	r := newTestResolver(t, p)

	target, err := r.Resolve(context.Background(), "phi3:mini", SelfHosted)
	require.NoError(t, err)
	assert.Equal(t, "phi3:mini", target.PhysicalModel)
	assert.Equal(t, "LocalAI", target.Endpoint.DisplayName)
}

func TestResolveDiscoveryExhausted(t *testing.T) {
	p := &fakeProber{
		errs: map[string]error{
			"Ollama":  errors.New("connection refused"),
			"LocalAI": context.DeadlineExceeded,
		},
		models: map[string][]string{"LM Studio": {"some-other-model"}},
	}
	var observed []string
	r := newTestResolver(t, p)
	r.OnProbe = func(ep BackendEndpoint, err error) { observed = append(observed, ep.DisplayName) }

	_, err := r.Resolve(context.Background(), "mistral:7b", SelfHosted)
	require.Error(t, err)
	assert.Equal(t, KindNoLocalBackend, KindOf(err))
	for _, platform := range []string{"Ollama", "LM Studio", "LocalAI", "Text Generation WebUI"} {
		assert.Contains(t, err.Error(), platform)
	}
	assert.Len(t, p.calls, 4)
	assert.Len(t, observed, 4)
}

type panickyProber struct{}

func (panickyProber) ListModels(context.Context, BackendEndpoint) ([]string, error) {
	panic("bad decoder")
}

func TestResolveProbePanicIsSoft(t *testing.T) {
	r := newTestResolver(t, panickyProber{})

	_, err := r.Resolve(context.Background(), "mistral:7b", SelfHosted)
	assert.Equal(t, KindNoLocalBackend, KindOf(err))
}

func TestHTTPProberSpeaksEachProtocol(t *testing.T) {
	ollama := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3.1:8b","model":"llama3.1:8b"},{"name":"mistral:latest"}]}`))
	}))
	defer ollama.Close()

	compat := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"qwen2.5-coder-7b-instruct","object":"model"}]}`))
	}))
	defer compat.Close()

	p := HTTPProber{Client: http.DefaultClient}

	models, err := p.ListModels(context.Background(), BackendEndpoint{DisplayName: "Ollama", BaseURL: ollama.URL, Protocol: NativeGenerate})
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3.1:8b", "mistral:latest"}, models)

	models, err = p.ListModels(context.Background(), BackendEndpoint{DisplayName: "LM Studio", BaseURL: compat.URL, Protocol: OpenAIChat})
	require.NoError(t, err)
	assert.Equal(t, []string{"qwen2.5-coder-7b-instruct"}, models)
}

func TestProbeTimeoutMovesToNextEndpoint(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	fast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"models":[{"name":"codellama:7b"}]}`))
	}))
	defer fast.Close()

	eps := []BackendEndpoint{
		{DisplayName: "Slow", BaseURL: slow.URL, Protocol: NativeGenerate},
		{DisplayName: "Fast", BaseURL: fast.URL, Protocol: NativeGenerate},
	}
	r := NewResolver(DefaultRegistry(), eps, HTTPProber{}, 50*time.Millisecond, zaptest.NewLogger(t))

	target, err := r.Resolve(context.Background(), "codellama:7b", SelfHosted)
	require.NoError(t, err)
	assert.Equal(t, "Fast", target.Endpoint.DisplayName)
}
