package ai

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"webgen_server/internal/ai/prompts"
	"webgen_server/internal/llm"
)

const bundleText = "=== FILE: index.html ===\n<h1>Hi</h1>\n\n=== FILE: styles.css ===\nbody{}\n\n=== END FILES ===\n"

type fakeResolver struct {
	registry *llm.Registry
	err      map[llm.BackendKind]error
}

func (f fakeResolver) Resolve(_ context.Context, model string, backend llm.BackendKind) (llm.Target, error) {
	if err := f.err[backend]; err != nil {
		return llm.Target{}, err
	}
	var (
		desc llm.ModelDescriptor
		ok   bool
	)
	if model == "" {
		desc, ok = f.registry.Default(backend)
	} else {
		desc, ok = f.registry.Lookup(model)
	}
	if !ok {
		return llm.Target{}, llm.UnsupportedModel(model, "")
	}
	return llm.Target{Model: desc, Kind: desc.Kind, PhysicalModel: desc.Name, TokenLimit: desc.TokenLimit}, nil
}

type sendFunc func(ctx context.Context, target llm.Target, msg llm.Message) (llm.Completion, error)

type fakeSender struct {
	mu    sync.Mutex
	calls []llm.Target
	msgs  []llm.Message
	fn    sendFunc
}

func (f *fakeSender) Send(ctx context.Context, target llm.Target, msg llm.Message) (llm.Completion, error) {
	f.mu.Lock()
	f.calls = append(f.calls, target)
	f.msgs = append(f.msgs, msg)
	f.mu.Unlock()
	return f.fn(ctx, target, msg)
}

func reply(text string) sendFunc {
	return func(_ context.Context, target llm.Target, _ llm.Message) (llm.Completion, error) {
		return llm.Completion{Text: text, Backend: target.Kind, Model: target.Model.Name, PhysicalModel: target.PhysicalModel}, nil
	}
}

type recording struct {
	mu          sync.Mutex
	generations []string
	tiers       []string
}

func (r *recording) ObserveGeneration(provider, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generations = append(r.generations, provider+"/"+status)
}

func (r *recording) ObserveExtraction(tier string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tiers = append(r.tiers, tier)
}

func newTestGenerator(t *testing.T, resolver Resolver, sender Sender, opts ...Option) *Generator {
	t.Helper()
	var n atomic.Int64
	base := []Option{
		WithLogger(zaptest.NewLogger(t)),
		WithIDs(func() string {
			return "id-" + strconv.FormatInt(n.Add(1), 10)
		}),
	}
	return NewGenerator(resolver, sender, append(base, opts...)...)
}

func TestGenerateWebsiteSuccess(t *testing.T) {
	sender := &fakeSender{fn: reply(bundleText)}
	rec := &recording{}
	g := newTestGenerator(t, fakeResolver{registry: llm.DefaultRegistry()}, sender, WithRecorder(rec))

	out := g.GenerateWebsite(context.Background(), GenerationRequest{Prompt: "A bakery", SiteType: prompts.SiteBusiness, Backend: llm.HostedA})
	require.True(t, out.Success, out.Error)

	assert.Equal(t, "id-1", out.SessionID)
	assert.Equal(t, "openai", out.Provider)
	assert.Equal(t, "gpt-4.1", out.Model)
	assert.Equal(t, map[string]string{"index.html": "<h1>Hi</h1>", "styles.css": "body{}"}, map[string]string(out.Files))

	require.NotNil(t, out.Metadata)
	assert.Equal(t, "A bakery", out.Metadata.Prompt)
	assert.Equal(t, "business", out.Metadata.WebsiteType)
	assert.Equal(t, "gpt-4.1", out.Metadata.PhysicalModel)
	assert.Contains(t, out.Metadata.EnhancedPrompt, "A bakery")

	require.Len(t, sender.msgs, 1)
	assert.Equal(t, prompts.GetSystemPrompt(), sender.msgs[0].System)
	assert.Equal(t, prompts.GetSiteGenerationPrompt("A bakery", prompts.SiteBusiness), sender.msgs[0].User)

	assert.Equal(t, []string{"openai/success"}, rec.generations)
	assert.Equal(t, []string{"delimited"}, rec.tiers)
}

func TestGenerateWebsiteNonConformingReplyStillSucceeds(t *testing.T) {
	g := newTestGenerator(t, fakeResolver{registry: llm.DefaultRegistry()}, &fakeSender{fn: reply("just plain prose")})

	out := g.GenerateWebsite(context.Background(), GenerationRequest{Prompt: "x", Backend: llm.HostedB})
	require.True(t, out.Success)
	require.Len(t, out.Files, 1)
	assert.Contains(t, out.Files["index.html"], "just plain prose")
	assert.Equal(t, "gemini", out.Provider)
	assert.Equal(t, "landing", out.WebsiteType)
}

func TestGenerateWebsiteContainsResolverErrors(t *testing.T) {
	rec := &recording{}
	resolver := fakeResolver{
		registry: llm.DefaultRegistry(),
		err:      map[llm.BackendKind]error{llm.SelfHosted: llm.NoLocalBackendAvailable("llama3.1:8b", llm.SupportedPlatforms())},
	}
	sender := &fakeSender{fn: reply(bundleText)}
	g := newTestGenerator(t, resolver, sender, WithRecorder(rec))

	out := g.GenerateWebsite(context.Background(), GenerationRequest{Prompt: "x", Backend: llm.SelfHosted})
	assert.False(t, out.Success)
	assert.Equal(t, string(llm.KindNoLocalBackend), out.ErrorKind)
	assert.Contains(t, out.Error, "Ollama")
	assert.Empty(t, out.Files)
	assert.Nil(t, out.Metadata)
	assert.Empty(t, sender.calls)
	assert.Equal(t, []string{"local/no_local_backend"}, rec.generations)
}

func TestGenerateWebsiteUnsupportedModel(t *testing.T) {
	g := newTestGenerator(t, fakeResolver{registry: llm.DefaultRegistry()}, &fakeSender{fn: reply(bundleText)})

	out := g.GenerateWebsite(context.Background(), GenerationRequest{Prompt: "x", Backend: llm.HostedA, Model: "made-up-model-xyz"})
	assert.False(t, out.Success)
	assert.Equal(t, string(llm.KindUnsupportedModel), out.ErrorKind)
	assert.Equal(t, "made-up-model-xyz", out.Model)
}

func TestGenerateWebsiteInnerTimeoutSurfaces(t *testing.T) {
	sender := &fakeSender{fn: func(ctx context.Context, _ llm.Target, _ llm.Message) (llm.Completion, error) {
		<-ctx.Done()
		return llm.Completion{}, ctx.Err()
	}}
	g := newTestGenerator(t, fakeResolver{registry: llm.DefaultRegistry()}, sender,
		WithTimeouts(Timeouts{Generation: 20 * time.Millisecond, Request: 2 * time.Second, Comparison: 3 * time.Second}))

	out := g.GenerateWebsite(context.Background(), GenerationRequest{Prompt: "x", Backend: llm.HostedA})
	assert.False(t, out.Success)
	assert.Equal(t, string(llm.KindTimeout), out.ErrorKind)
	assert.Equal(t, "Timeout: openai took too long to respond. Please try again.", out.Error)
}

func TestGenerateWebsiteOuterDeadline(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	sender := &fakeSender{fn: func(context.Context, llm.Target, llm.Message) (llm.Completion, error) {
		<-release
		return llm.Completion{}, nil
	}}
	g := newTestGenerator(t, fakeResolver{registry: llm.DefaultRegistry()}, sender,
		WithTimeouts(Timeouts{Generation: time.Minute, Request: 20 * time.Millisecond, Comparison: time.Minute}))

	out := g.GenerateWebsite(context.Background(), GenerationRequest{Prompt: "x", Backend: llm.HostedA})
	assert.False(t, out.Success)
	assert.Equal(t, string(llm.KindTimeout), out.ErrorKind)
	assert.Contains(t, out.Error, "request exceeded 20ms deadline")
}

func TestGenerateWebsiteRecoversSenderPanic(t *testing.T) {
	sender := &fakeSender{fn: func(context.Context, llm.Target, llm.Message) (llm.Completion, error) {
		panic("boom")
	}}
	g := newTestGenerator(t, fakeResolver{registry: llm.DefaultRegistry()}, sender)

	out := g.GenerateWebsite(context.Background(), GenerationRequest{Prompt: "x", Backend: llm.HostedA})
	assert.False(t, out.Success)
	assert.Equal(t, string(llm.KindProviderError), out.ErrorKind)
	assert.Contains(t, out.Error, "boom")
}

func TestCompareProvidersPartialFailure(t *testing.T) {
	resolver := fakeResolver{
		registry: llm.DefaultRegistry(),
		err:      map[llm.BackendKind]error{llm.HostedA: llm.MissingCredential("OpenAI")},
	}
	g := newTestGenerator(t, resolver, &fakeSender{fn: reply(bundleText)})

	out := g.CompareProviders(context.Background(), "A bakery", prompts.SiteLanding)
	require.True(t, out.Success)
	assert.Equal(t, "A bakery", out.OriginalPrompt)
	assert.NotEmpty(t, out.ComparisonID)
	require.Len(t, out.Results, 2)

	assert.False(t, out.Results["openai"].Success)
	assert.Equal(t, "OpenAI API key not found", out.Results["openai"].Error)
	assert.True(t, out.Results["gemini"].Success)
	assert.Equal(t, "gemini-2.5-pro-preview-05-06", out.Results["gemini"].Model)
}

func TestCompareProvidersRunsConcurrently(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(2)
	sender := &fakeSender{fn: func(ctx context.Context, target llm.Target, msg llm.Message) (llm.Completion, error) {
		wg.Done()
		// each side waits for the other to have started
		waited := make(chan struct{})
		go func() { wg.Wait(); close(waited) }()
		select {
		case <-waited:
		case <-ctx.Done():
			return llm.Completion{}, ctx.Err()
		}
		return reply(bundleText)(ctx, target, msg)
	}}
	g := newTestGenerator(t, fakeResolver{registry: llm.DefaultRegistry()}, sender,
		WithTimeouts(Timeouts{Generation: time.Second, Request: 2 * time.Second, Comparison: 3 * time.Second}))

	out := g.CompareProviders(context.Background(), "x", "")
	require.True(t, out.Success)
	assert.True(t, out.Results["openai"].Success)
	assert.True(t, out.Results["gemini"].Success)
}

func TestEnhanceProjectFallsBack(t *testing.T) {
	sender := &fakeSender{fn: func(ctx context.Context, target llm.Target, msg llm.Message) (llm.Completion, error) {
		if target.Kind == llm.HostedA {
			return llm.Completion{}, llm.ProviderError("openai", "status 503: unavailable", nil)
		}
		return reply(bundleText)(ctx, target, msg)
	}}
	resolver := fakeResolver{
		registry: llm.DefaultRegistry(),
		err:      map[llm.BackendKind]error{llm.SelfHosted: llm.NoLocalBackendAvailable("llama3.1:8b", llm.SupportedPlatforms())},
	}
	g := newTestGenerator(t, resolver, sender)

	res := g.EnhanceProject(context.Background(), EnhanceRequest{
		Files:       map[string]string{"index.html": "<h1>TechCorp</h1>"},
		Instruction: prompts.Instruction{Kind: prompts.KindCustomPrompt, Prompt: "Add testimonials"},
		Chain:       DefaultEnhancementChain(Candidate{Backend: llm.HostedA}),
	})
	require.True(t, res.Outcome.Success)
	assert.Equal(t, "gemini", res.Outcome.Provider)
	assert.Equal(t, "Add testimonials", res.Outcome.Metadata.Prompt)

	require.Len(t, res.Attempts, 3)
	assert.Equal(t, string(llm.KindProviderError), res.Attempts[0].ErrorKind)
	assert.Equal(t, string(llm.KindNoLocalBackend), res.Attempts[1].ErrorKind)
	assert.True(t, res.Attempts[2].Success)

	require.NotEmpty(t, sender.msgs)
	assert.True(t, strings.Contains(sender.msgs[0].User, "=== FILE: index.html ===\n<h1>TechCorp</h1>"))
}

func TestEnhanceProjectStopsAtFirstSuccess(t *testing.T) {
	sender := &fakeSender{fn: reply(bundleText)}
	g := newTestGenerator(t, fakeResolver{registry: llm.DefaultRegistry()}, sender)

	res := g.EnhanceProject(context.Background(), EnhanceRequest{
		Files:       map[string]string{"index.html": "<p>x</p>"},
		Instruction: prompts.Instruction{Kind: prompts.KindChatInteractive, Message: "make it blue"},
	})
	require.True(t, res.Outcome.Success)
	assert.Len(t, res.Attempts, 1)
	assert.Len(t, sender.calls, 1)
	assert.Equal(t, llm.HostedA, sender.calls[0].Kind)
}
