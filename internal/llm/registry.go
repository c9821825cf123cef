package llm

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// BackendKind identifies which family of backend serves a model.
type BackendKind string

const (
	HostedA    BackendKind = "hosted_a"
	HostedB    BackendKind = "hosted_b"
	SelfHosted BackendKind = "self_hosted"
)

// Label is the provider name used in API payloads and stored records.
func (k BackendKind) Label() string {
	switch k {
	case HostedA:
		return "openai"
	case HostedB:
		return "gemini"
	case SelfHosted:
		return "local"
	default:
		return string(k)
	}
}

// ParseBackend accepts either a kind or its provider label.
func ParseBackend(s string) (BackendKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hosted_a", "openai":
		return HostedA, true
	case "hosted_b", "gemini":
		return HostedB, true
	case "self_hosted", "local", "ollama":
		return SelfHosted, true
	}
	return "", false
}

// ModelDescriptor is an immutable registry entry for a logical model.
type ModelDescriptor struct {
	Name        string
	Kind        BackendKind
	TokenLimit  int
	Aliases     []string
	Default     bool
	DisplayName string
}

// Candidates returns the physical spellings to look for, in priority order.
// A model with no registered aliases is looked up by its literal name.
func (d ModelDescriptor) Candidates() []string {
	if len(d.Aliases) == 0 {
		return []string{d.Name}
	}
	return d.Aliases
}

// Registry is the process-wide, read-only model table.
type Registry struct {
	models   map[string]ModelDescriptor
	defaults map[BackendKind]string
	order    []string
}

// NewRegistry validates descriptors and builds a registry. Every kind
// present must have exactly one default model.
func NewRegistry(descriptors []ModelDescriptor) (*Registry, error) {
	r := &Registry{
		models:   make(map[string]ModelDescriptor, len(descriptors)),
		defaults: make(map[BackendKind]string),
	}
	for _, d := range descriptors {
		if d.Name == "" {
			return nil, errors.New("model descriptor without a name")
		}
		if _, dup := r.models[d.Name]; dup {
			return nil, fmt.Errorf("duplicate model %q", d.Name)
		}
		switch d.Kind {
		case HostedA, HostedB, SelfHosted:
		default:
			return nil, fmt.Errorf("model %q: unknown backend kind %q", d.Name, d.Kind)
		}
		if d.TokenLimit <= 0 {
			return nil, fmt.Errorf("model %q: token limit must be positive", d.Name)
		}
		if d.Default {
			if prev, ok := r.defaults[d.Kind]; ok {
				return nil, fmt.Errorf("backend %s has two defaults: %q and %q", d.Kind, prev, d.Name)
			}
			r.defaults[d.Kind] = d.Name
		}
		d.Aliases = append([]string(nil), d.Aliases...)
		r.models[d.Name] = d
		r.order = append(r.order, d.Name)
	}
	for _, name := range r.order {
		kind := r.models[name].Kind
		if _, ok := r.defaults[kind]; !ok {
			return nil, fmt.Errorf("backend %s has no default model", kind)
		}
	}
	return r, nil
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (ModelDescriptor, bool) {
	d, ok := r.models[name]
	return d, ok
}

// Default returns the default model for kind.
func (r *Registry) Default(kind BackendKind) (ModelDescriptor, bool) {
	name, ok := r.defaults[kind]
	if !ok {
		return ModelDescriptor{}, false
	}
	return r.models[name], true
}

// ByKind lists the models of kind in registration order.
func (r *Registry) ByKind(kind BackendKind) []ModelDescriptor {
	var out []ModelDescriptor
	for _, name := range r.order {
		if d := r.models[name]; d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// Names returns every registered model name, sorted.
func (r *Registry) Names() []string {
	names := append([]string(nil), r.order...)
	sort.Strings(names)
	return names
}

const (
	hostedTokenLimit = 8192
	localTokenLimit  = 4096
)

// DefaultModels is the built-in model table.
func DefaultModels() []ModelDescriptor {
	return []ModelDescriptor{
		{Name: "gpt-4.1", Kind: HostedA, TokenLimit: hostedTokenLimit, Default: true, DisplayName: "OpenAI GPT-4.1"},
		{Name: "gpt-4o", Kind: HostedA, TokenLimit: hostedTokenLimit, DisplayName: "OpenAI GPT-4o"},
		{Name: "gpt-4o-mini", Kind: HostedA, TokenLimit: hostedTokenLimit, DisplayName: "OpenAI GPT-4o mini"},
		{Name: "gpt-3.5-turbo", Kind: HostedA, TokenLimit: hostedTokenLimit, DisplayName: "OpenAI GPT-3.5 Turbo"},

		{Name: "gemini-2.5-pro-preview-05-06", Kind: HostedB, TokenLimit: hostedTokenLimit, Default: true, DisplayName: "Google Gemini 2.5 Pro"},
		{Name: "gemini-1.5-pro", Kind: HostedB, TokenLimit: hostedTokenLimit, DisplayName: "Google Gemini 1.5 Pro"},
		{Name: "gemini-2.0-flash", Kind: HostedB, TokenLimit: hostedTokenLimit, DisplayName: "Google Gemini 2.0 Flash"},

		{
			Name: "llama3.1:8b", Kind: SelfHosted, TokenLimit: localTokenLimit, Default: true, DisplayName: "Llama 3.1 8B",
			Aliases: []string{"llama3.1:8b", "llama3.1:latest", "llama3.1", "meta-llama-3.1-8b-instruct", "llama-3.1-8b-instruct"},
		},
		{
			Name: "codellama:7b", Kind: SelfHosted, TokenLimit: localTokenLimit, DisplayName: "Code Llama 7B",
			Aliases: []string{"codellama:7b", "codellama:latest", "codellama", "codellama-7b-instruct"},
		},
		{
			Name: "mistral:7b", Kind: SelfHosted, TokenLimit: localTokenLimit, DisplayName: "Mistral 7B",
			Aliases: []string{"mistral:7b", "mistral:latest", "mistral", "mistral-7b-instruct-v0.3"},
		},
		{
			Name: "qwen2.5-coder:7b", Kind: SelfHosted, TokenLimit: localTokenLimit, DisplayName: "Qwen 2.5 Coder 7B",
			Aliases: []string{"qwen2.5-coder:7b", "qwen2.5-coder:latest", "qwen2.5-coder-7b-instruct"},
		},
		{Name: "deepseek-coder:6.7b", Kind: SelfHosted, TokenLimit: localTokenLimit, DisplayName: "DeepSeek Coder 6.7B"},
		{Name: "phi3:mini", Kind: SelfHosted, TokenLimit: localTokenLimit, DisplayName: "Phi-3 Mini"},
	}
}

// DefaultRegistry builds the registry from DefaultModels.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultModels())
	if err != nil {
		panic(fmt.Sprintf("llm: invalid built-in model table: %v", err))
	}
	return r
}
