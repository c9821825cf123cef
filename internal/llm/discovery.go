package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("webgen_server/internal/llm")

// DefaultProbeTimeout bounds a single capability probe.
const DefaultProbeTimeout = 5 * time.Second

// Target is a fully resolved dispatch destination.
type Target struct {
	Model         ModelDescriptor
	Kind          BackendKind
	PhysicalModel string
	TokenLimit    int
	Endpoint      *BackendEndpoint // nil for hosted backends
}

// Provider is the label used in errors and metadata.
func (t Target) Provider() string {
	if t.Endpoint != nil {
		return t.Kind.Label() + " (" + t.Endpoint.DisplayName + ")"
	}
	return t.Kind.Label()
}

// Prober lists the model names an endpoint currently serves.
type Prober interface {
	ListModels(ctx context.Context, ep BackendEndpoint) ([]string, error)
}

// HTTPProber probes endpoints over their own wire protocol.
type HTTPProber struct {
	Client *http.Client
}

func (p HTTPProber) ListModels(ctx context.Context, ep BackendEndpoint) ([]string, error) {
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	switch ep.Protocol {
	case NativeGenerate:
		return listOllamaModels(ctx, client, ep.BaseURL)
	case OpenAIChat:
		return listCompatModels(ctx, client, ep.BaseURL)
	default:
		return nil, fmt.Errorf("unknown wire protocol %q", ep.Protocol)
	}
}

// Resolver maps a logical model name to a Target, probing local servers
// for self-hosted models.
type Resolver struct {
	registry     *Registry
	endpoints    []BackendEndpoint
	prober       Prober
	probeTimeout time.Duration
	logger       *zap.Logger

	// OnProbe, when set, observes every probe result.
	OnProbe func(ep BackendEndpoint, err error)
}

func NewResolver(registry *Registry, endpoints []BackendEndpoint, prober Prober, probeTimeout time.Duration, logger *zap.Logger) *Resolver {
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		registry:     registry,
		endpoints:    append([]BackendEndpoint(nil), endpoints...),
		prober:       prober,
		probeTimeout: probeTimeout,
		logger:       logger,
	}
}

// Registry exposes the model table the resolver was built with.
func (r *Resolver) Registry() *Registry { return r.registry }

// Endpoints returns a copy of the probe list.
func (r *Resolver) Endpoints() []BackendEndpoint {
	return append([]BackendEndpoint(nil), r.endpoints...)
}

// Resolve picks the descriptor for model (or backend's default when model is
// empty). An empty backend means "whatever backend serves model".
func (r *Resolver) Resolve(ctx context.Context, model string, backend BackendKind) (Target, error) {
	ctx, span := tracer.Start(ctx, "llm.Resolve")
	defer span.End()
	span.SetAttributes(attribute.String("model", model), attribute.String("backend", string(backend)))

	var (
		desc ModelDescriptor
		ok   bool
	)
	if model == "" {
		desc, ok = r.registry.Default(backend)
		if !ok {
			return Target{}, UnsupportedModel(model, fmt.Sprintf("no default model for backend %q", backend))
		}
	} else {
		desc, ok = r.registry.Lookup(model)
		if !ok {
			return Target{}, UnsupportedModel(model, "")
		}
		if backend != "" && desc.Kind != backend {
			return Target{}, UnsupportedModel(model, "not served by "+backend.Label())
		}
	}

	if desc.Kind != SelfHosted {
		return Target{
			Model:         desc,
			Kind:          desc.Kind,
			PhysicalModel: desc.Name,
			TokenLimit:    desc.TokenLimit,
		}, nil
	}
	return r.discover(ctx, desc)
}

func (r *Resolver) discover(ctx context.Context, desc ModelDescriptor) (Target, error) {
	candidates := desc.Candidates()
	for i := range r.endpoints {
		ep := r.endpoints[i]
		available := r.probe(ctx, ep)
		if len(available) == 0 {
			continue
		}
		served := make(map[string]struct{}, len(available))
		for _, name := range available {
			served[name] = struct{}{}
		}
		for _, alias := range candidates {
			if _, ok := served[alias]; ok {
				r.logger.Info("resolved local model",
					zap.String("model", desc.Name),
					zap.String("physical_model", alias),
					zap.String("endpoint", ep.DisplayName),
					zap.String("url", ep.BaseURL))
				return Target{
					Model:         desc,
					Kind:          SelfHosted,
					PhysicalModel: alias,
					TokenLimit:    desc.TokenLimit,
					Endpoint:      &ep,
				}, nil
			}
		}
	}
	return Target{}, NoLocalBackendAvailable(desc.Name, SupportedPlatforms())
}

// probe never fails: unreachable or misbehaving endpoints report no models.
func (r *Resolver) probe(ctx context.Context, ep BackendEndpoint) (models []string) {
	probeCtx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()

	var err error
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("probe panicked: %v", rec)
			models = nil
		}
		if err != nil {
			r.logger.Warn("local endpoint probe failed",
				zap.String("endpoint", ep.DisplayName),
				zap.String("url", ep.BaseURL),
				zap.Error(err))
		}
		if r.OnProbe != nil {
			r.OnProbe(ep, err)
		}
	}()

	models, err = r.prober.ListModels(probeCtx, ep)
	if err != nil {
		return nil
	}
	return models
}
