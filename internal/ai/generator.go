package ai

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"webgen_server/internal/llm"
)

var tracer = otel.Tracer("webgen_server/internal/ai")

// Resolver maps a logical model and backend to a dispatch target.
type Resolver interface {
	Resolve(ctx context.Context, model string, backend llm.BackendKind) (llm.Target, error)
}

// Sender dispatches one prompt to a resolved target.
type Sender interface {
	Send(ctx context.Context, target llm.Target, msg llm.Message) (llm.Completion, error)
}

// Recorder observes generation results. Implemented by the metrics package.
type Recorder interface {
	ObserveGeneration(provider, status string, elapsed time.Duration)
	ObserveExtraction(tier string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveGeneration(string, string, time.Duration) {}
func (nopRecorder) ObserveExtraction(string)                        {}

// Timeouts bound the three deadline layers. Request and Comparison must
// exceed Generation so the inner timeout's message surfaces first.
type Timeouts struct {
	Generation time.Duration
	Request    time.Duration
	Comparison time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Generation: 120 * time.Second,
		Request:    150 * time.Second,
		Comparison: 180 * time.Second,
	}
}

// Generator is the error-containment boundary of the generation pipeline.
// Every public method returns a structured outcome instead of an error.
type Generator struct {
	resolver Resolver
	sender   Sender
	timeouts Timeouts
	logger   *zap.Logger
	recorder Recorder
	now      func() time.Time
	newID    func() string
}

type Option func(*Generator)

func WithTimeouts(t Timeouts) Option { return func(g *Generator) { g.timeouts = t } }

func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(g *Generator) {
		if r != nil {
			g.recorder = r
		}
	}
}

func WithClock(now func() time.Time) Option { return func(g *Generator) { g.now = now } }

func WithIDs(newID func() string) Option { return func(g *Generator) { g.newID = newID } }

func NewGenerator(resolver Resolver, sender Sender, opts ...Option) *Generator {
	g := &Generator{
		resolver: resolver,
		sender:   sender,
		timeouts: DefaultTimeouts(),
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}
