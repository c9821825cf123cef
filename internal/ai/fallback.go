package ai

import (
	"context"

	"webgen_server/internal/llm"
	"webgen_server/internal/types"
)

// Candidate is one (backend, model) pair in a fallback chain. An empty
// Model selects the backend's default.
type Candidate struct {
	Backend llm.BackendKind `json:"provider"`
	Model   string          `json:"model,omitempty"`
}

// Attempt records how one candidate fared.
type Attempt struct {
	Candidate
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// FallbackChain is an ordered list of candidates tried in turn until one
// succeeds.
type FallbackChain []Candidate

// Run calls try for each candidate and stops at the first success. It
// returns the last outcome produced together with every attempt made.
func (c FallbackChain) Run(ctx context.Context, try func(context.Context, Candidate) *types.GenerationOutcome) (*types.GenerationOutcome, []Attempt) {
	var (
		last     *types.GenerationOutcome
		attempts = make([]Attempt, 0, len(c))
	)
	for _, cand := range c {
		if ctx.Err() != nil {
			break
		}
		last = try(ctx, cand)
		attempts = append(attempts, Attempt{
			Candidate: cand,
			Success:   last.Success,
			Error:     last.Error,
			ErrorKind: last.ErrorKind,
		})
		if last.Success {
			break
		}
	}
	if last == nil {
		last = &types.GenerationOutcome{Error: "no fallback candidate was attempted", ErrorKind: string(llm.KindProviderError)}
		if err := ctx.Err(); err != nil {
			last.Error = err.Error()
		}
	}
	return last, attempts
}

// DefaultEnhancementChain starts with the requested pair, then tries the
// local default and finally the hosted backend the caller did not pick. A
// local primary falls back to both hosted backends.
func DefaultEnhancementChain(primary Candidate) FallbackChain {
	switch primary.Backend {
	case llm.HostedB:
		return FallbackChain{primary, {Backend: llm.SelfHosted}, {Backend: llm.HostedA}}
	case llm.SelfHosted:
		return FallbackChain{primary, {Backend: llm.HostedA}, {Backend: llm.HostedB}}
	default:
		primary.Backend = llm.HostedA
		return FallbackChain{primary, {Backend: llm.SelfHosted}, {Backend: llm.HostedB}}
	}
}
