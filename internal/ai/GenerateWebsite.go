package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"webgen_server/internal/ai/parser"
	"webgen_server/internal/ai/prompts"
	"webgen_server/internal/llm"
	"webgen_server/internal/types"
	"webgen_server/internal/utils"
)

// GenerationRequest is one call's input. An empty Model selects the
// backend's default model.
type GenerationRequest struct {
	Prompt   string
	SiteType prompts.SiteType
	Backend  llm.BackendKind
	Model    string
}

// plan is everything run needs to dispatch and label one generation.
type plan struct {
	prompt         string
	enhancedPrompt string
	system         string
	siteType       prompts.SiteType
	backend        llm.BackendKind
	model          string
}

// GenerateWebsite enriches the prompt, dispatches it to the chosen backend
// and extracts the resulting files. Failures come back as Success=false.
func (g *Generator) GenerateWebsite(ctx context.Context, req GenerationRequest) *types.GenerationOutcome {
	ctx, span := tracer.Start(ctx, "ai.GenerateWebsite")
	defer span.End()
	span.SetAttributes(attribute.String("backend", string(req.Backend)), attribute.String("model", req.Model))

	siteType := prompts.ParseSiteType(string(req.SiteType))
	return g.run(ctx, plan{
		prompt:         req.Prompt,
		enhancedPrompt: prompts.GetSiteGenerationPrompt(req.Prompt, siteType),
		system:         prompts.GetSystemPrompt(),
		siteType:       siteType,
		backend:        req.Backend,
		model:          req.Model,
	}, g.timeouts.Request)
}

type dispatchResult struct {
	target     llm.Target
	completion llm.Completion
	err        error
}

func (g *Generator) run(ctx context.Context, p plan, deadline time.Duration) *types.GenerationOutcome {
	started := g.now()
	outcome := &types.GenerationOutcome{
		SessionID:   g.newID(),
		Provider:    p.backend.Label(),
		Model:       p.model,
		WebsiteType: string(p.siteType),
		StartedAt:   started,
	}

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	done := make(chan dispatchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- dispatchResult{err: llm.ProviderError(p.backend.Label(), fmt.Sprintf("internal error: %v", r), nil)}
			}
		}()
		done <- g.dispatch(ctx, p)
	}()

	var res dispatchResult
	select {
	case res = <-done:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			res.err = llm.DeadlineExceeded(outcome.Provider, fmt.Sprintf("request exceeded %s deadline", deadline))
		} else {
			res.err = llm.ProviderError(outcome.Provider, "request cancelled", ctx.Err())
		}
	}

	finished := g.now()
	outcome.FinishedAt = finished
	elapsed := finished.Sub(started)

	if res.target.Kind != "" {
		outcome.Provider = res.target.Kind.Label()
		outcome.Model = res.target.Model.Name
	}

	if res.err != nil {
		outcome.Success = false
		outcome.Error = res.err.Error()
		outcome.ErrorKind = string(llm.KindOf(res.err))
		if outcome.ErrorKind == "" {
			outcome.ErrorKind = "internal"
		}
		g.recorder.ObserveGeneration(outcome.Provider, outcome.ErrorKind, elapsed)
		g.logger.Error("generation failed",
			zap.String("backend", outcome.Provider),
			zap.String("model", outcome.Model),
			zap.String("error_kind", outcome.ErrorKind),
			zap.Bool("transient", utils.IsTransient(res.err)),
			zap.Duration("duration", elapsed),
			zap.Error(res.err))
		return outcome
	}

	files, tier := parser.ExtractWithTier(res.completion.Text)
	g.recorder.ObserveExtraction(string(tier))
	if tier == parser.TierFallback || tier == parser.TierEmergency {
		g.logger.Warn("completion did not follow the file grammar",
			zap.String("backend", outcome.Provider),
			zap.String("tier", string(tier)))
	}

	outcome.Success = true
	outcome.Files = files
	outcome.Metadata = &types.GenerationMetadata{
		GeneratedAt:    finished,
		Prompt:         p.prompt,
		EnhancedPrompt: p.enhancedPrompt,
		Provider:       outcome.Provider,
		Model:          outcome.Model,
		PhysicalModel:  res.completion.PhysicalModel,
		Endpoint:       res.completion.Endpoint,
		WebsiteType:    string(p.siteType),
		DurationMS:     elapsed.Milliseconds(),
	}
	g.recorder.ObserveGeneration(outcome.Provider, "success", elapsed)
	g.logger.Info("generation finished",
		zap.String("backend", outcome.Provider),
		zap.String("model", outcome.Model),
		zap.String("physical_model", res.completion.PhysicalModel),
		zap.String("tier", string(tier)),
		zap.Int("files", len(files)),
		zap.Duration("duration", elapsed))
	return outcome
}

// dispatch resolves the target and sends the prompt under the inner timeout.
func (g *Generator) dispatch(ctx context.Context, p plan) dispatchResult {
	target, err := g.resolver.Resolve(ctx, p.model, p.backend)
	if err != nil {
		return dispatchResult{err: err}
	}
	g.logger.Info("generation started",
		zap.String("backend", target.Kind.Label()),
		zap.String("model", target.Model.Name),
		zap.String("physical_model", target.PhysicalModel))

	innerCtx, cancel := context.WithTimeout(ctx, g.timeouts.Generation)
	defer cancel()

	completion, err := g.sender.Send(innerCtx, target, llm.Message{System: p.system, User: p.enhancedPrompt})
	if err != nil && llm.KindOf(err) != llm.KindTimeout && errors.Is(innerCtx.Err(), context.DeadlineExceeded) {
		err = llm.Timeout(target.Provider(), err)
	}
	return dispatchResult{target: target, completion: completion, err: err}
}
