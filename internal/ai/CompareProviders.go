package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"webgen_server/internal/ai/prompts"
	"webgen_server/internal/llm"
	"webgen_server/internal/types"
)

// ComparisonBackends are the two backends comparison mode always runs.
var ComparisonBackends = []llm.BackendKind{llm.HostedA, llm.HostedB}

// CompareProviders runs the prompt against every comparison backend's
// default model concurrently. A failed side is recorded in its own result;
// the comparison itself only fails when the join does not complete in time.
func (g *Generator) CompareProviders(ctx context.Context, prompt string, siteType prompts.SiteType) *types.ComparisonOutcome {
	ctx, span := tracer.Start(ctx, "ai.CompareProviders")
	defer span.End()

	siteType = prompts.ParseSiteType(string(siteType))
	out := &types.ComparisonOutcome{
		ComparisonID:   g.newID(),
		OriginalPrompt: prompt,
		WebsiteType:    string(siteType),
	}
	span.SetAttributes(attribute.String("comparison_id", out.ComparisonID))

	ctx, cancel := context.WithTimeout(ctx, g.timeouts.Comparison)
	defer cancel()

	var mu sync.Mutex
	collected := make(map[string]*types.GenerationOutcome, len(ComparisonBackends))
	eg, egCtx := errgroup.WithContext(ctx)
	for _, backend := range ComparisonBackends {
		eg.Go(func() error {
			res := g.run(egCtx, plan{
				prompt:         prompt,
				enhancedPrompt: prompts.GetSiteGenerationPrompt(prompt, siteType),
				system:         prompts.GetSystemPrompt(),
				siteType:       siteType,
				backend:        backend,
			}, g.timeouts.Request)
			mu.Lock()
			collected[backend.Label()] = res
			mu.Unlock()
			return nil
		})
	}

	joined := make(chan struct{})
	go func() {
		_ = eg.Wait()
		close(joined)
	}()

	select {
	case <-joined:
		out.Success = true
	case <-ctx.Done():
		reason := "comparison cancelled"
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = fmt.Sprintf("Timeout: comparison exceeded %s deadline", g.timeouts.Comparison)
		}
		out.Error = reason
		g.logger.Error("comparison did not complete", zap.String("comparison_id", out.ComparisonID), zap.String("reason", reason))
	}
	out.GeneratedAt = g.now()

	// copy under the lock: stragglers may still write after a timeout
	mu.Lock()
	results := make(map[string]*types.GenerationOutcome, len(collected))
	for k, v := range collected {
		results[k] = v
	}
	mu.Unlock()
	out.Results = results

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	g.logger.Info("comparison finished",
		zap.String("comparison_id", out.ComparisonID),
		zap.Bool("joined", out.Success),
		zap.Int("succeeded", succeeded),
		zap.Int("results", len(results)))
	return out
}
