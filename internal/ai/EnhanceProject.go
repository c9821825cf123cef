package ai

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"webgen_server/internal/ai/parser"
	"webgen_server/internal/ai/prompts"
	"webgen_server/internal/llm"
	"webgen_server/internal/types"
)

// EnhanceRequest modifies an existing site. Chain is tried in order; when
// empty, DefaultEnhancementChain(Candidate{}) is used.
type EnhanceRequest struct {
	Files       types.FileBundle
	Instruction prompts.Instruction
	Chain       FallbackChain
	SiteType    prompts.SiteType
}

// EnhanceResult is the final outcome plus the chain's attempt log.
type EnhanceResult struct {
	Outcome  *types.GenerationOutcome
	Attempts []Attempt
}

// EnhanceProject applies an instruction to existing files, walking the
// fallback chain until a backend succeeds.
func (g *Generator) EnhanceProject(ctx context.Context, req EnhanceRequest) EnhanceResult {
	ctx, span := tracer.Start(ctx, "ai.EnhanceProject")
	defer span.End()
	span.SetAttributes(attribute.String("instruction_kind", string(req.Instruction.Kind)))

	chain := req.Chain
	if len(chain) == 0 {
		chain = DefaultEnhancementChain(Candidate{})
	}

	userPrompt, system := prompts.GetSiteCodeChangePrompt(req.Instruction, parser.Serialize(req.Files))
	siteType := prompts.ParseSiteType(string(req.SiteType))
	summary := req.Instruction.Summary()

	outcome, attempts := chain.Run(ctx, func(ctx context.Context, c Candidate) *types.GenerationOutcome {
		res := g.run(ctx, plan{
			prompt:         summary,
			enhancedPrompt: userPrompt,
			system:         system,
			siteType:       siteType,
			backend:        c.Backend,
			model:          c.Model,
		}, g.timeouts.Request)
		if !res.Success {
			g.logger.Warn("enhancement attempt failed",
				zap.String("backend", c.Backend.Label()),
				zap.String("model", c.Model),
				zap.String("error_kind", res.ErrorKind),
				zap.Bool("retryable", retryable(res.ErrorKind)))
		}
		return res
	})
	return EnhanceResult{Outcome: outcome, Attempts: attempts}
}

// Suggest lists catalogued enhancements relevant to the given page content.
func (g *Generator) Suggest(content string) []prompts.Suggestion {
	return prompts.Suggest(content)
}

func retryable(kind string) bool {
	switch llm.ErrorKind(kind) {
	case llm.KindProviderError, llm.KindTimeout:
		return true
	}
	return false
}
