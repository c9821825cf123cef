package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"webgen_server/internal/ai"
	"webgen_server/internal/ai/prompts"
	"webgen_server/internal/events"
	"webgen_server/internal/llm"
	"webgen_server/internal/store"
	"webgen_server/internal/types"
)

// SiteGenerator is the orchestrator surface the handlers depend on.
type SiteGenerator interface {
	GenerateWebsite(ctx context.Context, req ai.GenerationRequest) *types.GenerationOutcome
	CompareProviders(ctx context.Context, prompt string, siteType prompts.SiteType) *types.ComparisonOutcome
	EnhanceProject(ctx context.Context, req ai.EnhanceRequest) ai.EnhanceResult
	Suggest(content string) []prompts.Suggestion
}

// APIHandler holds dependencies for API endpoints.
type APIHandler struct {
	generator SiteGenerator
	store     store.Store
	events    events.Publisher
	registry  *llm.Registry
	logger    *zap.Logger
	checks    []HealthCheck
	now       func() time.Time
}

// NewAPIHandler initializes a new API handler with its dependencies.
// A nil publisher drops events.
func NewAPIHandler(gen SiteGenerator, st store.Store, pub events.Publisher, registry *llm.Registry, logger *zap.Logger, checks ...HealthCheck) *APIHandler {
	if pub == nil {
		pub = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		generator: gen,
		store:     st,
		events:    pub,
		registry:  registry,
		logger:    logger,
		checks:    checks,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// --- Structs for API Requests/Responses ---

type GenerateRequest struct {
	Prompt      string `json:"prompt" binding:"required"`
	WebsiteType string `json:"website_type"`
	Provider    string `json:"provider"`
	Model       string `json:"model"`
	UserID      string `json:"user_id"`
}

type EnhancementBody struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Impact      string `json:"impact"`
	Icon        string `json:"icon"`
	Prompt      string `json:"prompt"`
	Message     string `json:"message"`
}

type EnhanceRequest struct {
	ProjectID        string            `json:"project_id"`
	CurrentContent   string            `json:"current_content"`
	CurrentFiles     map[string]string `json:"current_files"`
	Enhancement      EnhancementBody   `json:"enhancement"`
	Apply            bool              `json:"apply"`
	ModificationType string            `json:"modification_type"`
	EnhancementType  string            `json:"enhancement_type"`
	WebsiteType      string            `json:"website_type"`
	Provider         string            `json:"provider"`
	Model            string            `json:"model"`
}

type EnhancedProject struct {
	ProjectID string                    `json:"project_id,omitempty"`
	Files     types.FileBundle          `json:"files"`
	Metadata  *types.GenerationMetadata `json:"metadata,omitempty"`
}

type EnhanceResponse struct {
	Success         bool                 `json:"success"`
	Suggestions     []prompts.Suggestion `json:"suggestions,omitempty"`
	EnhancedProject *EnhancedProject     `json:"enhanced_project,omitempty"`
	Attempts        []ai.Attempt         `json:"attempts,omitempty"`
	Error           string               `json:"error,omitempty"`
}

// --- API Handlers ---

// POST /api/generate-website
func (h *APIHandler) GenerateWebsite(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt must not be empty"})
		return
	}
	siteType := prompts.ParseSiteType(req.WebsiteType)

	if req.Provider == "" {
		h.compare(c, req, siteType)
		return
	}

	backend, ok := llm.ParseBackend(req.Provider)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported provider: " + req.Provider})
		return
	}

	ctx := c.Request.Context()
	outcome := h.generator.GenerateWebsite(ctx, ai.GenerationRequest{
		Prompt:   req.Prompt,
		SiteType: siteType,
		Backend:  backend,
		Model:    req.Model,
	})
	if !outcome.Success {
		status := http.StatusOK
		if outcome.ErrorKind == string(llm.KindUnsupportedModel) {
			status = http.StatusBadRequest
		}
		c.JSON(status, outcome)
		return
	}

	project, err := h.saveOutcome(ctx, outcome, req.UserID)
	if err != nil {
		h.logger.Error("failed to save project", zap.String("session_id", outcome.SessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save project"})
		return
	}
	outcome.ProjectID = project.ID
	c.JSON(http.StatusOK, outcome)
}

func (h *APIHandler) compare(c *gin.Context, req GenerateRequest, siteType prompts.SiteType) {
	ctx := c.Request.Context()
	result := h.generator.CompareProviders(ctx, req.Prompt, siteType)
	if !result.Success {
		c.JSON(http.StatusOK, result)
		return
	}

	for provider, outcome := range result.Results {
		if !outcome.Success {
			continue
		}
		project, err := h.saveOutcome(ctx, outcome, req.UserID)
		if err != nil {
			h.logger.Error("failed to save comparison project", zap.String("provider", provider), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save project"})
			return
		}
		outcome.ProjectID = project.ID
	}

	if err := h.store.SaveComparison(ctx, result); err != nil {
		h.logger.Error("failed to save comparison", zap.String("comparison_id", result.ComparisonID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save comparison"})
		return
	}
	h.publish(ctx, events.Event{Subject: events.SubjectComparisonSaved, ID: result.ComparisonID, UserID: req.UserID})
	c.JSON(http.StatusOK, result)
}

func (h *APIHandler) saveOutcome(ctx context.Context, outcome *types.GenerationOutcome, userID string) (*store.Project, error) {
	project := store.NewProject(outcome, userID, h.now())
	if err := h.store.SaveProject(ctx, project); err != nil {
		return nil, err
	}
	h.publish(ctx, events.Event{Subject: events.SubjectProjectSaved, ID: project.ID, UserID: userID, Provider: outcome.Provider})
	return project, nil
}

// POST /api/enhance-project
func (h *APIHandler) EnhanceProject(c *gin.Context) {
	var req EnhanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	ctx := c.Request.Context()

	files, stored, err := h.currentFiles(ctx, req)
	if err != nil {
		h.logger.Error("failed to load project for enhancement", zap.String("project_id", req.ProjectID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load project"})
		return
	}
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "current_content, current_files or an existing project_id is required"})
		return
	}

	// apply wins over enhancement_type
	if !req.Apply {
		c.JSON(http.StatusOK, EnhanceResponse{Success: true, Suggestions: h.generator.Suggest(files["index.html"])})
		return
	}

	primary := ai.Candidate{Backend: llm.HostedA, Model: req.Model}
	if req.Provider != "" {
		backend, ok := llm.ParseBackend(req.Provider)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported provider: " + req.Provider})
			return
		}
		primary.Backend = backend
	}

	siteType := prompts.SiteType(req.WebsiteType)
	if stored != nil && siteType == "" && stored.Metadata != nil {
		siteType = prompts.SiteType(stored.Metadata.WebsiteType)
	}

	res := h.generator.EnhanceProject(ctx, ai.EnhanceRequest{
		Files:       files,
		Instruction: instructionFrom(req),
		Chain:       ai.DefaultEnhancementChain(primary),
		SiteType:    siteType,
	})
	if !res.Outcome.Success {
		c.JSON(http.StatusOK, EnhanceResponse{Success: false, Error: res.Outcome.Error, Attempts: res.Attempts})
		return
	}

	enhanced := &EnhancedProject{Files: res.Outcome.Files, Metadata: res.Outcome.Metadata}
	if stored != nil {
		updated, err := h.store.UpdateProjectFiles(ctx, stored.ID, res.Outcome.Files, res.Outcome.Metadata)
		if err != nil {
			h.logger.Error("failed to update enhanced project", zap.String("project_id", stored.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update project"})
			return
		}
		enhanced.ProjectID = updated.ID
		h.publish(ctx, events.Event{Subject: events.SubjectProjectUpdated, ID: updated.ID, UserID: updated.UserID, Provider: res.Outcome.Provider})
	}
	c.JSON(http.StatusOK, EnhanceResponse{Success: true, EnhancedProject: enhanced, Attempts: res.Attempts})
}

// currentFiles prefers explicit request content and falls back to the
// stored project. The stored project is returned whenever it exists.
func (h *APIHandler) currentFiles(ctx context.Context, req EnhanceRequest) (types.FileBundle, *store.Project, error) {
	var stored *store.Project
	if req.ProjectID != "" {
		p, err := h.store.GetProject(ctx, req.ProjectID)
		switch {
		case err == nil:
			stored = p
		case !errors.Is(err, store.ErrNotFound):
			return nil, nil, err
		}
	}

	switch {
	case len(req.CurrentFiles) > 0:
		return types.FileBundle(req.CurrentFiles), stored, nil
	case req.CurrentContent != "":
		files := types.FileBundle{"index.html": req.CurrentContent}
		if stored != nil {
			files = stored.Bundle()
			files["index.html"] = req.CurrentContent
		}
		return files, stored, nil
	case stored != nil:
		return stored.Bundle(), stored, nil
	}
	return nil, stored, nil
}

func instructionFrom(req EnhanceRequest) prompts.Instruction {
	e := req.Enhancement
	return prompts.Instruction{
		Kind:        prompts.ParseInstructionKind(req.ModificationType),
		Type:        e.Type,
		Title:       e.Title,
		Impact:      e.Impact,
		Icon:        e.Icon,
		Prompt:      e.Prompt,
		Message:     e.Message,
		Description: e.Description,
	}
}

func (h *APIHandler) publish(ctx context.Context, ev events.Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = h.now()
	}
	if err := h.events.Publish(ctx, ev); err != nil {
		h.logger.Warn("event publish failed", zap.String("subject", ev.Subject), zap.String("id", ev.ID), zap.Error(err))
	}
}
