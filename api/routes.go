package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	handlers "webgen_server/internal/api"
	"webgen_server/internal/middleware"
)

// RegisterRoutes sets up the API endpoints and groups them logically.
// limiter guards the routes that dispatch to a model backend; nil disables it.
func RegisterRoutes(router *gin.Engine, h *handlers.APIHandler, limiter *middleware.RateLimiter, metrics http.Handler) {
	guarded := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		if limiter == nil {
			return []gin.HandlerFunc{handler}
		}
		return []gin.HandlerFunc{limiter.Middleware(), handler}
	}

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/", h.Banner)

		// --- Generation ---
		apiGroup.POST("/generate-website", guarded(h.GenerateWebsite)...)
		apiGroup.POST("/enhance-project", guarded(h.EnhanceProject)...)

		// --- Catalogues ---
		apiGroup.GET("/website-types", h.WebsiteTypes)
		apiGroup.GET("/ai-providers", h.AIProviders)
		apiGroup.GET("/templates", h.Templates)

		// --- Project Lifecycle ---
		apiGroup.GET("/projects", h.ListProjects)
		apiGroup.GET("/projects/:id", h.GetProject)
		apiGroup.DELETE("/projects/:id", h.DeleteProject)
		apiGroup.GET("/comparisons/:id", h.GetComparison)
	}

	router.GET("/health", h.Health)
	router.GET("/health/deep", h.DeepHealth)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}
}
