package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"webgen_server/internal/events"
	"webgen_server/internal/store"
)

// GET /api/projects
func (h *APIHandler) ListProjects(c *gin.Context) {
	opts := store.ListOptions{
		Page:    queryInt(c, "page", 1),
		PerPage: queryInt(c, "per_page", store.DefaultPerPage),
		UserID:  c.Query("user_id"),
	}
	page, err := h.store.ListProjects(c.Request.Context(), opts.Normalize())
	if err != nil {
		h.logger.Error("failed to list projects", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list projects"})
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /api/projects/:id
func (h *APIHandler) GetProject(c *gin.Context) {
	id := c.Param("id")
	project, err := h.store.GetProject(c.Request.Context(), id)
	if err != nil {
		h.storeError(c, "project", id, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// DELETE /api/projects/:id
func (h *APIHandler) DeleteProject(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()
	if err := h.store.DeleteProject(ctx, id); err != nil {
		h.storeError(c, "project", id, err)
		return
	}
	h.publish(ctx, events.Event{Subject: events.SubjectProjectDeleted, ID: id})
	c.JSON(http.StatusOK, gin.H{"message": "Project deleted successfully"})
}

// GET /api/comparisons/:id
func (h *APIHandler) GetComparison(c *gin.Context) {
	id := c.Param("id")
	comparison, err := h.store.GetComparison(c.Request.Context(), id)
	if err != nil {
		h.storeError(c, "comparison", id, err)
		return
	}
	c.JSON(http.StatusOK, comparison)
}

func (h *APIHandler) storeError(c *gin.Context, what, id string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
		return
	}
	h.logger.Error("store lookup failed", zap.String("kind", what), zap.String("id", id), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load " + what})
}

// queryInt reads an integer query parameter; malformed values yield def.
func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
