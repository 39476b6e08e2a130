package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/remixlab/remixd/internal/common"
	"github.com/remixlab/remixd/internal/models"
)

// JobLister exposes the registry's current snapshots for the REST surface.
type JobLister interface {
	Snapshots() []*models.StatusSnapshot
}

type APIHandler struct {
	jobs     JobLister
	variants []string
	logger   arbor.ILogger
}

func NewAPIHandler(jobs JobLister, variants []string, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		jobs:     jobs,
		variants: variants,
		logger:   logger,
	}
}

// VersionHandler returns version information
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version":    common.GetVersion(),
		"build":      common.GetBuild(),
		"git_commit": common.GetGitCommit(),
	})
}

// HealthHandler returns health check status
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// ListJobsHandler returns the current snapshot of every tracked subjob.
func (h *APIHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	snapshots := h.jobs.Snapshots()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  snapshots,
		"count": len(snapshots),
	})
}

// ListVariantsHandler returns the names of the available effect chains.
func (h *APIHandler) ListVariantsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"variants": h.variants,
		"count":    len(h.variants),
	})
}

// NotFoundHandler handles 404 errors with JSON response
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":   "Not Found",
		"path":    r.URL.Path,
		"message": "The requested endpoint does not exist",
	})
}
