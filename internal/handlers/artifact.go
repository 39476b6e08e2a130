package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/remixlab/remixd/internal/interfaces"
)

// ArtifactHandler serves published artifacts from the artifacts directory,
// resolving ids through the artifact store.
type ArtifactHandler struct {
	storage interfaces.ArtifactStorage
	dir     string
	logger  arbor.ILogger
}

func NewArtifactHandler(storage interfaces.ArtifactStorage, dir string, logger arbor.ILogger) *ArtifactHandler {
	return &ArtifactHandler{
		storage: storage,
		dir:     dir,
		logger:  logger,
	}
}

// GetArtifactHandler handles GET /artifacts/{id}, streaming the stored file.
func (h *ArtifactHandler) GetArtifactHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/artifacts/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusBadRequest, "invalid artifact id")
		return
	}

	artifact, err := h.storage.GetArtifact(id)
	if err != nil {
		h.logger.Debug().Err(err).Str("artifact_id", id).Msg("Artifact not found")
		WriteError(w, http.StatusNotFound, "artifact not found")
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=\""+artifact.FileName+"\"")
	http.ServeFile(w, r, filepath.Join(h.dir, artifact.FileName))
}

// ListArtifactsHandler handles GET /api/artifacts.
func (h *ArtifactHandler) ListArtifactsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	artifacts, err := h.storage.ListArtifacts()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list artifacts")
		WriteError(w, http.StatusInternalServerError, "failed to list artifacts")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"artifacts": artifacts,
		"count":     len(artifacts),
	})
}
