package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// UI page
	mux.HandleFunc("/", s.app.PageHandler.IndexHandler)

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Jobs
	mux.HandleFunc("/api/jobs", s.app.APIHandler.ListJobsHandler)

	// API routes - Variant catalog
	mux.HandleFunc("/api/variants", s.app.APIHandler.ListVariantsHandler)

	// API routes - Artifacts
	mux.HandleFunc("/api/artifacts", s.app.ArtifactHandler.ListArtifactsHandler)
	mux.HandleFunc("/artifacts/", s.app.ArtifactHandler.GetArtifactHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}
