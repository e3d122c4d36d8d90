package api

import (
	"context"
	"net/http"
	"time"

	"taxsun/internal/errors"
	"taxsun/internal/version"
)

// RootResponse is the liveness banner served at /
type RootResponse struct {
	Status  string        `json:"status"`
	Message string        `json:"message"`
	Version string        `json:"version"`
	Build   version.Build `json:"build"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Healthy bool `json:"healthy"`
}

// ReadyResponse represents the readiness check response
type ReadyResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// handleRoot handles requests to the root path
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	// Only handle exact root path
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	WriteJSON(w, RootResponse{
		Status:  "ok",
		Message: "taxsun backend alive",
		Version: version.Version,
		Build:   version.Get(),
	}, http.StatusOK)
}

// handleHealth responds to liveness probes
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	WriteJSON(w, HealthResponse{Healthy: true}, http.StatusOK)
}

// handleReady reports whether the taxonomy directory can serve lookups
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			if errors.CodeOf(err) != errors.TaxonomyUnavailable {
				err = errors.New(errors.TaxonomyUnavailable, "taxonomy directory is not ready", err)
			}
			WriteError(w, err)
			return
		}
	}

	WriteJSON(w, ReadyResponse{Status: "ready", Timestamp: time.Now().UTC()}, http.StatusOK)
}
