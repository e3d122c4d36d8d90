package api

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	// Health and readiness checks
	s.router.HandleFunc("/health", s.handleHealth)
	s.router.HandleFunc("/ready", s.handleReady)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))

	// Uploads
	s.router.HandleFunc("/load_tsv_data", s.handleLoadTSV)
	s.router.HandleFunc("/load_faa_data", s.handleLoadFAA)

	// Name search
	s.router.HandleFunc("/fetchID", s.handleFetchID)

	// Root endpoint
	s.router.HandleFunc("/", s.handleRoot)
}
