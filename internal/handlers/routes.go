package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", h.handleHealth)

	if h.Hub != nil {
		r.Get("/ws", h.Hub.ServeWs)
	}

	// Voter API (public)
	r.Post("/api/register", h.handleRegister)
	r.Post("/api/login", h.handleVoterLogin)
	r.Get("/api/candidates", h.handleListCandidates)
	r.Get("/api/candidates/{id}", h.handleGetCandidate)
	r.Post("/api/vote", h.handleCastVote)
	r.Get("/api/election", h.handleGetElection)
	r.Get("/api/results", h.handleGetResults)

	// Admin session
	r.Post("/admin/login", h.handleAdminLogin)
	r.Post("/admin/logout", h.handleAdminLogout)

	// Admin API (protected)
	r.Group(func(r chi.Router) {
		r.Use(h.Auth.RequireAuthAPI)

		// Candidates
		r.Post("/api/admin/candidates", h.handleAddCandidate)
		r.Put("/api/admin/candidates/{id}", h.handleUpdateCandidate)
		r.Put("/api/admin/candidates/{id}/photo", h.handleSetCandidatePhoto)
		r.Delete("/api/admin/candidates/{id}", h.handleDeleteCandidate)

		// Voters
		r.Get("/api/admin/voters", h.handleListVoters)
		r.Delete("/api/admin/voters/{voterID}", h.handleDeleteVoter)
		r.Get("/api/admin/voters/{voterID}/qr", h.handleVoterQR)

		// Election lifecycle
		r.Post("/api/admin/election/start", h.handleStartElection)
		r.Post("/api/admin/election/stop", h.handleStopElection)
		r.Post("/api/admin/election/declare", h.handleDeclareResult)
		r.Post("/api/admin/flush", h.handleFlush)

		// Stats
		r.Get("/api/admin/stats", h.handleGetStats)

		// Logging
		r.Get("/api/admin/loglevel", h.handleGetLogLevel)
		r.Put("/api/admin/loglevel", h.handleSetLogLevel)
	})

	return r
}
