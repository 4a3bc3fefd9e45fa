package handlers

import (
	"net/http"

	"github.com/abrezinsky/avavote/internal/models"
)

// handleGetElection returns the status and, once declared, the winner
func (h *Handlers) handleGetElection(w http.ResponseWriter, r *http.Request) {
	state, err := h.Election.GetState(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, state)
}

// handleGetResults returns the per-candidate tally
func (h *Handlers) handleGetResults(w http.ResponseWriter, r *http.Request) {
	status, err := h.Election.GetStatus(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	counts, err := h.Results.GetVoteCounts(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, ResultsResponse{Status: status, Counts: counts})
}

func (h *Handlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Results.GetStats(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, stats)
}

func (h *Handlers) handleStartElection(w http.ResponseWriter, r *http.Request) {
	if err := h.Election.StartElection(r.Context()); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondState(w, r)
}

func (h *Handlers) handleStopElection(w http.ResponseWriter, r *http.Request) {
	if err := h.Election.StopElection(r.Context()); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondState(w, r)
}

func (h *Handlers) handleDeclareResult(w http.ResponseWriter, r *http.Request) {
	winner, err := h.Election.DeclareResult(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, DeclareResponse{Status: models.StatusDeclared, Winner: winner})
}

// handleFlush deletes all voters and candidates
func (h *Handlers) handleFlush(w http.ResponseWriter, r *http.Request) {
	if err := h.Election.FlushElectionData(r.Context()); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondSuccess(w, "Election data flushed")
}

func (h *Handlers) respondState(w http.ResponseWriter, r *http.Request) {
	state, err := h.Election.GetState(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, state)
}
