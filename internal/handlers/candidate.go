package handlers

import (
	"net/http"

	"github.com/abrezinsky/avavote/internal/services"
)

func (h *Handlers) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.Candidate.ListCandidates(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, candidates)
}

func (h *Handlers) handleGetCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	candidate, err := h.Candidate.GetCandidate(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, candidate)
}

func (h *Handlers) handleAddCandidate(w http.ResponseWriter, r *http.Request) {
	var req services.CandidateInput
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	candidate, err := h.Candidate.AddCandidate(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondCreated(w, candidate)
}

func (h *Handlers) handleUpdateCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req services.CandidateInput
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	candidate, err := h.Candidate.UpdateCandidate(r.Context(), id, req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, candidate)
}

func (h *Handlers) handleSetCandidatePhoto(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req PhotoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	candidate, err := h.Candidate.SetCandidatePhoto(r.Context(), id, req.Photo)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, candidate)
}

func (h *Handlers) handleDeleteCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.Candidate.DeleteCandidate(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondDeleted(w)
}
