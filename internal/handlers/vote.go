package handlers

import (
	"net/http"
)

// handleCastVote records a ballot
func (h *Handlers) handleCastVote(w http.ResponseWriter, r *http.Request) {
	var req VoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if req.VoterID == "" || req.CandidateID == "" {
		h.respondError(w, r, BadRequest("voter_id and candidate_id are required"))
		return
	}

	result, err := h.Voting.CastVote(r.Context(), req.VoterID, req.CandidateID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondOK(w, result)
}
