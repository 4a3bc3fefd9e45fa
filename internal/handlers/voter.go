package handlers

import (
	"net/http"

	"github.com/abrezinsky/avavote/internal/services"
)

// handleRegister creates a voter
func (h *Handlers) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req services.Registration
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	voter, err := h.Voter.RegisterUser(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondCreated(w, RegisterResponse{
		Message: services.RegistrationSuccessMessage,
		Voter:   *voter,
	})
}

// handleVoterLogin looks a voter up by aadhar and voter ID
func (h *Handlers) handleVoterLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	result, err := h.Voter.FindUserByCredentials(r.Context(), req.Aadhar, req.VoterID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if result == nil {
		h.respondError(w, r, ErrInvalidCredentials)
		return
	}

	respondOK(w, result)
}

// handleListVoters returns every voter in registration order
func (h *Handlers) handleListVoters(w http.ResponseWriter, r *http.Request) {
	voters, err := h.Voter.ListVoters(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, voters)
}

func (h *Handlers) handleDeleteVoter(w http.ResponseWriter, r *http.Request) {
	voterID, err := pathParam(r, "voterID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.Voter.DeleteVoter(r.Context(), voterID); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondDeleted(w)
}

// handleVoterQR serves a voter card QR code as PNG
func (h *Handlers) handleVoterQR(w http.ResponseWriter, r *http.Request) {
	voterID, err := pathParam(r, "voterID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	png, err := h.Voter.VoterCardQR(r.Context(), voterID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}
