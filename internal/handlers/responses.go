package handlers

import (
	"github.com/abrezinsky/avavote/internal/models"
)

// MessageResponse carries a human-readable result
type MessageResponse struct {
	Message string `json:"message"`
}

// RegisterResponse is returned after a successful registration
type RegisterResponse struct {
	Message string       `json:"message"`
	Voter   models.Voter `json:"voter"`
}

// DeclareResponse is returned after the result is declared
type DeclareResponse struct {
	Status models.ElectionStatus `json:"status"`
	Winner *models.Candidate     `json:"winner"`
}

// ResultsResponse is the public tally
type ResultsResponse struct {
	Status models.ElectionStatus `json:"status"`
	Counts []models.VoteCount    `json:"counts"`
}

// HealthResponse reports liveness of the store
type HealthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
	Error   string `json:"error,omitempty"`
}

// LogLevelResponse reports runtime logging settings
type LogLevelResponse struct {
	Level       string `json:"level"`
	HTTPLogging bool   `json:"http_logging"`
}
