package handlers

import (
	"context"
	"net/http"

	"github.com/abrezinsky/avavote/internal/auth"
	"github.com/abrezinsky/avavote/internal/logger"
	"github.com/abrezinsky/avavote/internal/repository"
	"github.com/abrezinsky/avavote/internal/services"
)

// StoreChecker reports the health of the persistence adapter
type StoreChecker interface {
	Ping(ctx context.Context) error
	Backend() repository.Backend
}

// WSHandler serves live-update websocket connections
type WSHandler interface {
	ServeWs(w http.ResponseWriter, r *http.Request)
}

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Election  services.ElectionServicer
	Voting    services.VotingServicer
	Voter     services.VoterServicer
	Candidate services.CandidateServicer
	Results   services.ResultsServicer
	Auth      *auth.Auth
	Hub       WSHandler
	Store     StoreChecker
	Log       logger.Logger
}

// Services groups the service layer for New
type Services struct {
	Election  services.ElectionServicer
	Voting    services.VotingServicer
	Voter     services.VoterServicer
	Candidate services.CandidateServicer
	Results   services.ResultsServicer
}

// New creates a new Handlers instance with all dependencies
func New(svc Services, adminAuth *auth.Auth, hub WSHandler, store StoreChecker, log logger.Logger) *Handlers {
	return &Handlers{
		Election:  svc.Election,
		Voting:    svc.Voting,
		Voter:     svc.Voter,
		Candidate: svc.Candidate,
		Results:   svc.Results,
		Auth:      adminAuth,
		Hub:       hub,
		Store:     store,
		Log:       log,
	}
}

// TestPassword is the admin password used by NewForTesting
const TestPassword = "test-password"

// NewForTesting creates a Handlers instance with a known admin password and
// no websocket hub
func NewForTesting(svc Services, store StoreChecker) *Handlers {
	return New(svc, auth.New(TestPassword), nil, store, logger.Nop())
}
