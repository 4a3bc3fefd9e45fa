package services

import (
	"context"

	"github.com/abrezinsky/avavote/internal/models"
)

// ElectionServicer defines the interface for election lifecycle operations
type ElectionServicer interface {
	GetStatus(ctx context.Context) (models.ElectionStatus, error)
	GetState(ctx context.Context) (*ElectionState, error)
	StartElection(ctx context.Context) error
	StopElection(ctx context.Context) error
	DeclareResult(ctx context.Context) (*models.Candidate, error)
	GetWinner(ctx context.Context) (*models.Candidate, error)
	FlushElectionData(ctx context.Context) error
}

// VotingServicer defines the interface for vote casting
type VotingServicer interface {
	CastVote(ctx context.Context, voterID, candidateID string) (*VoteResult, error)
}

// VoterServicer defines the interface for registration and voter administration
type VoterServicer interface {
	RegisterUser(ctx context.Context, reg Registration) (*models.Voter, error)
	FindUserByCredentials(ctx context.Context, aadhar, voterID string) (*LoginResult, error)
	ListVoters(ctx context.Context) ([]models.Voter, error)
	DeleteVoter(ctx context.Context, voterID string) error
	VoterCardQR(ctx context.Context, voterID string) ([]byte, error)
}

// CandidateServicer defines the interface for candidate operations
type CandidateServicer interface {
	ListCandidates(ctx context.Context) ([]models.Candidate, error)
	GetCandidate(ctx context.Context, id string) (*models.Candidate, error)
	AddCandidate(ctx context.Context, in CandidateInput) (*models.Candidate, error)
	UpdateCandidate(ctx context.Context, id string, in CandidateInput) (*models.Candidate, error)
	SetCandidatePhoto(ctx context.Context, id, photo string) (*models.Candidate, error)
	DeleteCandidate(ctx context.Context, id string) error
}

// ResultsServicer defines the interface for tallies and statistics
type ResultsServicer interface {
	GetVoteCounts(ctx context.Context) ([]models.VoteCount, error)
	GetStats(ctx context.Context) (*Stats, error)
}

// Ensure concrete types implement interfaces
var (
	_ ElectionServicer  = (*ElectionService)(nil)
	_ VotingServicer    = (*VotingService)(nil)
	_ VoterServicer     = (*VoterService)(nil)
	_ CandidateServicer = (*CandidateService)(nil)
	_ ResultsServicer   = (*ResultsService)(nil)
)
