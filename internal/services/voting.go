package services

import (
	"context"
	"strings"

	"github.com/abrezinsky/avavote/internal/logger"
	"github.com/abrezinsky/avavote/internal/models"
	"github.com/abrezinsky/avavote/internal/repository"
	"github.com/abrezinsky/avavote/internal/validation"
)

// VoteSuccessMessage is returned for every accepted vote
const VoteSuccessMessage = "Your vote has been cast successfully!"

// VotingService records votes
type VotingService struct {
	log   logger.Logger
	store repository.Store
}

// NewVotingService creates a new VotingService
func NewVotingService(log logger.Logger, store repository.Store) *VotingService {
	return &VotingService{log: log, store: store}
}

// VoteResult contains the result of a vote submission
type VoteResult struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	VoterID     string `json:"voter_id"`
	CandidateID string `json:"candidate_id"`
}

// CastVote records one vote for candidateID by voterID. All checks run
// inside the same transaction as the writes, in this order: election
// active, voter exists, voter has not voted, candidate exists. Nothing is
// written unless every check passes.
func (s *VotingService) CastVote(ctx context.Context, voterID, candidateID string) (*VoteResult, error) {
	voterID = validation.NormalizeVoterID(voterID)
	candidateID = strings.TrimSpace(candidateID)

	err := s.store.Transact(ctx, func(ctx context.Context, tx repository.Tx) error {
		cfg, err := tx.GetConfig(ctx)
		if err != nil {
			return err
		}
		if cfg.Status != models.StatusInProgress {
			return ErrElectionNotActive
		}

		voter, err := tx.GetVoter(ctx, voterID)
		if err == repository.ErrNotFound {
			return ErrVoterNotFound
		}
		if err != nil {
			return err
		}
		if voter.HasVoted {
			return ErrAlreadyVoted
		}

		candidate, err := tx.GetCandidate(ctx, candidateID)
		if err == repository.ErrNotFound {
			return ErrCandidateNotFound
		}
		if err != nil {
			return err
		}

		voter.HasVoted = true
		if err := tx.PutVoter(ctx, *voter); err != nil {
			return err
		}
		candidate.Votes++
		if err := tx.PutCandidate(ctx, *candidate); err != nil {
			return err
		}
		// Bumping the counter makes every vote write the config, so a
		// concurrent stop conflicts with this transaction instead of
		// straddling it.
		cfg.VotesCast++
		return tx.PutConfig(ctx, *cfg)
	})
	if err != nil {
		s.log.Debug("Vote rejected", "voter_id", voterID, "candidate_id", candidateID, "error", err)
		return nil, err
	}

	s.log.Info("Vote recorded", "voter_id", voterID, "candidate_id", candidateID)
	return &VoteResult{
		Status:      "success",
		Message:     VoteSuccessMessage,
		VoterID:     voterID,
		CandidateID: candidateID,
	}, nil
}
