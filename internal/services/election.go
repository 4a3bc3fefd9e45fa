package services

import (
	"context"

	"github.com/abrezinsky/avavote/internal/logger"
	"github.com/abrezinsky/avavote/internal/models"
	"github.com/abrezinsky/avavote/internal/repository"
)

// ElectionService drives the election lifecycle:
//
//	NOT_STARTED -> IN_PROGRESS   start (needs at least one candidate)
//	IN_PROGRESS -> NOT_STARTED   stop (tallies are kept)
//	NOT_STARTED -> DECLARED      declare (picks the winner)
//	DECLARED    -> NOT_STARTED   flush only
//
// Every transition reads and writes the config inside one transaction, so
// it serializes with in-flight votes.
type ElectionService struct {
	log   logger.Logger
	store repository.Store
}

// NewElectionService creates a new ElectionService
func NewElectionService(log logger.Logger, store repository.Store) *ElectionService {
	return &ElectionService{log: log, store: store}
}

// ElectionState is the public view of the election
type ElectionState struct {
	Status models.ElectionStatus `json:"status"`
	Winner *models.Candidate     `json:"winner,omitempty"`
}

// GetStatus returns the current lifecycle state
func (s *ElectionService) GetStatus(ctx context.Context) (models.ElectionStatus, error) {
	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return "", err
	}
	return cfg.Status, nil
}

// GetState returns the status together with the declared winner, if any
func (s *ElectionService) GetState(ctx context.Context) (*ElectionState, error) {
	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	state := &ElectionState{Status: cfg.Status}
	if cfg.Status == models.StatusDeclared && cfg.WinnerID != "" {
		winner, err := s.store.GetCandidate(ctx, cfg.WinnerID)
		if err != nil && err != repository.ErrNotFound {
			return nil, err
		}
		state.Winner = winner
	}
	return state, nil
}

// StartElection opens voting. Starting an election that is already running
// is a no-op.
func (s *ElectionService) StartElection(ctx context.Context) error {
	var started bool
	err := s.store.Transact(ctx, func(ctx context.Context, tx repository.Tx) error {
		started = false
		cfg, err := tx.GetConfig(ctx)
		if err != nil {
			return err
		}
		switch cfg.Status {
		case models.StatusInProgress:
			return nil
		case models.StatusDeclared:
			return ErrAlreadyDeclared
		}

		candidates, err := tx.ListCandidates(ctx)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return ErrNoCandidates
		}

		cfg.Status = models.StatusInProgress
		cfg.WinnerID = ""
		started = true
		return tx.PutConfig(ctx, *cfg)
	})
	if err != nil {
		return err
	}
	if started {
		s.log.Info("Election started")
	}
	return nil
}

// StopElection closes voting without touching the tallies
func (s *ElectionService) StopElection(ctx context.Context) error {
	var stopped bool
	err := s.store.Transact(ctx, func(ctx context.Context, tx repository.Tx) error {
		stopped = false
		cfg, err := tx.GetConfig(ctx)
		if err != nil {
			return err
		}
		switch cfg.Status {
		case models.StatusNotStarted:
			return nil
		case models.StatusDeclared:
			return ErrAlreadyDeclared
		}

		cfg.Status = models.StatusNotStarted
		stopped = true
		return tx.PutConfig(ctx, *cfg)
	})
	if err != nil {
		return err
	}
	if stopped {
		s.log.Info("Election stopped")
	}
	return nil
}

// DeclareResult records the candidate with the most votes as the winner
func (s *ElectionService) DeclareResult(ctx context.Context) (*models.Candidate, error) {
	var winner *models.Candidate
	err := s.store.Transact(ctx, func(ctx context.Context, tx repository.Tx) error {
		cfg, err := tx.GetConfig(ctx)
		if err != nil {
			return err
		}
		switch cfg.Status {
		case models.StatusInProgress:
			return ErrDeclareInProgress
		case models.StatusDeclared:
			return ErrAlreadyDeclared
		}

		candidates, err := tx.ListCandidates(ctx)
		if err != nil {
			return err
		}
		winner = PickWinner(candidates)
		if winner == nil {
			return ErrNoCandidates
		}

		cfg.Status = models.StatusDeclared
		cfg.WinnerID = winner.ID
		return tx.PutConfig(ctx, *cfg)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Result declared", "winner_id", winner.ID, "winner", winner.Name, "votes", winner.Votes)
	return winner, nil
}

// GetWinner returns the declared winner, or nil when none is declared
func (s *ElectionService) GetWinner(ctx context.Context) (*models.Candidate, error) {
	state, err := s.GetState(ctx)
	if err != nil {
		return nil, err
	}
	return state.Winner, nil
}

// FlushElectionData deletes every voter and candidate and resets the
// election to NOT_STARTED
func (s *ElectionService) FlushElectionData(ctx context.Context) error {
	if err := s.store.Flush(ctx); err != nil {
		return err
	}
	s.log.Warn("Election data flushed")
	return nil
}

// PickWinner returns the candidate with the most votes. Ties go to the
// smallest id so the outcome does not depend on listing order. Returns nil
// for an empty slice.
func PickWinner(candidates []models.Candidate) *models.Candidate {
	var winner *models.Candidate
	for i := range candidates {
		c := &candidates[i]
		if winner == nil ||
			c.Votes > winner.Votes ||
			(c.Votes == winner.Votes && c.ID < winner.ID) {
			winner = c
		}
	}
	if winner == nil {
		return nil
	}
	w := *winner
	return &w
}
