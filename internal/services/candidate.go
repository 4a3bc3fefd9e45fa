package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abrezinsky/avavote/internal/logger"
	"github.com/abrezinsky/avavote/internal/models"
	"github.com/abrezinsky/avavote/internal/repository"
	"github.com/abrezinsky/avavote/internal/validation"
)

// CandidateService handles candidate CRUD. Every change is refused while
// the election is in progress.
type CandidateService struct {
	log   logger.Logger
	store repository.Store
	newID func() string
	now   func() time.Time
}

// NewCandidateService creates a new CandidateService
func NewCandidateService(log logger.Logger, store repository.Store) *CandidateService {
	return &CandidateService{
		log:   log,
		store: store,
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// SetIDGenerator sets a custom id source (for testing)
func (s *CandidateService) SetIDGenerator(newID func() string) {
	s.newID = newID
}

// CandidateInput holds the editable candidate fields
type CandidateInput struct {
	Name  string `json:"name" validate:"required,max=100"`
	Party string `json:"party" validate:"required,max=100"`
	Photo string `json:"photo,omitempty" validate:"omitempty,max=2000000"`
}

type photoInput struct {
	Photo string `json:"photo" validate:"max=2000000"`
}

func (in *CandidateInput) clean() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Party = strings.TrimSpace(in.Party)
	return invalid(validation.Struct(in))
}

// ListCandidates returns all candidates in creation order
func (s *CandidateService) ListCandidates(ctx context.Context) ([]models.Candidate, error) {
	return s.store.ListCandidates(ctx)
}

// GetCandidate returns a single candidate
func (s *CandidateService) GetCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	c, err := s.store.GetCandidate(ctx, id)
	if err == repository.ErrNotFound {
		return nil, ErrCandidateNotFound
	}
	return c, err
}

// AddCandidate creates a candidate with zero votes
func (s *CandidateService) AddCandidate(ctx context.Context, in CandidateInput) (*models.Candidate, error) {
	if err := in.clean(); err != nil {
		return nil, err
	}

	candidate := models.Candidate{
		ID:        s.newID(),
		Name:      in.Name,
		Party:     in.Party,
		Photo:     in.Photo,
		CreatedAt: s.now().UTC(),
	}
	err := s.store.Transact(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := editable(ctx, tx); err != nil {
			return err
		}
		return tx.PutCandidate(ctx, candidate)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Candidate added", "id", candidate.ID, "name", candidate.Name)
	return &candidate, nil
}

// UpdateCandidate changes name and party, and the photo when one is given.
// The tally is never touched.
func (s *CandidateService) UpdateCandidate(ctx context.Context, id string, in CandidateInput) (*models.Candidate, error) {
	if err := in.clean(); err != nil {
		return nil, err
	}

	return s.modify(ctx, id, func(c *models.Candidate) {
		c.Name = in.Name
		c.Party = in.Party
		if in.Photo != "" {
			c.Photo = in.Photo
		}
	})
}

// SetCandidatePhoto replaces the photo. An empty photo clears it.
func (s *CandidateService) SetCandidatePhoto(ctx context.Context, id, photo string) (*models.Candidate, error) {
	if err := invalid(validation.Struct(photoInput{Photo: photo})); err != nil {
		return nil, err
	}

	return s.modify(ctx, id, func(c *models.Candidate) {
		c.Photo = photo
	})
}

// DeleteCandidate removes a candidate. Candidates holding votes, and the
// declared winner, can only be removed by a flush.
func (s *CandidateService) DeleteCandidate(ctx context.Context, id string) error {
	err := s.store.Transact(ctx, func(ctx context.Context, tx repository.Tx) error {
		cfg, err := editable(ctx, tx)
		if err != nil {
			return err
		}
		c, err := tx.GetCandidate(ctx, id)
		if err == repository.ErrNotFound {
			return ErrCandidateNotFound
		}
		if err != nil {
			return err
		}
		if c.Votes > 0 {
			return ErrCandidateHasVotes
		}
		if cfg.WinnerID == id {
			return ErrCandidateIsWinner
		}
		return tx.DeleteCandidate(ctx, id)
	})
	if err != nil {
		return err
	}

	s.log.Info("Candidate deleted", "id", id)
	return nil
}

func (s *CandidateService) modify(ctx context.Context, id string, apply func(c *models.Candidate)) (*models.Candidate, error) {
	var updated models.Candidate
	err := s.store.Transact(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := editable(ctx, tx); err != nil {
			return err
		}
		c, err := tx.GetCandidate(ctx, id)
		if err == repository.ErrNotFound {
			return ErrCandidateNotFound
		}
		if err != nil {
			return err
		}
		apply(c)
		updated = *c
		return tx.PutCandidate(ctx, *c)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Candidate updated", "id", id)
	return &updated, nil
}

// editable fails with ErrElectionInProgress while voting is open. Otherwise
// it bumps the config revision inside tx, so a lifecycle transition running
// concurrently writes the same record and one of the two must retry.
func editable(ctx context.Context, tx repository.Tx) (*models.ElectionConfig, error) {
	cfg, err := tx.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.Status == models.StatusInProgress {
		return nil, ErrElectionInProgress
	}
	cfg.Revision++
	if err := tx.PutConfig(ctx, *cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
