package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/abrezinsky/avavote/internal/logger"
	"github.com/abrezinsky/avavote/internal/models"
	"github.com/abrezinsky/avavote/internal/repository"
	"github.com/abrezinsky/avavote/internal/validation"
)

// RegistrationSuccessMessage is returned after a successful registration
const RegistrationSuccessMessage = "Registration successful! You can now log in."

// VoterService handles registration, login lookup and voter administration
type VoterService struct {
	log   logger.Logger
	store repository.Store
	now   func() time.Time
}

// NewVoterService creates a new VoterService
func NewVoterService(log logger.Logger, store repository.Store) *VoterService {
	return &VoterService{log: log, store: store, now: time.Now}
}

// SetClock sets a custom time source (for testing)
func (s *VoterService) SetClock(now func() time.Time) {
	s.now = now
}

// Registration is the input to RegisterUser
type Registration struct {
	Name    string `json:"name" validate:"required,max=100"`
	Aadhar  string `json:"aadhar" validate:"required,aadhar"`
	VoterID string `json:"voter_id" validate:"required,voterid"`
	Photo   string `json:"photo,omitempty" validate:"omitempty,max=2000000"`
}

// LoginResult pairs a voter with the election state so the caller can
// route them to the ballot, a waiting page, or the result
type LoginResult struct {
	Voter  models.Voter          `json:"voter"`
	Status models.ElectionStatus `json:"status"`
}

// RegisterUser creates a voter. The uniqueness check and the insert run in
// one transaction, and the store's unique constraints back it up.
func (s *VoterService) RegisterUser(ctx context.Context, reg Registration) (*models.Voter, error) {
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Aadhar = validation.NormalizeAadhar(reg.Aadhar)
	reg.VoterID = validation.NormalizeVoterID(reg.VoterID)
	if err := validation.Struct(reg); err != nil {
		return nil, invalid(err)
	}

	voter := models.Voter{
		VoterID:   reg.VoterID,
		Aadhar:    reg.Aadhar,
		Name:      reg.Name,
		Photo:     reg.Photo,
		CreatedAt: s.now().UTC(),
	}

	err := s.store.Transact(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.GetVoter(ctx, voter.VoterID); err != repository.ErrNotFound {
			if err == nil {
				return ErrDuplicateRegistration
			}
			return err
		}
		if _, err := tx.FindVoterByAadhar(ctx, voter.Aadhar); err != repository.ErrNotFound {
			if err == nil {
				return ErrDuplicateRegistration
			}
			return err
		}
		if err := tx.InsertVoter(ctx, voter); err != nil {
			if err == repository.ErrDuplicate {
				return ErrDuplicateRegistration
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Voter registered", "voter_id", voter.VoterID)
	return &voter, nil
}

// FindUserByCredentials returns the voter whose aadhar and voter ID both
// match, or nil if there is none
func (s *VoterService) FindUserByCredentials(ctx context.Context, aadhar, voterID string) (*LoginResult, error) {
	aadhar = validation.NormalizeAadhar(aadhar)
	voterID = validation.NormalizeVoterID(voterID)
	if err := validation.Aadhar(aadhar); err != nil {
		return nil, invalid(err)
	}
	if err := validation.VoterID(voterID); err != nil {
		return nil, invalid(err)
	}

	voter, err := s.store.FindVoterByAadhar(ctx, aadhar)
	if err == repository.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if voter.VoterID != voterID {
		return nil, nil
	}

	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Voter: *voter, Status: cfg.Status}, nil
}

// ListVoters returns all voters in registration order
func (s *VoterService) ListVoters(ctx context.Context) ([]models.Voter, error) {
	return s.store.ListVoters(ctx)
}

// DeleteVoter removes a voter who has not voted yet
func (s *VoterService) DeleteVoter(ctx context.Context, voterID string) error {
	voterID = validation.NormalizeVoterID(voterID)
	err := s.store.Transact(ctx, func(ctx context.Context, tx repository.Tx) error {
		voter, err := tx.GetVoter(ctx, voterID)
		if err == repository.ErrNotFound {
			return ErrVoterNotFound
		}
		if err != nil {
			return err
		}
		if voter.HasVoted {
			return ErrVoterHasVoted
		}
		return tx.DeleteVoter(ctx, voterID)
	})
	if err != nil {
		return err
	}

	s.log.Info("Voter deleted", "voter_id", voterID)
	return nil
}

// VoterCardQR renders a PNG QR code of the voter's ID for printed voter cards
func (s *VoterService) VoterCardQR(ctx context.Context, voterID string) ([]byte, error) {
	voterID = validation.NormalizeVoterID(voterID)
	voter, err := s.store.GetVoter(ctx, voterID)
	if err == repository.ErrNotFound {
		return nil, ErrVoterNotFound
	}
	if err != nil {
		return nil, err
	}

	png, err := qrcode.Encode(voter.VoterID, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode voter card: %w", err)
	}
	return png, nil
}
