package services_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/abrezinsky/avavote/internal/logger"
	"github.com/abrezinsky/avavote/internal/models"
	"github.com/abrezinsky/avavote/internal/repository/mock"
	"github.com/abrezinsky/avavote/internal/services"
	"github.com/abrezinsky/avavote/internal/testutil"
	"github.com/abrezinsky/avavote/internal/validation"
)

func validRegistration() services.Registration {
	return services.Registration{
		Name:    "Voter A",
		Aadhar:  "234567890123",
		VoterID: "ABC1234567",
	}
}

func TestRegisterUser_Success(t *testing.T) {
	s := setupSuite(t)
	ctx := context.Background()
	fixed := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	s.voters.SetClock(func() time.Time { return fixed })

	voter, err := s.voters.RegisterUser(ctx, validRegistration())
	if err != nil {
		t.Fatalf("RegisterUser failed: %v", err)
	}
	if voter.HasVoted {
		t.Error("new voter must not have voted")
	}
	if !voter.CreatedAt.Equal(fixed) {
		t.Errorf("expected created_at %v, got %v", fixed, voter.CreatedAt)
	}

	stored, err := s.store.GetVoter(ctx, "ABC1234567")
	if err != nil {
		t.Fatalf("GetVoter failed: %v", err)
	}
	if stored.Name != "Voter A" || stored.Aadhar != "234567890123" {
		t.Errorf("unexpected stored voter: %+v", stored)
	}
}

func TestRegisterUser_Normalizes(t *testing.T) {
	s := setupSuite(t)

	voter, err := s.voters.RegisterUser(context.Background(), services.Registration{
		Name:    "  Voter A  ",
		Aadhar:  "2345 6789 0123",
		VoterID: "abc-1234567",
	})
	if err != nil {
		t.Fatalf("RegisterUser failed: %v", err)
	}
	if voter.Name != "Voter A" || voter.Aadhar != "234567890123" || voter.VoterID != "ABC1234567" {
		t.Errorf("expected normalized fields, got %+v", voter)
	}
}

func TestRegisterUser_Duplicates(t *testing.T) {
	tests := []struct {
		name string
		reg  services.Registration
	}{
		{"same aadhar", services.Registration{Name: "Other", Aadhar: "234567890123", VoterID: "XYZ7654321"}},
		{"same voter id", services.Registration{Name: "Other", Aadhar: "987654321098", VoterID: "ABC1234567"}},
		{"both", validRegistration()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupSuite(t)
			ctx := context.Background()
			if _, err := s.voters.RegisterUser(ctx, validRegistration()); err != nil {
				t.Fatalf("first RegisterUser failed: %v", err)
			}

			_, err := s.voters.RegisterUser(ctx, tt.reg)
			if err != services.ErrDuplicateRegistration {
				t.Fatalf("expected ErrDuplicateRegistration, got %v", err)
			}

			voters, _ := s.voters.ListVoters(ctx)
			if len(voters) != 1 {
				t.Errorf("rejected registration must not insert, have %d voters", len(voters))
			}
			if voters[0].Name != "Voter A" {
				t.Errorf("original voter was modified: %+v", voters[0])
			}
		})
	}
}

func TestRegisterUser_Validation(t *testing.T) {
	tests := []struct {
		name    string
		reg     services.Registration
		message string
	}{
		{"missing name", services.Registration{Aadhar: "234567890123", VoterID: "ABC1234567"}, validation.MsgNameRequired},
		{"blank name", services.Registration{Name: "   ", Aadhar: "234567890123", VoterID: "ABC1234567"}, validation.MsgNameRequired},
		{"aadhar starts with 1", services.Registration{Name: "A", Aadhar: "123456789012", VoterID: "ABC1234567"}, validation.MsgAadharInvalid},
		{"short aadhar", services.Registration{Name: "A", Aadhar: "23456789", VoterID: "ABC1234567"}, validation.MsgAadharInvalid},
		{"missing aadhar", services.Registration{Name: "A", VoterID: "ABC1234567"}, validation.MsgAadharRequired},
		{"bad voter id", services.Registration{Name: "A", Aadhar: "234567890123", VoterID: "AB12345678"}, validation.MsgVoterIDInvalid},
		{"missing voter id", services.Registration{Name: "A", Aadhar: "234567890123"}, validation.MsgVoterIDRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupSuite(t)
			_, err := s.voters.RegisterUser(context.Background(), tt.reg)
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if err.Error() != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, err.Error())
			}
		})
	}
}

func TestRegisterUser_StoreError(t *testing.T) {
	m := mock.NewStore(testutil.NewTestStore(t))
	m.InsertVoterError = errors.New("disk full")
	svc := services.NewVoterService(logger.Nop(), m)

	_, err := svc.RegisterUser(context.Background(), validRegistration())
	if err == nil || err.Error() != "disk full" {
		t.Errorf("expected store error, got %v", err)
	}
}

func TestFindUserByCredentials(t *testing.T) {
	s := setupSuite(t)
	ctx := context.Background()
	if _, err := s.voters.RegisterUser(ctx, validRegistration()); err != nil {
		t.Fatalf("RegisterUser failed: %v", err)
	}

	t.Run("match", func(t *testing.T) {
		result, err := s.voters.FindUserByCredentials(ctx, "234567890123", "abc1234567")
		if err != nil {
			t.Fatalf("FindUserByCredentials failed: %v", err)
		}
		if result == nil || result.Voter.VoterID != "ABC1234567" {
			t.Fatalf("expected voter, got %+v", result)
		}
		if result.Status != models.StatusNotStarted {
			t.Errorf("expected NOT_STARTED, got %s", result.Status)
		}
	})

	t.Run("voter id mismatch", func(t *testing.T) {
		result, err := s.voters.FindUserByCredentials(ctx, "234567890123", "XYZ7654321")
		if err != nil || result != nil {
			t.Errorf("expected no match, got %+v, %v", result, err)
		}
	})

	t.Run("unknown aadhar", func(t *testing.T) {
		result, err := s.voters.FindUserByCredentials(ctx, "987654321098", "ABC1234567")
		if err != nil || result != nil {
			t.Errorf("expected no match, got %+v, %v", result, err)
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := s.voters.FindUserByCredentials(ctx, "0123", "ABC1234567")
		if !errors.Is(err, services.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})
}

func TestListVoters_RegistrationOrder(t *testing.T) {
	s := setupSuite(t)
	s.registerN(t, 3)

	voters, err := s.voters.ListVoters(context.Background())
	if err != nil {
		t.Fatalf("ListVoters failed: %v", err)
	}
	if len(voters) != 3 {
		t.Fatalf("expected 3 voters, got %d", len(voters))
	}
	for i, want := range []string{"ABC0000000", "ABC0000001", "ABC0000002"} {
		if voters[i].VoterID != want {
			t.Errorf("voters[%d] = %s, want %s", i, voters[i].VoterID, want)
		}
	}
}

func TestDeleteVoter(t *testing.T) {
	s := setupSuite(t)
	ctx := context.Background()
	voters := s.registerN(t, 2)
	x := s.addCandidate(t, "Asha", "Green")

	if err := s.voters.DeleteVoter(ctx, "ZZZ9999999"); err != services.ErrVoterNotFound {
		t.Errorf("expected ErrVoterNotFound, got %v", err)
	}

	s.start(t)
	if _, err := s.voting.CastVote(ctx, voters[0].VoterID, x.ID); err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}

	if err := s.voters.DeleteVoter(ctx, voters[0].VoterID); err != services.ErrVoterHasVoted {
		t.Errorf("expected ErrVoterHasVoted, got %v", err)
	}
	if err := s.voters.DeleteVoter(ctx, voters[1].VoterID); err != nil {
		t.Errorf("deleting a voter who has not voted failed: %v", err)
	}

	remaining, _ := s.voters.ListVoters(ctx)
	if len(remaining) != 1 || remaining[0].VoterID != voters[0].VoterID {
		t.Errorf("unexpected remaining voters: %+v", remaining)
	}
	s.assertTallyInvariant(t)
}

func TestVoterCardQR(t *testing.T) {
	s := setupSuite(t)
	ctx := context.Background()
	voter := s.registerN(t, 1)[0]

	png, err := s.voters.VoterCardQR(ctx, voter.VoterID)
	if err != nil {
		t.Fatalf("VoterCardQR failed: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("expected PNG output")
	}

	if _, err := s.voters.VoterCardQR(ctx, "ZZZ9999999"); err != services.ErrVoterNotFound {
		t.Errorf("expected ErrVoterNotFound, got %v", err)
	}
}

func TestVoterAdmin_NormalizesVoterID(t *testing.T) {
	s := setupSuite(t)
	ctx := context.Background()
	voter := s.registerN(t, 1)[0]
	typed := "  " + strings.ToLower(voter.VoterID) + " "

	png, err := s.voters.VoterCardQR(ctx, typed)
	if err != nil {
		t.Fatalf("VoterCardQR(%q) failed: %v", typed, err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("expected PNG output")
	}

	if err := s.voters.DeleteVoter(ctx, typed); err != nil {
		t.Fatalf("DeleteVoter(%q) failed: %v", typed, err)
	}
	remaining, _ := s.voters.ListVoters(ctx)
	if len(remaining) != 0 {
		t.Errorf("expected no voters left, got %+v", remaining)
	}
}
