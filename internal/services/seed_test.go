package services_test

import (
	"context"
	"testing"

	"github.com/abrezinsky/avavote/internal/logger"
	"github.com/abrezinsky/avavote/internal/models"
	"github.com/abrezinsky/avavote/internal/services"
	"github.com/abrezinsky/avavote/internal/testutil"
	"github.com/abrezinsky/avavote/internal/validation"
)

func TestSeedDemoData(t *testing.T) {
	store := testutil.NewTestStore(t)
	ctx := context.Background()

	seeded, err := services.SeedDemoData(ctx, logger.Nop(), store)
	if err != nil {
		t.Fatalf("SeedDemoData failed: %v", err)
	}
	if !seeded {
		t.Fatal("expected empty store to be seeded")
	}

	voter, err := store.GetVoter(ctx, services.DemoVoter.VoterID)
	if err != nil {
		t.Fatalf("GetVoter failed: %v", err)
	}
	if voter.Name != "Rohan Sharma" || voter.HasVoted {
		t.Errorf("unexpected demo voter: %+v", voter)
	}
	cfg, _ := store.GetConfig(ctx)
	if cfg.Status != models.StatusNotStarted {
		t.Errorf("expected NOT_STARTED, got %s", cfg.Status)
	}

	seeded, err = services.SeedDemoData(ctx, logger.Nop(), store)
	if err != nil {
		t.Fatalf("second SeedDemoData failed: %v", err)
	}
	if seeded {
		t.Error("expected second seed to be skipped")
	}
	voters, _ := store.ListVoters(ctx)
	if len(voters) != 1 {
		t.Errorf("expected 1 voter, got %d", len(voters))
	}
}

func TestSeedDemoData_SkipsPopulatedStore(t *testing.T) {
	s := setupSuite(t)
	s.registerN(t, 2)

	seeded, err := services.SeedDemoData(context.Background(), logger.Nop(), s.store)
	if err != nil {
		t.Fatalf("SeedDemoData failed: %v", err)
	}
	if seeded {
		t.Error("expected populated store to be left alone")
	}
}

func TestDemoVoter_PassesValidation(t *testing.T) {
	if err := validation.Aadhar(services.DemoVoter.Aadhar); err != nil {
		t.Errorf("demo aadhar rejected: %v", err)
	}
	if err := validation.VoterID(services.DemoVoter.VoterID); err != nil {
		t.Errorf("demo voter id rejected: %v", err)
	}
}
