package services_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/abrezinsky/avavote/internal/logger"
	"github.com/abrezinsky/avavote/internal/models"
	"github.com/abrezinsky/avavote/internal/repository"
	"github.com/abrezinsky/avavote/internal/services"
	"github.com/abrezinsky/avavote/internal/testutil"
)

// suite bundles every service over one store
type suite struct {
	store      repository.Store
	election   *services.ElectionService
	voting     *services.VotingService
	voters     *services.VoterService
	candidates *services.CandidateService
	results    *services.ResultsService
}

func newSuite(t *testing.T, store repository.Store) *suite {
	t.Helper()
	log := logger.Nop()
	return &suite{
		store:      store,
		election:   services.NewElectionService(log, store),
		voting:     services.NewVotingService(log, store),
		voters:     services.NewVoterService(log, store),
		candidates: services.NewCandidateService(log, store),
		results:    services.NewResultsService(log, store),
	}
}

// setupSuite creates all services over a fresh in-memory store
func setupSuite(t *testing.T) *suite {
	t.Helper()
	return newSuite(t, testutil.NewTestStore(t))
}

// registerN registers n voters with distinct valid identifiers
func (s *suite) registerN(t *testing.T, n int) []models.Voter {
	t.Helper()
	voters := make([]models.Voter, 0, n)
	for i := 0; i < n; i++ {
		v, err := s.voters.RegisterUser(context.Background(), services.Registration{
			Name:    fmt.Sprintf("Voter %d", i),
			Aadhar:  fmt.Sprintf("2%011d", i),
			VoterID: fmt.Sprintf("ABC%07d", i),
		})
		if err != nil {
			t.Fatalf("RegisterUser %d failed: %v", i, err)
		}
		voters = append(voters, *v)
	}
	return voters
}

func (s *suite) addCandidate(t *testing.T, name, party string) *models.Candidate {
	t.Helper()
	c, err := s.candidates.AddCandidate(context.Background(), services.CandidateInput{Name: name, Party: party})
	if err != nil {
		t.Fatalf("AddCandidate %s failed: %v", name, err)
	}
	return c
}

func (s *suite) start(t *testing.T) {
	t.Helper()
	if err := s.election.StartElection(context.Background()); err != nil {
		t.Fatalf("StartElection failed: %v", err)
	}
}

// setVotes writes a tally directly, bypassing vote casting
func (s *suite) setVotes(t *testing.T, c *models.Candidate, votes int) {
	t.Helper()
	c.Votes = votes
	if err := s.store.PutCandidate(context.Background(), *c); err != nil {
		t.Fatalf("PutCandidate failed: %v", err)
	}
}

// assertTallyInvariant checks sum(votes) == count(hasVoted)
func (s *suite) assertTallyInvariant(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	candidates, err := s.store.ListCandidates(ctx)
	if err != nil {
		t.Fatalf("ListCandidates failed: %v", err)
	}
	voters, err := s.store.ListVoters(ctx)
	if err != nil {
		t.Fatalf("ListVoters failed: %v", err)
	}
	sum, voted := 0, 0
	for _, c := range candidates {
		sum += c.Votes
	}
	for _, v := range voters {
		if v.HasVoted {
			voted++
		}
	}
	if sum != voted {
		t.Errorf("tally invariant broken: sum(votes)=%d, voted=%d", sum, voted)
	}
}
