package services

import (
	"context"

	"github.com/abrezinsky/avavote/internal/logger"
	"github.com/abrezinsky/avavote/internal/models"
	"github.com/abrezinsky/avavote/internal/repository"
)

// ResultsService is the read side of the election: tallies and turnout
type ResultsService struct {
	log   logger.Logger
	store repository.Store
}

// NewResultsService creates a new ResultsService
func NewResultsService(log logger.Logger, store repository.Store) *ResultsService {
	return &ResultsService{log: log, store: store}
}

// Stats summarizes participation
type Stats struct {
	Status      models.ElectionStatus `json:"status"`
	TotalVoters int                   `json:"total_voters"`
	VotesCast   int                   `json:"votes_cast"`
	Turnout     float64               `json:"turnout"`
	Candidates  int                   `json:"candidates"`
	TotalVotes  int                   `json:"total_votes"`
}

// GetVoteCounts returns one row per candidate, in listing order
func (s *ResultsService) GetVoteCounts(ctx context.Context) ([]models.VoteCount, error) {
	candidates, err := s.store.ListCandidates(ctx)
	if err != nil {
		return nil, err
	}

	counts := make([]models.VoteCount, 0, len(candidates))
	for _, c := range candidates {
		counts = append(counts, models.VoteCount{Candidate: c, Votes: c.Votes})
	}
	return counts, nil
}

// GetStats returns voter turnout and tally totals. The reads are not taken
// in one snapshot, so during voting VotesCast and TotalVotes may briefly
// disagree.
func (s *ResultsService) GetStats(ctx context.Context) (*Stats, error) {
	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	voters, err := s.store.ListVoters(ctx)
	if err != nil {
		return nil, err
	}
	candidates, err := s.store.ListCandidates(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Status:      cfg.Status,
		TotalVoters: len(voters),
		Candidates:  len(candidates),
	}
	for _, v := range voters {
		if v.HasVoted {
			stats.VotesCast++
		}
	}
	for _, c := range candidates {
		stats.TotalVotes += c.Votes
	}
	if stats.TotalVoters > 0 {
		stats.Turnout = float64(stats.VotesCast) / float64(stats.TotalVoters)
	}
	return stats, nil
}
