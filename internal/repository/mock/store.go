package mock

import (
	"context"

	"github.com/abrezinsky/avavote/internal/models"
	"github.com/abrezinsky/avavote/internal/repository"
)

// Store wraps a real store and allows injecting errors for testing.
// Injected errors apply both to direct calls and to calls made through the
// Tx handed to a Transact callback.
//
// Usage:
//
//	realStore := testutil.NewTestStore(t)
//	mockStore := mock.NewStore(realStore)
//	mockStore.PutCandidateError = errors.New("database error")
//	svc := services.NewVotingService(log, mockStore)
//	_, err := svc.CastVote(ctx, voterID, candidateID)
//	// err will now contain the injected error
type Store struct {
	repository.Store

	// ===== Voter Errors =====
	GetVoterError          error
	FindVoterByAadharError error
	ListVotersError        error
	InsertVoterError       error
	PutVoterError          error
	DeleteVoterError       error

	// ===== Candidate Errors =====
	GetCandidateError    error
	ListCandidatesError  error
	PutCandidateError    error
	DeleteCandidateError error

	// ===== Config Errors =====
	GetConfigError error
	PutConfigError error

	// ===== Store Errors =====
	TransactError error
	FlushError    error
	PingError     error
}

// NewStore creates a mock store wrapping a real one
func NewStore(real repository.Store) *Store {
	return &Store{Store: real}
}

// Ensure Store implements repository.Store
var _ repository.Store = (*Store)(nil)

// ===== Voter Methods =====

func (m *Store) GetVoter(ctx context.Context, voterID string) (*models.Voter, error) {
	return m.direct().GetVoter(ctx, voterID)
}

func (m *Store) FindVoterByAadhar(ctx context.Context, aadhar string) (*models.Voter, error) {
	return m.direct().FindVoterByAadhar(ctx, aadhar)
}

func (m *Store) ListVoters(ctx context.Context) ([]models.Voter, error) {
	return m.direct().ListVoters(ctx)
}

func (m *Store) InsertVoter(ctx context.Context, voter models.Voter) error {
	return m.direct().InsertVoter(ctx, voter)
}

func (m *Store) PutVoter(ctx context.Context, voter models.Voter) error {
	return m.direct().PutVoter(ctx, voter)
}

func (m *Store) DeleteVoter(ctx context.Context, voterID string) error {
	return m.direct().DeleteVoter(ctx, voterID)
}

// ===== Candidate Methods =====

func (m *Store) GetCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	return m.direct().GetCandidate(ctx, id)
}

func (m *Store) ListCandidates(ctx context.Context) ([]models.Candidate, error) {
	return m.direct().ListCandidates(ctx)
}

func (m *Store) PutCandidate(ctx context.Context, candidate models.Candidate) error {
	return m.direct().PutCandidate(ctx, candidate)
}

func (m *Store) DeleteCandidate(ctx context.Context, id string) error {
	return m.direct().DeleteCandidate(ctx, id)
}

// ===== Config Methods =====

func (m *Store) GetConfig(ctx context.Context) (*models.ElectionConfig, error) {
	return m.direct().GetConfig(ctx)
}

func (m *Store) PutConfig(ctx context.Context, cfg models.ElectionConfig) error {
	return m.direct().PutConfig(ctx, cfg)
}

// ===== Store Methods =====

func (m *Store) Transact(ctx context.Context, fn repository.TxFunc) error {
	if m.TransactError != nil {
		return m.TransactError
	}
	return m.Store.Transact(ctx, func(ctx context.Context, tx repository.Tx) error {
		return fn(ctx, &txWrapper{m: m, tx: tx})
	})
}

func (m *Store) Flush(ctx context.Context) error {
	if m.FlushError != nil {
		return m.FlushError
	}
	return m.Store.Flush(ctx)
}

func (m *Store) Ping(ctx context.Context) error {
	if m.PingError != nil {
		return m.PingError
	}
	return m.Store.Ping(ctx)
}

// direct routes calls on the store itself through the same error checks
func (m *Store) direct() *txWrapper {
	return &txWrapper{m: m, tx: m.Store}
}

// txWrapper applies the injected errors to any Reader/Writer pair
type txWrapper struct {
	m  *Store
	tx repository.Tx
}

func (w *txWrapper) GetVoter(ctx context.Context, voterID string) (*models.Voter, error) {
	if w.m.GetVoterError != nil {
		return nil, w.m.GetVoterError
	}
	return w.tx.GetVoter(ctx, voterID)
}

func (w *txWrapper) FindVoterByAadhar(ctx context.Context, aadhar string) (*models.Voter, error) {
	if w.m.FindVoterByAadharError != nil {
		return nil, w.m.FindVoterByAadharError
	}
	return w.tx.FindVoterByAadhar(ctx, aadhar)
}

func (w *txWrapper) ListVoters(ctx context.Context) ([]models.Voter, error) {
	if w.m.ListVotersError != nil {
		return nil, w.m.ListVotersError
	}
	return w.tx.ListVoters(ctx)
}

func (w *txWrapper) InsertVoter(ctx context.Context, voter models.Voter) error {
	if w.m.InsertVoterError != nil {
		return w.m.InsertVoterError
	}
	return w.tx.InsertVoter(ctx, voter)
}

func (w *txWrapper) PutVoter(ctx context.Context, voter models.Voter) error {
	if w.m.PutVoterError != nil {
		return w.m.PutVoterError
	}
	return w.tx.PutVoter(ctx, voter)
}

func (w *txWrapper) DeleteVoter(ctx context.Context, voterID string) error {
	if w.m.DeleteVoterError != nil {
		return w.m.DeleteVoterError
	}
	return w.tx.DeleteVoter(ctx, voterID)
}

func (w *txWrapper) GetCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	if w.m.GetCandidateError != nil {
		return nil, w.m.GetCandidateError
	}
	return w.tx.GetCandidate(ctx, id)
}

func (w *txWrapper) ListCandidates(ctx context.Context) ([]models.Candidate, error) {
	if w.m.ListCandidatesError != nil {
		return nil, w.m.ListCandidatesError
	}
	return w.tx.ListCandidates(ctx)
}

func (w *txWrapper) PutCandidate(ctx context.Context, candidate models.Candidate) error {
	if w.m.PutCandidateError != nil {
		return w.m.PutCandidateError
	}
	return w.tx.PutCandidate(ctx, candidate)
}

func (w *txWrapper) DeleteCandidate(ctx context.Context, id string) error {
	if w.m.DeleteCandidateError != nil {
		return w.m.DeleteCandidateError
	}
	return w.tx.DeleteCandidate(ctx, id)
}

func (w *txWrapper) GetConfig(ctx context.Context) (*models.ElectionConfig, error) {
	if w.m.GetConfigError != nil {
		return nil, w.m.GetConfigError
	}
	return w.tx.GetConfig(ctx)
}

func (w *txWrapper) PutConfig(ctx context.Context, cfg models.ElectionConfig) error {
	if w.m.PutConfigError != nil {
		return w.m.PutConfigError
	}
	return w.tx.PutConfig(ctx, cfg)
}
