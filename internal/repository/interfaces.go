package repository

import (
	"context"

	"github.com/abrezinsky/avavote/internal/models"
)

// Backend names a persistence adapter implementation
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendMongo  Backend = "mongo"
)

// Reader defines read access to the three collections
type Reader interface {
	GetVoter(ctx context.Context, voterID string) (*models.Voter, error)
	FindVoterByAadhar(ctx context.Context, aadhar string) (*models.Voter, error)
	ListVoters(ctx context.Context) ([]models.Voter, error)
	GetCandidate(ctx context.Context, id string) (*models.Candidate, error)
	ListCandidates(ctx context.Context) ([]models.Candidate, error)
	// GetConfig never returns ErrNotFound; a missing record reads as
	// models.DefaultElectionConfig.
	GetConfig(ctx context.Context) (*models.ElectionConfig, error)
}

// Writer defines single-record mutations
type Writer interface {
	// InsertVoter returns ErrDuplicate if voterId or aadhar is taken
	InsertVoter(ctx context.Context, voter models.Voter) error
	PutVoter(ctx context.Context, voter models.Voter) error
	DeleteVoter(ctx context.Context, voterID string) error
	PutCandidate(ctx context.Context, candidate models.Candidate) error
	DeleteCandidate(ctx context.Context, id string) error
	PutConfig(ctx context.Context, cfg models.ElectionConfig) error
}

// Tx is the view handed to a Transact callback. Every call must use the
// context passed to the callback.
type Tx interface {
	Reader
	Writer
}

// TxFunc is a transaction body. It may run more than once; returning an
// error aborts the transaction without retry.
type TxFunc func(ctx context.Context, tx Tx) error

// Store is the persistence adapter. Writers on the Store itself are atomic
// per record; Transact is atomic across records. Committed changes are
// announced to the change notifier by the implementation.
type Store interface {
	Reader
	Writer
	// Transact runs fn atomically. The SQLite store serializes transactions;
	// MongoDB runs them under snapshot isolation, where two transactions
	// conflict only if both write the same document. Callers that must
	// exclude each other therefore both write the config record. fn must not
	// call methods on the Store itself, only on tx.
	Transact(ctx context.Context, fn TxFunc) error
	// Flush deletes all voters and candidates and resets the election config
	Flush(ctx context.Context) error
	Backend() Backend
	Ping(ctx context.Context) error
	Close() error
}

// Ensure implementations satisfy the Store interface
var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*MongoStore)(nil)
)
