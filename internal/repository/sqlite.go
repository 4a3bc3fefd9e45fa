package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/abrezinsky/avavote/internal/errors"
	"github.com/abrezinsky/avavote/internal/logger"
	"github.com/abrezinsky/avavote/internal/models"
	"github.com/abrezinsky/avavote/internal/notify"
)

// DefaultTxAttempts bounds how often a busy SQLite transaction is retried
const DefaultTxAttempts = 5

// SQLiteOptions tunes the local store
type SQLiteOptions struct {
	// TxAttempts is the maximum number of commit attempts per transaction
	TxAttempts int
	// RetryBackoff is multiplied by the attempt number between retries
	RetryBackoff time.Duration
}

// SQLiteStore is the local durable persistence adapter. A single process-wide
// lock serializes every write transaction, so SQLite only ever sees one
// writer from this process. Busy errors from other processes sharing the
// file are retried a bounded number of times.
type SQLiteStore struct {
	db        *sql.DB
	log       logger.Logger
	publisher notify.Publisher
	lock      chan struct{}
	attempts  int
	backoff   time.Duration
}

// NewSQLite opens (or creates) the database at dbPath. Use ":memory:" for
// an ephemeral store.
func NewSQLite(dbPath string, log logger.Logger, publisher notify.Publisher) (*SQLiteStore, error) {
	return NewSQLiteWithOptions(dbPath, log, publisher, SQLiteOptions{})
}

// NewSQLiteWithOptions is NewSQLite with explicit tuning
func NewSQLiteWithOptions(dbPath string, log logger.Logger, publisher notify.Publisher, opts SQLiteOptions) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 2000"); err != nil {
		db.Close()
		return nil, err
	}

	// SQLite works best with single connection, and :memory: requires it
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := newSQLiteStore(db, log, publisher, opts)
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info("SQLite store ready", "path", dbPath, "tx_attempts", s.attempts)
	return s, nil
}

func newSQLiteStore(db *sql.DB, log logger.Logger, publisher notify.Publisher, opts SQLiteOptions) *SQLiteStore {
	if opts.TxAttempts <= 0 {
		opts.TxAttempts = DefaultTxAttempts
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 10 * time.Millisecond
	}
	return &SQLiteStore{
		db:        db,
		log:       log,
		publisher: publisher,
		lock:      make(chan struct{}, 1),
		attempts:  opts.TxAttempts,
		backoff:   opts.RetryBackoff,
	}
}

// migrate runs database migrations
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS voters (
			voter_id TEXT PRIMARY KEY,
			aadhar TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			photo TEXT,
			has_voted BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS candidates (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			party TEXT NOT NULL,
			photo TEXT,
			votes INTEGER NOT NULL DEFAULT 0 CHECK (votes >= 0),
			created_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS config (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			status TEXT NOT NULL DEFAULT 'NOT_STARTED',
			winner_id TEXT,
			votes_cast INTEGER NOT NULL DEFAULT 0,
			revision INTEGER NOT NULL DEFAULT 0
		)`,
		`INSERT OR IGNORE INTO config (id, status) VALUES (1, 'NOT_STARTED')`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}

// DB returns the underlying database connection
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Backend implements Store
func (s *SQLiteStore) Backend() Backend {
	return BackendSQLite
}

// Ping checks if the database connection is alive
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return classify(s.db.PingContext(ctx))
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// ==================== Reads ====================

func (s *SQLiteStore) GetVoter(ctx context.Context, voterID string) (*models.Voter, error) {
	v, err := sqlOps{s.db}.GetVoter(ctx, voterID)
	return v, classify(err)
}

func (s *SQLiteStore) FindVoterByAadhar(ctx context.Context, aadhar string) (*models.Voter, error) {
	v, err := sqlOps{s.db}.FindVoterByAadhar(ctx, aadhar)
	return v, classify(err)
}

func (s *SQLiteStore) ListVoters(ctx context.Context) ([]models.Voter, error) {
	voters, err := sqlOps{s.db}.ListVoters(ctx)
	return voters, classify(err)
}

func (s *SQLiteStore) GetCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	c, err := sqlOps{s.db}.GetCandidate(ctx, id)
	return c, classify(err)
}

func (s *SQLiteStore) ListCandidates(ctx context.Context) ([]models.Candidate, error) {
	candidates, err := sqlOps{s.db}.ListCandidates(ctx)
	return candidates, classify(err)
}

func (s *SQLiteStore) GetConfig(ctx context.Context) (*models.ElectionConfig, error) {
	cfg, err := sqlOps{s.db}.GetConfig(ctx)
	return cfg, classify(err)
}

// ==================== Single-record writes ====================

func (s *SQLiteStore) InsertVoter(ctx context.Context, voter models.Voter) error {
	return s.Transact(ctx, func(ctx context.Context, tx Tx) error {
		return tx.InsertVoter(ctx, voter)
	})
}

func (s *SQLiteStore) PutVoter(ctx context.Context, voter models.Voter) error {
	return s.Transact(ctx, func(ctx context.Context, tx Tx) error {
		return tx.PutVoter(ctx, voter)
	})
}

func (s *SQLiteStore) DeleteVoter(ctx context.Context, voterID string) error {
	return s.Transact(ctx, func(ctx context.Context, tx Tx) error {
		return tx.DeleteVoter(ctx, voterID)
	})
}

func (s *SQLiteStore) PutCandidate(ctx context.Context, candidate models.Candidate) error {
	return s.Transact(ctx, func(ctx context.Context, tx Tx) error {
		return tx.PutCandidate(ctx, candidate)
	})
}

func (s *SQLiteStore) DeleteCandidate(ctx context.Context, id string) error {
	return s.Transact(ctx, func(ctx context.Context, tx Tx) error {
		return tx.DeleteCandidate(ctx, id)
	})
}

func (s *SQLiteStore) PutConfig(ctx context.Context, cfg models.ElectionConfig) error {
	return s.Transact(ctx, func(ctx context.Context, tx Tx) error {
		return tx.PutConfig(ctx, cfg)
	})
}

// Flush deletes every voter and candidate and resets the config in one
// transaction. All four categories are announced.
func (s *SQLiteStore) Flush(ctx context.Context) error {
	return s.Transact(ctx, func(ctx context.Context, tx Tx) error {
		return tx.(*sqliteTx).flush(ctx)
	})
}

// ==================== Transactions ====================

// Transact implements Store. The lock is held for the whole retry loop and
// released before subscribers are notified.
func (s *SQLiteStore) Transact(ctx context.Context, fn TxFunc) error {
	touched, err := s.transact(ctx, fn)
	if err != nil {
		return err
	}
	s.publish(touched)
	return nil
}

func (s *SQLiteStore) transact(ctx context.Context, fn TxFunc) (map[notify.Category]bool, error) {
	select {
	case s.lock <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-s.lock }()

	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		touched, err := s.runOnce(ctx, fn)
		if err == nil {
			return touched, nil
		}
		if !isBusy(err) {
			return nil, err
		}
		lastErr = err
		s.log.Debug("SQLite busy, retrying transaction", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.backoff * time.Duration(attempt)):
		}
	}

	s.log.Warn("Transaction abandoned after retries", "attempts", s.attempts, "error", lastErr)
	return nil, errors.Unavailable(fmt.Errorf("%w: %v", ErrContention, lastErr))
}

func (s *SQLiteStore) runOnce(ctx context.Context, fn TxFunc) (map[notify.Category]bool, error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(err)
	}

	tx := &sqliteTx{sqlOps: sqlOps{sqlTx}, touched: make(map[notify.Category]bool)}
	if err := fn(ctx, tx); err != nil {
		sqlTx.Rollback()
		return nil, err
	}
	if err := sqlTx.Commit(); err != nil {
		return nil, classify(err)
	}
	return tx.touched, nil
}

func (s *SQLiteStore) publish(touched map[notify.Category]bool) {
	if s.publisher == nil || len(touched) == 0 {
		return
	}
	var categories []notify.Category
	for _, c := range notify.All {
		if touched[c] {
			categories = append(categories, c)
		}
	}
	s.publisher.Publish(categories...)
}

// sqliteTx records which categories a transaction changed
type sqliteTx struct {
	sqlOps
	touched map[notify.Category]bool
}

func (t *sqliteTx) touch(categories ...notify.Category) {
	for _, c := range categories {
		t.touched[c] = true
	}
}

func (t *sqliteTx) InsertVoter(ctx context.Context, voter models.Voter) error {
	if err := t.sqlOps.InsertVoter(ctx, voter); err != nil {
		return err
	}
	t.touch(notify.Voters)
	return nil
}

func (t *sqliteTx) PutVoter(ctx context.Context, voter models.Voter) error {
	if err := t.sqlOps.PutVoter(ctx, voter); err != nil {
		return err
	}
	t.touch(notify.Voters)
	return nil
}

func (t *sqliteTx) DeleteVoter(ctx context.Context, voterID string) error {
	if err := t.sqlOps.DeleteVoter(ctx, voterID); err != nil {
		return err
	}
	t.touch(notify.Voters)
	return nil
}

func (t *sqliteTx) PutCandidate(ctx context.Context, candidate models.Candidate) error {
	if err := t.sqlOps.PutCandidate(ctx, candidate); err != nil {
		return err
	}
	t.touch(notify.Candidates, notify.Votes)
	return nil
}

func (t *sqliteTx) DeleteCandidate(ctx context.Context, id string) error {
	if err := t.sqlOps.DeleteCandidate(ctx, id); err != nil {
		return err
	}
	t.touch(notify.Candidates, notify.Votes)
	return nil
}

// PutConfig only announces a status change when status or winner moved;
// the per-vote counter alone is not a lifecycle event.
func (t *sqliteTx) PutConfig(ctx context.Context, cfg models.ElectionConfig) error {
	prev, err := t.sqlOps.GetConfig(ctx)
	if err != nil {
		return err
	}
	if err := t.sqlOps.PutConfig(ctx, cfg); err != nil {
		return err
	}
	if prev.Status != cfg.Status || prev.WinnerID != cfg.WinnerID {
		t.touch(notify.ElectionStatus)
	}
	return nil
}

func (t *sqliteTx) flush(ctx context.Context) error {
	if _, err := t.q.ExecContext(ctx, `DELETE FROM voters`); err != nil {
		return err
	}
	if _, err := t.q.ExecContext(ctx, `DELETE FROM candidates`); err != nil {
		return err
	}
	if err := t.sqlOps.PutConfig(ctx, models.DefaultElectionConfig()); err != nil {
		return err
	}
	t.touch(notify.All...)
	return nil
}

// ==================== SQL operations ====================

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

// sqlOps implements Reader and Writer against a queryer
type sqlOps struct {
	q queryer
}

const voterColumns = `voter_id, aadhar, name, photo, has_voted, created_at`

const candidateColumns = `id, name, party, photo, votes, created_at`

func (o sqlOps) GetVoter(ctx context.Context, voterID string) (*models.Voter, error) {
	row := o.q.QueryRowContext(ctx, `SELECT `+voterColumns+` FROM voters WHERE voter_id = ?`, voterID)
	return scanVoter(row)
}

func (o sqlOps) FindVoterByAadhar(ctx context.Context, aadhar string) (*models.Voter, error) {
	row := o.q.QueryRowContext(ctx, `SELECT `+voterColumns+` FROM voters WHERE aadhar = ?`, aadhar)
	return scanVoter(row)
}

func (o sqlOps) ListVoters(ctx context.Context) ([]models.Voter, error) {
	rows, err := o.q.QueryContext(ctx, `SELECT `+voterColumns+` FROM voters ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	voters := []models.Voter{}
	for rows.Next() {
		v, err := scanVoter(rows)
		if err != nil {
			return nil, err
		}
		voters = append(voters, *v)
	}
	return voters, rows.Err()
}

func (o sqlOps) GetCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	row := o.q.QueryRowContext(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE id = ?`, id)
	return scanCandidate(row)
}

func (o sqlOps) ListCandidates(ctx context.Context) ([]models.Candidate, error) {
	rows, err := o.q.QueryContext(ctx, `SELECT `+candidateColumns+` FROM candidates ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates := []models.Candidate{}
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, *c)
	}
	return candidates, rows.Err()
}

func (o sqlOps) GetConfig(ctx context.Context) (*models.ElectionConfig, error) {
	var status string
	var winnerID sql.NullString
	var votesCast int
	var revision int64
	err := o.q.QueryRowContext(ctx, `SELECT status, winner_id, votes_cast, revision FROM config WHERE id = 1`).
		Scan(&status, &winnerID, &votesCast, &revision)
	if err == sql.ErrNoRows {
		cfg := models.DefaultElectionConfig()
		return &cfg, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.ElectionConfig{
		Status:    models.ElectionStatus(status),
		WinnerID:  winnerID.String,
		VotesCast: votesCast,
		Revision:  revision,
	}, nil
}

func (o sqlOps) InsertVoter(ctx context.Context, v models.Voter) error {
	_, err := o.q.ExecContext(ctx, `
		INSERT INTO voters (voter_id, aadhar, name, photo, has_voted, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, v.VoterID, v.Aadhar, v.Name, nullString(v.Photo), v.HasVoted, v.CreatedAt.UTC())
	if isConstraintViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (o sqlOps) PutVoter(ctx context.Context, v models.Voter) error {
	_, err := o.q.ExecContext(ctx, `
		INSERT INTO voters (voter_id, aadhar, name, photo, has_voted, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(voter_id) DO UPDATE SET
			aadhar = excluded.aadhar,
			name = excluded.name,
			photo = excluded.photo,
			has_voted = excluded.has_voted
	`, v.VoterID, v.Aadhar, v.Name, nullString(v.Photo), v.HasVoted, v.CreatedAt.UTC())
	if isConstraintViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (o sqlOps) DeleteVoter(ctx context.Context, voterID string) error {
	return o.deleteByKey(ctx, `DELETE FROM voters WHERE voter_id = ?`, voterID)
}

func (o sqlOps) PutCandidate(ctx context.Context, c models.Candidate) error {
	_, err := o.q.ExecContext(ctx, `
		INSERT INTO candidates (id, name, party, photo, votes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			party = excluded.party,
			photo = excluded.photo,
			votes = excluded.votes
	`, c.ID, c.Name, c.Party, nullString(c.Photo), c.Votes, c.CreatedAt.UTC())
	return err
}

func (o sqlOps) DeleteCandidate(ctx context.Context, id string) error {
	return o.deleteByKey(ctx, `DELETE FROM candidates WHERE id = ?`, id)
}

func (o sqlOps) PutConfig(ctx context.Context, cfg models.ElectionConfig) error {
	_, err := o.q.ExecContext(ctx, `
		INSERT INTO config (id, status, winner_id, votes_cast, revision) VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			winner_id = excluded.winner_id,
			votes_cast = excluded.votes_cast,
			revision = excluded.revision
	`, string(cfg.Status), nullString(cfg.WinnerID), cfg.VotesCast, cfg.Revision)
	return err
}

func (o sqlOps) deleteByKey(ctx context.Context, query, key string) error {
	result, err := o.q.ExecContext(ctx, query, key)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanVoter(row scanner) (*models.Voter, error) {
	var v models.Voter
	var photo sql.NullString
	var createdAt sql.NullTime
	err := row.Scan(&v.VoterID, &v.Aadhar, &v.Name, &photo, &v.HasVoted, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	v.Photo = photo.String
	if createdAt.Valid {
		v.CreatedAt = createdAt.Time
	}
	return &v, nil
}

func scanCandidate(row scanner) (*models.Candidate, error) {
	var c models.Candidate
	var photo sql.NullString
	var createdAt sql.NullTime
	err := row.Scan(&c.ID, &c.Name, &c.Party, &photo, &c.Votes, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Photo = photo.String
	if createdAt.Valid {
		c.CreatedAt = createdAt.Time
	}
	return &c, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// isBusy reports SQLite lock contention, which is safe to retry
func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if stderrors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if stderrors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// classify converts connection-level failures into PersistenceUnavailable
// and passes everything else through unchanged.
func classify(err error) error {
	if err == nil || err == ErrNotFound || err == ErrDuplicate {
		return err
	}
	if isBusy(err) ||
		stderrors.Is(err, sql.ErrConnDone) ||
		strings.Contains(err.Error(), "database is closed") {
		return errors.Unavailable(err)
	}
	return err
}
