package repository

import (
	"context"
	stderrors "errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mattn/go-sqlite3"

	"github.com/abrezinsky/avavote/internal/errors"
	"github.com/abrezinsky/avavote/internal/logger"
	"github.com/abrezinsky/avavote/internal/models"
	"github.com/abrezinsky/avavote/internal/notify"
)

// recorder captures published category batches
type recorder struct {
	mu      sync.Mutex
	batches [][]notify.Category
}

func (r *recorder) Publish(categories ...notify.Category) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, append([]notify.Category(nil), categories...))
}

func (r *recorder) last() []notify.Category {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.batches) == 0 {
		return nil
	}
	return r.batches[len(r.batches)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

// newTestStore creates a new in-memory store for testing.
func newTestStore(t *testing.T) (*SQLiteStore, *recorder) {
	t.Helper()
	rec := &recorder{}
	store, err := NewSQLite(":memory:", logger.Nop(), rec)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, rec
}

func testVoter(id, aadhar string) models.Voter {
	return models.Voter{
		VoterID:   id,
		Aadhar:    aadhar,
		Name:      "Voter " + id,
		CreatedAt: time.Now(),
	}
}

// ==================== Voter Tests ====================

func TestInsertVoter_RoundTrip(t *testing.T) {
	store, rec := newTestStore(t)
	ctx := context.Background()

	v := testVoter("ABC1234567", "234567890123")
	v.Photo = "data:image/png;base64,AAAA"
	if err := store.InsertVoter(ctx, v); err != nil {
		t.Fatalf("InsertVoter failed: %v", err)
	}

	got, err := store.GetVoter(ctx, "ABC1234567")
	if err != nil {
		t.Fatalf("GetVoter failed: %v", err)
	}
	if got.Aadhar != v.Aadhar || got.Name != v.Name || got.Photo != v.Photo || got.HasVoted {
		t.Errorf("unexpected voter: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected created_at to survive the round trip")
	}
	if !reflect.DeepEqual(rec.last(), []notify.Category{notify.Voters}) {
		t.Errorf("expected voters notification, got %v", rec.last())
	}
}

func TestInsertVoter_DuplicateVoterID(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.InsertVoter(ctx, testVoter("ABC1234567", "234567890123")); err != nil {
		t.Fatalf("InsertVoter failed: %v", err)
	}
	err := store.InsertVoter(ctx, testVoter("ABC1234567", "345678901234"))
	if err != ErrDuplicate {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestInsertVoter_DuplicateAadhar(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.InsertVoter(ctx, testVoter("ABC1234567", "234567890123")); err != nil {
		t.Fatalf("InsertVoter failed: %v", err)
	}
	err := store.InsertVoter(ctx, testVoter("XYZ7654321", "234567890123"))
	if err != ErrDuplicate {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	voters, _ := store.ListVoters(ctx)
	if len(voters) != 1 {
		t.Errorf("expected 1 voter after rejected insert, got %d", len(voters))
	}
}

func TestFindVoterByAadhar(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	store.InsertVoter(ctx, testVoter("ABC1234567", "234567890123"))

	v, err := store.FindVoterByAadhar(ctx, "234567890123")
	if err != nil {
		t.Fatalf("FindVoterByAadhar failed: %v", err)
	}
	if v.VoterID != "ABC1234567" {
		t.Errorf("expected ABC1234567, got %s", v.VoterID)
	}

	if _, err := store.FindVoterByAadhar(ctx, "999999999999"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPutVoter_UpdatesHasVoted(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	v := testVoter("ABC1234567", "234567890123")
	store.InsertVoter(ctx, v)

	v.HasVoted = true
	if err := store.PutVoter(ctx, v); err != nil {
		t.Fatalf("PutVoter failed: %v", err)
	}

	got, _ := store.GetVoter(ctx, v.VoterID)
	if !got.HasVoted {
		t.Error("expected has_voted to be true")
	}
}

func TestListVoters_InsertionOrder(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	ids := []string{"ZZZ0000001", "AAA0000002", "MMM0000003"}
	for i, id := range ids {
		store.InsertVoter(ctx, testVoter(id, fmt.Sprintf("2345678901%02d", i)))
	}

	voters, err := store.ListVoters(ctx)
	if err != nil {
		t.Fatalf("ListVoters failed: %v", err)
	}
	if len(voters) != 3 {
		t.Fatalf("expected 3 voters, got %d", len(voters))
	}
	for i, id := range ids {
		if voters[i].VoterID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, voters[i].VoterID)
		}
	}
}

func TestListVoters_EmptyIsNotNil(t *testing.T) {
	store, _ := newTestStore(t)

	voters, err := store.ListVoters(context.Background())
	if err != nil {
		t.Fatalf("ListVoters failed: %v", err)
	}
	if voters == nil {
		t.Error("expected empty slice, got nil")
	}
}

func TestDeleteVoter(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	store.InsertVoter(ctx, testVoter("ABC1234567", "234567890123"))
	if err := store.DeleteVoter(ctx, "ABC1234567"); err != nil {
		t.Fatalf("DeleteVoter failed: %v", err)
	}
	if _, err := store.GetVoter(ctx, "ABC1234567"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteVoter(ctx, "ABC1234567"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

// ==================== Candidate Tests ====================

func TestPutCandidate_InsertAndUpdate(t *testing.T) {
	store, rec := newTestStore(t)
	ctx := context.Background()

	c := models.Candidate{ID: "c1", Name: "Asha", Party: "Green", CreatedAt: time.Now()}
	if err := store.PutCandidate(ctx, c); err != nil {
		t.Fatalf("PutCandidate failed: %v", err)
	}
	if !reflect.DeepEqual(rec.last(), []notify.Category{notify.Candidates, notify.Votes}) {
		t.Errorf("expected candidates+votes notification, got %v", rec.last())
	}

	c.Votes = 4
	c.Party = "Blue"
	if err := store.PutCandidate(ctx, c); err != nil {
		t.Fatalf("PutCandidate update failed: %v", err)
	}

	got, err := store.GetCandidate(ctx, "c1")
	if err != nil {
		t.Fatalf("GetCandidate failed: %v", err)
	}
	if got.Votes != 4 || got.Party != "Blue" {
		t.Errorf("unexpected candidate: %+v", got)
	}

	candidates, _ := store.ListCandidates(ctx)
	if len(candidates) != 1 {
		t.Errorf("expected update not to duplicate the row, got %d", len(candidates))
	}
}

func TestPutCandidate_NegativeVotesRejected(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.PutCandidate(context.Background(), models.Candidate{ID: "c1", Name: "A", Party: "P", Votes: -1})
	if err == nil {
		t.Error("expected check constraint to reject negative votes")
	}
}

func TestDeleteCandidate_NotFound(t *testing.T) {
	store, rec := newTestStore(t)

	if err := store.DeleteCandidate(context.Background(), "missing"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if rec.count() != 0 {
		t.Errorf("expected no notification for a failed delete, got %d", rec.count())
	}
}

// ==================== Config Tests ====================

func TestGetConfig_Default(t *testing.T) {
	store, _ := newTestStore(t)

	cfg, err := store.GetConfig(context.Background())
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}
	if cfg.Status != models.StatusNotStarted || cfg.WinnerID != "" || cfg.VotesCast != 0 {
		t.Errorf("unexpected default config: %+v", cfg)
	}
}

func TestPutConfig_NotifiesOnlyOnStatusChange(t *testing.T) {
	store, rec := newTestStore(t)
	ctx := context.Background()

	store.PutConfig(ctx, models.ElectionConfig{Status: models.StatusInProgress})
	if !reflect.DeepEqual(rec.last(), []notify.Category{notify.ElectionStatus}) {
		t.Errorf("expected electionStatus notification, got %v", rec.last())
	}

	before := rec.count()
	store.PutConfig(ctx, models.ElectionConfig{Status: models.StatusInProgress, VotesCast: 1})
	if rec.count() != before {
		t.Errorf("expected counter-only change to be silent, got %v", rec.last())
	}

	before = rec.count()
	store.PutConfig(ctx, models.ElectionConfig{Status: models.StatusInProgress, VotesCast: 1, Revision: 4})
	if rec.count() != before {
		t.Errorf("expected revision-only change to be silent, got %v", rec.last())
	}

	store.PutConfig(ctx, models.ElectionConfig{Status: models.StatusDeclared, WinnerID: "c1", VotesCast: 1, Revision: 4})
	cfg, _ := store.GetConfig(ctx)
	if cfg.Status != models.StatusDeclared || cfg.WinnerID != "c1" || cfg.VotesCast != 1 || cfg.Revision != 4 {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

// ==================== Transaction Tests ====================

func TestTransact_RollbackOnError(t *testing.T) {
	store, rec := newTestStore(t)
	ctx := context.Background()

	boom := stderrors.New("boom")
	err := store.Transact(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.InsertVoter(ctx, testVoter("ABC1234567", "234567890123")); err != nil {
			return err
		}
		if err := tx.PutConfig(ctx, models.ElectionConfig{Status: models.StatusInProgress}); err != nil {
			return err
		}
		return boom
	})
	if err != boom {
		t.Fatalf("expected callback error, got %v", err)
	}

	if _, err := store.GetVoter(ctx, "ABC1234567"); err != ErrNotFound {
		t.Errorf("expected insert to be rolled back, got %v", err)
	}
	cfg, _ := store.GetConfig(ctx)
	if cfg.Status != models.StatusNotStarted {
		t.Errorf("expected config to be rolled back, got %s", cfg.Status)
	}
	if rec.count() != 0 {
		t.Errorf("expected no notification for rolled back tx, got %d", rec.count())
	}
}

func TestTransact_PublishesTouchedCategoriesOnce(t *testing.T) {
	store, rec := newTestStore(t)
	ctx := context.Background()

	err := store.Transact(ctx, func(ctx context.Context, tx Tx) error {
		tx.InsertVoter(ctx, testVoter("ABC1234567", "234567890123"))
		tx.PutCandidate(ctx, models.Candidate{ID: "c1", Name: "A", Party: "P"})
		tx.PutCandidate(ctx, models.Candidate{ID: "c2", Name: "B", Party: "Q"})
		return nil
	})
	if err != nil {
		t.Fatalf("Transact failed: %v", err)
	}

	if rec.count() != 1 {
		t.Fatalf("expected a single publish, got %d", rec.count())
	}
	want := []notify.Category{notify.Candidates, notify.Votes, notify.Voters}
	if !reflect.DeepEqual(rec.last(), want) {
		t.Errorf("expected %v, got %v", want, rec.last())
	}
}

func TestTransact_ConcurrentIncrements(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	store.PutCandidate(ctx, models.Candidate{ID: "c1", Name: "A", Party: "P"})

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Transact(ctx, func(ctx context.Context, tx Tx) error {
				c, err := tx.GetCandidate(ctx, "c1")
				if err != nil {
					return err
				}
				c.Votes++
				return tx.PutCandidate(ctx, *c)
			})
			if err != nil {
				t.Errorf("Transact failed: %v", err)
			}
		}()
	}
	wg.Wait()

	c, _ := store.GetCandidate(ctx, "c1")
	if c.Votes != 25 {
		t.Errorf("expected 25 votes, got %d", c.Votes)
	}
}

func TestTransact_ContextCancelledWhileWaiting(t *testing.T) {
	store, _ := newTestStore(t)

	store.lock <- struct{}{}
	defer func() { <-store.lock }()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := store.Transact(ctx, func(ctx context.Context, tx Tx) error {
		t.Error("callback must not run without the lock")
		return nil
	})
	if !stderrors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestFlush_ClearsEverything(t *testing.T) {
	store, rec := newTestStore(t)
	ctx := context.Background()

	store.InsertVoter(ctx, testVoter("ABC1234567", "234567890123"))
	store.PutCandidate(ctx, models.Candidate{ID: "c1", Name: "A", Party: "P", Votes: 3})
	store.PutConfig(ctx, models.ElectionConfig{Status: models.StatusDeclared, WinnerID: "c1", VotesCast: 3})

	if err := store.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	voters, _ := store.ListVoters(ctx)
	candidates, _ := store.ListCandidates(ctx)
	cfg, _ := store.GetConfig(ctx)
	if len(voters) != 0 || len(candidates) != 0 {
		t.Errorf("expected empty collections, got %d voters %d candidates", len(voters), len(candidates))
	}
	if *cfg != models.DefaultElectionConfig() {
		t.Errorf("expected default config, got %+v", cfg)
	}
	if !reflect.DeepEqual(rec.last(), notify.All) {
		t.Errorf("expected all categories, got %v", rec.last())
	}
}

func TestClosedStore_ReportsUnavailable(t *testing.T) {
	store, _ := newTestStore(t)
	store.Close()

	_, err := store.GetConfig(context.Background())
	if !errors.IsKind(err, errors.ErrUnavailable) {
		t.Errorf("expected unavailable error, got %v", err)
	}
	if err := store.Ping(context.Background()); !errors.IsKind(err, errors.ErrUnavailable) {
		t.Errorf("expected unavailable ping, got %v", err)
	}
}

func TestBackend(t *testing.T) {
	store, _ := newTestStore(t)
	if store.Backend() != BackendSQLite {
		t.Errorf("expected sqlite backend, got %s", store.Backend())
	}
}

// ==================== sqlmock failure paths ====================

func TestTransact_BusyRetriesThenGivesUp(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	rec := &recorder{}
	store := newSQLiteStore(db, logger.Nop(), rec, SQLiteOptions{TxAttempts: 3, RetryBackoff: time.Millisecond})

	for i := 0; i < 3; i++ {
		mock.ExpectBegin().WillReturnError(sqlite3.Error{Code: sqlite3.ErrBusy})
	}

	err = store.PutCandidate(context.Background(), models.Candidate{ID: "c1", Name: "A", Party: "P"})
	if !errors.IsKind(err, errors.ErrUnavailable) {
		t.Errorf("expected unavailable error, got %v", err)
	}
	if !stderrors.Is(err, ErrContention) {
		t.Errorf("expected ErrContention in chain, got %v", err)
	}
	if rec.count() != 0 {
		t.Error("expected no notification after abandoned transaction")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestTransact_BusyThenSucceeds(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	rec := &recorder{}
	store := newSQLiteStore(db, logger.Nop(), rec, SQLiteOptions{TxAttempts: 3, RetryBackoff: time.Millisecond})

	mock.ExpectBegin().WillReturnError(sqlite3.Error{Code: sqlite3.ErrLocked})
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO candidates").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := store.PutCandidate(context.Background(), models.Candidate{ID: "c1", Name: "A", Party: "P"}); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if rec.count() != 1 {
		t.Errorf("expected one notification, got %d", rec.count())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestTransact_NonBusyErrorIsNotRetried(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	store := newSQLiteStore(db, logger.Nop(), nil, SQLiteOptions{TxAttempts: 3, RetryBackoff: time.Millisecond})

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM voters").WillReturnError(stderrors.New("disk I/O error"))
	mock.ExpectRollback()

	err = store.DeleteVoter(context.Background(), "ABC1234567")
	if err == nil || errors.IsKind(err, errors.ErrUnavailable) {
		t.Errorf("expected plain error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestListCandidates_ScanError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	store := newSQLiteStore(db, logger.Nop(), nil, SQLiteOptions{})

	rows := sqlmock.NewRows([]string{"id", "name", "party", "photo", "votes", "created_at"}).
		AddRow("c1", "A", "P", nil, "not-a-number", nil)
	mock.ExpectQuery("SELECT (.+) FROM candidates").WillReturnRows(rows)

	if _, err := store.ListCandidates(context.Background()); err == nil {
		t.Error("expected error from scan failure, got nil")
	}
}

func TestGetConfig_MissingRowReadsAsDefault(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	store := newSQLiteStore(db, logger.Nop(), nil, SQLiteOptions{})

	mock.ExpectQuery("SELECT (.+) FROM config").
		WillReturnRows(sqlmock.NewRows([]string{"status", "winner_id", "votes_cast", "revision"}))

	cfg, err := store.GetConfig(context.Background())
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}
	if cfg.Status != models.StatusNotStarted {
		t.Errorf("expected NOT_STARTED, got %s", cfg.Status)
	}
}
