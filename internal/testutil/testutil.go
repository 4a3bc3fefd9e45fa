package testutil

import (
	"testing"

	"github.com/abrezinsky/avavote/internal/logger"
	"github.com/abrezinsky/avavote/internal/notify"
	"github.com/abrezinsky/avavote/internal/repository"
)

// NewTestStore creates a new in-memory SQLite store for testing.
// Each call creates a fresh database with all migrations applied.
func NewTestStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()
	store, _ := NewTestStoreWithNotifier(t)
	return store
}

// NewTestStoreWithNotifier creates an in-memory store wired to a fresh
// notifier, for tests that observe change notifications.
func NewTestStoreWithNotifier(t *testing.T) (*repository.SQLiteStore, *notify.Notifier) {
	t.Helper()

	n := notify.New(logger.Nop())
	store, err := repository.NewSQLite(":memory:", logger.Nop(), n)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store, n
}
