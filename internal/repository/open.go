package repository

import (
	"context"
	"strings"

	"github.com/abrezinsky/avavote/internal/logger"
	"github.com/abrezinsky/avavote/internal/notify"
)

// OpenOptions selects and configures the persistence adapter
type OpenOptions struct {
	// MongoURI selects the remote adapter when it has a mongodb:// or
	// mongodb+srv:// scheme. Otherwise the local SQLite adapter is used.
	MongoURI      string
	MongoDatabase string
	DBPath        string
	TxAttempts    int
}

// Backend reports which adapter these options select
func (o OpenOptions) Backend() Backend {
	if strings.HasPrefix(o.MongoURI, "mongodb://") || strings.HasPrefix(o.MongoURI, "mongodb+srv://") {
		return BackendMongo
	}
	return BackendSQLite
}

// Open creates the adapter selected by opts. The choice is made once; there
// is no fallback from one adapter to the other.
func Open(ctx context.Context, opts OpenOptions, log logger.Logger, publisher notify.Publisher) (Store, error) {
	switch opts.Backend() {
	case BackendMongo:
		return ConnectMongo(ctx, opts.MongoURI, opts.MongoDatabase, log.With("store", "mongo"), publisher)
	default:
		return NewSQLiteWithOptions(opts.DBPath, log.With("store", "sqlite"), publisher, SQLiteOptions{
			TxAttempts: opts.TxAttempts,
		})
	}
}
