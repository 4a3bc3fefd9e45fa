package repository

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/abrezinsky/avavote/internal/errors"
	"github.com/abrezinsky/avavote/internal/logger"
	"github.com/abrezinsky/avavote/internal/models"
	"github.com/abrezinsky/avavote/internal/notify"
)

const (
	votersCollection     = "voters"
	candidatesCollection = "candidates"
	configCollection     = "config"

	// configDocID is the _id of the singleton election record
	configDocID = "election"
)

// configDoc is the stored shape of the election config
type configDoc struct {
	ID                    string `bson:"_id"`
	models.ElectionConfig `bson:",inline"`
}

// changeEvent is the subset of a change stream event we decode
type changeEvent struct {
	OperationType string     `bson:"operationType"`
	FullDocument  *configDoc `bson:"fullDocument"`
}

// MongoStore is the transactional remote persistence adapter. It requires a
// replica set (or sharded cluster) for multi-document transactions and
// change streams.
type MongoStore struct {
	mongoOps

	client    *mongo.Client
	db        *mongo.Database
	log       logger.Logger
	publisher notify.Publisher

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// ConnectMongo dials uri, verifies the primary is reachable, creates the
// required indexes and starts the change feed.
func ConnectMongo(ctx context.Context, uri, database string, log logger.Logger, publisher notify.Publisher) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, errors.Unavailable(err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, errors.Unavailable(err)
	}

	s := NewMongoStore(client.Database(database), log, publisher)
	if err := s.EnsureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	s.StartChangeFeed(context.Background())

	log.Info("MongoDB store ready", "database", database)
	return s, nil
}

// NewMongoStore builds a store on an existing database handle. The change
// feed is not started.
func NewMongoStore(db *mongo.Database, log logger.Logger, publisher notify.Publisher) *MongoStore {
	return &MongoStore{
		mongoOps: mongoOps{
			voters:     db.Collection(votersCollection),
			candidates: db.Collection(candidatesCollection),
			config:     db.Collection(configCollection),
		},
		client:    db.Client(),
		db:        db,
		log:       log,
		publisher: publisher,
	}
}

// EnsureIndexes creates the unique aadhar index and the listing indexes
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.voters.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "aadhar", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("aadhar_unique"),
		},
		{
			Keys: bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}},
		},
	})
	if err != nil {
		return classifyMongo(err)
	}
	_, err = s.candidates.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}},
	})
	return classifyMongo(err)
}

// Backend implements Store
func (s *MongoStore) Backend() Backend {
	return BackendMongo
}

// Ping checks the primary is reachable
func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return errors.Unavailable(err)
	}
	return nil
}

// Close stops the change feed and disconnects
func (s *MongoStore) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	return s.client.Disconnect(context.Background())
}

// Transact runs fn inside a snapshot transaction with majority write
// concern. The driver retries fn on transient transaction errors, so fn
// must be free of side effects outside tx.
func (s *MongoStore) Transact(ctx context.Context, fn TxFunc) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return classifyMongo(err)
	}
	defer sess.EndSession(context.Background())

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, s.mongoOps)
	}, txOpts)
	return classifyMongo(err)
}

// Flush empties voters and candidates and resets the config in one
// transaction, then announces every category. A flush of an empty store
// produces no change events, so the feed alone cannot guarantee the
// announcement; subscribers may see the same categories again from the feed.
func (s *MongoStore) Flush(ctx context.Context) error {
	err := s.Transact(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := s.voters.DeleteMany(ctx, bson.M{}); err != nil {
			return err
		}
		if _, err := s.candidates.DeleteMany(ctx, bson.M{}); err != nil {
			return err
		}
		return tx.PutConfig(ctx, models.DefaultElectionConfig())
	})
	if err != nil {
		return err
	}
	s.publish(notify.All...)
	return nil
}

func (s *MongoStore) publish(categories ...notify.Category) {
	if s.publisher != nil {
		s.publisher.Publish(categories...)
	}
}

// ==================== Change feed ====================

// StartChangeFeed watches all three collections and publishes a category for
// every committed change, including changes made by other processes. Config
// updates that only move the vote counter or revision are not announced.
func (s *MongoStore) StartChangeFeed(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	last := models.DefaultElectionConfig()
	if cfg, err := s.GetConfig(ctx); err == nil {
		last = *cfg
	}

	s.wg.Add(3)
	go s.watch(ctx, s.voters, s.onVoterEvent)
	go s.watch(ctx, s.candidates, s.onCandidateEvent)
	go s.watch(ctx, s.config, s.configEventHandler(last))
}

func (s *MongoStore) onVoterEvent(bson.Raw) {
	s.publish(notify.Voters)
}

func (s *MongoStore) onCandidateEvent(bson.Raw) {
	s.publish(notify.Candidates, notify.Votes)
}

// configEventHandler publishes ElectionStatus for lifecycle changes,
// starting from last as the known config
func (s *MongoStore) configEventHandler(last models.ElectionConfig) func(bson.Raw) {
	return func(raw bson.Raw) {
		var changed bool
		last, changed = nextConfig(last, raw)
		if changed {
			s.publish(notify.ElectionStatus)
		}
	}
}

// nextConfig decodes a config change event. It reports whether status or
// winner moved relative to last. Events without a full document (deletes,
// or an update whose document is already gone) count as a change.
func nextConfig(last models.ElectionConfig, raw bson.Raw) (models.ElectionConfig, bool) {
	var ev changeEvent
	if err := bson.Unmarshal(raw, &ev); err != nil || ev.FullDocument == nil {
		return last, true
	}
	next := ev.FullDocument.ElectionConfig
	return next, next.Status != last.Status || next.WinnerID != last.WinnerID
}

func (s *MongoStore) watch(ctx context.Context, coll *mongo.Collection, onEvent func(bson.Raw)) {
	defer s.wg.Done()

	var resumeToken bson.Raw
	backoff := time.Second
	for {
		opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
		if resumeToken != nil {
			opts.SetResumeAfter(resumeToken)
		}

		stream, err := coll.Watch(ctx, mongo.Pipeline{}, opts)
		if err == nil {
			backoff = time.Second
			for stream.Next(ctx) {
				onEvent(stream.Current)
				resumeToken = stream.ResumeToken()
			}
			err = stream.Err()
			stream.Close(context.Background())
		}

		if ctx.Err() != nil {
			return
		}
		s.log.Warn("Change stream interrupted, reconnecting", "collection", coll.Name(), "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

// ==================== Collection operations ====================

// mongoOps implements Reader and Writer. Inside Transact the context is a
// mongo.SessionContext, which binds every call to the transaction.
type mongoOps struct {
	voters     *mongo.Collection
	candidates *mongo.Collection
	config     *mongo.Collection
}

var byCreation = options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

func (o mongoOps) GetVoter(ctx context.Context, voterID string) (*models.Voter, error) {
	return findOne[models.Voter](ctx, o.voters, bson.M{"_id": voterID})
}

func (o mongoOps) FindVoterByAadhar(ctx context.Context, aadhar string) (*models.Voter, error) {
	return findOne[models.Voter](ctx, o.voters, bson.M{"aadhar": aadhar})
}

func (o mongoOps) ListVoters(ctx context.Context) ([]models.Voter, error) {
	return findAll[models.Voter](ctx, o.voters)
}

func (o mongoOps) GetCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	return findOne[models.Candidate](ctx, o.candidates, bson.M{"_id": id})
}

func (o mongoOps) ListCandidates(ctx context.Context) ([]models.Candidate, error) {
	return findAll[models.Candidate](ctx, o.candidates)
}

func (o mongoOps) GetConfig(ctx context.Context) (*models.ElectionConfig, error) {
	doc, err := findOne[configDoc](ctx, o.config, bson.M{"_id": configDocID})
	if err == ErrNotFound {
		cfg := models.DefaultElectionConfig()
		return &cfg, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc.ElectionConfig, nil
}

func (o mongoOps) InsertVoter(ctx context.Context, voter models.Voter) error {
	_, err := o.voters.InsertOne(ctx, voter)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return classifyMongo(err)
}

func (o mongoOps) PutVoter(ctx context.Context, voter models.Voter) error {
	_, err := o.voters.ReplaceOne(ctx, bson.M{"_id": voter.VoterID}, voter, options.Replace().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return classifyMongo(err)
}

func (o mongoOps) DeleteVoter(ctx context.Context, voterID string) error {
	return deleteOne(ctx, o.voters, voterID)
}

func (o mongoOps) PutCandidate(ctx context.Context, candidate models.Candidate) error {
	_, err := o.candidates.ReplaceOne(ctx, bson.M{"_id": candidate.ID}, candidate, options.Replace().SetUpsert(true))
	return classifyMongo(err)
}

func (o mongoOps) DeleteCandidate(ctx context.Context, id string) error {
	return deleteOne(ctx, o.candidates, id)
}

func (o mongoOps) PutConfig(ctx context.Context, cfg models.ElectionConfig) error {
	doc := configDoc{ID: configDocID, ElectionConfig: cfg}
	_, err := o.config.ReplaceOne(ctx, bson.M{"_id": configDocID}, doc, options.Replace().SetUpsert(true))
	return classifyMongo(err)
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter any) (*T, error) {
	var out T
	err := coll.FindOne(ctx, filter).Decode(&out)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, classifyMongo(err)
	}
	return &out, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection) ([]T, error) {
	cursor, err := coll.Find(ctx, bson.M{}, byCreation)
	if err != nil {
		return nil, classifyMongo(err)
	}
	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, classifyMongo(err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func deleteOne(ctx context.Context, coll *mongo.Collection, id string) error {
	result, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return classifyMongo(err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// classifyMongo converts network, timeout and disconnect failures into
// PersistenceUnavailable. Application errors pass through untouched.
func classifyMongo(err error) error {
	if err == nil {
		return nil
	}
	var appErr *errors.Error
	if stderrors.As(err, &appErr) {
		return err
	}
	if mongo.IsNetworkError(err) ||
		mongo.IsTimeout(err) ||
		stderrors.Is(err, mongo.ErrClientDisconnected) {
		return errors.Unavailable(err)
	}
	return err
}
