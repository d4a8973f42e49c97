// Package mongo stores rollcall data in MongoDB. Redemptions rely on
// multi-document transactions, so the server must be a replica set member.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/rollcall/store"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const (
	collectionAccessTokens = "access_tokens"
	collectionAttendance   = "attendance"
	collectionUsers        = "users"
)

type Store struct {
	client     *mongo.Client
	db         *mongo.Database
	ownsClient bool
}

// Connect dials uri and returns a Store over the named database. Close
// disconnects the client.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}
	s := NewStore(client, database)
	s.ownsClient = true
	return s, nil
}

// NewStore wraps an existing client. Close leaves the client connected.
func NewStore(client *mongo.Client, database string) *Store {
	return &Store{client: client, db: client.Database(database)}
}

func (s *Store) Close() error {
	if !s.ownsClient {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) AccessTokens() store.AccessTokens {
	return &accessTokensRepo{coll: s.db.Collection(collectionAccessTokens)}
}

func (s *Store) Attendance() store.Attendance {
	return &attendanceRepo{coll: s.db.Collection(collectionAttendance)}
}

func (s *Store) Users() store.Users {
	return &usersRepo{coll: s.db.Collection(collectionUsers)}
}

// Tx starts a session with a snapshot transaction. Concurrent writers to
// the same document make the later one fail with a write conflict, which
// surfaces as store.ErrConflict.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	sess, err := s.client.StartSession()
	if err != nil {
		return nil, err
	}
	opts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if err := sess.StartTransaction(opts); err != nil {
		sess.EndSession(ctx)
		return nil, err
	}
	return &txStore{parent: s, sess: sess, ctx: ctx}, nil
}

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// mapErr translates driver errors into the store sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrAlreadyExists
	}
	var labeled mongo.LabeledError
	if errors.As(err, &labeled) && labeled.HasErrorLabel(transientTxnLabel) {
		return fmt.Errorf("%w: %v", store.ErrConflict, err)
	}
	return err
}

const (
	transientTxnLabel = "TransientTransactionError"

	// migrationTimeout bounds index creation at startup.
	migrationTimeout = 30 * time.Second
)
