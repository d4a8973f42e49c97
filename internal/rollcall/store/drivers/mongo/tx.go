package mongo

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/rollcall/internal/rollcall/store"
	"go.mongodb.org/mongo-driver/mongo"
)

var errNestedTx = errors.New("mongo: nested transactions are not supported")

type txStore struct {
	parent *Store
	sess   mongo.Session
	ctx    context.Context
	done   bool
}

// bind makes ctx carry the transaction's session, keeping ctx's deadline.
func (t *txStore) bind(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, t.sess)
}

func (t *txStore) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.sess.EndSession(context.Background())
	return mapErr(t.sess.CommitTransaction(t.ctx))
}

func (t *txStore) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.sess.EndSession(context.Background())
	return t.sess.AbortTransaction(context.Background())
}

func (t *txStore) Close() error { return nil }

func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) { return nil, errNestedTx }

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return errNestedTx
}

func (t *txStore) ApplyMigrations() error { return nil }

func (t *txStore) AccessTokens() store.AccessTokens {
	return &accessTokensRepo{coll: t.parent.db.Collection(collectionAccessTokens), bind: t.bind}
}

func (t *txStore) Attendance() store.Attendance {
	return &attendanceRepo{coll: t.parent.db.Collection(collectionAttendance), bind: t.bind}
}

func (t *txStore) Users() store.Users {
	return &usersRepo{coll: t.parent.db.Collection(collectionUsers), bind: t.bind}
}

// binder attaches a session to a context. Repositories outside a
// transaction leave it nil.
type binder func(context.Context) context.Context

func (b binder) apply(ctx context.Context) context.Context {
	if b == nil {
		return ctx
	}
	return b(ctx)
}
