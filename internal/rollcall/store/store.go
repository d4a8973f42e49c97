package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/rollcall/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrConflict means a conditional write matched no row because another
	// transaction changed it first, or the engine aborted the transaction
	// on a write conflict. Callers retry from a fresh read.
	ErrConflict = errors.New("store: conflict")
)

// Store is the root data access interface. Drivers (sqlite, mongo)
// implement it. Sub-repositories are exposed as methods so a Tx-scoped Store
// hands out repositories bound to that transaction.
type Store interface {
	AccessTokens() AccessTokens
	Attendance() Attendance
	Users() Users

	ApplyMigrations() error

	// Tx starts a read/write transaction. The caller MUST Commit or
	// Rollback the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise. Inside fn, use only the repositories of the
	// Tx passed in.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transactional store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type AccessTokens interface {
	// CreateAccessToken inserts a new token. A duplicate fingerprint yields
	// ErrAlreadyExists.
	CreateAccessToken(ctx context.Context, t domain.AccessToken) error

	// GetAccessTokenByHash looks a token up by the fingerprint of its value.
	GetAccessTokenByHash(ctx context.Context, hash string) (domain.AccessToken, error)

	// GetLatestAccessTokenByIssuer returns the most recently issued token
	// of a volunteer, for the issuance cooldown.
	GetLatestAccessTokenByIssuer(ctx context.Context, issuedBy string) (domain.AccessToken, error)

	// UpdateAccessTokenUsage writes UsedCount, Active, LastUsedAt and
	// LastUsedBy from t, but only if the stored used count still equals
	// expectedUsedCount. Otherwise ErrConflict.
	UpdateAccessTokenUsage(ctx context.Context, t domain.AccessToken, expectedUsedCount int) error

	// DeleteAccessToken removes a token if its used count still equals
	// expectedUsedCount. Otherwise ErrConflict.
	DeleteAccessToken(ctx context.Context, id string, expectedUsedCount int) error

	// DeleteExpiredAccessTokens removes tokens whose expiry is before the
	// cutoff and reports how many went.
	DeleteExpiredAccessTokens(ctx context.Context, before time.Time) (int64, error)
}

type Attendance interface {
	// CreateAttendanceRecord appends a record. Records are never updated.
	CreateAttendanceRecord(ctx context.Context, r domain.AttendanceRecord) error

	// ListAttendanceByVolunteer returns a volunteer's records, newest first.
	ListAttendanceByVolunteer(ctx context.Context, volunteerID string, limit int) ([]domain.AttendanceRecord, error)

	// ListAttendance returns all records, newest first.
	ListAttendance(ctx context.Context, limit int) ([]domain.AttendanceRecord, error)
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail matches case-insensitively.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a directory entry. A taken email yields
	// ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateUserRole sets the role and bumps updated_at.
	UpdateUserRole(ctx context.Context, id string, role domain.Role, at time.Time) error

	// ListUsers returns directory entries with the given role, or every
	// entry when role is empty, most recently added first.
	ListUsers(ctx context.Context, role domain.Role, limit int) ([]domain.User, error)
}
