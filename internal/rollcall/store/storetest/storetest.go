// Package storetest holds the behaviour every store driver must share.
// Driver packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/rollcall/domain"
	"github.com/aussiebroadwan/rollcall/internal/rollcall/store"
	"github.com/aussiebroadwan/rollcall/pkg/idx"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, migrated, empty store. It should register its
// own cleanup.
type Factory func(t *testing.T) store.Store

func Run(t *testing.T, newStore Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("ListUsers", func(t *testing.T) { testListUsers(t, newStore(t)) })
	t.Run("AccessTokens", func(t *testing.T) { testAccessTokens(t, newStore(t)) })
	t.Run("AccessTokenCAS", func(t *testing.T) { testAccessTokenCAS(t, newStore(t)) })
	t.Run("DeleteExpired", func(t *testing.T) { testDeleteExpired(t, newStore(t)) })
	t.Run("Attendance", func(t *testing.T) { testAttendance(t, newStore(t)) })
	t.Run("WithTx", func(t *testing.T) { testWithTx(t, newStore(t)) })
}

var base = time.UnixMilli(1_760_000_000_000).UTC()

func requireSameTime(t *testing.T, want, got time.Time) {
	t.Helper()
	require.Truef(t, want.Equal(got), "want %s, got %s", want, got)
}

func newToken(issuer string, issuedAt time.Time, hash string) domain.AccessToken {
	return domain.AccessToken{
		ID:        idx.NewAt(issuedAt).String(),
		ValueHash: hash,
		IssuedBy:  issuer,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(5 * time.Minute),
		MaxUses:   1,
		Active:    true,
	}
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	users := s.Users()

	u := domain.User{
		ID:        "vol-1",
		Name:      "Ana",
		Email:     "ana@example.com",
		Role:      domain.RoleVolunteer,
		CreatedAt: base,
		UpdatedAt: base,
	}
	require.NoError(t, users.CreateUser(ctx, u))

	got, err := users.GetUserByID(ctx, "vol-1")
	require.NoError(t, err)
	require.Equal(t, u.Name, got.Name)
	require.Equal(t, u.Email, got.Email)
	require.Equal(t, domain.RoleVolunteer, got.Role)
	requireSameTime(t, base, got.CreatedAt)

	got, err = users.GetUserByEmail(ctx, "ANA@Example.com")
	require.NoError(t, err)
	require.Equal(t, "vol-1", got.ID)

	dup := u
	dup.ID = "vol-2"
	err = users.CreateUser(ctx, dup)
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	_, err = users.GetUserByID(ctx, "nobody")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = users.GetUserByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)

	later := base.Add(time.Hour)
	require.NoError(t, users.UpdateUserRole(ctx, "vol-1", domain.RoleGuard, later))
	got, err = users.GetUserByID(ctx, "vol-1")
	require.NoError(t, err)
	require.Equal(t, domain.RoleGuard, got.Role)
	requireSameTime(t, later, got.UpdatedAt)

	err = users.UpdateUserRole(ctx, "nobody", domain.RoleGuard, later)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testListUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	users := s.Users()

	list, err := users.ListUsers(ctx, "", 10)
	require.NoError(t, err)
	require.Empty(t, list)

	for i, u := range []struct {
		id   string
		role domain.Role
	}{
		{"vol-1", domain.RoleVolunteer},
		{"guard-1", domain.RoleGuard},
		{"vol-2", domain.RoleVolunteer},
		{"vol-3", domain.RoleVolunteer},
	} {
		at := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, users.CreateUser(ctx, domain.User{
			ID:        u.id,
			Name:      u.id,
			Email:     u.id + "@example.com",
			Role:      u.role,
			CreatedAt: at,
			UpdatedAt: at,
		}))
	}

	list, err = users.ListUsers(ctx, domain.RoleVolunteer, 10)
	require.NoError(t, err)
	require.Equal(t, []string{"vol-3", "vol-2", "vol-1"}, userIDs(list))
	requireSameTime(t, base.Add(3*time.Minute), list[0].CreatedAt)

	list, err = users.ListUsers(ctx, domain.RoleVolunteer, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"vol-3", "vol-2"}, userIDs(list))

	list, err = users.ListUsers(ctx, "", 10)
	require.NoError(t, err)
	require.Equal(t, []string{"vol-3", "vol-2", "guard-1", "vol-1"}, userIDs(list))

	list, err = users.ListUsers(ctx, domain.RoleAdmin, 10)
	require.NoError(t, err)
	require.Empty(t, list)
}

func userIDs(list []domain.User) []string {
	out := make([]string, 0, len(list))
	for _, u := range list {
		out = append(out, u.ID)
	}
	return out
}

func testAccessTokens(t *testing.T, s store.Store) {
	ctx := context.Background()
	tokens := s.AccessTokens()

	_, err := tokens.GetLatestAccessTokenByIssuer(ctx, "vol-1")
	require.ErrorIs(t, err, store.ErrNotFound)

	first := newToken("vol-1", base, "hash-1")
	second := newToken("vol-1", base.Add(time.Minute), "hash-2")
	other := newToken("vol-2", base.Add(2*time.Minute), "hash-3")
	for _, tok := range []domain.AccessToken{first, second, other} {
		require.NoError(t, tokens.CreateAccessToken(ctx, tok))
	}

	got, err := tokens.GetAccessTokenByHash(ctx, "hash-1")
	require.NoError(t, err)
	require.Equal(t, first.ID, got.ID)
	require.Equal(t, "vol-1", got.IssuedBy)
	require.Equal(t, 0, got.UsedCount)
	require.Equal(t, 1, got.MaxUses)
	require.True(t, got.Active)
	require.Nil(t, got.LastUsedAt)
	requireSameTime(t, first.IssuedAt, got.IssuedAt)
	requireSameTime(t, first.ExpiresAt, got.ExpiresAt)

	_, err = tokens.GetAccessTokenByHash(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	dup := newToken("vol-3", base, "hash-1")
	require.ErrorIs(t, tokens.CreateAccessToken(ctx, dup), store.ErrAlreadyExists)

	latest, err := tokens.GetLatestAccessTokenByIssuer(ctx, "vol-1")
	require.NoError(t, err)
	require.Equal(t, second.ID, latest.ID)
}

func testAccessTokenCAS(t *testing.T, s store.Store) {
	ctx := context.Background()
	tokens := s.AccessTokens()

	tok := newToken("vol-1", base, "hash-cas")
	tok.MaxUses = 3
	require.NoError(t, tokens.CreateAccessToken(ctx, tok))

	used := base.Add(time.Second)
	next := tok
	next.UsedCount = 1
	next.LastUsedAt = &used
	next.LastUsedBy = "guard-1"
	require.NoError(t, tokens.UpdateAccessTokenUsage(ctx, next, 0))

	// Same expectation again loses the race.
	require.ErrorIs(t, tokens.UpdateAccessTokenUsage(ctx, next, 0), store.ErrConflict)

	got, err := tokens.GetAccessTokenByHash(ctx, "hash-cas")
	require.NoError(t, err)
	require.Equal(t, 1, got.UsedCount)
	require.Equal(t, "guard-1", got.LastUsedBy)
	require.NotNil(t, got.LastUsedAt)
	requireSameTime(t, used, *got.LastUsedAt)

	require.ErrorIs(t, tokens.DeleteAccessToken(ctx, tok.ID, 0), store.ErrConflict)
	require.NoError(t, tokens.DeleteAccessToken(ctx, tok.ID, 1))
	require.ErrorIs(t, tokens.DeleteAccessToken(ctx, tok.ID, 1), store.ErrConflict)

	_, err = tokens.GetAccessTokenByHash(ctx, "hash-cas")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testDeleteExpired(t *testing.T, s store.Store) {
	ctx := context.Background()
	tokens := s.AccessTokens()

	old := newToken("vol-1", base, "hash-old")
	fresh := newToken("vol-1", base.Add(time.Hour), "hash-fresh")
	require.NoError(t, tokens.CreateAccessToken(ctx, old))
	require.NoError(t, tokens.CreateAccessToken(ctx, fresh))

	n, err := tokens.DeleteExpiredAccessTokens(ctx, base.Add(30*time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = tokens.GetAccessTokenByHash(ctx, "hash-old")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = tokens.GetAccessTokenByHash(ctx, "hash-fresh")
	require.NoError(t, err)
}

func testAttendance(t *testing.T, s store.Store) {
	ctx := context.Background()
	att := s.Attendance()

	for i, vol := range []string{"vol-1", "vol-2", "vol-1"} {
		ts := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, att.CreateAttendanceRecord(ctx, domain.AttendanceRecord{
			ID:             idx.NewAt(ts).String(),
			VolunteerID:    vol,
			VolunteerName:  "Name " + vol,
			VolunteerEmail: vol + "@example.com",
			TokenID:        "tok",
			Timestamp:      ts,
			RecordedBy:     "guard-1",
		}))
	}

	mine, err := att.ListAttendanceByVolunteer(ctx, "vol-1", 10)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	require.True(t, mine[0].Timestamp.After(mine[1].Timestamp), "newest first")
	require.Equal(t, "Name vol-1", mine[0].VolunteerName)
	require.Equal(t, "guard-1", mine[0].RecordedBy)

	all, err := att.ListAttendance(ctx, 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	requireSameTime(t, base.Add(2*time.Minute), all[0].Timestamp)

	none, err := att.ListAttendanceByVolunteer(ctx, "vol-9", 10)
	require.NoError(t, err)
	require.Empty(t, none)
}

func testWithTx(t *testing.T, s store.Store) {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.AccessTokens().CreateAccessToken(ctx, newToken("vol-1", base, "hash-rb")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	_, err = s.AccessTokens().GetAccessTokenByHash(ctx, "hash-rb")
	require.ErrorIs(t, err, store.ErrNotFound)

	err = s.WithTx(ctx, func(tx store.Tx) error {
		return tx.AccessTokens().CreateAccessToken(ctx, newToken("vol-1", base, "hash-ok"))
	})
	require.NoError(t, err)
	_, err = s.AccessTokens().GetAccessTokenByHash(ctx, "hash-ok")
	require.NoError(t, err)

	// A conflict inside the tx rolls back the writes made before it.
	err = s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Attendance().CreateAttendanceRecord(ctx, domain.AttendanceRecord{
			ID:          idx.New().String(),
			VolunteerID: "vol-1",
			TokenID:     "tok",
			Timestamp:   base,
			RecordedBy:  "guard-1",
		}); err != nil {
			return err
		}
		return tx.AccessTokens().DeleteAccessToken(ctx, "missing", 0)
	})
	require.ErrorIs(t, err, store.ErrConflict)
	recs, err := s.Attendance().ListAttendance(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, recs)
}
