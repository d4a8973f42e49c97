package sqlite_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/rollcall/domain"
	"github.com/aussiebroadwan/rollcall/internal/rollcall/store"
	"github.com/aussiebroadwan/rollcall/internal/rollcall/store/drivers/sqlite"
	"github.com/aussiebroadwan/rollcall/internal/rollcall/store/storetest"
	"github.com/stretchr/testify/require"
)

func newMemStore(t *testing.T) store.Store {
	t.Helper()
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())
	return s
}

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, newMemStore)
}

func TestApplyMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rollcall.db")
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	s, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.ApplyMigrations())

	ctx := context.Background()
	now := time.UnixMilli(1_760_000_000_000).UTC()
	require.NoError(t, s.Users().CreateUser(ctx, domain.User{
		ID: "u1", Email: "u1@example.com", Role: domain.RoleGuard, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, s.Close())

	// Data survives a reopen of the file.
	s, err = sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	u, err := s.Users().GetUserByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, domain.RoleGuard, u.Role)
}

func TestConcurrentTransactionsSerialize(t *testing.T) {
	s := newMemStore(t)
	ctx := context.Background()
	now := time.UnixMilli(1_760_000_000_000).UTC()

	tok := domain.AccessToken{
		ID: "tok-1", ValueHash: "h", IssuedBy: "vol-1",
		IssuedAt: now, ExpiresAt: now.Add(time.Minute), MaxUses: 1, Active: true,
	}
	require.NoError(t, s.AccessTokens().CreateAccessToken(ctx, tok))

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		deleted int
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WithTx(ctx, func(tx store.Tx) error {
				cur, err := tx.AccessTokens().GetAccessTokenByHash(ctx, "h")
				if err != nil {
					return err
				}
				return tx.AccessTokens().DeleteAccessToken(ctx, cur.ID, cur.UsedCount)
			})
			if err == nil {
				mu.Lock()
				deleted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, deleted)
}

func TestTxStoreRejectsNesting(t *testing.T) {
	s := newMemStore(t)
	err := s.WithTx(context.Background(), func(tx store.Tx) error {
		_, err := tx.Tx(context.Background())
		return err
	})
	require.Error(t, err)
}
