package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/rollcall/domain"
	"github.com/aussiebroadwan/rollcall/internal/rollcall/service"
	"github.com/aussiebroadwan/rollcall/internal/rollcall/store"
	"github.com/aussiebroadwan/rollcall/internal/rollcall/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

var (
	volunteer = &domain.Caller{UID: "vol-1", Role: domain.RoleVolunteer}
	guard     = &domain.Caller{UID: "guard-1", Role: domain.RoleGuard}
	admin     = &domain.Caller{UID: "admin-1", Role: domain.RoleAdmin}
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_760_000_000_000).UTC()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newStore(t *testing.T) store.Store {
	t.Helper()
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())
	return s
}

// fixture wires the services over one store and one clock.
type fixture struct {
	store    store.Store
	clock    *fakeClock
	issuer   *service.IssuerService
	redeemer *service.RedeemerService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := newStore(t)
	clock := newClock()
	return &fixture{
		store: s,
		clock: clock,
		issuer: &service.IssuerService{
			Store:    s,
			TTL:      service.DefaultTokenTTL,
			MaxUses:  1,
			Cooldown: service.DefaultIssueCooldown,
			Now:      clock.Now,
		},
		redeemer: &service.RedeemerService{Store: s, Now: clock.Now},
	}
}

func (f *fixture) addUser(t *testing.T, id, name, email string, role domain.Role) {
	t.Helper()
	now := f.clock.Now()
	require.NoError(t, f.store.Users().CreateUser(context.Background(), domain.User{
		ID: id, Name: name, Email: email, Role: role, CreatedAt: now, UpdatedAt: now,
	}))
}

func (f *fixture) attendance(t *testing.T) []domain.AttendanceRecord {
	t.Helper()
	recs, err := f.store.Attendance().ListAttendance(context.Background(), 1000)
	require.NoError(t, err)
	return recs
}

func requireKind(t *testing.T, err error, kind service.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, service.KindOf(err), "error: %v", err)
}
