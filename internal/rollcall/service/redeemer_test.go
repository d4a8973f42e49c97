package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/rollcall/domain"
	"github.com/aussiebroadwan/rollcall/internal/rollcall/service"
	"github.com/aussiebroadwan/rollcall/internal/rollcall/store"
	"github.com/aussiebroadwan/rollcall/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestRedeemHappyPathThenGone(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "vol-1", "Vera", "vera@example.org", domain.RoleVolunteer)
	ctx := context.Background()

	issued, err := f.issuer.IssueToken(ctx, volunteer)
	require.NoError(t, err)

	f.clock.Advance(10 * time.Second)
	res, err := f.redeemer.RedeemToken(ctx, guard, issued.Token)
	require.NoError(t, err)
	require.Equal(t, issued.TokenID, res.TokenID)
	require.Equal(t, 0, res.RemainingUses)
	require.True(t, res.RedeemedAt.Equal(f.clock.Now()))
	require.NotNil(t, res.Volunteer)
	require.Equal(t, "vol-1", res.Volunteer.UID)
	require.Equal(t, "Vera", res.Volunteer.Name)
	require.NotNil(t, res.Volunteer.Email)
	require.Equal(t, "vera@example.org", *res.Volunteer.Email)

	_, err = f.store.AccessTokens().GetAccessTokenByHash(ctx, cryptox.FingerprintToken(issued.Token))
	require.ErrorIs(t, err, store.ErrNotFound)

	recs := f.attendance(t)
	require.Len(t, recs, 1)
	require.Equal(t, res.AttendanceID, recs[0].ID)
	require.Equal(t, "vol-1", recs[0].VolunteerID)
	require.Equal(t, "Vera", recs[0].VolunteerName)
	require.Equal(t, "vera@example.org", recs[0].VolunteerEmail)
	require.Equal(t, issued.TokenID, recs[0].TokenID)
	require.Equal(t, "guard-1", recs[0].RecordedBy)

	_, err = f.redeemer.RedeemToken(ctx, guard, issued.Token)
	require.ErrorIs(t, err, service.ErrInvalidToken)
	requireKind(t, err, service.KindNotFound)
	require.Len(t, f.attendance(t), 1)
}

func TestRedeemExpiredDeletesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	issued, err := f.issuer.IssueToken(ctx, volunteer)
	require.NoError(t, err)

	f.clock.Advance(301 * time.Second)
	_, err = f.redeemer.RedeemToken(ctx, guard, issued.Token)
	require.ErrorIs(t, err, service.ErrTokenExpired)
	requireKind(t, err, service.KindFailedPrecondition)

	_, err = f.store.AccessTokens().GetAccessTokenByHash(ctx, cryptox.FingerprintToken(issued.Token))
	require.ErrorIs(t, err, store.ErrNotFound)
	require.Empty(t, f.attendance(t))
}

func TestRedeemExpiryBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	issued, err := f.issuer.IssueToken(ctx, volunteer)
	require.NoError(t, err)

	// Exactly at expiresAt is still valid; one millisecond later is not.
	f.clock.Advance(service.DefaultTokenTTL)
	_, err = f.redeemer.RedeemToken(ctx, guard, issued.Token)
	require.NoError(t, err)

	f.clock.Advance(service.DefaultIssueCooldown)
	issued, err = f.issuer.IssueToken(ctx, volunteer)
	require.NoError(t, err)
	f.clock.Advance(service.DefaultTokenTTL + time.Millisecond)
	_, err = f.redeemer.RedeemToken(ctx, guard, issued.Token)
	require.ErrorIs(t, err, service.ErrTokenExpired)
}

func TestRedeemExpiredMultiUseTokenStillFails(t *testing.T) {
	f := newFixture(t)
	f.issuer.MaxUses = 3
	ctx := context.Background()

	issued, err := f.issuer.IssueToken(ctx, volunteer)
	require.NoError(t, err)
	_, err = f.redeemer.RedeemToken(ctx, guard, issued.Token)
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	_, err = f.redeemer.RedeemToken(ctx, guard, issued.Token)
	require.ErrorIs(t, err, service.ErrTokenExpired)
	require.Len(t, f.attendance(t), 1)
}

func TestRedeemUnknownVolunteer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	issued, err := f.issuer.IssueToken(ctx, volunteer)
	require.NoError(t, err)

	res, err := f.redeemer.RedeemToken(ctx, guard, issued.Token)
	require.NoError(t, err)
	require.Nil(t, res.Volunteer)

	recs := f.attendance(t)
	require.Len(t, recs, 1)
	require.Equal(t, domain.UnknownVolunteerName, recs[0].VolunteerName)
	require.Empty(t, recs[0].VolunteerEmail)
}

func TestRedeemPreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	issued, err := f.issuer.IssueToken(ctx, volunteer)
	require.NoError(t, err)

	_, err = f.redeemer.RedeemToken(ctx, nil, issued.Token)
	require.ErrorIs(t, err, service.ErrUnauthenticated)

	_, err = f.redeemer.RedeemToken(ctx, guard, "   ")
	require.ErrorIs(t, err, service.ErrTokenRequired)
	requireKind(t, err, service.KindInvalidArgument)

	for _, caller := range []*domain.Caller{volunteer, admin, {UID: "sa", Role: domain.RoleSuperAdmin}} {
		_, err = f.redeemer.RedeemToken(ctx, caller, issued.Token)
		require.ErrorIs(t, err, service.ErrGuardsOnly)
		requireKind(t, err, service.KindPermissionDenied)
	}

	_, err = f.redeemer.RedeemToken(ctx, guard, "000000000000")
	require.ErrorIs(t, err, service.ErrInvalidToken)

	// None of the refusals consumed the token.
	_, err = f.redeemer.RedeemToken(ctx, guard, issued.Token)
	require.NoError(t, err)
	require.Len(t, f.attendance(t), 1)
}

func TestRedeemMultiUseToken(t *testing.T) {
	f := newFixture(t)
	f.issuer.MaxUses = 2
	ctx := context.Background()

	issued, err := f.issuer.IssueToken(ctx, volunteer)
	require.NoError(t, err)
	hash := cryptox.FingerprintToken(issued.Token)

	res, err := f.redeemer.RedeemToken(ctx, guard, issued.Token)
	require.NoError(t, err)
	require.Equal(t, 1, res.RemainingUses)

	tok, err := f.store.AccessTokens().GetAccessTokenByHash(ctx, hash)
	require.NoError(t, err)
	require.Equal(t, 1, tok.UsedCount)
	require.True(t, tok.Active)
	require.Equal(t, "guard-1", tok.LastUsedBy)
	require.NotNil(t, tok.LastUsedAt)

	res, err = f.redeemer.RedeemToken(ctx, &domain.Caller{UID: "guard-2", Role: domain.RoleGuard}, issued.Token)
	require.NoError(t, err)
	require.Equal(t, 0, res.RemainingUses)

	_, err = f.store.AccessTokens().GetAccessTokenByHash(ctx, hash)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.Len(t, f.attendance(t), 2)
}

func TestRedeemRetainExhausted(t *testing.T) {
	f := newFixture(t)
	f.redeemer.RetainExhausted = true
	ctx := context.Background()

	issued, err := f.issuer.IssueToken(ctx, volunteer)
	require.NoError(t, err)
	_, err = f.redeemer.RedeemToken(ctx, guard, issued.Token)
	require.NoError(t, err)

	tok, err := f.store.AccessTokens().GetAccessTokenByHash(ctx, cryptox.FingerprintToken(issued.Token))
	require.NoError(t, err)
	require.False(t, tok.Active)
	require.Equal(t, 1, tok.UsedCount)

	_, err = f.redeemer.RedeemToken(ctx, guard, issued.Token)
	require.ErrorIs(t, err, service.ErrTokenDeactivated)
	requireKind(t, err, service.KindFailedPrecondition)
	require.Len(t, f.attendance(t), 1)
}

func TestRedeemConcurrentScansSucceedOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	issued, err := f.issuer.IssueToken(ctx, volunteer)
	require.NoError(t, err)

	const n = 16
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		errs      = make(chan error, n)
	)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			caller := &domain.Caller{UID: "guard-" + string(rune('a'+i)), Role: domain.RoleGuard}
			if _, err := f.redeemer.RedeemToken(ctx, caller, issued.Token); err != nil {
				errs <- err
				return
			}
			succeeded.Add(1)
		}()
	}
	wg.Wait()
	close(errs)

	require.EqualValues(t, 1, succeeded.Load())
	for err := range errs {
		kind := service.KindOf(err)
		require.Contains(t, []service.Kind{service.KindNotFound, service.KindFailedPrecondition}, kind, "error: %v", err)
	}
	require.Len(t, f.attendance(t), 1)
}

// baseTx lets the wrappers below embed a store.Tx without the embedded
// field shadowing the interface's Tx method.
type baseTx = store.Tx

// conflictStore makes the first conflicts token writes inside a
// transaction lose their compare-and-set.
type conflictStore struct {
	store.Store
	remaining atomic.Int32
}

func (s *conflictStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		return fn(&conflictTx{baseTx: tx, parent: s})
	})
}

type conflictTx struct {
	baseTx
	parent *conflictStore
}

func (t *conflictTx) AccessTokens() store.AccessTokens {
	return &conflictTokens{AccessTokens: t.baseTx.AccessTokens(), parent: t.parent}
}

type conflictTokens struct {
	store.AccessTokens
	parent *conflictStore
}

func (c *conflictTokens) DeleteAccessToken(ctx context.Context, id string, expected int) error {
	if c.parent.remaining.Add(-1) >= 0 {
		return store.ErrConflict
	}
	return c.AccessTokens.DeleteAccessToken(ctx, id, expected)
}

func TestRedeemRetriesLostRace(t *testing.T) {
	f := newFixture(t)
	cs := &conflictStore{Store: f.store}
	cs.remaining.Store(2)
	f.redeemer.Store = cs
	ctx := context.Background()

	issued, err := f.issuer.IssueToken(ctx, volunteer)
	require.NoError(t, err)

	_, err = f.redeemer.RedeemToken(ctx, guard, issued.Token)
	require.NoError(t, err)
	require.Len(t, f.attendance(t), 1)
}

func TestRedeemGivesUpAfterMaxAttempts(t *testing.T) {
	f := newFixture(t)
	cs := &conflictStore{Store: f.store}
	cs.remaining.Store(100)
	f.redeemer.Store = cs
	f.redeemer.MaxAttempts = 3
	ctx := context.Background()

	issued, err := f.issuer.IssueToken(ctx, volunteer)
	require.NoError(t, err)

	_, err = f.redeemer.RedeemToken(ctx, guard, issued.Token)
	require.ErrorIs(t, err, service.ErrRedeemFailed)
	requireKind(t, err, service.KindInternal)
	require.ErrorIs(t, err, store.ErrConflict)
	require.EqualValues(t, 97, cs.remaining.Load())
	require.Empty(t, f.attendance(t))
}

// failingAttendanceStore rejects every attendance insert made inside a
// transaction.
type failingAttendanceStore struct {
	store.Store
}

func (s failingAttendanceStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		return fn(failingAttendanceTx{baseTx: tx})
	})
}

type failingAttendanceTx struct {
	baseTx
}

func (failingAttendanceTx) Attendance() store.Attendance { return failingAttendance{} }

type failingAttendance struct {
	store.Attendance
}

func (failingAttendance) CreateAttendanceRecord(context.Context, domain.AttendanceRecord) error {
	return errors.New("disk full")
}

func TestRedeemAttendanceFailureLeavesTokenUnused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	issued, err := f.issuer.IssueToken(ctx, volunteer)
	require.NoError(t, err)

	broken := &service.RedeemerService{Store: failingAttendanceStore{Store: f.store}, Now: f.clock.Now}
	_, err = broken.RedeemToken(ctx, guard, issued.Token)
	requireKind(t, err, service.KindInternal)
	require.Equal(t, "Failed to redeem access token.", service.MessageOf(err))

	tok, err := f.store.AccessTokens().GetAccessTokenByHash(ctx, cryptox.FingerprintToken(issued.Token))
	require.NoError(t, err)
	require.Equal(t, 0, tok.UsedCount)
	require.Empty(t, f.attendance(t))

	_, err = f.redeemer.RedeemToken(ctx, guard, issued.Token)
	require.NoError(t, err)
	require.Len(t, f.attendance(t), 1)
}

func TestRedeemCancelledContext(t *testing.T) {
	f := newFixture(t)
	issued, err := f.issuer.IssueToken(context.Background(), volunteer)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.redeemer.RedeemToken(ctx, guard, issued.Token)
	requireKind(t, err, service.KindInternal)

	_, err = f.store.AccessTokens().GetAccessTokenByHash(context.Background(), cryptox.FingerprintToken(issued.Token))
	require.NoError(t, err)
}
