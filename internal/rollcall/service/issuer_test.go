package service_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/rollcall/domain"
	"github.com/aussiebroadwan/rollcall/internal/rollcall/service"
	"github.com/aussiebroadwan/rollcall/internal/rollcall/store"
	"github.com/aussiebroadwan/rollcall/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

var hexToken = regexp.MustCompile(`^[0-9a-f]{12}$`)

func TestIssueTokenStoresFingerprintOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	t0 := f.clock.Now()

	got, err := f.issuer.IssueToken(ctx, volunteer)
	require.NoError(t, err)
	require.Regexp(t, hexToken, got.Token)
	require.NotEmpty(t, got.TokenID)
	require.True(t, got.ExpiresAt.Equal(t0.Add(300*time.Second)))

	tok, err := f.store.AccessTokens().GetAccessTokenByHash(ctx, cryptox.FingerprintToken(got.Token))
	require.NoError(t, err)
	require.Equal(t, got.TokenID, tok.ID)
	require.Equal(t, "vol-1", tok.IssuedBy)
	require.Equal(t, 0, tok.UsedCount)
	require.Equal(t, 1, tok.MaxUses)
	require.True(t, tok.Active)
	require.NotEqual(t, got.Token, tok.ValueHash)

	_, err = f.store.AccessTokens().GetAccessTokenByHash(ctx, got.Token)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestIssueTokenRequiresAuthentication(t *testing.T) {
	f := newFixture(t)
	_, err := f.issuer.IssueToken(context.Background(), nil)
	require.ErrorIs(t, err, service.ErrUnauthenticated)
	requireKind(t, err, service.KindUnauthenticated)
}

// Every role other than volunteer is refused before anything is stored.
func TestIssueTokenVolunteersOnly(t *testing.T) {
	f := newFixture(t)
	for _, role := range []domain.Role{domain.RoleGuard, domain.RoleAdmin, domain.RoleSuperAdmin, ""} {
		_, err := f.issuer.IssueToken(context.Background(), &domain.Caller{UID: "u", Role: role})
		require.ErrorIs(t, err, service.ErrVolunteersOnly, "role %q", role)
		requireKind(t, err, service.KindPermissionDenied)
		require.Equal(t, "Only volunteers can generate tokens.", service.MessageOf(err))
	}
	_, err := f.store.AccessTokens().GetLatestAccessTokenByIssuer(context.Background(), "u")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestIssueTokenCooldownBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.issuer.IssueToken(ctx, volunteer)
	require.NoError(t, err)

	f.clock.Advance(service.DefaultIssueCooldown - time.Second)
	_, err = f.issuer.IssueToken(ctx, volunteer)
	requireKind(t, err, service.KindResourceExhausted)
	require.ErrorIs(t, err, service.ErrCooldownActive)
	require.Equal(t, "Please wait 1 second before generating a new code.", service.MessageOf(err))

	f.clock.Advance(2 * time.Second)
	_, err = f.issuer.IssueToken(ctx, volunteer)
	require.NoError(t, err)
}

func TestIssueTokenCooldownMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.issuer.IssueToken(ctx, volunteer)
	require.NoError(t, err)

	f.clock.Advance(5 * time.Second)
	_, err = f.issuer.IssueToken(ctx, volunteer)
	requireKind(t, err, service.KindResourceExhausted)
	require.Equal(t, "Please wait 3 minutes and 55 seconds before generating a new code.", service.MessageOf(err))
}

func TestIssueTokenCooldownIsPerVolunteer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.issuer.IssueToken(ctx, volunteer)
	require.NoError(t, err)
	_, err = f.issuer.IssueToken(ctx, &domain.Caller{UID: "vol-2", Role: domain.RoleVolunteer})
	require.NoError(t, err)
}

func TestIssueTokenCooldownDisabled(t *testing.T) {
	f := newFixture(t)
	f.issuer.Cooldown = 0
	ctx := context.Background()

	a, err := f.issuer.IssueToken(ctx, volunteer)
	require.NoError(t, err)
	b, err := f.issuer.IssueToken(ctx, volunteer)
	require.NoError(t, err)
	require.NotEqual(t, a.Token, b.Token)
	require.NotEqual(t, a.TokenID, b.TokenID)
}

func TestIssueTokenAppliesConfiguredLimits(t *testing.T) {
	f := newFixture(t)
	f.issuer.TTL = time.Minute
	f.issuer.MaxUses = 5
	ctx := context.Background()

	got, err := f.issuer.IssueToken(ctx, volunteer)
	require.NoError(t, err)
	require.True(t, got.ExpiresAt.Equal(f.clock.Now().Add(time.Minute)))

	tok, err := f.store.AccessTokens().GetAccessTokenByHash(ctx, cryptox.FingerprintToken(got.Token))
	require.NoError(t, err)
	require.Equal(t, 5, tok.MaxUses)
}
