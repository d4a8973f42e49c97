package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/rollcall/domain"
	"github.com/aussiebroadwan/rollcall/internal/rollcall/service"
	"github.com/aussiebroadwan/rollcall/pkg/cryptox"
	"github.com/aussiebroadwan/rollcall/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func newDirectory(t *testing.T) (*service.DirectoryService, *fakeClock) {
	t.Helper()
	clock := newClock()
	return &service.DirectoryService{Store: newStore(t), Now: clock.Now}, clock
}

func TestAddUser(t *testing.T) {
	dir, _ := newDirectory(t)
	ctx := context.Background()

	u, err := dir.AddUser(ctx, "vol-1", " Vera ", "Vera@Example.org", "voluntario")
	require.NoError(t, err)
	require.Equal(t, "Vera", u.Name)
	require.Equal(t, "vera@example.org", u.Email)
	require.Equal(t, domain.RoleVolunteer, u.Role)

	_, err = dir.AddUser(ctx, "vol-2", "Other", "vera@example.org", "volunteer")
	require.ErrorIs(t, err, service.ErrUserExists)

	_, err = dir.AddUser(ctx, "vol-3", "X", "not-an-email", "volunteer")
	require.ErrorIs(t, err, service.ErrEmailRequired)

	_, err = dir.AddUser(ctx, "vol-3", "X", "x@example.org", "janitor")
	require.ErrorIs(t, err, service.ErrInvalidRole)

	_, err = dir.AddUser(ctx, "  ", "X", "x@example.org", "guard")
	requireKind(t, err, service.KindInvalidArgument)
}

func TestAssignRole(t *testing.T) {
	dir, clock := newDirectory(t)
	ctx := context.Background()

	_, err := dir.AddUser(ctx, "vol-1", "Vera", "vera@example.org", "volunteer")
	require.NoError(t, err)

	clock.Advance(time.Minute)
	got, err := dir.AssignRole(ctx, admin, "VERA@example.org", "guardia")
	require.NoError(t, err)
	require.Equal(t, "vol-1", got.UserID)
	require.Equal(t, domain.RoleGuard, got.Role)
	require.Equal(t, `Success. User vera@example.org now has the role "guard".`, got.Message)

	u, err := dir.GetUser(ctx, "vol-1")
	require.NoError(t, err)
	require.Equal(t, domain.RoleGuard, u.Role)
	require.True(t, u.UpdatedAt.Equal(clock.Now()))
}

func TestAssignRoleFailures(t *testing.T) {
	dir, _ := newDirectory(t)
	ctx := context.Background()
	_, err := dir.AddUser(ctx, "vol-1", "Vera", "vera@example.org", "volunteer")
	require.NoError(t, err)

	_, err = dir.AssignRole(ctx, nil, "vera@example.org", "guard")
	require.ErrorIs(t, err, service.ErrUnauthenticated)

	for _, caller := range []*domain.Caller{volunteer, guard} {
		_, err = dir.AssignRole(ctx, caller, "vera@example.org", "admin")
		require.ErrorIs(t, err, service.ErrAdminsOnly)
		requireKind(t, err, service.KindPermissionDenied)
	}

	_, err = dir.AssignRole(ctx, admin, "", "guard")
	require.ErrorIs(t, err, service.ErrEmailRequired)

	_, err = dir.AssignRole(ctx, admin, "vera@example.org", "owner")
	require.ErrorIs(t, err, service.ErrInvalidRole)

	_, err = dir.AssignRole(ctx, admin, "nobody@example.org", "guard")
	require.ErrorIs(t, err, service.ErrUserNotFound)
	requireKind(t, err, service.KindNotFound)

	superadmin := &domain.Caller{UID: "sa", Role: domain.RoleSuperAdmin}
	_, err = dir.AssignRole(ctx, superadmin, "vera@example.org", "admin")
	require.NoError(t, err)
}

func TestIssueSessionCarriesDirectoryRole(t *testing.T) {
	dir, clock := newDirectory(t)
	ctx := context.Background()

	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	signer, err := jwtx.NewSignerEdDSA("", pemKey)
	require.NoError(t, err)

	_, err = dir.AddUser(ctx, "vol-1", "Vera", "vera@example.org", "volunteer")
	require.NoError(t, err)

	sessions := &service.SessionService{
		Directory: dir,
		Signer:    signer,
		Issuer:    "rollcall-test",
		Audience:  []string{"rollcall"},
		TTL:       10 * time.Minute,
		Now:       time.Now,
	}

	issued, err := sessions.IssueSession(ctx, "vera@example.org")
	require.NoError(t, err)
	require.NotEmpty(t, issued.Token)

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))
	verifier := jwtx.NewVerifierEdDSA(keys, "rollcall-test", []string{"rollcall"})

	claims, err := verifier.Verify(issued.Token)
	require.NoError(t, err)
	require.Equal(t, "vol-1", claims.Subject)
	require.Equal(t, "volunteer", claims.Role)
	require.Equal(t, "Vera", claims.Name)

	// A role change shows up in the next session only.
	clock.Advance(time.Second)
	_, err = dir.AssignRole(ctx, admin, "vera@example.org", "guard")
	require.NoError(t, err)

	issued, err = sessions.IssueSession(ctx, "vera@example.org")
	require.NoError(t, err)
	claims, err = verifier.Verify(issued.Token)
	require.NoError(t, err)
	require.Equal(t, "guard", claims.Role)

	_, err = sessions.IssueSession(ctx, "nobody@example.org")
	require.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestListUsers(t *testing.T) {
	dir, clock := newDirectory(t)
	ctx := context.Background()

	for _, u := range []struct{ id, email, role string }{
		{"vol-1", "vera@example.org", "volunteer"},
		{"guard-1", "gus@example.org", "guard"},
		{"vol-2", "vic@example.org", "voluntario"},
	} {
		_, err := dir.AddUser(ctx, u.id, u.id, u.email, u.role)
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}

	vols, err := dir.ListUsers(ctx, admin, "volunteer", 0)
	require.NoError(t, err)
	require.Len(t, vols, 2)
	require.Equal(t, "vol-2", vols[0].ID)
	require.Equal(t, "vol-1", vols[1].ID)

	// Legacy names filter the same way.
	guards, err := dir.ListUsers(ctx, admin, "guardia", 0)
	require.NoError(t, err)
	require.Len(t, guards, 1)
	require.Equal(t, "guard-1", guards[0].ID)

	everyone, err := dir.ListUsers(ctx, admin, "", 2)
	require.NoError(t, err)
	require.Len(t, everyone, 2)
	require.Equal(t, "vol-2", everyone[0].ID)

	_, err = dir.ListUsers(ctx, admin, "janitor", 0)
	require.ErrorIs(t, err, service.ErrInvalidRole)
	_, err = dir.ListUsers(ctx, guard, "", 0)
	require.ErrorIs(t, err, service.ErrAdminsOnly)
	_, err = dir.ListUsers(ctx, nil, "", 0)
	require.ErrorIs(t, err, service.ErrUnauthenticated)
}
