package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/rollcall/internal/rollcall/app"
	"github.com/aussiebroadwan/rollcall/pkg/jwtx"
)

// run executes one command line against a fresh command tree.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd("test", "abc123")
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func setupEnv(t *testing.T) (dbFile, keyFile string) {
	t.Helper()
	dir := t.TempDir()
	dbFile = filepath.Join(dir, "rollcall.db")
	keyFile = filepath.Join(dir, "rollcall.key")
	t.Setenv("ROLLCALL_DATABASE_FILE", dbFile)
	t.Setenv("ROLLCALL_SIGNING_KEY_FILE", keyFile)
	t.Setenv("ROLLCALL_LOG_LEVEL", "error")
	return dbFile, keyFile
}

func TestMigrate(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "migrate")
	require.NoError(t, err)
	require.Equal(t, "sqlite store is up to date\n", out)

	_, err = run(t, "migrate")
	require.NoError(t, err)
}

func TestKeygenRefusesOverwrite(t *testing.T) {
	_, keyFile := setupEnv(t)

	out, err := run(t, "keygen")
	require.NoError(t, err)
	require.Contains(t, out, keyFile)

	_, err = run(t, "keygen")
	require.Error(t, err)

	other := filepath.Join(t.TempDir(), "other.key")
	_, err = run(t, "keygen", "--out", other)
	require.NoError(t, err)
	_, err = app.LoadSigner(other)
	require.NoError(t, err)
}

func TestUserLifecycleAndSession(t *testing.T) {
	_, keyFile := setupEnv(t)

	_, err := run(t, "keygen")
	require.NoError(t, err)

	out, err := run(t, "user", "add", "--id", "vol-1", "--name", "Vera", "--email", "Vera@Example.org")
	require.NoError(t, err)
	require.Equal(t, "added Vera <vera@example.org> as volunteer (id vol-1)\n", out)

	_, err = run(t, "user", "add", "--email", "vera@example.org")
	require.EqualError(t, err, "A user with that email already exists.")

	out, err = run(t, "user", "set-role", "--email", "vera@example.org", "--role", "guardia")
	require.NoError(t, err)
	require.Equal(t, "Success. User vera@example.org now has the role \"guard\".\n", out)

	_, err = run(t, "user", "set-role", "--email", "nobody@example.org", "--role", "guard")
	require.EqualError(t, err, "No user exists with that email.")

	out, err = run(t, "session", "issue", "--email", "vera@example.org", "--json")
	require.NoError(t, err)
	var issued struct {
		Token     string `json:"token"`
		ExpiresAt int64  `json:"expiresAt"`
		Role      string `json:"role"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &issued))
	require.Equal(t, "guard", issued.Role)

	signer, err := app.LoadSigner(keyFile)
	require.NoError(t, err)
	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))
	claims, err := jwtx.NewVerifierEdDSA(keys, "rollcall", nil).Verify(issued.Token)
	require.NoError(t, err)
	require.Equal(t, "vol-1", claims.Subject)
	require.Equal(t, "guard", claims.Role)

	out, err = run(t, "session", "issue", "--email", "vera@example.org")
	require.NoError(t, err)
	require.Len(t, strings.Split(strings.TrimSpace(out), "."), 3)
}

func TestUserList(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "user", "list")
	require.NoError(t, err)
	require.Contains(t, out, "No users found")

	_, err = run(t, "user", "add", "--id", "vol-1", "--name", "Vera", "--email", "vera@example.org")
	require.NoError(t, err)
	_, err = run(t, "user", "add", "--id", "guard-1", "--name", "Gus", "--email", "gus@example.org", "--role", "guard")
	require.NoError(t, err)

	out, err = run(t, "user", "list", "--role", "guardia")
	require.NoError(t, err)
	require.Contains(t, out, "gus@example.org")
	require.NotContains(t, out, "vera@example.org")

	out, err = run(t, "user", "ls", "--json")
	require.NoError(t, err)
	var rows []struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	require.ElementsMatch(t, []string{"vol-1", "guard-1"}, []string{rows[0].ID, rows[1].ID})

	_, err = run(t, "user", "list", "--role", "janitor")
	require.EqualError(t, err, "Role must be one of volunteer, guard, admin, superadmin.")
}

func TestSessionIssueRequiresKeyfileMode(t *testing.T) {
	setupEnv(t)
	t.Setenv("ROLLCALL_IDENTITY_MODE", "jwks")
	t.Setenv("ROLLCALL_JWKS_URL", "https://id.example.org/jwks.json")

	_, err := run(t, "session", "issue", "--email", "vera@example.org")
	require.ErrorContains(t, err, "keyfile")
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	setupEnv(t)
	dbFile := filepath.Join(t.TempDir(), "flag.db")

	_, err := run(t, "--database-file", dbFile, "user", "add", "--id", "g1", "--email", "g1@example.org", "--role", "guard")
	require.NoError(t, err)

	// The env database has no such user.
	_, err = run(t, "user", "set-role", "--email", "g1@example.org", "--role", "admin")
	require.Error(t, err)
	_, err = run(t, "--database-file", dbFile, "user", "set-role", "--email", "g1@example.org", "--role", "admin")
	require.NoError(t, err)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version", "--json")
	require.NoError(t, err)
	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	require.Equal(t, "test", info["version"])
	require.Equal(t, "abc123", info["commit"])
}
