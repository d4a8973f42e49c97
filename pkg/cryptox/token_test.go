package cryptox

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

var lowerHex = regexp.MustCompile(`^[0-9a-f]+$`)

func TestGenerateHexToken(t *testing.T) {
	token, err := GenerateHexToken(AttendanceTokenChars)
	require.NoError(t, err)
	require.Len(t, token, 12)
	require.Regexp(t, lowerHex, token)
}

func TestGenerateHexToken_InvalidLength(t *testing.T) {
	for _, n := range []int{0, -2, 7} {
		token, err := GenerateHexToken(n)
		require.Error(t, err, "length %d", n)
		require.Empty(t, token)
	}
}

func TestGenerateHexToken_Unique(t *testing.T) {
	const n = 10_000
	seen := make(map[string]struct{}, n)
	for range n {
		token, err := GenerateHexToken(AttendanceTokenChars)
		require.NoError(t, err)
		_, dup := seen[token]
		require.False(t, dup, "duplicate token %q", token)
		seen[token] = struct{}{}
	}
}

func TestFingerprintToken(t *testing.T) {
	a := FingerprintToken("a1b2c3d4e5f6")
	require.Len(t, a, 43)
	require.Equal(t, a, FingerprintToken("a1b2c3d4e5f6"))
	require.NotEqual(t, a, FingerprintToken("a1b2c3d4e5f7"))
}
