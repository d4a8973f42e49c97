package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// AttendanceTokenChars is the length of the value shown in an attendance QR
// code: 6 random bytes, 48 bits of entropy, rendered as lowercase hex.
const AttendanceTokenChars = 12

// GenerateHexToken returns n lowercase hex characters drawn from crypto/rand.
// n must be positive and even.
func GenerateHexToken(n int) (string, error) {
	if n <= 0 || n%2 != 0 {
		return "", fmt.Errorf("cryptox: hex token length must be positive and even, got %d", n)
	}

	buf := make([]byte, n/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: read random bytes: %w", err)
	}

	return hex.EncodeToString(buf), nil
}

// FingerprintToken returns the SHA-256 of token as base64url (43 chars).
// Bearer values are stored and looked up by fingerprint so a leaked table
// cannot be replayed at the scanner.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
