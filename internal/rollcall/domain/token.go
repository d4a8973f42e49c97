package domain

import "time"

// AccessToken is a short-lived bearer secret a volunteer shows as a QR code.
// The raw value is handed out once at issuance; only its fingerprint is
// stored.
type AccessToken struct {
	ID         string
	ValueHash  string
	IssuedBy   string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	UsedCount  int
	MaxUses    int
	Active     bool
	LastUsedAt *time.Time
	LastUsedBy string
}

// Expired reports whether now is strictly past ExpiresAt.
func (t AccessToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Exhausted reports whether every use has been consumed.
func (t AccessToken) Exhausted() bool {
	return t.UsedCount >= t.MaxUses
}

// RemainingUses never goes below zero.
func (t AccessToken) RemainingUses() int {
	return max(t.MaxUses-t.UsedCount, 0)
}
