package service

import (
	"context"
	"time"

	"github.com/aussiebroadwan/rollcall/pkg/jwtx"
)

// IssuedSession is a signed session JWT for a directory user.
type IssuedSession struct {
	Token     string
	ExpiresAt time.Time
	Claims    jwtx.Claims
}

// SessionService mints session tokens from directory entries. It is the
// local stand-in for an external identity provider: whatever role the
// directory holds at minting time is what the signed claim says.
type SessionService struct {
	Directory *DirectoryService
	Signer    jwtx.Signer
	Issuer    string
	Audience  []string
	TTL       time.Duration
	Now       func() time.Time
}

// IssueSession signs a session for the user registered under email.
func (s *SessionService) IssueSession(ctx context.Context, email string) (IssuedSession, error) {
	u, err := s.Directory.GetUserByEmail(ctx, email)
	if err != nil {
		return IssuedSession{}, err
	}

	ttl := s.TTL
	if ttl <= 0 {
		ttl = jwtx.DefaultSessionTTL
	}
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	claims := jwtx.NewSessionClaims(u.ID, string(u.Role), u.Email, u.Name, ttl, s.Issuer, s.Audience, now)
	token, err := s.Signer.Sign(claims)
	if err != nil {
		return IssuedSession{}, internal(ErrInternal, err)
	}
	return IssuedSession{Token: token, ExpiresAt: claims.ExpiresAt.Time, Claims: claims}, nil
}
