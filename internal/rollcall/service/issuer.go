package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/rollcall/domain"
	"github.com/aussiebroadwan/rollcall/internal/rollcall/store"
	"github.com/aussiebroadwan/rollcall/pkg/cryptox"
	"github.com/aussiebroadwan/rollcall/pkg/idx"
	"github.com/aussiebroadwan/rollcall/pkg/slogx"
)

const (
	DefaultTokenTTL      = 300 * time.Second
	DefaultTokenMaxUses  = 1
	DefaultIssueCooldown = 240 * time.Second
)

// IssuedToken is what a volunteer's device turns into a QR code. Token is
// the raw value and is never retrievable again.
type IssuedToken struct {
	TokenID   string
	Token     string
	ExpiresAt time.Time
}

type IssuerService struct {
	Store store.Store

	// TTL and MaxUses fall back to the defaults when zero.
	TTL     time.Duration
	MaxUses int

	// Cooldown is the minimum gap between two issuances by one volunteer.
	// Zero disables the check.
	Cooldown time.Duration

	// Now is the clock. Nil means time.Now.
	Now func() time.Time
}

// IssueToken mints a fresh access token for a volunteer.
func (s *IssuerService) IssueToken(ctx context.Context, caller *domain.Caller) (IssuedToken, error) {
	log := slogx.FromContext(ctx)

	if caller == nil || caller.UID == "" {
		return IssuedToken{}, ErrUnauthenticated
	}
	if caller.Role != domain.RoleVolunteer {
		log.Warn("token issuance refused", slog.String("role", string(caller.Role)))
		return IssuedToken{}, ErrVolunteersOnly
	}

	now := s.now()

	// Best-effort: two concurrent calls may both pass.
	if s.Cooldown > 0 {
		last, err := s.Store.AccessTokens().GetLatestAccessTokenByIssuer(ctx, caller.UID)
		switch {
		case err == nil:
			if elapsed := now.Sub(last.IssuedAt); elapsed < s.Cooldown {
				return IssuedToken{}, cooldownError(s.Cooldown - elapsed)
			}
		case errors.Is(err, store.ErrNotFound):
		default:
			log.Error("failed to read latest token", slog.Any("error", err))
			return IssuedToken{}, internal(ErrIssueFailed, err)
		}
	}

	value, err := cryptox.GenerateHexToken(cryptox.AttendanceTokenChars)
	if err != nil {
		log.Error("failed to generate token value", slog.Any("error", err))
		return IssuedToken{}, internal(ErrIssueFailed, err)
	}

	tok := domain.AccessToken{
		ID:        idx.NewAt(now).String(),
		ValueHash: cryptox.FingerprintToken(value),
		IssuedBy:  caller.UID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl()),
		UsedCount: 0,
		MaxUses:   s.maxUses(),
		Active:    true,
	}
	if err := s.Store.AccessTokens().CreateAccessToken(ctx, tok); err != nil {
		log.Error("failed to store access token",
			slog.String("token_id", tok.ID),
			slog.Any("error", err),
		)
		return IssuedToken{}, internal(ErrIssueFailed, err)
	}

	log.Info("access token issued",
		slog.String("token_id", tok.ID),
		slog.String("token_prefix", prefix(value)),
		slog.Time("expires_at", tok.ExpiresAt),
	)

	return IssuedToken{TokenID: tok.ID, Token: value, ExpiresAt: tok.ExpiresAt}, nil
}

func (s *IssuerService) now() time.Time { return nowMillis(s.Now) }

// nowMillis reads clock, or the wall clock when nil, at the millisecond
// precision the stores keep.
func nowMillis(clock func() time.Time) time.Time {
	if clock == nil {
		clock = time.Now
	}
	return clock().UTC().Truncate(time.Millisecond)
}

func (s *IssuerService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultTokenTTL
}

func (s *IssuerService) maxUses() int {
	if s.MaxUses > 0 {
		return s.MaxUses
	}
	return DefaultTokenMaxUses
}

func cooldownError(remaining time.Duration) *Error {
	return &Error{
		Kind:    KindResourceExhausted,
		Message: fmt.Sprintf("Please wait %s before generating a new code.", humanizeWait(remaining)),
		Err:     ErrCooldownActive,
	}
}

// humanizeWait renders d rounded up to whole seconds, e.g. "3 minutes and
// 55 seconds", "1 minute", "1 second".
func humanizeWait(d time.Duration) string {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	minutes, seconds := secs/60, secs%60

	var parts []string
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if seconds > 0 {
		parts = append(parts, plural(seconds, "second"))
	}
	return strings.Join(parts, " and ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
