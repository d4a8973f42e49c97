package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/rollcall/domain"
	"github.com/aussiebroadwan/rollcall/internal/rollcall/store"
	"github.com/aussiebroadwan/rollcall/pkg/cryptox"
	"github.com/aussiebroadwan/rollcall/pkg/idx"
	"github.com/aussiebroadwan/rollcall/pkg/slogx"
)

const DefaultRedeemMaxAttempts = 3

// VolunteerInfo identifies whose token was scanned. Email is nil when the
// directory has none.
type VolunteerInfo struct {
	UID   string
	Name  string
	Email *string
}

// Redemption is the outcome of a successful scan. Volunteer is nil when the
// issuing volunteer has no directory entry.
type Redemption struct {
	TokenID       string
	Volunteer     *VolunteerInfo
	RedeemedAt    time.Time
	RemainingUses int
	AttendanceID  string
}

type RedeemerService struct {
	Store store.Store

	// RetainExhausted keeps used-up tokens as inactive rows instead of
	// deleting them.
	RetainExhausted bool

	// MaxAttempts bounds retries after a lost race. Zero means the default.
	MaxAttempts int

	Now func() time.Time
}

// RedeemToken consumes one use of the token behind value on behalf of a
// guard and records attendance for the volunteer who issued it. The token
// update and the attendance insert commit together or not at all.
func (s *RedeemerService) RedeemToken(ctx context.Context, caller *domain.Caller, value string) (Redemption, error) {
	log := slogx.FromContext(ctx)

	if caller == nil || caller.UID == "" {
		return Redemption{}, ErrUnauthenticated
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return Redemption{}, ErrTokenRequired
	}
	if caller.Role != domain.RoleGuard {
		log.Warn("token redemption refused", slog.String("role", string(caller.Role)))
		return Redemption{}, ErrGuardsOnly
	}

	hash := cryptox.FingerprintToken(value)
	log = log.With(slog.String("token_prefix", prefix(value)))

	attempts := s.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultRedeemMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Redemption{}, internal(ErrRedeemFailed, err)
		}

		res, err := s.redeemOnce(ctx, caller, hash)
		if err == nil {
			log.Info("access token redeemed",
				slog.String("token_id", res.TokenID),
				slog.String("attendance_id", res.AttendanceID),
				slog.Int("remaining_uses", res.RemainingUses),
			)
			return res, nil
		}

		var se *Error
		if errors.As(err, &se) {
			log.Info("access token rejected", slog.String("reason", se.Message))
			return Redemption{}, se
		}
		if !errors.Is(err, store.ErrConflict) {
			log.Error("redemption failed", slog.Any("error", err))
			return Redemption{}, internal(ErrRedeemFailed, err)
		}

		log.Debug("redemption lost a race, retrying", slog.Int("attempt", attempt))
		lastErr = err
	}

	log.Error("redemption retries exhausted", slog.Int("attempts", attempts), slog.Any("error", lastErr))
	return Redemption{}, internal(ErrRedeemFailed, lastErr)
}

// redeemOnce runs one transaction. Rejections come back as *Error; a lost
// compare-and-set comes back as store.ErrConflict.
func (s *RedeemerService) redeemOnce(ctx context.Context, caller *domain.Caller, hash string) (Redemption, error) {
	var (
		res      Redemption
		rejected *Error
	)
	now := s.now()

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		tok, err := tx.AccessTokens().GetAccessTokenByHash(ctx, hash)
		if errors.Is(err, store.ErrNotFound) {
			rejected = ErrInvalidToken
			return nil
		}
		if err != nil {
			return err
		}

		if !tok.Active {
			rejected = ErrTokenDeactivated
			return nil
		}
		if tok.Expired(now) {
			// Commit the cleanup, then report the expiry.
			if err := tx.AccessTokens().DeleteAccessToken(ctx, tok.ID, tok.UsedCount); err != nil {
				return err
			}
			rejected = ErrTokenExpired
			return nil
		}
		if tok.Exhausted() {
			rejected = ErrTokenAlreadyUsed
			return nil
		}

		volunteer, err := s.lookupVolunteer(ctx, tx, tok.IssuedBy)
		if err != nil {
			return err
		}

		expected := tok.UsedCount
		tok.UsedCount++
		switch {
		case tok.Exhausted() && !s.RetainExhausted:
			err = tx.AccessTokens().DeleteAccessToken(ctx, tok.ID, expected)
		default:
			tok.Active = !tok.Exhausted()
			tok.LastUsedAt = &now
			tok.LastUsedBy = caller.UID
			err = tx.AccessTokens().UpdateAccessTokenUsage(ctx, tok, expected)
		}
		if err != nil {
			return err
		}

		rec := domain.AttendanceRecord{
			ID:          idx.NewAt(now).String(),
			VolunteerID: tok.IssuedBy,
			TokenID:     tok.ID,
			Timestamp:   now,
			RecordedBy:  caller.UID,
		}
		rec.VolunteerName = domain.UnknownVolunteerName
		if volunteer != nil {
			rec.VolunteerName = volunteer.Name
			if volunteer.Email != nil {
				rec.VolunteerEmail = *volunteer.Email
			}
		}
		if err := tx.Attendance().CreateAttendanceRecord(ctx, rec); err != nil {
			return err
		}

		res = Redemption{
			TokenID:       tok.ID,
			Volunteer:     volunteer,
			RedeemedAt:    now,
			RemainingUses: tok.RemainingUses(),
			AttendanceID:  rec.ID,
		}
		return nil
	})
	if err != nil {
		return Redemption{}, err
	}
	if rejected != nil {
		return Redemption{}, rejected
	}
	return res, nil
}

// lookupVolunteer resolves the display identity of a token's issuer. A
// missing directory entry is not an error.
func (s *RedeemerService) lookupVolunteer(ctx context.Context, tx store.Tx, uid string) (*VolunteerInfo, error) {
	u, err := tx.Users().GetUserByID(ctx, uid)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	info := &VolunteerInfo{UID: u.ID, Name: u.Name}
	if info.Name == "" {
		info.Name = domain.UnknownVolunteerName
	}
	if u.Email != "" {
		email := u.Email
		info.Email = &email
	}
	return info, nil
}

func (s *RedeemerService) now() time.Time { return nowMillis(s.Now) }

// prefix keeps token values out of logs.
func prefix(value string) string {
	if len(value) <= 4 {
		return value
	}
	return value[:4]
}
