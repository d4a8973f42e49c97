package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/rollcall/domain"
)

type accessTokensRepo struct {
	db dbtx
}

const accessTokenColumns = `id, value_hash, issued_by, issued_at, expires_at, used_count, max_uses, active, last_used_at, last_used_by`

func (r *accessTokensRepo) CreateAccessToken(ctx context.Context, t domain.AccessToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO access_tokens (`+accessTokenColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.ValueHash,
		t.IssuedBy,
		toMillis(t.IssuedAt),
		toMillis(t.ExpiresAt),
		t.UsedCount,
		t.MaxUses,
		boolToInt(t.Active),
		toNullMillis(t.LastUsedAt),
		mapStringNull(t.LastUsedBy),
	)
	return mapWriteErr(err)
}

func (r *accessTokensRepo) GetAccessTokenByHash(ctx context.Context, hash string) (domain.AccessToken, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+accessTokenColumns+`
		FROM access_tokens
		WHERE value_hash = ?`, hash)
	t, err := scanAccessToken(row)
	if err != nil {
		return domain.AccessToken{}, mapNotFound(err)
	}
	return t, nil
}

func (r *accessTokensRepo) GetLatestAccessTokenByIssuer(ctx context.Context, issuedBy string) (domain.AccessToken, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+accessTokenColumns+`
		FROM access_tokens
		WHERE issued_by = ?
		ORDER BY issued_at DESC, id DESC
		LIMIT 1`, issuedBy)
	t, err := scanAccessToken(row)
	if err != nil {
		return domain.AccessToken{}, mapNotFound(err)
	}
	return t, nil
}

func (r *accessTokensRepo) UpdateAccessTokenUsage(ctx context.Context, t domain.AccessToken, expectedUsedCount int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE access_tokens
		SET used_count = ?, active = ?, last_used_at = ?, last_used_by = ?
		WHERE id = ? AND used_count = ?`,
		t.UsedCount,
		boolToInt(t.Active),
		toNullMillis(t.LastUsedAt),
		mapStringNull(t.LastUsedBy),
		t.ID,
		expectedUsedCount,
	)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

func (r *accessTokensRepo) DeleteAccessToken(ctx context.Context, id string, expectedUsedCount int) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM access_tokens WHERE id = ? AND used_count = ?`,
		id, expectedUsedCount)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

func (r *accessTokensRepo) DeleteExpiredAccessTokens(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM access_tokens WHERE expires_at < ?`, toMillis(before))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanAccessToken(row *sql.Row) (domain.AccessToken, error) {
	var (
		t          domain.AccessToken
		issuedAt   int64
		expiresAt  int64
		active     int
		lastUsedAt sql.NullInt64
		lastUsedBy sql.NullString
	)
	err := row.Scan(
		&t.ID,
		&t.ValueHash,
		&t.IssuedBy,
		&issuedAt,
		&expiresAt,
		&t.UsedCount,
		&t.MaxUses,
		&active,
		&lastUsedAt,
		&lastUsedBy,
	)
	if err != nil {
		return domain.AccessToken{}, err
	}
	t.IssuedAt = fromMillis(issuedAt)
	t.ExpiresAt = fromMillis(expiresAt)
	t.Active = active != 0
	t.LastUsedAt = fromNullMillis(lastUsedAt)
	t.LastUsedBy = lastUsedBy.String
	return t, nil
}
