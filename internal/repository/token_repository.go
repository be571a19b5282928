package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/kronos/internal/model"
)

// TokenRepo persists/validates refresh tokens (single 'token_hash' column).
// Times are supplied by the caller so both MySQL and SQLite store the same
// UTC values.
type TokenRepo struct{ db DBTX }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db} }

func (r *TokenRepo) WithTx(tx *sql.Tx) *TokenRepo { return &TokenRepo{db: tx} }

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created_at) VALUES (?,?,?,?)",
		userID, tokenHash, Timestamp(exp), Timestamp(time.Now()))
	return classify(err, opWrite, "refresh token")
}

// GetByHash loads the token row for tokenHash regardless of its state.
func (r *TokenRepo) GetByHash(ctx context.Context, tokenHash string) (model.RefreshToken, error) {
	var (
		t       model.RefreshToken
		revoked sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, token_hash, expires_at, revoked_at, created_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &revoked, &t.CreatedAt)
	if err != nil {
		return model.RefreshToken{}, classify(err, opRead, "refresh token")
	}
	t.ExpiresAt, t.CreatedAt = t.ExpiresAt.UTC(), t.CreatedAt.UTC()
	t.RevokedAt = nullTime(revoked)
	return t, nil
}

// ValidateRefresh returns the owner and expiry of a non-revoked, non-expired
// token.  Unknown, revoked and expired tokens all yield ErrNotFound.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, time.Time, error) {
	t, err := r.GetByHash(ctx, tokenHash)
	if err != nil {
		return 0, time.Time{}, err
	}
	if t.RevokedAt != nil || time.Now().UTC().After(t.ExpiresAt) {
		return 0, time.Time{}, classify(sql.ErrNoRows, opRead, "refresh token")
	}
	return t.UserID, t.ExpiresAt, nil
}

// RevokeByHash marks a live token as revoked.  Exactly one caller can
// revoke a given token; everyone else, including callers racing on the
// same token, gets ErrNotFound.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=? WHERE token_hash=? AND revoked_at IS NULL",
		Timestamp(now), tokenHash)
	if err != nil {
		return classify(err, opWrite, "refresh token")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("refresh token: %w", ErrNotFound)
	}
	return nil
}

// RevokeAllForUser revokes all user's active tokens.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=? WHERE user_id=? AND revoked_at IS NULL",
		Timestamp(now), userID)
	return err
}

// PurgeExpired deletes tokens that expired or were revoked before now and
// returns how many rows were removed.
func (r *TokenRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE expires_at < ? OR revoked_at IS NOT NULL",
		Timestamp(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
