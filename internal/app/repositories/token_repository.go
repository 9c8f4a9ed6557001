package repositories

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/scholarsphere/internal/pkg/apperrors"
	"github.com/yigit/scholarsphere/internal/pkg/dberrors"
)

// TokenRepository stores refresh tokens by SHA-256 digest so a leaked
// table cannot be replayed against /auth/refresh.
type TokenRepository struct {
	baseRepository
}

func NewTokenRepository(db *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{baseRepository: newBaseRepository(db)}
}

func tokenHash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (r *TokenRepository) CreateToken(ctx context.Context, token string, userID int64, expiryDate time.Time) error {
	sql, args, err := r.sb.Insert("refresh_tokens").
		Columns("token_hash", "user_id", "expiry_date").
		Values(tokenHash(token), userID, expiryDate).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert refresh token: %w", err)
	}

	if _, err := r.conn(ctx).Exec(ctx, sql, args...); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "refresh_tokens_token_hash_key") {
			return apperrors.ErrTokenInvalid
		}
		return fmt.Errorf("insert refresh token for user %d: %w", userID, err)
	}
	return nil
}

// GetTokenByValue returns the owner and expiry of a live token.
// Revoked and expired tokens are reported with their own errors.
func (r *TokenRepository) GetTokenByValue(ctx context.Context, token string) (int64, time.Time, error) {
	sql, args, err := r.sb.Select("user_id", "expiry_date", "is_revoked").
		From("refresh_tokens").
		Where(squirrel.Eq{"token_hash": tokenHash(token)}).
		ToSql()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("build select refresh token: %w", err)
	}

	var (
		userID  int64
		expiry  time.Time
		revoked bool
	)
	if err := r.conn(ctx).QueryRow(ctx, sql, args...).Scan(&userID, &expiry, &revoked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, time.Time{}, apperrors.ErrTokenNotFound
		}
		return 0, time.Time{}, fmt.Errorf("select refresh token: %w", err)
	}

	switch {
	case revoked:
		return 0, time.Time{}, apperrors.ErrTokenRevoked
	case !expiry.After(time.Now()):
		return 0, time.Time{}, apperrors.ErrTokenExpired
	}
	return userID, expiry, nil
}

// RevokeToken marks one token revoked. Revoking twice is ErrTokenNotFound.
func (r *TokenRepository) RevokeToken(ctx context.Context, token string) error {
	sql, args, err := r.sb.Update("refresh_tokens").
		Set("is_revoked", true).
		Where(squirrel.Eq{"token_hash": tokenHash(token), "is_revoked": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build revoke refresh token: %w", err)
	}

	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTokenNotFound
	}
	return nil
}

func (r *TokenRepository) RevokeAllUserTokens(ctx context.Context, userID int64) error {
	sql, args, err := r.sb.Update("refresh_tokens").
		Set("is_revoked", true).
		Where(squirrel.Eq{"user_id": userID, "is_revoked": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build revoke user tokens: %w", err)
	}
	if _, err := r.conn(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("revoke tokens of user %d: %w", userID, err)
	}
	return nil
}

// PurgeStale deletes expired tokens and revoked tokens issued before now-revokedFor
func (r *TokenRepository) PurgeStale(ctx context.Context, revokedFor time.Duration) (int64, error) {
	now := time.Now()
	sql, args, err := r.sb.Delete("refresh_tokens").
		Where(squirrel.Or{
			squirrel.Lt{"expiry_date": now},
			squirrel.And{
				squirrel.Eq{"is_revoked": true},
				squirrel.Lt{"created_at": now.Add(-revokedFor)},
			},
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build purge refresh tokens: %w", err)
	}

	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("purge refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
