package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"salon-booking/internal/apperr"
	"salon-booking/internal/model"
)

func (s *Store) CreateRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (string, error) {
	id := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at) VALUES ($1,$2,$3,$4)`,
		id, userID, tokenHash, expiresAt,
	)
	if err != nil {
		return "", mapErr("create refresh token", "user", err)
	}
	return id, nil
}

func (s *Store) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	rt := &model.RefreshToken{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, token_hash, expires_at, revoked, replaced_by, created_at
		 FROM refresh_tokens WHERE token_hash = $1`, tokenHash,
	).Scan(&rt.ID, &rt.UserID, &rt.TokenHash, &rt.ExpiresAt, &rt.Revoked, &rt.ReplacedBy, &rt.CreatedAt)
	if err != nil {
		return nil, mapErr("refresh token", "refresh token", err)
	}
	return rt, nil
}

// RotateRefreshToken revokes oldID and inserts its replacement in one transaction.
func (s *Store) RotateRefreshToken(ctx context.Context, oldID, userID, newHash string, newExpiry time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return mapErr("rotate refresh token", "refresh token", err)
	}
	defer tx.Rollback(ctx)

	newID := uuid.New().String()
	tag, err := tx.Exec(ctx,
		`UPDATE refresh_tokens SET revoked = true, replaced_by = $1 WHERE id = $2 AND revoked = false`,
		newID, oldID,
	)
	if err != nil {
		return mapErr("rotate refresh token", "refresh token", err)
	}
	// lost a race with another rotation of the same token
	if tag.RowsAffected() == 0 {
		return apperr.Auth("refresh token already used")
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at) VALUES ($1,$2,$3,$4)`,
		newID, userID, newHash, newExpiry,
	)
	if err != nil {
		return mapErr("rotate refresh token", "refresh token", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return mapErr("rotate refresh token", "refresh token", err)
	}
	return nil
}

// RevokeAllRefreshTokens is used on logout and on reuse of a revoked token.
func (s *Store) RevokeAllRefreshTokens(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE refresh_tokens SET revoked = true WHERE user_id = $1 AND revoked = false`,
		userID,
	)
	if err != nil {
		return mapErr("revoke refresh tokens", "user", err)
	}
	return nil
}
