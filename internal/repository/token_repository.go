package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo is the MySQL revoked-token ledger ('revoked_tokens' table,
// primary key token_hash).
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Revoke inserts a ledger row.  A second revoke of the same hash hits the
// primary key and is treated as success.
func (r *TokenRepo) Revoke(ctx context.Context, tokenHash string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO revoked_tokens (token_hash, created_at, expires_at) VALUES (?,?,?)",
		tokenHash, time.Now().UTC(), expiresAt.UTC())
	if isDuplicate(err) {
		return nil
	}
	return err
}

// IsRevoked is a primary key lookup.
func (r *TokenRepo) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM revoked_tokens WHERE token_hash=? LIMIT 1", tokenHash).Scan(&one)
	switch {
	case err == sql.ErrNoRows:
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// Prune deletes rows for tokens that expired before the given instant.
func (r *TokenRepo) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM revoked_tokens WHERE expires_at < ?", before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
