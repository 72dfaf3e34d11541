package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTokenRepo keeps the revoked-token ledger in Redis.  Each entry is a
// key that expires together with the token it revokes, so Redis prunes the
// ledger on its own.
type RedisTokenRepo struct {
	rdb    *redis.Client
	prefix string
	skew   time.Duration
}

// NewRedisTokenRepo builds the ledger.  skew is added to every key TTL to
// cover clock differences between instances.
func NewRedisTokenRepo(rdb *redis.Client, prefix string, skew time.Duration) *RedisTokenRepo {
	if prefix == "" {
		prefix = "revoked"
	}
	return &RedisTokenRepo{rdb: rdb, prefix: prefix, skew: skew}
}

func (r *RedisTokenRepo) key(tokenHash string) string { return r.prefix + ":" + tokenHash }

// Revoke uses SET NX so a repeated revoke keeps the original entry.
func (r *RedisTokenRepo) Revoke(ctx context.Context, tokenHash string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt) + r.skew
	if ttl <= 0 {
		// Already expired; the signature check rejects it without help.
		return nil
	}
	return r.rdb.SetNX(ctx, r.key(tokenHash), time.Now().UTC().Unix(), ttl).Err()
}

func (r *RedisTokenRepo) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.key(tokenHash)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Prune is a no-op: keys carry their own TTL.
func (r *RedisTokenRepo) Prune(context.Context, time.Time) (int64, error) { return 0, nil }
