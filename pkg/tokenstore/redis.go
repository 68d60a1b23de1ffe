package tokenstore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKey is the single durable key holding the raw credential string.
const DefaultKey = "accessToken"

const redisOpTimeout = 2 * time.Second

// Redis is a Store backed by a shared Redis instance. Useful when several
// terminal instances at the front desk need to share one signed-in session.
//
// Store's contract is synchronous and error-free, so Redis failures are
// logged and reported as an absent credential; the caller will then walk its
// normal unauthenticated path.
type Redis struct {
	rdb *redis.Client
	key string
	log *slog.Logger
}

// NewRedis returns a Store persisting the credential under key. An empty key
// selects DefaultKey.
func NewRedis(rdb *redis.Client, key string, log *slog.Logger) *Redis {
	if key == "" {
		key = DefaultKey
	}
	if log == nil {
		log = slog.Default()
	}
	return &Redis{rdb: rdb, key: key, log: log}
}

func (r *Redis) Get() (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	token, err := r.rdb.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		r.log.Warn("token read failed, treating as absent", "key", r.key, "err", err)
		return "", false
	}
	return token, true
}

func (r *Redis) Set(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := r.rdb.Set(ctx, r.key, token, 0).Err(); err != nil {
		r.log.Error("token write failed", "key", r.key, "err", err)
	}
}

func (r *Redis) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := r.rdb.Del(ctx, r.key).Err(); err != nil {
		r.log.Error("token clear failed", "key", r.key, "err", err)
	}
}
