// Package cache provides a best-effort Redis read cache for hot wallet
// values. The database stays the source of truth: the cache only serves
// the read path and the fallback when a balance refresh fails.
package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"stepcity/internal/logger"
)

const opTimeout = 250 * time.Millisecond

// BalanceCache caches per-user coin balances. A nil *BalanceCache (or one
// built from a nil client) is valid and disables caching entirely.
type BalanceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewBalanceCache wraps a Redis client. Pass nil to disable caching.
func NewBalanceCache(rdb *redis.Client, ttl time.Duration) *BalanceCache {
	if rdb == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &BalanceCache{rdb: rdb, ttl: ttl}
}

func balanceKey(userID string) string {
	return "stepcity:balance:" + userID
}

// Get returns the cached balance for the user, if present.
func (c *BalanceCache) Get(ctx context.Context, userID string) (int64, bool) {
	if c == nil {
		return 0, false
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	val, err := c.rdb.Get(ctx, balanceKey(userID)).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Get().Debugw("balance cache read failed", "error", err)
		}
		return 0, false
	}
	balance, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return balance, true
}

// Set stores the balance for the user. Failures are logged and ignored.
func (c *BalanceCache) Set(ctx context.Context, userID string, balance int64) {
	if c == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.rdb.Set(ctx, balanceKey(userID), strconv.FormatInt(balance, 10), c.ttl).Err(); err != nil {
		logger.Get().Debugw("balance cache write failed", "error", err)
	}
}

// Invalidate drops the cached balance for the user.
func (c *BalanceCache) Invalidate(ctx context.Context, userID string) {
	if c == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.rdb.Del(ctx, balanceKey(userID)).Err(); err != nil {
		logger.Get().Debugw("balance cache invalidation failed", "error", err)
	}
}
