// Copyright (c) 2026 Labtrace. All rights reserved.
// Author: engineering@labtrace.io

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/labtrace/labtrace/internal/platform/constants"
)

// RedisRevocationStore implements RevocationStore using Redis.
//
// Records live under the "auth:denylist:" prefix and carry the exact TTL of
// the token they shadow, so Redis expires them at the same instant the token
// would have expired naturally.
type RedisRevocationStore struct {
	client *redis.Client
}

// NewRevocationStore creates a new Redis-backed RevocationStore.
func NewRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{client: client}
}

/*
SetWithTTL records a revoked token key until its natural expiry.

Parameters:
  - context: context.Context
  - key: string
  - ttl: time.Duration

Returns:
  - error: Execution errors (callers treat writes as best-effort)
*/
func (store *RedisRevocationStore) SetWithTTL(context context.Context, key string, ttl time.Duration) error {

	// Use constants for key prefix
	redisKey := constants.RedisPrefixDenylist + key

	// Set the sentinel with TTL
	if err := store.client.Set(context, redisKey, RevokedSentinel, ttl).Err(); err != nil {
		return fmt.Errorf("redis_denylist_set_failed: %w", err)
	}

	// Return nil on success
	return nil
}

/*
Exists reports whether the token key is present in the denylist.

Description: Lookup errors are returned as-is so the token service can fail
closed — an unreachable denylist cannot prove a token is unrevoked.

Parameters:
  - context: context.Context
  - key: string

Returns:
  - bool: True if the key is present
  - error: Connectivity errors
*/
func (store *RedisRevocationStore) Exists(context context.Context, key string) (bool, error) {

	// Use constants for key prefix
	redisKey := constants.RedisPrefixDenylist + key

	// Check key presence
	count, err := store.client.Exists(context, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("redis_denylist_exists_failed: %w", err)
	}

	return count == 1, nil
}
