// Copyright (c) 2026 Optica. All rights reserved.

package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/optica-app/optica/internal/platform/constants"
)

// # Login Throttle Repository

// RedisLoginThrottle implements [LoginThrottle] using Redis counters with TTL.
type RedisLoginThrottle struct {
	client *redis.Client
}

// NewLoginThrottle creates a new Redis-backed LoginThrottle.
func NewLoginThrottle(client *redis.Client) *RedisLoginThrottle {
	return &RedisLoginThrottle{client: client}
}

// throttleKey builds the per-username+IP counter key.
func throttleKey(username, ip string) string {
	return fmt.Sprintf("%s%s:%s", constants.RedisPrefixLoginAttempts, username, ip)
}

/*
Failures returns the current failed-attempt count for a username+IP pair.

Description: Returns 0 when no counter exists (no failures within the
active window).

Parameters:
  - context: context.Context
  - username: string
  - ip: string

Returns:
  - int: Attempt count
  - error: Connectivity errors
*/
func (throttle *RedisLoginThrottle) Failures(context context.Context, username, ip string) (int, error) {

	// Read the counter; absence means a clean slate.
	raw, err := throttle.client.Get(context, throttleKey(username, ip)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis_login_throttle_get_failed: %w", err)
	}

	count, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("redis_login_throttle_parse_failed: %w", err)
	}

	return count, nil
}

/*
RegisterFailure increments the counter, starting the window on the first failure.

Description: The expiry is only set when the counter is created, so the
window is anchored to the first failure rather than sliding with each one.

Parameters:
  - context: context.Context
  - username: string
  - ip: string
  - window: time.Duration

Returns:
  - error: Connectivity errors
*/
func (throttle *RedisLoginThrottle) RegisterFailure(context context.Context, username, ip string, window time.Duration) error {
	key := throttleKey(username, ip)

	count, err := throttle.client.Incr(context, key).Result()
	if err != nil {
		return fmt.Errorf("redis_login_throttle_incr_failed: %w", err)
	}

	// First failure anchors the window.
	if count == 1 {
		if err := throttle.client.Expire(context, key, window).Err(); err != nil {
			return fmt.Errorf("redis_login_throttle_expire_failed: %w", err)
		}
	}

	return nil
}

/*
Reset clears the counter after a successful login.

Parameters:
  - context: context.Context
  - username: string
  - ip: string

Returns:
  - error: Connectivity errors
*/
func (throttle *RedisLoginThrottle) Reset(context context.Context, username, ip string) error {
	if err := throttle.client.Del(context, throttleKey(username, ip)).Err(); err != nil {
		return fmt.Errorf("redis_login_throttle_reset_failed: %w", err)
	}

	return nil
}
