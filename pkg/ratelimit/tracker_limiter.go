// Package ratelimit provides Redis-backed sliding window rate limiting.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SlidingWindowLimiter implements sliding window rate limiting using Redis.
// With no Redis client it fails open; ingestion must not stall on a cache
// outage.
type SlidingWindowLimiter struct {
	redis  *redis.Client
	rate   int           // requests per window
	window time.Duration // window size
	burst  int           // allowed burst
}

// NewSlidingWindowLimiter creates a new sliding window rate limiter.
func NewSlidingWindowLimiter(redisClient *redis.Client, ratePerWindow int, window time.Duration, burst int) *SlidingWindowLimiter {
	if window <= 0 {
		window = time.Second
	}
	return &SlidingWindowLimiter{
		redis:  redisClient,
		rate:   ratePerWindow,
		window: window,
		burst:  burst,
	}
}

// Lua script for atomic sliding window check
var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local max_requests = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local count = redis.call('ZCARD', key)

	if count < max_requests then
		redis.call('ZADD', key, now, now .. '-' .. math.random())
		redis.call('PEXPIRE', key, window_ms * 2)
		return 1
	else
		local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
		if #oldest > 0 then
			return -(oldest[2] + window_ms - now)
		end
		return 0
	end
`)

// Allow checks if the request is allowed and returns the wait duration if not.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (bool, time.Duration) {
	if l.redis == nil {
		return true, 0
	}

	now := time.Now()
	windowStart := now.Add(-l.window)
	redisKey := fmt.Sprintf("tracker:ratelimit:%s", key)

	result, err := slidingWindowScript.Run(ctx, l.redis, []string{redisKey},
		now.UnixMilli(),
		windowStart.UnixMilli(),
		l.rate+l.burst,
		l.window.Milliseconds(),
	).Int64()

	if err != nil {
		return true, 0
	}

	if result == 1 {
		return true, 0
	}

	// result is negative wait time in milliseconds
	if result < 0 {
		return false, time.Duration(-result) * time.Millisecond
	}

	return false, l.window
}
