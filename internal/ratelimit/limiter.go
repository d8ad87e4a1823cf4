// Package ratelimit implements fixed-window request counters per client IP
// and a per-address cooldown for outgoing account emails, both in Redis.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultIPLimit       = 10
	DefaultIPWindow      = 15 * time.Minute
	DefaultEmailCooldown = 2 * time.Minute
)

// Limiter counts requests in Redis.
type Limiter struct {
	client        *redis.Client
	ipLimit       int64
	ipWindow      time.Duration
	emailCooldown time.Duration
}

type Option func(*Limiter)

func WithIPLimit(limit int, window time.Duration) Option {
	return func(l *Limiter) {
		l.ipLimit = int64(limit)
		l.ipWindow = window
	}
}

func WithEmailCooldown(d time.Duration) Option {
	return func(l *Limiter) { l.emailCooldown = d }
}

func NewLimiter(client *redis.Client, opts ...Option) *Limiter {
	l := &Limiter{
		client:        client,
		ipLimit:       DefaultIPLimit,
		ipWindow:      DefaultIPWindow,
		emailCooldown: DefaultEmailCooldown,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func ipKey(purpose, ip string) string {
	return fmt.Sprintf("ratelimit:%s:ip:%s", purpose, ip)
}

func cooldownKey(email string) string {
	return fmt.Sprintf("ratelimit:email_cooldown:%s", strings.ToLower(strings.TrimSpace(email)))
}

// CheckIPRateLimitWithPurpose reports whether ip already used up its window
// for purpose.
func (l *Limiter) CheckIPRateLimitWithPurpose(ctx context.Context, ip, purpose string) (bool, error) {
	count, err := l.client.Get(ctx, ipKey(purpose, ip)).Int64()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read rate limit counter: %w", err)
	}
	return count >= l.ipLimit, nil
}

// RecordIPRequestWithPurpose counts one request. The window starts with the
// first request; the counter is created together with its TTL so a key never
// outlives its window.
func (l *Limiter) RecordIPRequestWithPurpose(ctx context.Context, ip, purpose string) error {
	key := ipKey(purpose, ip)

	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, 0, l.ipWindow)
		pipe.Incr(ctx, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record request: %w", err)
	}
	return nil
}

// CheckEmailCooldown reports whether an email was sent to email recently.
func (l *Limiter) CheckEmailCooldown(ctx context.Context, email string) (bool, error) {
	n, err := l.client.Exists(ctx, cooldownKey(email)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check email cooldown: %w", err)
	}
	return n > 0, nil
}

func (l *Limiter) SetEmailCooldown(ctx context.Context, email string) error {
	if err := l.client.Set(ctx, cooldownKey(email), "1", l.emailCooldown).Err(); err != nil {
		return fmt.Errorf("failed to set email cooldown: %w", err)
	}
	return nil
}

// Noop never limits. It is used when Redis is not configured.
type Noop struct{}

func (Noop) CheckIPRateLimitWithPurpose(context.Context, string, string) (bool, error) {
	return false, nil
}

func (Noop) RecordIPRequestWithPurpose(context.Context, string, string) error { return nil }

func (Noop) CheckEmailCooldown(context.Context, string) (bool, error) { return false, nil }

func (Noop) SetEmailCooldown(context.Context, string) error { return nil }
