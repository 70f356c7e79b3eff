package auth

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// CounterStore is a TTL counter backend, implemented over Redis in persistence.
type CounterStore interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Get(ctx context.Context, key string) (int64, error)
	Del(ctx context.Context, key string) error
}

// LoginThrottle counts failed logins per username within a window.
// Backend errors fail open so a cache outage never locks everyone out.
type LoginThrottle struct {
	store       CounterStore
	maxAttempts int
	window      time.Duration
	logger      *zap.Logger
}

// NewLoginThrottle builds a throttle; a nil store or maxAttempts <= 0 disables it.
func NewLoginThrottle(store CounterStore, maxAttempts int, window time.Duration, logger *zap.Logger) *LoginThrottle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoginThrottle{store: store, maxAttempts: maxAttempts, window: window, logger: logger}
}

func (t *LoginThrottle) enabled() bool {
	return t != nil && t.store != nil && t.maxAttempts > 0
}

// Allowed reports whether username may attempt a login now.
func (t *LoginThrottle) Allowed(ctx context.Context, username string) bool {
	if !t.enabled() {
		return true
	}
	count, err := t.store.Get(ctx, throttleKey(username))
	if err != nil {
		t.logger.Warn("login throttle lookup failed", zap.Error(err))
		return true
	}
	return count < int64(t.maxAttempts)
}

// RecordFailure counts one failed attempt.
func (t *LoginThrottle) RecordFailure(ctx context.Context, username string) {
	if !t.enabled() {
		return
	}
	if _, err := t.store.Incr(ctx, throttleKey(username), t.window); err != nil {
		t.logger.Warn("login throttle increment failed", zap.Error(err))
	}
}

// Reset clears the counter after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, username string) {
	if !t.enabled() {
		return
	}
	if err := t.store.Del(ctx, throttleKey(username)); err != nil {
		t.logger.Warn("login throttle reset failed", zap.Error(err))
	}
}

func throttleKey(username string) string {
	return "login:failures:" + strings.ToLower(username)
}
