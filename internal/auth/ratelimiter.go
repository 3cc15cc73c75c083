// internal/auth/ratelimiter.go
package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter counts login attempts per client IP in redis, so the limit
// holds across process restarts and multiple instances.
type LoginLimiter struct {
	Client *redis.Client
	Limit  int
	Window time.Duration
}

// Allow records one attempt and reports whether it is within the limit.
// Fails open on redis errors: a broken limiter should not lock admins out.
func (l *LoginLimiter) Allow(ctx context.Context, ip string) (bool, error) {
	key := "login_attempts:" + ip
	n, err := l.Client.Incr(ctx, key).Result()
	if err != nil {
		return true, err
	}
	if n == 1 {
		l.Client.Expire(ctx, key, l.Window)
	}
	return n <= int64(l.Limit), nil
}
