package ratelimit

import (
	"context"
	"strings"
	"time"
)

// LoginLimiter buckets login attempts per email and client address so one
// abusive source cannot lock a victim out globally.
type LoginLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewLoginLimiter(bucket *TokenBucket, rate float64, burst int) *LoginLimiter {
	return &LoginLimiter{bucket: bucket, rate: rate, burst: burst}
}

// Allow reports whether the attempt may proceed. When redis is not
// configured the limiter is a pass-through.
func (l *LoginLimiter) Allow(ctx context.Context, email, clientIP string) (bool, time.Duration, error) {
	if l == nil || l.bucket == nil {
		return true, 0, nil
	}

	key := "login:" + strings.ToLower(strings.TrimSpace(email)) + ":" + clientIP
	res, err := l.bucket.Allow(ctx, key, l.rate, l.burst)
	if err != nil {
		// Fail open. Losing redis must not take the login flow down.
		return true, 0, err
	}
	return res.Allowed, res.RetryAfter, nil
}
