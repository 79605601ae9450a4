package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNilBucketAllowsEverything(t *testing.T) {
	var bucket *TokenBucket

	res, err := bucket.Allow(context.Background(), "login:a@example.com:1.2.3.4", 1, 5)
	require.NoError(t, err)
	require.True(t, res.Allowed)
}

func TestNewTokenBucketWithoutClient(t *testing.T) {
	require.Nil(t, NewTokenBucket(nil))
}

func TestLoginLimiterWithoutBucketIsPassThrough(t *testing.T) {
	limiter := NewLoginLimiter(nil, 1, 5)

	allowed, retryAfter, err := limiter.Allow(context.Background(), "a@example.com", "1.2.3.4")
	require.NoError(t, err)
	require.True(t, allowed)
	require.Zero(t, retryAfter)
}

func TestBucketTTLCoversTwoRefillCycles(t *testing.T) {
	require.Equal(t, 10*time.Second, bucketTTL(1, 5))
	require.Equal(t, time.Second, bucketTTL(100, 1))
}

func TestCastHelpers(t *testing.T) {
	require.EqualValues(t, 1, castToInt(int64(1)))
	require.EqualValues(t, 2, castToInt(2.9))
	require.EqualValues(t, 0, castToInt("junk"))
	require.EqualValues(t, 3.5, castToFloat(3.5))
	require.EqualValues(t, 4, castToFloat(int64(4)))
}
