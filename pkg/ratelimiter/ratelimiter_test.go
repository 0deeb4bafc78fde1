package ratelimiter

import (
	"context"
	"testing"
	"time"

	"anoa.com/yogaschool/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilClientAlwaysAllows(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := CheckAndSetRateLimit(ctx, nil, "u1", "send_message", time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	assert.NoError(t, Enforce(ctx, nil, "u1", "upload", time.Minute))
	assert.NoError(t, ClearRateLimit(ctx, nil, "u1", "upload"))
}

func TestRateLimitErrorUnwrapsToSentinel(t *testing.T) {
	err := &RateLimitError{Message: "slow down", RetryAfter: time.Second}

	assert.ErrorIs(t, err, apperror.ErrRateLimitExceeded)
	assert.Equal(t, 429, apperror.MapErrorToStatus(err))
	assert.Equal(t, "rate_limit:user:u1:upload", key("u1", "upload"))
}
