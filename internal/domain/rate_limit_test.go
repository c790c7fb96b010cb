package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimitPolicy_Exceeded(t *testing.T) {
	p := DefaultRateLimitPolicy

	assert.False(t, p.Exceeded(0))
	assert.False(t, p.Exceeded(13))
	assert.True(t, p.Exceeded(14))
	assert.True(t, p.Exceeded(100))
}

func TestRateLimitPolicy_WindowStart(t *testing.T) {
	p := RateLimitPolicy{Window: 5 * time.Minute, MaxVotes: 14}
	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, now.Add(-5*time.Minute), p.WindowStart(now))
}
