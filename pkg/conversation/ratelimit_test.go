package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	now := time.Now()
	r := NewRateLimiter(2, time.Minute)
	r.clock = func() time.Time { return now }

	assert.True(t, r.Allow("conv-1"))
	assert.True(t, r.Allow("conv-1"))
	assert.False(t, r.Allow("conv-1"))

	// Keys are independent.
	assert.True(t, r.Allow("conv-2"))
}

func TestRateLimiter_WindowResets(t *testing.T) {
	now := time.Now()
	r := NewRateLimiter(1, time.Minute)
	r.clock = func() time.Time { return now }

	assert.True(t, r.Allow("conv-1"))
	assert.False(t, r.Allow("conv-1"))

	now = now.Add(time.Minute)
	assert.True(t, r.Allow("conv-1"))
}

func TestRateLimiter_ZeroLimitDisables(t *testing.T) {
	r := NewRateLimiter(0, time.Minute)
	for i := 0; i < 100; i++ {
		assert.True(t, r.Allow("conv-1"))
	}
}
