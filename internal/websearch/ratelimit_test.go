package websearch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_AllowsUpToLimit(t *testing.T) {
	limiter := NewLimiter(5)

	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Reserve(), "reservation %d should succeed", i+1)
	}
	assert.False(t, limiter.Reserve())
	assert.Equal(t, 0, limiter.Remaining())
}

func TestLimiter_SlidingWindow(t *testing.T) {
	current := time.Now()
	limiter := NewLimiter(2)
	limiter.now = func() time.Time { return current }

	assert.True(t, limiter.Reserve())
	assert.True(t, limiter.Reserve())
	assert.False(t, limiter.Reserve())

	// 30 seconds later both stamps are still inside the window
	current = current.Add(30 * time.Second)
	assert.False(t, limiter.Reserve())

	// 61 seconds after the first stamp, both have slid out
	current = current.Add(31 * time.Second)
	assert.True(t, limiter.Reserve())
	assert.Equal(t, 1, limiter.Remaining())
}

func TestLimiter_PartialExpiry(t *testing.T) {
	current := time.Now()
	limiter := NewLimiter(2)
	limiter.now = func() time.Time { return current }

	assert.True(t, limiter.Reserve())
	current = current.Add(40 * time.Second)
	assert.True(t, limiter.Reserve())
	assert.False(t, limiter.Reserve())

	// First stamp expires, second is still live
	current = current.Add(25 * time.Second)
	assert.True(t, limiter.Reserve())
	assert.False(t, limiter.Reserve())
}

func TestLimiter_ConcurrentReservations(t *testing.T) {
	limiter := NewLimiter(10)

	results := make(chan bool, 50)
	for i := 0; i < 50; i++ {
		go func() {
			results <- limiter.Reserve()
		}()
	}

	granted := 0
	for i := 0; i < 50; i++ {
		if <-results {
			granted++
		}
	}
	assert.Equal(t, 10, granted)
}
