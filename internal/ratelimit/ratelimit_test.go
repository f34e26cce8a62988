package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedRateLimiter_Burst(t *testing.T) {
	cases := map[string]struct {
		burst, calls, want int
	}{
		"within burst":   {burst: 3, calls: 3, want: 3},
		"beyond burst":   {burst: 2, calls: 5, want: 2},
		"single request": {burst: 1, calls: 1, want: 1},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rl := New(1, tc.burst)
			defer rl.Stop()

			passed := 0
			for range tc.calls {
				if rl.Allow("203.0.113.7") {
					passed++
				}
			}
			assert.Equal(t, tc.want, passed)
		})
	}
}

func TestKeyedRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := New(1, 1)
	defer rl.Stop()

	relayer := "0x00000000000000000000000000000000000000a1"
	require.True(t, rl.Allow(relayer))
	assert.False(t, rl.Allow(relayer), "relayer bucket exhausted")

	assert.True(t, rl.Allow("203.0.113.7"), "other key keeps its own bucket")
	assert.Equal(t, 2, rl.Len())
}

func TestKeyedRateLimiter_Wait(t *testing.T) {
	rl := New(0.1, 1)
	defer rl.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, rl.Wait(ctx, "client"), "burst token available")

	// The next token is ten seconds out, past the deadline.
	assert.Error(t, rl.Wait(ctx, "client"))
}

func TestKeyedRateLimiter_Evict(t *testing.T) {
	rl := NewWithTTL(1, 1, time.Minute)
	defer rl.Stop()

	now := time.Now()
	rl.now = func() time.Time { return now }

	rl.Allow("idle")
	now = now.Add(45 * time.Second)
	rl.Allow("active")
	now = now.Add(30 * time.Second)

	assert.Equal(t, 1, rl.Evict())
	assert.Equal(t, 1, rl.Len())

	// An evicted key starts over with a full bucket.
	assert.True(t, rl.Allow("idle"))
}

func TestKeyedRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := New(1, 1)
	rl.Stop()
	assert.NotPanics(t, rl.Stop)
}
