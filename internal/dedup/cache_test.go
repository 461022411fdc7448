package dedup

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccept_FirstObservationWins(t *testing.T) {
	c := New(time.Minute)

	assert.True(t, c.Accept("payment-p1"))
	assert.False(t, c.Accept("payment-p1"))
}

func TestAccept_AliasedIdentities(t *testing.T) {
	c := New(time.Minute)

	// A payment notification and a subscription notification for the same
	// billing cycle must not double-fire.
	require.True(t, c.Accept("subscription-s1", "payment-p1"))

	assert.False(t, c.Accept("payment-p1"))
	assert.False(t, c.Accept("subscription-s1"))
	assert.False(t, c.Accept("payment-p2", "payment-p1"))
}

func TestAccept_NoKeys(t *testing.T) {
	c := New(time.Minute)
	assert.False(t, c.Accept())
}

func TestAccept_ExpiryReopensIdentity(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	c := New(2*time.Minute, WithClock(func() time.Time { return clock() }))

	require.True(t, c.Accept("payment-p1"))
	require.False(t, c.Accept("payment-p1"))

	now = now.Add(2*time.Minute + time.Second)
	assert.True(t, c.Accept("payment-p1"))
}

func TestAccept_ConcurrentDuplicates(t *testing.T) {
	c := New(time.Minute)

	const workers = 100
	var accepted atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if c.Accept("payment-race", "subscription-race") {
				accepted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), accepted.Load())
}

func TestForget_AllowsCorrectedResend(t *testing.T) {
	c := New(time.Minute)

	require.True(t, c.Accept("payment-p1", "payment-alias"))
	c.Forget("payment-p1", "payment-alias")

	assert.True(t, c.Accept("payment-p1", "payment-alias"))
}

func TestRemoveExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	c := New(time.Minute, WithClock(func() time.Time { return clock() }))

	require.True(t, c.Accept("payment-old"))
	now = now.Add(30 * time.Second)
	require.True(t, c.Accept("payment-new"))
	require.Equal(t, 2, c.Len())

	now = now.Add(45 * time.Second)
	c.removeExpired()

	assert.Equal(t, 1, c.Len())
	assert.False(t, c.Accept("payment-new"))
	assert.True(t, c.Accept("payment-old"))
}
