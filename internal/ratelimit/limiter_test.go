package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_BurstAdmitsExactlyLimit(t *testing.T) {
	const n, k = 5, 7
	c := clock.NewMock()
	l := New(map[string]Limit{"email": {Limit: n, Window: time.Minute}})

	admitted, suppressed := 0, 0
	for i := 0; i < n+k; i++ {
		now := c.Now()
		if l.Admit("email", now) {
			l.Record("email", now)
			admitted++
		} else {
			suppressed++
		}
		c.Add(time.Second)
	}
	assert.Equal(t, n, admitted)
	assert.Equal(t, k, suppressed)
}

func TestLimiter_AdmitIsReadOnly(t *testing.T) {
	c := clock.NewMock()
	l := New(map[string]Limit{"voice": {Limit: 1, Window: time.Minute}})
	for i := 0; i < 10; i++ {
		assert.True(t, l.Admit("voice", c.Now()))
	}
	assert.Equal(t, 0, l.InWindow("voice", c.Now()))
}

func TestLimiter_WindowSlides(t *testing.T) {
	c := clock.NewMock()
	l := New(map[string]Limit{"chat": {Limit: 2, Window: time.Minute}})

	require.True(t, l.Acquire("chat", c.Now()))
	c.Add(30 * time.Second)
	require.True(t, l.Acquire("chat", c.Now()))
	assert.False(t, l.Acquire("chat", c.Now()))

	// First admission is exactly one window old: no longer counted.
	c.Add(30 * time.Second)
	assert.True(t, l.Acquire("chat", c.Now()))
	assert.False(t, l.Acquire("chat", c.Now()))
}

func TestLimiter_ChannelsAreIndependent(t *testing.T) {
	now := clock.NewMock().Now()
	l := New(map[string]Limit{
		"email": {Limit: 1, Window: time.Minute},
		"chat":  {Limit: 1, Window: time.Minute},
	})
	assert.True(t, l.Acquire("email", now))
	assert.False(t, l.Acquire("email", now))
	assert.True(t, l.Acquire("chat", now))
}

func TestLimiter_UnconfiguredChannelIsUnlimited(t *testing.T) {
	now := clock.NewMock().Now()
	l := New(nil)
	for i := 0; i < 1000; i++ {
		assert.True(t, l.Acquire("webhook", now))
	}
}

func TestLimiter_ReleaseFreesSlot(t *testing.T) {
	now := clock.NewMock().Now()
	l := New(map[string]Limit{"email": {Limit: 1, Window: time.Minute}})
	require.True(t, l.Acquire("email", now))
	l.Release("email", now)
	assert.True(t, l.Acquire("email", now))
}

func TestLimiter_AcquireIsAtomicUnderConcurrency(t *testing.T) {
	now := clock.NewMock().Now()
	l := New(map[string]Limit{"email": {Limit: 10, Window: time.Minute}})

	var admitted int32
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Acquire("email", now) {
				atomic.AddInt32(&admitted, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(10), admitted)
}

func TestParseLimit(t *testing.T) {
	lim, err := ParseLimit("10/60000")
	require.NoError(t, err)
	assert.Equal(t, Limit{Limit: 10, Window: time.Minute}, lim)
	assert.Equal(t, "10/60000", lim.String())

	for _, bad := range []string{"", "10", "a/100", "10/0", "-1/100", "1/2/3"} {
		_, err := ParseLimit(bad)
		assert.ErrorIs(t, err, ErrInvalidConfig, bad)
	}
}
