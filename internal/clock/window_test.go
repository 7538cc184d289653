package clock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomWindow_StaysWithinInclusiveBounds(t *testing.T) {
	t.Parallel()

	w, err := NewRandomWindow(1, 3, time.Microsecond)
	require.NoError(t, err)

	seen := map[time.Duration]bool{}
	for i := 0; i < 300; i++ {
		d, err := w.Wait(context.Background())
		require.NoError(t, err)
		require.GreaterOrEqual(t, d, time.Microsecond)
		require.LessOrEqual(t, d, 3*time.Microsecond)
		seen[d] = true
	}
	assert.True(t, seen[time.Microsecond], "lower bound never drawn")
	assert.True(t, seen[3*time.Microsecond], "upper bound never drawn")
}

func TestNewRandomWindow_RejectsBadBounds(t *testing.T) {
	t.Parallel()

	_, err := NewRandomWindow(5, 1, time.Second)
	assert.Error(t, err)
	_, err = NewRandomWindow(1, 10, 0)
	assert.Error(t, err)
}

func TestSleep_ReturnsContextErrorWhenCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	w := NewFixedWindow(time.Minute)
	_, err := w.Wait(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestFixedClock(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 8, 18, 14, 32, 45, 0, time.FixedZone("EET", 3*3600))
	c := NewFixed(now)
	assert.Equal(t, now.UTC(), c.Now())
	assert.Equal(t, time.UTC, c.Now().Location())
}

func TestStepping_Advances(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewStepping(start, time.Second)

	assert.Equal(t, start, c.Now())
	assert.Equal(t, start.Add(time.Second), c.Now())
	assert.True(t, c.Now().After(start.Add(time.Second)))
}
