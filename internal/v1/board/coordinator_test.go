package board

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/drawdeck/whiteboard/backend/go/internal/v1/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCoordinator(cfg Config) *Coordinator {
	return NewCoordinator("room-a", NewAllocator(), cfg)
}

func TestCoordinator_SubmitAssignsSequence(t *testing.T) {
	c := newTestCoordinator(DefaultConfig())

	ev := drawAt(100)
	stored, err := c.Submit(context.Background(), &ev)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stored.Sequence)

	// The caller's event is untouched; Submit stores a copy.
	assert.Equal(t, uint64(0), ev.Sequence)

	ev2 := drawAt(200)
	stored, err = c.Submit(context.Background(), &ev2)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stored.Sequence)
	assert.Equal(t, 2, c.EventCount())
}

func TestCoordinator_ConcurrentSubmitsFormPermutation(t *testing.T) {
	c := newTestCoordinator(DefaultConfig())

	const goroutines = 32
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ev := drawAt(int64(n))
			_, err := c.Submit(context.Background(), &ev)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// Sequence numbers in the log are exactly 1..N in append order.
	state := c.State()
	require.Len(t, state, goroutines)
	for i, ev := range state {
		assert.Equal(t, uint64(i+1), ev.Sequence)
	}
}

func TestCoordinator_ClearCooldown(t *testing.T) {
	c := newTestCoordinator(DefaultConfig())

	first := clearAt(1000)
	_, err := c.Submit(context.Background(), &first)
	require.NoError(t, err)

	second := clearAt(1500)
	_, err = c.Submit(context.Background(), &second)
	assert.ErrorIs(t, err, types.ErrConflict)
	assert.Equal(t, 1, c.EventCount())

	third := clearAt(2000)
	stored, err := c.Submit(context.Background(), &third)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stored.Sequence)
}

func TestCoordinator_RejectionBurnsNoSequence(t *testing.T) {
	c := newTestCoordinator(DefaultConfig())

	first := clearAt(1000)
	_, err := c.Submit(context.Background(), &first)
	require.NoError(t, err)

	rejected := clearAt(1100)
	_, err = c.Submit(context.Background(), &rejected)
	require.ErrorIs(t, err, types.ErrConflict)

	// The next accepted event continues the contiguous run.
	next := drawAt(1200)
	stored, err := c.Submit(context.Background(), &next)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stored.Sequence)
}

func TestCoordinator_Saturation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxEventsPerRoom = 3
	c := newTestCoordinator(cfg)

	for i := 0; i < 3; i++ {
		ev := drawAt(int64(i))
		_, err := c.Submit(context.Background(), &ev)
		require.NoError(t, err)
	}

	overflow := drawAt(100)
	_, err := c.Submit(context.Background(), &overflow)
	assert.ErrorIs(t, err, types.ErrSaturated)
	assert.Equal(t, 3, c.EventCount())

	// Saturation persists until the administrative reset.
	overflow2 := drawAt(200)
	_, err = c.Submit(context.Background(), &overflow2)
	assert.ErrorIs(t, err, types.ErrSaturated)

	c.Reset()
	fresh := drawAt(300)
	stored, err := c.Submit(context.Background(), &fresh)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stored.Sequence)
}

func TestCoordinator_StateSince(t *testing.T) {
	c := newTestCoordinator(DefaultConfig())

	for i := 0; i < 5; i++ {
		ev := drawAt(int64(i))
		_, err := c.Submit(context.Background(), &ev)
		require.NoError(t, err)
	}

	tail := c.StateSince(3)
	require.Len(t, tail, 2)
	assert.Equal(t, uint64(4), tail[0].Sequence)

	assert.Len(t, c.StateSince(0), 5)
	assert.Empty(t, c.StateSince(5))
}

func TestCoordinator_LastActivityAdvances(t *testing.T) {
	c := newTestCoordinator(DefaultConfig())
	before := c.LastActivity()

	time.Sleep(5 * time.Millisecond)
	ev := drawAt(100)
	_, err := c.Submit(context.Background(), &ev)
	require.NoError(t, err)

	assert.True(t, c.LastActivity().After(before))
}
