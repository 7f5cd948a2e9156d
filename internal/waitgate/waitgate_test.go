package waitgate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shortWait = 30 * time.Millisecond

func TestGate_SignalBeforeAwaitIsNotLost(t *testing.T) {
	g := New()
	g.Signal()

	start := time.Now()
	err := g.Await(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, 0, g.available())
}

func TestGate_DrainDiscardsStaleSignals(t *testing.T) {
	g := New()
	g.Signal()
	g.Signal()
	g.Signal()
	g.Drain()

	assert.Equal(t, 0, g.available())
	err := g.Await(context.Background(), shortWait)
	assert.ErrorIs(t, err, ErrTimedOut)
}

func TestGate_AwaitTimesOut(t *testing.T) {
	g := New()

	start := time.Now()
	err := g.Await(context.Background(), shortWait)
	assert.ErrorIs(t, err, ErrTimedOut)
	assert.GreaterOrEqual(t, time.Since(start), shortWait)
}

func TestGate_SignalFromOtherGoroutineWakesWaiter(t *testing.T) {
	g := New()

	go func() {
		time.Sleep(10 * time.Millisecond)
		g.Signal()
	}()

	err := g.Await(context.Background(), time.Second)
	assert.NoError(t, err)
}

func TestGate_CountsMultipleSignals(t *testing.T) {
	g := New()
	g.Signal()
	g.Signal()

	require.NoError(t, g.Await(context.Background(), shortWait))
	require.NoError(t, g.Await(context.Background(), shortWait))
	assert.ErrorIs(t, g.Await(context.Background(), shortWait), ErrTimedOut)
}

func TestGate_ContextCancellation(t *testing.T) {
	g := New()
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := g.Await(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGate_ConcurrentSignalers(t *testing.T) {
	g := New()
	const n = 50

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Signal()
		}()
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, g.Await(context.Background(), shortWait), "acquire %d", i)
	}
	assert.ErrorIs(t, g.Await(context.Background(), shortWait), ErrTimedOut)
}
