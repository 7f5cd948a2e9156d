package harness

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ioctest/internal/iocomm"
)

func newBoard(t *testing.T) (*iocomm.Simulator, *iocomm.Controller) {
	t.Helper()
	sim := iocomm.NewSimulator()
	sim.SetStrict(false)
	ctrl := iocomm.NewController(sim)
	ctx, cancel := context.WithCancel(context.Background())
	ctrl.Start(ctx)
	t.Cleanup(func() {
		_ = ctrl.Close()
		cancel()
	})
	return sim, ctrl
}

func TestProbe_Request(t *testing.T) {
	sim, ctrl := newBoard(t)
	sim.SetPSO(2, 53000)

	p, err := Attach(ctrl, iocomm.KindPSO, 2)
	require.NoError(t, err)
	defer p.Detach()

	v, err := p.Request(context.Background(), iocomm.GetPSO(2), time.Second)
	require.NoError(t, err)
	assert.Equal(t, uint32(53000), v)
	assert.Equal(t, uint32(53000), p.Last())
}

func TestProbe_IgnoresOtherChannels(t *testing.T) {
	sim, ctrl := newBoard(t)

	p, err := Attach(ctrl, iocomm.KindADC, 12)
	require.NoError(t, err)
	defer p.Detach()

	// Same value, different channel and different kind.
	sim.Inject(
		iocomm.Event{Kind: iocomm.KindADC, Channel: 11, Value: 2500},
		iocomm.Event{Kind: iocomm.KindPSO, Channel: 12, Value: 2500},
	)

	_, err = p.Await(context.Background(), 100*time.Millisecond)
	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, 100*time.Millisecond, timeout.After)
	_, seen := p.Max()
	assert.False(t, seen)
}

func TestProbe_DrainDiscardsStaleReplies(t *testing.T) {
	sim, ctrl := newBoard(t)

	p, err := Attach(ctrl, iocomm.KindGPIO, 1)
	require.NoError(t, err)
	defer p.Detach()

	sim.Inject(iocomm.Event{Kind: iocomm.KindGPIO, Channel: 1, Value: 1})
	require.Eventually(t, func() bool {
		_, seen := p.Max()
		return seen
	}, time.Second, 5*time.Millisecond)

	sim.OnCommand(func(cmd iocomm.Command) ([]iocomm.Event, bool) {
		return nil, cmd.Op == iocomm.OpGetIO
	})

	_, err = p.Request(context.Background(), iocomm.GetIO(1), 100*time.Millisecond)
	var timeout *TimeoutError
	assert.ErrorAs(t, err, &timeout, "a reply to an earlier request must not satisfy a new one")
}

func TestProbe_AcceptAndMax(t *testing.T) {
	sim, ctrl := newBoard(t)

	p, err := Attach(ctrl, iocomm.KindCuff, 0, WithAccept(func(v uint32) bool { return v >= 40 }))
	require.NoError(t, err)
	defer p.Detach()

	sim.Inject(
		iocomm.Event{Kind: iocomm.KindCuff, Value: 12},
		iocomm.Event{Kind: iocomm.KindCuff, Value: 30},
		iocomm.Event{Kind: iocomm.KindCuff, Value: 20},
	)
	_, err = p.Await(context.Background(), 100*time.Millisecond)
	require.Error(t, err)

	best, seen := p.Max()
	assert.True(t, seen)
	assert.Equal(t, uint32(30), best)

	sim.Inject(iocomm.Event{Kind: iocomm.KindCuff, Value: 41})
	v, err := p.Await(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, uint32(41), v)

	p.ResetMax()
	_, seen = p.Max()
	assert.False(t, seen)
}

func TestProbe_AwaitReturnsAcceptedValue(t *testing.T) {
	sim, ctrl := newBoard(t)

	p, err := Attach(ctrl, iocomm.KindCuff, 0, WithAccept(func(v uint32) bool { return v >= 40 }))
	require.NoError(t, err)
	defer p.Detach()

	// A low sample right after the qualifying one must not replace it.
	sim.Inject(
		iocomm.Event{Kind: iocomm.KindCuff, Value: 50},
		iocomm.Event{Kind: iocomm.KindCuff, Value: 10},
	)
	require.Eventually(t, func() bool { return p.Last() == 10 }, time.Second, 5*time.Millisecond)

	v, err := p.Await(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, uint32(50), v)
	assert.Equal(t, uint32(10), p.Last())
}

func TestProbe_Interrupted(t *testing.T) {
	_, ctrl := newBoard(t)

	p, err := Attach(ctrl, iocomm.KindADC, 4)
	require.NoError(t, err)
	defer p.Detach()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Await(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)

	sent := ctrl.Stats().CommandsSent
	_, err = p.Request(ctx, iocomm.GetADC(4), time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "interrupted")
	assert.Equal(t, sent, ctrl.Stats().CommandsSent)
}

func TestProbe_SendAndSubscribeErrors(t *testing.T) {
	sim := iocomm.NewSimulator()
	ctrl := iocomm.NewController(sim)

	p, err := Attach(ctrl, iocomm.KindADC, 4)
	require.NoError(t, err)

	require.NoError(t, ctrl.Close())

	_, err = p.Request(context.Background(), iocomm.GetADC(4), time.Second)
	var sendErr *SendError
	require.ErrorAs(t, err, &sendErr)
	assert.True(t, errors.Is(err, iocomm.ErrClosed))

	_, err = Attach(ctrl, iocomm.KindADC, 4)
	var subErr *SubscriptionError
	require.ErrorAs(t, err, &subErr)
	assert.ErrorIs(t, err, iocomm.ErrClosed)
}
