package safeguard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ioctest/internal/config"
	"ioctest/internal/iocomm"
)

func TestNew_Disabled(t *testing.T) {
	g := New(nil, config.SafeguardSettings{Enabled: false, PowerLine: 6})
	assert.Nil(t, g)
	assert.NoError(t, g.Apply("before run"))
}

func TestGuard_Apply(t *testing.T) {
	sim := iocomm.NewSimulator()
	sim.SetIO(6, 1)
	ctrl := iocomm.NewController(sim)
	ctrl.Start(context.Background())
	defer ctrl.Close()

	g := New(ctrl, config.SafeguardSettings{Enabled: true, PowerLine: 6})
	require.NotNil(t, g)
	require.NoError(t, g.Apply("before run"))

	assert.Equal(t, uint32(0), sim.IO(6))
	testMode, _ := sim.State()
	assert.False(t, testMode)

	assert.Equal(t, []iocomm.Command{
		iocomm.TestMode(true),
		iocomm.SetIO(6, 0),
		iocomm.TestMode(false),
	}, sim.Commands())
}

func TestGuard_ApplyClosed(t *testing.T) {
	sim := iocomm.NewSimulator()
	ctrl := iocomm.NewController(sim)
	ctrl.Start(context.Background())
	require.NoError(t, ctrl.Close())

	g := New(ctrl, config.SafeguardSettings{Enabled: true, PowerLine: 6})
	err := g.Apply("after run")
	require.Error(t, err)
	assert.ErrorIs(t, err, iocomm.ErrClosed)
	assert.Contains(t, err.Error(), "safeguard after run")
	assert.Empty(t, sim.Commands())
}
