package poll

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ioctest/internal/checks"
	"ioctest/internal/color"
	"ioctest/internal/harness"
	"ioctest/internal/iocomm"
	"ioctest/pkg/logging"
)

func newBoard(t *testing.T) (*iocomm.Simulator, *iocomm.Controller) {
	t.Helper()
	sim := iocomm.NewSimulator()
	ctrl := iocomm.NewController(sim)
	ctx, cancel := context.WithCancel(context.Background())
	ctrl.Start(ctx)
	t.Cleanup(func() {
		cancel()
		_ = ctrl.Close()
	})
	return sim, ctrl
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		source  string
		channel uint16
		request iocomm.Command
		wantErr bool
	}{
		{"gpio", 0, iocomm.GetIO(1), false},
		{"gpio", 1, iocomm.GetIO(2), false},
		{"gpio", 2, iocomm.Command{}, true},
		{"pso", 1, iocomm.GetPSO(1), false},
		{"pso", 6, iocomm.GetPSO(6), false},
		{"pso", 0, iocomm.Command{}, true},
		{"pso", 7, iocomm.Command{}, true},
		{"analog", 2, iocomm.GetADC(12), false},
		{"analog", 6, iocomm.GetADC(iocomm.ADCAnalogIn6), false},
		{"analog", 7, iocomm.Command{}, true},
		{"cuff", 0, iocomm.Command{}, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%d", tt.source, tt.channel), func(t *testing.T) {
			target, err := ParseTarget(tt.source, tt.channel)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.request, target.Request())
		})
	}

	_, err := ParseTarget("gpio", 5)
	assert.ErrorIs(t, err, checks.ErrInvalidChannel)
}

func TestPoller_Count(t *testing.T) {
	sim, ctrl := newBoard(t)
	sim.SetPSO(3, 51000)

	target, err := ParseTarget("pso", 3)
	require.NoError(t, err)
	p := NewPoller(ctrl, target, Options{Interval: time.Millisecond, Timeout: 200 * time.Millisecond, Count: 3})

	var samples []Sample
	require.NoError(t, p.Run(context.Background(), func(s Sample) {
		samples = append(samples, s)
	}))

	require.Len(t, samples, 3)
	for i, s := range samples {
		assert.Equal(t, i+1, s.Seq)
		assert.NoError(t, s.Err)
		assert.Equal(t, uint32(51000), s.Value)
	}
	testMode, _ := sim.State()
	assert.False(t, testMode)
}

func TestPoller_TimeoutSamples(t *testing.T) {
	sim, ctrl := newBoard(t)
	sim.OnCommand(func(cmd iocomm.Command) ([]iocomm.Event, bool) {
		return nil, cmd.Op == iocomm.OpGetIO
	})

	target, err := ParseTarget("gpio", 0)
	require.NoError(t, err)
	p := NewPoller(ctrl, target, Options{Interval: time.Millisecond, Timeout: 10 * time.Millisecond, Count: 2})

	var samples []Sample
	require.NoError(t, p.Run(context.Background(), func(s Sample) {
		samples = append(samples, s)
	}))

	require.Len(t, samples, 2)
	var timeout *harness.TimeoutError
	assert.True(t, errors.As(samples[0].Err, &timeout))
}

func TestPoller_StopsOnCancel(t *testing.T) {
	_, ctrl := newBoard(t)
	target, err := ParseTarget("analog", 2)
	require.NoError(t, err)
	p := NewPoller(ctrl, target, Options{Interval: 5 * time.Millisecond, Timeout: 200 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan Sample, 100)
	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx, func(s Sample) { got <- s })
	}()

	first := <-got
	v, ok := first.Volts()
	assert.True(t, ok)
	assert.InDelta(t, 2560.0/4096*3.3, v, 1e-9)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop after cancel")
	}
}

func TestPoller_ClosedChannel(t *testing.T) {
	_, ctrl := newBoard(t)
	require.NoError(t, ctrl.Close())

	target, err := ParseTarget("pso", 1)
	require.NoError(t, err)
	err = NewPoller(ctrl, target, Options{}).Run(context.Background(), func(Sample) {})

	var subErr *harness.SubscriptionError
	assert.True(t, errors.As(err, &subErr))
}

func TestRunPlain(t *testing.T) {
	_, ctrl := newBoard(t)
	target, err := ParseTarget("gpio", 1)
	require.NoError(t, err)
	p := NewPoller(ctrl, target, Options{Interval: time.Millisecond, Count: 2})
	p.now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }

	var out bytes.Buffer
	require.NoError(t, RunPlain(context.Background(), p, &out))

	assert.Equal(t, "09:30:00.000 gpio 1 #1 = 0\n09:30:00.000 gpio 1 #2 = 0\n", out.String())
}

func TestModel_Update(t *testing.T) {
	target, err := ParseTarget("analog", 3)
	require.NoError(t, err)
	p := NewPoller(nil, target, Options{Interval: 250 * time.Millisecond})

	cancelled := false
	samples := make(chan Sample)
	var m tea.Model = NewModel(p, samples, nil, func() { cancelled = true }, color.Plain())

	assert.Contains(t, m.View(), "Polling analog 3 every 250ms")
	assert.Contains(t, m.View(), "waiting for first reading")

	m, cmd := m.Update(sampleMsg(Sample{Seq: 1, Value: 1300, analog: true, volts: 1.047}))
	assert.NotNil(t, cmd)
	m, _ = m.Update(sampleMsg(Sample{Seq: 2, Err: errors.New("no reply within 1s")}))
	m, _ = m.Update(logEntryMsg(logging.LogEntry{Level: logging.LevelWarn, Subsystem: "Serial", Message: "dropping line"}))

	view := m.View()
	assert.Contains(t, view, "no reply within 1s")
	assert.Contains(t, view, "samples: 2  timeouts: 1")
	assert.Contains(t, view, "history: 1300 -")
	assert.Contains(t, view, "WARN Serial: dropping line")

	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.True(t, cancelled)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.True(t, strings.HasSuffix(m.View(), "q: quit\n"))
}

func TestModel_Done(t *testing.T) {
	target, err := ParseTarget("pso", 1)
	require.NoError(t, err)
	p := NewPoller(nil, target, Options{})
	samples := make(chan Sample)
	close(samples)

	m := NewModel(p, samples, nil, nil, color.Plain())
	msg := waitForSample(samples)()
	assert.Equal(t, pollDoneMsg{}, msg)

	_, cmd := m.Update(msg)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
