package checks

import (
	"context"
	"fmt"
	"os"
	"time"

	"ioctest/internal/config"
	"ioctest/internal/harness"
	"ioctest/internal/iocomm"
	"ioctest/pkg/logging"
)

// ECGSwitch turns the ECG PWM output on and off.
type ECGSwitch interface {
	SetECG(on bool) error
}

// SysfsECG drives the ECG output through its sysfs period attribute.
type SysfsECG struct {
	Path string
}

// SetECG writes 1 or 0 to the period attribute.
func (s SysfsECG) SetECG(on bool) error {
	value := "0\n"
	if on {
		value = "1\n"
	}
	if err := os.WriteFile(s.Path, []byte(value), 0644); err != nil {
		return fmt.Errorf("failed to switch ECG output via %s: %w", s.Path, err)
	}
	return nil
}

// Env is what every test needs from the host.
type Env struct {
	Channel iocomm.CommandChannel
	ECG     ECGSwitch
	Config  config.Config
}

func (e Env) timing() timing {
	return timing{
		reply:     e.Config.Timing.ReplyTimeout,
		aggregate: e.Config.Timing.AggregateTimeout,
		settle:    e.Config.Timing.SettleDelay,
	}
}

func (e Env) base(name string) base {
	return base{name: name, ch: e.Channel, timing: e.timing()}
}

type timing struct {
	reply     time.Duration
	aggregate time.Duration
	settle    time.Duration
}

// base carries the identity and collaborators shared by all tests.
type base struct {
	name     string
	ch       iocomm.CommandChannel
	reporter harness.Reporter
	timing   timing
}

func (b *base) Name() string {
	return b.name
}

func (b *base) SetReporter(r harness.Reporter) {
	b.reporter = r
}

// send writes commands in order, stopping at the first failure.
func (b *base) send(cmds ...iocomm.Command) error {
	for _, cmd := range cmds {
		if err := b.ch.Send(cmd); err != nil {
			return &harness.SendError{Command: cmd.String(), Err: err}
		}
	}
	return nil
}

// restore sends commands on the way out. Failures are logged since the
// test result is already decided.
func (b *base) restore(cmds ...iocomm.Command) {
	for _, cmd := range cmds {
		if err := b.ch.Send(cmd); err != nil {
			logging.Error("Checks", err, "%s: failed to restore safe state with %s", b.name, cmd)
		}
	}
}

// settle waits for the stimulus to take effect.
func (b *base) settle(ctx context.Context) error {
	if b.timing.settle <= 0 {
		return nil
	}
	t := time.NewTimer(b.timing.settle)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("interrupted: %w", ctx.Err())
	}
}

// TestModeScope holds the controller in test mode until Close.
type TestModeScope struct {
	ch iocomm.CommandChannel
}

// EnterTestMode switches the controller into test mode.
func EnterTestMode(ch iocomm.CommandChannel) (*TestModeScope, error) {
	cmd := iocomm.TestMode(true)
	if err := ch.Send(cmd); err != nil {
		return nil, &harness.SendError{Command: cmd.String(), Err: err}
	}
	return &TestModeScope{ch: ch}, nil
}

// Close leaves test mode.
func (s *TestModeScope) Close() {
	if err := s.ch.Send(iocomm.TestMode(false)); err != nil {
		logging.Error("Checks", err, "failed to leave test mode")
	}
}

// ADCVolts converts a 12-bit reading against the 3.3V reference.
func ADCVolts(v uint32) float64 {
	return float64(v) / 4096.0 * 3.3
}
