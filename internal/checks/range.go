package checks

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"ioctest/internal/config"
	"ioctest/internal/harness"
	"ioctest/internal/iocomm"
	"ioctest/pkg/logging"
)

// RangeCheck measures one reading and passes when it lies strictly inside
// its window.
type RangeCheck struct {
	base

	limits   config.Range
	kind     iocomm.EventKind
	channel  uint16
	request  iocomm.Command
	stimulus []iocomm.Command
	cleanup  []iocomm.Command
	// ecg is set for tests that drive the ECG output.
	ecg    ECGSwitch
	ecgOn  bool
	adc    bool
	noRead string
}

var _ harness.TestCase = (*RangeCheck)(nil)

// Limits returns the pass window.
func (c *RangeCheck) Limits() config.Range {
	return c.limits
}

// Run implements harness.TestCase.
func (c *RangeCheck) Run(ctx context.Context) error {
	c.reporter.SetHeader(c.name, fmt.Sprintf("(%d-%d)", c.limits.Lower, c.limits.Upper))

	probe, err := harness.Attach(c.ch, c.kind, c.channel)
	if err != nil {
		c.reporter.LogResult("Error")
		return err
	}
	defer probe.Detach()

	mode, err := EnterTestMode(c.ch)
	if err != nil {
		return err
	}
	defer mode.Close()

	// Runs before test mode is left.
	defer c.restoreOutputs()

	if err := c.applyStimulus(ctx); err != nil {
		return err
	}

	v, err := probe.Request(ctx, c.request, c.timing.reply)
	if err != nil {
		var timeout *harness.TimeoutError
		if errors.As(err, &timeout) {
			timeout.Message = c.noRead
		}
		return err
	}

	if c.adc {
		logging.Debug("Checks", "%s value: %d || %.2fV (expected range: %d-%d || %.2fV-%.2fV)",
			c.name, v, ADCVolts(v), c.limits.Lower, c.limits.Upper,
			ADCVolts(c.limits.Lower), ADCVolts(c.limits.Upper))
	} else {
		logging.Debug("Checks", "%s value: %d (expected range: %d-%d)", c.name, v, c.limits.Lower, c.limits.Upper)
	}

	if err := harness.CheckRange(v, c.limits.Lower, c.limits.Upper); err != nil {
		return err
	}
	c.reporter.LogResult(strconv.FormatUint(uint64(v), 10))
	return nil
}

func (c *RangeCheck) applyStimulus(ctx context.Context) error {
	if c.ecg != nil {
		if err := c.ecg.SetECG(c.ecgOn); err != nil {
			return err
		}
	}
	if len(c.stimulus) == 0 {
		return nil
	}
	if err := c.send(c.stimulus...); err != nil {
		return err
	}
	return c.settle(ctx)
}

func (c *RangeCheck) restoreOutputs() {
	if c.ecg != nil {
		if err := c.ecg.SetECG(false); err != nil {
			logging.Error("Checks", err, "%s: failed to switch ECG off", c.name)
		}
	}
	c.restore(c.cleanup...)
}

// NewPSO checks pulse-sense oscillator channel 1-6 against the nominal
// frequency window.
func NewPSO(env Env, channel uint16) (*RangeCheck, error) {
	if err := checkChannel("pso", channel, 1, 6); err != nil {
		return nil, err
	}
	return &RangeCheck{
		base:    env.base(fmt.Sprintf("PSO%d", channel)),
		limits:  env.Config.Limits.PSORange(),
		kind:    iocomm.KindPSO,
		channel: channel,
		request: iocomm.GetPSO(channel),
		noRead:  "Read PSO value timed out.",
	}, nil
}

// NewPulseDriver switches pulse driver 1-6 on and checks its feedback level.
func NewPulseDriver(env Env, channel uint16) (*RangeCheck, error) {
	if err := checkChannel("pulse driver", channel, 1, 6); err != nil {
		return nil, err
	}
	return &RangeCheck{
		base:     env.base(fmt.Sprintf("PulseDriver%d", channel)),
		limits:   env.Config.Limits.PulseDriver,
		kind:     iocomm.KindPulse,
		channel:  channel,
		request:  iocomm.GetPulseDriver(channel),
		stimulus: []iocomm.Command{iocomm.SetPulseDriver(channel, true)},
		cleanup:  []iocomm.Command{iocomm.SetPulseDriver(channel, false)},
		adc:      true,
		noRead:   "Read pulse driver value timed out.",
	}, nil
}

// NewAnalog checks analog input 2-5.
func NewAnalog(env Env, channel uint16) (*RangeCheck, error) {
	if err := checkChannel("analog", channel, 2, 5); err != nil {
		return nil, err
	}
	limits, ok := env.Config.Limits.Analog[channel]
	if !ok {
		return nil, fmt.Errorf("no limits configured for analog channel %d", channel)
	}
	id, _ := iocomm.AnalogADC(channel)
	return &RangeCheck{
		base:    env.base(fmt.Sprintf("Analog_in%d", channel)),
		limits:  limits,
		kind:    iocomm.KindADC,
		channel: id,
		request: iocomm.GetADC(id),
		adc:     true,
		noRead:  "Read analog value timed out.",
	}, nil
}

// NewGPO drives manikin GPO 1 or 2, or the ECG output for channel 3, and
// reads the result back on analog input 6.
func NewGPO(env Env, channel uint16) (*RangeCheck, error) {
	if err := checkChannel("gpo-ecg", channel, 1, 3); err != nil {
		return nil, err
	}
	limits, ok := env.Config.Limits.GPO[channel]
	if !ok {
		return nil, fmt.Errorf("no limits configured for gpo-ecg channel %d", channel)
	}
	if env.ECG == nil {
		return nil, fmt.Errorf("gpo-ecg channel %d needs an ECG switch", channel)
	}

	name := fmt.Sprintf("Analog_in6-Manikin_GPO%d", channel)
	var gpo1, gpo2 uint32
	ecgOn := false
	switch channel {
	case 1:
		gpo1 = 1
	case 2:
		gpo2 = 1
	case 3:
		name = "Analog_in6-ECG"
		ecgOn = true
	}

	return &RangeCheck{
		base:    env.base(name),
		limits:  limits,
		kind:    iocomm.KindADC,
		channel: iocomm.ADCAnalogIn6,
		request: iocomm.GetADC(iocomm.ADCAnalogIn6),
		stimulus: []iocomm.Command{
			iocomm.SetIO(iocomm.IOGPO1, gpo1),
			iocomm.SetIO(iocomm.IOGPO2, gpo2),
		},
		cleanup: []iocomm.Command{
			iocomm.SetIO(iocomm.IOGPO1, 0),
			iocomm.SetIO(iocomm.IOGPO2, 0),
		},
		ecg:    env.ECG,
		ecgOn:  ecgOn,
		adc:    true,
		noRead: "Read analog value timed out.",
	}, nil
}
