package checks

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"ioctest/internal/harness"
	"ioctest/internal/iocomm"
)

const gpioTimeoutMessage = "Reply from IO controller timed out."

// GPIOCheck drives one MCU GPIO line and reads it back on its looped-back
// partner: the read line must first read 0, then follow the write line to 1.
type GPIOCheck struct {
	base

	readIO  uint16
	writeIO uint16
}

var _ harness.TestCase = (*GPIOCheck)(nil)

// NewGPIO tests GPIO line channel (0 or 1) as the read line, driving the
// other line.
func NewGPIO(env Env, channel uint16) (*GPIOCheck, error) {
	if err := checkChannel("gpio", channel, 0, 1); err != nil {
		return nil, err
	}
	read := channel
	write := 1 - channel
	return &GPIOCheck{
		base:    env.base(fmt.Sprintf("MCU_GPIO%d", read)),
		readIO:  iocomm.GPIOLine(read),
		writeIO: iocomm.GPIOLine(write),
	}, nil
}

// Run implements harness.TestCase.
func (c *GPIOCheck) Run(ctx context.Context) error {
	c.reporter.SetHeader(c.name, fmt.Sprintf("(%d-%d)", c.writeIO, c.readIO))

	probe, err := harness.Attach(c.ch, iocomm.KindGPIO, c.readIO)
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
	defer c.restore(iocomm.SetIO(c.writeIO, 0))

	if err := c.send(iocomm.SetIO(c.writeIO, 0), iocomm.SetIO(c.readIO, 0)); err != nil {
		return err
	}

	v, err := c.read(ctx, probe)
	if err != nil {
		return err
	}
	if v != 0 {
		// The failure is recorded before the "Error" marker value.
		notReset := &harness.ToleranceError{
			Kind:    harness.ToleranceExact,
			Value:   v,
			Lower:   0,
			Message: "Value from read channel not reset at start.",
		}
		c.reporter.TestHasFailed(notReset.Error())
		c.reporter.LogResult("Error")
		return notReset
	}

	if err := c.send(iocomm.SetIO(c.writeIO, 1)); err != nil {
		return err
	}

	v, err = c.read(ctx, probe)
	if err != nil {
		return err
	}
	c.reporter.LogResult(strconv.FormatUint(uint64(v), 10))
	if v != 1 {
		return &harness.ToleranceError{
			Kind:    harness.ToleranceExact,
			Value:   v,
			Lower:   1,
			Message: fmt.Sprintf("Value from read channel not set. Received value: %d", v),
		}
	}
	return nil
}

func (c *GPIOCheck) read(ctx context.Context, probe *harness.Probe) (uint32, error) {
	v, err := probe.Request(ctx, iocomm.GetIO(c.readIO), c.timing.reply)
	var timeout *harness.TimeoutError
	if errors.As(err, &timeout) {
		timeout.Message = gpioTimeoutMessage
	}
	return v, err
}
