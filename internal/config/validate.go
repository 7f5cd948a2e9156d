package config

import (
	"errors"
	"fmt"
	"sort"
)

// Validate rejects settings no test could run with.
func (c Config) Validate() error {
	var errs []error

	if c.Serial.Port == "" {
		errs = append(errs, errors.New("serial.port must be set"))
	}
	if c.Serial.BaudRate <= 0 {
		errs = append(errs, fmt.Errorf("serial.baud_rate must be positive, got %d", c.Serial.BaudRate))
	}
	if c.Serial.ReadTimeout < 0 {
		errs = append(errs, fmt.Errorf("serial.read_timeout must not be negative, got %s", c.Serial.ReadTimeout))
	}
	if c.Timing.ReplyTimeout <= 0 {
		errs = append(errs, fmt.Errorf("timing.reply_timeout must be positive, got %s", c.Timing.ReplyTimeout))
	}
	if c.Timing.AggregateTimeout <= 0 {
		errs = append(errs, fmt.Errorf("timing.aggregate_timeout must be positive, got %s", c.Timing.AggregateTimeout))
	}
	if c.Timing.SettleDelay < 0 {
		errs = append(errs, fmt.Errorf("timing.settle_delay must not be negative, got %s", c.Timing.SettleDelay))
	}

	if c.Limits.PSONominal == 0 {
		errs = append(errs, errors.New("limits.pso_nominal must be positive"))
	}
	if c.Limits.PSOTolerance <= 0 || c.Limits.PSOTolerance >= 1 {
		errs = append(errs, fmt.Errorf("limits.pso_tolerance must be between 0 and 1, got %g", c.Limits.PSOTolerance))
	}
	errs = append(errs, checkRange("limits.pulse_driver", c.Limits.PulseDriver))
	errs = append(errs, checkRanges("limits.analog", c.Limits.Analog)...)
	errs = append(errs, checkRanges("limits.gpo", c.Limits.GPO)...)

	if c.Cuff.Attempts < 1 {
		errs = append(errs, fmt.Errorf("cuff.attempts must be at least 1, got %d", c.Cuff.Attempts))
	}
	if c.Cuff.RetryDelay < 0 || c.Cuff.OperatorPause < 0 {
		errs = append(errs, errors.New("cuff delays must not be negative"))
	}

	return errors.Join(errs...)
}

func checkRange(name string, r Range) error {
	if r.Lower >= r.Upper {
		return fmt.Errorf("%s: lower bound %d must be below upper bound %d", name, r.Lower, r.Upper)
	}
	return nil
}

func checkRanges(name string, ranges map[uint16]Range) []error {
	channels := make([]int, 0, len(ranges))
	for ch := range ranges {
		channels = append(channels, int(ch))
	}
	sort.Ints(channels)

	var errs []error
	for _, ch := range channels {
		if err := checkRange(fmt.Sprintf("%s[%d]", name, ch), ranges[uint16(ch)]); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
