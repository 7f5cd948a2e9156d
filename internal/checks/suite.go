package checks

import (
	"errors"
	"fmt"

	"ioctest/internal/harness"
)

// ErrInvalidChannel is returned for a channel outside a test's supported set.
var ErrInvalidChannel = errors.New("invalid channel")

func checkChannel(test string, channel, lowest, highest uint16) error {
	if channel < lowest || channel > highest {
		return fmt.Errorf("%w: %s channel %d, channel must be %d-%d", ErrInvalidChannel, test, channel, lowest, highest)
	}
	return nil
}

// Selection names individual tests to run.
type Selection struct {
	PSO         []uint16
	PulseDriver []uint16
	Analog      []uint16
	GPOECG      []uint16
	GPIO        []uint16
	Cuff        bool
}

// Empty reports whether nothing is selected.
func (s Selection) Empty() bool {
	return len(s.PSO) == 0 && len(s.PulseDriver) == 0 && len(s.Analog) == 0 &&
		len(s.GPOECG) == 0 && len(s.GPIO) == 0 && !s.Cuff
}

// FullSuite returns every production test except the cuff, which needs an
// operator and is run on its own.
func FullSuite(env Env) ([]harness.TestCase, error) {
	return Select(env, Selection{
		PSO:         []uint16{1, 2, 3, 4, 5, 6},
		PulseDriver: []uint16{1, 2, 3, 4, 5, 6},
		Analog:      []uint16{2, 3, 4, 5},
		GPOECG:      []uint16{1, 2, 3},
		GPIO:        []uint16{0, 1},
	})
}

// Select builds the selected tests in suite order: PSO, pulse driver,
// analog, GPO/ECG, GPIO, cuff. Any invalid channel rejects the whole
// selection.
func Select(env Env, sel Selection) ([]harness.TestCase, error) {
	var tests []harness.TestCase

	for _, ch := range sel.PSO {
		tc, err := NewPSO(env, ch)
		if err != nil {
			return nil, err
		}
		tests = append(tests, tc)
	}
	for _, ch := range sel.PulseDriver {
		tc, err := NewPulseDriver(env, ch)
		if err != nil {
			return nil, err
		}
		tests = append(tests, tc)
	}
	for _, ch := range sel.Analog {
		tc, err := NewAnalog(env, ch)
		if err != nil {
			return nil, err
		}
		tests = append(tests, tc)
	}
	for _, ch := range sel.GPOECG {
		tc, err := NewGPO(env, ch)
		if err != nil {
			return nil, err
		}
		tests = append(tests, tc)
	}
	for _, ch := range sel.GPIO {
		tc, err := NewGPIO(env, ch)
		if err != nil {
			return nil, err
		}
		tests = append(tests, tc)
	}
	if sel.Cuff {
		tests = append(tests, NewCuff(env))
	}
	return tests, nil
}
