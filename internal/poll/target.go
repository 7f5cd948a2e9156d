package poll

import (
	"fmt"

	"ioctest/internal/checks"
	"ioctest/internal/iocomm"
)

// Source is the kind of channel being polled.
type Source string

const (
	SourceGPIO   Source = "gpio"
	SourcePSO    Source = "pso"
	SourceAnalog Source = "analog"
)

// Sources lists the accepted source names in help order.
var Sources = []Source{SourceGPIO, SourcePSO, SourceAnalog}

// Target is a resolved channel: the event it answers with and the request
// that solicits it.
type Target struct {
	Source  Source
	Channel uint16

	kind    iocomm.EventKind
	wire    uint16
	request iocomm.Command
}

// ParseTarget resolves a user facing source name and channel number.
func ParseTarget(source string, channel uint16) (Target, error) {
	t := Target{Source: Source(source), Channel: channel}

	switch t.Source {
	case SourceGPIO:
		if channel > 1 {
			return Target{}, fmt.Errorf("%w: gpio channel %d, channel must be 0-1", checks.ErrInvalidChannel, channel)
		}
		t.kind = iocomm.KindGPIO
		t.wire = iocomm.GPIOLine(channel)
		t.request = iocomm.GetIO(t.wire)
	case SourcePSO:
		if channel < 1 || channel > 6 {
			return Target{}, fmt.Errorf("%w: pso channel %d, channel must be 1-6", checks.ErrInvalidChannel, channel)
		}
		t.kind = iocomm.KindPSO
		t.wire = channel
		t.request = iocomm.GetPSO(channel)
	case SourceAnalog:
		id, ok := iocomm.AnalogADC(channel)
		if !ok {
			return Target{}, fmt.Errorf("%w: analog channel %d, channel must be 1-6", checks.ErrInvalidChannel, channel)
		}
		t.kind = iocomm.KindADC
		t.wire = id
		t.request = iocomm.GetADC(id)
	default:
		return Target{}, fmt.Errorf("unknown poll source %q, expected one of %v", source, Sources)
	}
	return t, nil
}

func (t Target) String() string {
	return fmt.Sprintf("%s %d", t.Source, t.Channel)
}

// Request returns the command that solicits one reading.
func (t Target) Request() iocomm.Command {
	return t.request
}
