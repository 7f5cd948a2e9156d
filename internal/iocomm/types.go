package iocomm

import (
	"fmt"
	"time"
)

// EventKind identifies the logical stream an inbound event belongs to.
type EventKind string

const (
	KindGPIO     EventKind = "gpio"
	KindADC      EventKind = "adc"
	KindPSO      EventKind = "pso"
	KindPulse    EventKind = "pulse"
	KindCuff     EventKind = "cuff"
	KindFirmware EventKind = "firmware"
)

// String makes EventKind satisfy the fmt.Stringer interface.
func (k EventKind) String() string {
	return string(k)
}

// Event is a decoded inbound message from the IO controller.
type Event struct {
	Kind    EventKind
	Channel uint16
	Value   uint32
	// Text carries free-form payloads such as the firmware version.
	Text     string
	Received time.Time
}

// String provides a compact representation for logs.
func (e Event) String() string {
	if e.Text != "" {
		return fmt.Sprintf("%s[%d]=%q", e.Kind, e.Channel, e.Text)
	}
	return fmt.Sprintf("%s[%d]=%d", e.Kind, e.Channel, e.Value)
}

// Op is a command opcode understood by the IO controller.
type Op string

const (
	OpTestMode    Op = "TESTMODE"
	OpSetIO       Op = "SETIO"
	OpGetIO       Op = "GETIO"
	OpGetADC      Op = "GETADC"
	OpGetPSO      Op = "GETPSO"
	OpSetPulse    Op = "SETPULSE"
	OpGetPulse    Op = "GETPULSE"
	OpGetCuff     Op = "GETCUFF"
	OpGetFirmware Op = "GETFW"
)

// Test mode arguments as the controller expects them.
const (
	TestModeOn  uint32 = 1
	TestModeOff uint32 = 2
)

// Well-known IO and ADC assignments on the base unit.
const (
	IOGPO1       uint16 = 4
	IOGPO2       uint16 = 5
	ADCAnalogIn6 uint16 = 9
)

// Command is an outbound request. Channel and Value are interpreted per Op.
type Command struct {
	Op      Op
	Channel uint16
	Value   uint32
}

// String provides a compact representation for logs.
func (c Command) String() string {
	return Encode(c)
}

// TestMode enables or disables the controller's diagnostic mode.
func TestMode(on bool) Command {
	if on {
		return Command{Op: OpTestMode, Value: TestModeOn}
	}
	return Command{Op: OpTestMode, Value: TestModeOff}
}

// SetIO drives an IO channel to value.
func SetIO(channel uint16, value uint32) Command {
	return Command{Op: OpSetIO, Channel: channel, Value: value}
}

// GetIO requests the level of an IO channel; answered by a KindGPIO event.
func GetIO(channel uint16) Command {
	return Command{Op: OpGetIO, Channel: channel}
}

// GetADC requests a conversion on an ADC id; answered by a KindADC event.
func GetADC(id uint16) Command {
	return Command{Op: OpGetADC, Channel: id}
}

// GetPSO requests a pulse-sense oscillator reading; answered by a KindPSO event.
func GetPSO(channel uint16) Command {
	return Command{Op: OpGetPSO, Channel: channel}
}

// SetPulseDriver switches a pulse driver output.
func SetPulseDriver(channel uint16, on bool) Command {
	var v uint32
	if on {
		v = 1
	}
	return Command{Op: OpSetPulse, Channel: channel, Value: v}
}

// GetPulseDriver requests the pulse driver feedback level; answered by a KindPulse event.
func GetPulseDriver(channel uint16) Command {
	return Command{Op: OpGetPulse, Channel: channel}
}

// GetCuff solicits a cuff pressure sample; answered by a KindCuff event.
func GetCuff() Command {
	return Command{Op: OpGetCuff}
}

// RequestFirmware asks for the controller firmware version; answered by a KindFirmware event.
func RequestFirmware() Command {
	return Command{Op: OpGetFirmware}
}

// analogADC maps the board's analog input numbers onto controller ADC ids.
var analogADC = map[uint16]uint16{
	1: 11,
	2: 12,
	3: 4,
	4: 15,
	5: 8,
	6: ADCAnalogIn6,
}

// AnalogADC returns the ADC id wired to analog input n.
func AnalogADC(n uint16) (uint16, bool) {
	id, ok := analogADC[n]
	return id, ok
}

// GPIOLine returns the IO channel that addresses MCU GPIO line n.
func GPIOLine(n uint16) uint16 {
	return n + 1
}
