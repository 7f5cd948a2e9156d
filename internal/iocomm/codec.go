package iocomm

import (
	"fmt"
	"strconv"
	"strings"
)

// Encode renders a command as one line of the controller's text protocol,
// without the trailing newline.
func Encode(c Command) string {
	switch c.Op {
	case OpTestMode:
		return fmt.Sprintf("%s %d", c.Op, c.Value)
	case OpSetIO, OpSetPulse:
		return fmt.Sprintf("%s %d %d", c.Op, c.Channel, c.Value)
	case OpGetIO, OpGetADC, OpGetPSO, OpGetPulse:
		return fmt.Sprintf("%s %d", c.Op, c.Channel)
	default:
		return string(c.Op)
	}
}

var replyKinds = map[string]EventKind{
	"GPIO":  KindGPIO,
	"ADC":   KindADC,
	"PSO":   KindPSO,
	"PULSE": KindPulse,
}

// Decode parses one reply line into an Event.
//
// Recognized forms:
//
//	GPIO <ch> <value>
//	ADC <ch> <value>
//	PSO <ch> <value>
//	PULSE <ch> <value>
//	CUFF <value>
//	FW <version text>
func Decode(line string) (Event, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Event{}, fmt.Errorf("empty line")
	}

	fields := strings.Fields(line)
	tag := strings.ToUpper(fields[0])

	switch tag {
	case "FW":
		text := strings.TrimSpace(line[len(fields[0]):])
		if text == "" {
			return Event{}, fmt.Errorf("firmware reply without version: %q", line)
		}
		return Event{Kind: KindFirmware, Text: text}, nil
	case "CUFF":
		if len(fields) != 2 {
			return Event{}, fmt.Errorf("malformed cuff reply: %q", line)
		}
		v, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return Event{}, fmt.Errorf("malformed cuff value in %q: %w", line, err)
		}
		return Event{Kind: KindCuff, Value: uint32(v)}, nil
	}

	kind, ok := replyKinds[tag]
	if !ok {
		return Event{}, fmt.Errorf("unknown reply %q", fields[0])
	}
	if len(fields) != 3 {
		return Event{}, fmt.Errorf("malformed %s reply: %q", kind, line)
	}
	ch, err := strconv.ParseUint(fields[1], 10, 16)
	if err != nil {
		return Event{}, fmt.Errorf("malformed channel in %q: %w", line, err)
	}
	v, err := strconv.ParseUint(fields[2], 10, 32)
	if err != nil {
		return Event{}, fmt.Errorf("malformed value in %q: %w", line, err)
	}
	return Event{Kind: kind, Channel: uint16(ch), Value: uint32(v)}, nil
}
