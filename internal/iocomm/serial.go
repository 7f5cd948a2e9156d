package iocomm

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"

	"ioctest/pkg/logging"
)

const (
	eventBufferSize = 256
	maxLineLength   = 512
)

// SerialConfig describes the port the IO controller is attached to.
type SerialConfig struct {
	Port     string
	BaudRate int
	// ReadTimeout bounds each read so the reader notices Close promptly.
	ReadTimeout time.Duration
}

// OpenSerial opens the serial port and starts decoding replies from it.
func OpenSerial(cfg SerialConfig) (*StreamTransport, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Port, err)
	}
	if cfg.ReadTimeout > 0 {
		if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
			_ = port.Close()
			return nil, fmt.Errorf("failed to set read timeout on %s: %w", cfg.Port, err)
		}
	}
	logging.Info("Serial", "opened %s at %d baud", cfg.Port, cfg.BaudRate)
	return NewStreamTransport(port), nil
}

// StreamTransport speaks the line protocol over any byte stream.
type StreamTransport struct {
	rwc    io.ReadWriteCloser
	events chan Event

	writeMu   sync.Mutex
	closing   atomic.Bool
	closeOnce sync.Once
	quit      chan struct{}
	readDone  chan struct{}
}

var _ Transport = (*StreamTransport)(nil)

// NewStreamTransport starts a reader goroutine on rwc.
func NewStreamTransport(rwc io.ReadWriteCloser) *StreamTransport {
	t := &StreamTransport{
		rwc:      rwc,
		events:   make(chan Event, eventBufferSize),
		quit:     make(chan struct{}),
		readDone: make(chan struct{}),
	}
	go t.readLoop()
	return t
}

// Write encodes and writes one command line.
func (t *StreamTransport) Write(cmd Command) error {
	if t.closing.Load() {
		return ErrClosed
	}
	line := Encode(cmd) + "\n"

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_, err := io.WriteString(t.rwc, line)
	return err
}

// Events returns the decoded inbound stream.
func (t *StreamTransport) Events() <-chan Event {
	return t.events
}

// Close closes the underlying stream and waits for the reader to exit.
func (t *StreamTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.closing.Store(true)
		close(t.quit)
		err = t.rwc.Close()
		<-t.readDone
	})
	return err
}

// readLoop splits the stream on newlines by hand: a serial port with a read
// timeout returns empty reads, which bufio treats as a broken reader.
func (t *StreamTransport) readLoop() {
	defer close(t.readDone)
	defer close(t.events)

	buf := make([]byte, 256)
	var pending []byte
	for {
		n, err := t.rwc.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			for {
				i := bytes.IndexByte(pending, '\n')
				if i < 0 {
					break
				}
				t.handleLine(string(bytes.TrimRight(pending[:i], "\r")))
				pending = pending[i+1:]
			}
			if len(pending) > maxLineLength {
				logging.Warn("Serial", "discarding %d bytes without line terminator", len(pending))
				pending = pending[:0]
			}
		}
		if err != nil {
			if !t.closing.Load() && err != io.EOF {
				logging.Error("Serial", err, "read failed, stopping reader")
			}
			return
		}
		if t.closing.Load() {
			return
		}
	}
}

func (t *StreamTransport) handleLine(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	ev, err := Decode(line)
	if err != nil {
		logging.Warn("Serial", "dropping malformed line %q: %v", line, err)
		return
	}
	ev.Received = time.Now()
	logging.Debug("Serial", "<- %s", ev)
	select {
	case t.events <- ev:
	case <-t.quit:
	}
}
