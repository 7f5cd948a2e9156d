package iocomm

import (
	"sync"
	"time"

	"ioctest/pkg/logging"
)

// Default readings chosen to sit inside the production limits.
const (
	simDefaultPSO    uint32 = 54000
	simDefaultPulse  uint32 = 2250
	simDefaultCuff   uint32 = 55
	simGPOLevel      uint32 = 2800
	simECGLevel      uint32 = 2048
	simIdleAnalogIn6 uint32 = 120
)

const simDefaultFirmware = "sim-1.0.0"

// CommandHook intercepts a command before the board model sees it. When
// handled is true the returned events replace the model's reply.
type CommandHook func(cmd Command) (events []Event, handled bool)

// Simulator is an in-memory IO controller. It answers the same commands as
// the real board, so the complete suite can run without hardware.
type Simulator struct {
	mu       sync.Mutex
	testMode bool
	strict   bool
	ecgOn    bool
	io       map[uint16]uint32
	links    map[uint16]uint16
	adc      map[uint16]uint32
	pso      map[uint16]uint32
	pulse    map[uint16]uint32
	pulseOn  map[uint16]bool
	cuff     []uint32
	cuffIdle uint32
	firmware string
	hook     CommandHook
	sent     []Command
	latency  time.Duration

	pending   chan []Event
	events    chan Event
	quit      chan struct{}
	closeOnce sync.Once
	done      chan struct{}
}

var _ Transport = (*Simulator)(nil)

// NewSimulator returns a board with GPIO lines 0 and 1 looped back and all
// readings inside their default limits.
func NewSimulator() *Simulator {
	s := &Simulator{
		strict: true,
		io:     make(map[uint16]uint32),
		links:  make(map[uint16]uint16),
		adc: map[uint16]uint32{
			11: 1500,
			12: 2560,
			4:  1300,
			15: 2480,
			8:  3100,
		},
		pso:      make(map[uint16]uint32),
		pulse:    make(map[uint16]uint32),
		pulseOn:  make(map[uint16]bool),
		cuffIdle: simDefaultCuff,
		firmware: simDefaultFirmware,
		pending:  make(chan []Event, 1024),
		events:   make(chan Event, eventBufferSize),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.Link(GPIOLine(0), GPIOLine(1))
	go s.deliverLoop()
	return s
}

// Link loops two IO channels back to each other.
func (s *Simulator) Link(a, b uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[a] = b
	s.links[b] = a
}

// unlink breaks the loopback on an IO channel, as a broken trace would.
func (s *Simulator) unlink(a uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.links[a]; ok {
		delete(s.links, b)
	}
	delete(s.links, a)
}

// SetIO forces the level of an IO channel without a command.
func (s *Simulator) SetIO(channel uint16, value uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.io[channel] = value
}

// SetADC sets the conversion result for an ADC id.
func (s *Simulator) SetADC(id uint16, value uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adc[id] = value
}

// SetPSO sets the reading of a pulse-sense oscillator channel.
func (s *Simulator) SetPSO(channel uint16, value uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pso[channel] = value
}

// SetPulseFeedback sets the feedback level a pulse driver reports while on.
func (s *Simulator) SetPulseFeedback(channel uint16, value uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pulse[channel] = value
}

// ScriptCuff queues cuff samples returned by successive GETCUFF requests.
// Once the script is used up the idle value is returned.
func (s *Simulator) ScriptCuff(values ...uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cuff = append(s.cuff, values...)
}

// SetCuffIdle sets the cuff sample returned when no script is queued.
func (s *Simulator) SetCuffIdle(value uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cuffIdle = value
}

// SetFirmware sets the version reported for GETFW.
func (s *Simulator) SetFirmware(version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.firmware = version
}

// SetLatency delays every reply by d.
func (s *Simulator) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
}

// SetStrict controls whether diagnostic commands are ignored outside test mode.
func (s *Simulator) SetStrict(strict bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strict = strict
}

// OnCommand installs a hook that sees every command first.
func (s *Simulator) OnCommand(hook CommandHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = hook
}

// SetECG switches the simulated ECG PWM output.
func (s *Simulator) SetECG(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ecgOn = on
	return nil
}

// State reports whether test mode and the ECG output are active.
func (s *Simulator) State() (testMode bool, ecgOn bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.testMode, s.ecgOn
}

// IO returns the current level of an IO channel.
func (s *Simulator) IO(channel uint16) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.io[channel]
}

// PulseDriverOn reports whether a pulse driver output is switched on.
func (s *Simulator) PulseDriverOn(channel uint16) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pulseOn[channel]
}

// Commands returns every command written so far.
func (s *Simulator) Commands() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Command, len(s.sent))
	copy(out, s.sent)
	return out
}

// Inject delivers an unsolicited event, as the board does for streamed data.
func (s *Simulator) Inject(events ...Event) {
	select {
	case s.pending <- events:
	case <-s.quit:
	}
}

// Write applies a command to the board model and queues its reply.
func (s *Simulator) Write(cmd Command) error {
	select {
	case <-s.quit:
		return ErrClosed
	default:
	}

	s.mu.Lock()
	s.sent = append(s.sent, cmd)
	hook := s.hook
	s.mu.Unlock()

	var replies []Event
	handled := false
	if hook != nil {
		replies, handled = hook(cmd)
	}
	if !handled {
		replies = s.apply(cmd)
	}
	if len(replies) > 0 {
		s.Inject(replies...)
	}
	return nil
}

// Events returns the reply stream.
func (s *Simulator) Events() <-chan Event {
	return s.events
}

// Close stops the simulator and closes the event stream.
func (s *Simulator) Close() error {
	s.closeOnce.Do(func() {
		close(s.quit)
		<-s.done
	})
	return nil
}

func (s *Simulator) apply(cmd Command) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cmd.Op == OpTestMode {
		s.testMode = cmd.Value == TestModeOn
		return nil
	}
	if s.strict && !s.testMode && cmd.Op != OpGetCuff && cmd.Op != OpGetFirmware {
		logging.Debug("Simulator", "ignoring %s outside test mode", cmd)
		return nil
	}

	switch cmd.Op {
	case OpSetIO:
		s.io[cmd.Channel] = cmd.Value
		if peer, ok := s.links[cmd.Channel]; ok {
			s.io[peer] = cmd.Value
		}
	case OpGetIO:
		return []Event{{Kind: KindGPIO, Channel: cmd.Channel, Value: s.io[cmd.Channel]}}
	case OpGetADC:
		return []Event{{Kind: KindADC, Channel: cmd.Channel, Value: s.readADC(cmd.Channel)}}
	case OpGetPSO:
		v, ok := s.pso[cmd.Channel]
		if !ok {
			v = simDefaultPSO
		}
		return []Event{{Kind: KindPSO, Channel: cmd.Channel, Value: v}}
	case OpSetPulse:
		s.pulseOn[cmd.Channel] = cmd.Value != 0
	case OpGetPulse:
		var v uint32
		if s.pulseOn[cmd.Channel] {
			var ok bool
			if v, ok = s.pulse[cmd.Channel]; !ok {
				v = simDefaultPulse
			}
		}
		return []Event{{Kind: KindPulse, Channel: cmd.Channel, Value: v}}
	case OpGetCuff:
		v := s.cuffIdle
		if len(s.cuff) > 0 {
			v = s.cuff[0]
			s.cuff = s.cuff[1:]
		}
		return []Event{{Kind: KindCuff, Value: v}}
	case OpGetFirmware:
		return []Event{{Kind: KindFirmware, Text: s.firmware}}
	default:
		logging.Warn("Simulator", "unsupported command %s", cmd)
	}
	return nil
}

// readADC derives analog input 6 from the GPO and ECG outputs, which is
// what the production fixture wires it to.
func (s *Simulator) readADC(id uint16) uint32 {
	if id != ADCAnalogIn6 {
		return s.adc[id]
	}
	if v, ok := s.adc[id]; ok {
		return v
	}
	switch {
	case s.ecgOn:
		return simECGLevel
	case s.io[IOGPO1] == 1 || s.io[IOGPO2] == 1:
		return simGPOLevel
	default:
		return simIdleAnalogIn6
	}
}

func (s *Simulator) deliverLoop() {
	defer close(s.done)
	defer close(s.events)

	for {
		select {
		case batch := <-s.pending:
			s.mu.Lock()
			latency := s.latency
			s.mu.Unlock()
			if latency > 0 {
				select {
				case <-time.After(latency):
				case <-s.quit:
					return
				}
			}
			for _, ev := range batch {
				ev.Received = time.Now()
				select {
				case s.events <- ev:
				case <-s.quit:
					return
				}
			}
		case <-s.quit:
			return
		}
	}
}
