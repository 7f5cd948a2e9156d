package poll

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"ioctest/internal/checks"
	"ioctest/internal/harness"
	"ioctest/internal/iocomm"
	"ioctest/pkg/logging"
)

// Options tune a Poller.
type Options struct {
	Interval time.Duration
	Timeout  time.Duration
	// Count stops after that many samples. Zero polls until cancelled.
	Count    int
}

// Sample is one reading, or the error that replaced it.
type Sample struct {
	Seq   int
	Time  time.Time
	Value uint32
	Err   error

	// analog samples also carry the converted voltage
	analog bool
	volts  float64
}

// Volts returns the converted voltage for analog samples.
func (s Sample) Volts() (float64, bool) {
	return s.volts, s.analog
}

// Format renders a sample as one log line.
func (s Sample) Format(t Target) string {
	stamp := s.Time.Format("15:04:05.000")
	switch {
	case s.Err != nil:
		return fmt.Sprintf("%s %s #%d error: %v", stamp, t, s.Seq, s.Err)
	case s.analog:
		return fmt.Sprintf("%s %s #%d = %d (%.3fV)", stamp, t, s.Seq, s.Value, s.volts)
	default:
		return fmt.Sprintf("%s %s #%d = %d", stamp, t, s.Seq, s.Value)
	}
}

// Poller requests one target at a fixed interval.
type Poller struct {
	ch     iocomm.CommandChannel
	target Target
	opts   Options
	now    func() time.Time
}

// NewPoller creates a poller. Zero durations fall back to 500ms interval
// and 1s timeout.
func NewPoller(ch iocomm.CommandChannel, target Target, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = 500 * time.Millisecond
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second
	}
	return &Poller{ch: ch, target: target, opts: opts, now: time.Now}
}

// Target returns the polled target.
func (p *Poller) Target() Target {
	return p.target
}

// Run polls until ctx is cancelled or Count samples were taken, calling
// emit for every sample. The controller is held in test mode meanwhile.
// A cancelled context is not an error.
func (p *Poller) Run(ctx context.Context, emit func(Sample)) error {
	probe, err := harness.Attach(p.ch, p.target.kind, p.target.wire)
	if err != nil {
		return err
	}
	defer probe.Detach()

	scope, err := checks.EnterTestMode(p.ch)
	if err != nil {
		return err
	}
	defer scope.Close()

	logging.Info("Poll", "polling %s every %s", p.target, p.opts.Interval)

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	for seq := 1; ; seq++ {
		v, err := probe.Request(ctx, p.target.request, p.opts.Timeout)
		if ctx.Err() != nil {
			return nil
		}
		var sendErr *harness.SendError
		if errors.As(err, &sendErr) {
			return err
		}

		s := Sample{Seq: seq, Time: p.now(), Value: v, Err: err}
		if p.target.Source == SourceAnalog && err == nil {
			s.analog = true
			s.volts = checks.ADCVolts(v)
		}
		emit(s)

		if p.opts.Count > 0 && seq >= p.opts.Count {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
}

// RunPlain polls and writes one line per sample to w.
func RunPlain(ctx context.Context, p *Poller, w io.Writer) error {
	return p.Run(ctx, func(s Sample) {
		fmt.Fprintln(w, s.Format(p.target))
	})
}
