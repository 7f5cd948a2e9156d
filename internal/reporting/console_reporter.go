package reporting

import (
	"errors"
	"sync"

	"ioctest/internal/harness"
	"ioctest/pkg/logging"
)

// ConsoleReporter logs test progress through pkg/logging as it happens,
// while the TextReporter only renders at the end of the run.
type ConsoleReporter struct {
	mu      sync.Mutex
	current string
}

var _ harness.Reporter = (*ConsoleReporter)(nil)

// NewConsoleReporter creates a new ConsoleReporter
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{}
}

func (c *ConsoleReporter) SetHeader(name, detail string) {
	c.mu.Lock()
	c.current = name
	c.mu.Unlock()

	if detail != "" {
		logging.Info("Progress", "%s %s started", name, detail)
	} else {
		logging.Info("Progress", "%s started", name)
	}
}

func (c *ConsoleReporter) LogResult(value string) {
	logging.Info(c.subsystem(), "value: %s", value)
}

func (c *ConsoleReporter) TestHasFailed(reason string) {
	logging.Error(c.subsystem(), nil, "FAILED: %s", reason)
}

func (c *ConsoleReporter) Flush(summary harness.RunSummary) error {
	if summary.AllPassed() {
		logging.Info("Progress", "run %s: all %d tests passed", summary.RunID, summary.Total)
	} else {
		logging.Warn("Progress", "run %s: %d of %d tests failed", summary.RunID, summary.Failed, summary.Total)
	}
	return nil
}

func (c *ConsoleReporter) subsystem() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == "" {
		return "Progress"
	}
	return "Progress-" + c.current
}

// teeReporter fans every call out to several reporters.
type teeReporter []harness.Reporter

// Tee returns a reporter that forwards to all of rs in order. Flush errors
// are joined.
func Tee(rs ...harness.Reporter) harness.Reporter {
	return teeReporter(rs)
}

func (t teeReporter) SetHeader(name, detail string) {
	for _, r := range t {
		r.SetHeader(name, detail)
	}
}

func (t teeReporter) LogResult(value string) {
	for _, r := range t {
		r.LogResult(value)
	}
}

func (t teeReporter) TestHasFailed(reason string) {
	for _, r := range t {
		r.TestHasFailed(reason)
	}
}

func (t teeReporter) Flush(summary harness.RunSummary) error {
	var errs []error
	for _, r := range t {
		if err := r.Flush(summary); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
