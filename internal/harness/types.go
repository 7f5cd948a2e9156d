package harness

import (
	"context"
	"time"
)

// TestCase is one hardware validation step.
type TestCase interface {
	// Name identifies the test in reports.
	Name() string
	// SetReporter binds the reporter the test writes its record to.
	SetReporter(r Reporter)
	// Run executes the test to completion. A returned error is reported as
	// the failure reason unless the test already reported one.
	Run(ctx context.Context) error
}

// Reporter collects the records of a run.
type Reporter interface {
	// SetHeader begins the record for the current test.
	SetHeader(name, detail string)
	// LogResult appends a measurement to the current record.
	LogResult(value string)
	// TestHasFailed marks the current record failed.
	TestHasFailed(reason string)
	// Flush renders or persists the accumulated records at the end of a run.
	Flush(summary RunSummary) error
}

// Outcome is the verdict of one test.
type Outcome string

const (
	// OutcomePassed indicates the test passed
	OutcomePassed Outcome = "PASSED"
	// OutcomeFailed indicates the test failed
	OutcomeFailed Outcome = "FAILED"
)

// TestResult is the single result produced for each queued test.
type TestResult struct {
	// Index is the position of the test in the run queue
	Index int `json:"index"`
	// Name of the test
	Name string `json:"name"`
	// Outcome of the test
	Outcome Outcome `json:"outcome"`
	// Reason is set when the test failed
	Reason string `json:"reason,omitempty"`
	// StartTime when the test began
	StartTime time.Time `json:"start_time"`
	// EndTime when the test completed
	EndTime time.Time `json:"end_time"`
	// Duration of the test
	Duration time.Duration `json:"duration"`
}

// Passed reports whether the test passed.
func (r TestResult) Passed() bool {
	return r.Outcome == OutcomePassed
}

// RunSummary is the overall result of a run.
type RunSummary struct {
	// RunID uniquely identifies the run in reports and metrics
	RunID string `json:"run_id"`
	// StartTime when the run began
	StartTime time.Time `json:"start_time"`
	// EndTime when the run completed
	EndTime time.Time `json:"end_time"`
	// Duration of the run
	Duration time.Duration `json:"duration"`
	// Total number of tests executed
	Total int `json:"total"`
	// Passed is the number of tests that passed
	Passed int `json:"passed"`
	// Failed is the number of tests that failed
	Failed int `json:"failed"`
	// Results in execution order
	Results []TestResult `json:"results"`
}

// AllPassed reports whether no test failed.
func (s RunSummary) AllPassed() bool {
	return s.Failed == 0
}

// State is the runner lifecycle state.
type State int

const (
	// StateIdle accepts new tests.
	StateIdle State = iota
	// StateRunning is executing the queue.
	StateRunning
	// StateCompleted has finished every queued test.
	StateCompleted
)

// String makes State satisfy the fmt.Stringer interface.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StateCompleted:
		return "Completed"
	default:
		return "Unknown"
	}
}
