package harness

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"ioctest/pkg/logging"
)

// Runner executes an ordered queue of tests one at a time on its own
// goroutine, so a test blocked waiting for a reply never stalls the
// dispatch goroutine delivering it.
type Runner struct {
	reporter Reporter
	onResult func(TestResult)

	mu      sync.Mutex
	queue   []TestCase
	state   State
	current int
	summary RunSummary
	err     error
	done    chan struct{}
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithResultHook calls fn on the execution goroutine after each test.
func WithResultHook(fn func(TestResult)) RunnerOption {
	return func(r *Runner) {
		r.onResult = fn
	}
}

// NewRunner creates an idle runner that reports to reporter.
func NewRunner(reporter Reporter, opts ...RunnerOption) *Runner {
	r := &Runner{
		reporter: reporter,
		current:  -1,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddTest appends a test to the queue. It fails once the run has started.
func (r *Runner) AddTest(tc TestCase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateIdle {
		return ErrAlreadyStarted
	}
	r.queue = append(r.queue, tc)
	return nil
}

// Len returns the number of queued tests.
func (r *Runner) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// Start begins executing the queue and returns immediately. Cancelling ctx
// makes pending waits return early; every remaining test still runs and
// reports a result. An empty queue completes before Start returns.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	r.state = StateRunning
	tests := r.queue
	r.summary = RunSummary{
		RunID:     uuid.NewString(),
		StartTime: time.Now(),
		Total:     len(tests),
		Results:   make([]TestResult, 0, len(tests)),
	}
	r.mu.Unlock()

	logging.Info("Runner", "starting run %s with %d test(s)", r.summary.RunID, len(tests))

	if len(tests) == 0 {
		r.complete()
		return nil
	}
	go r.execute(ctx, tests)
	return nil
}

// Done is closed when the run reaches StateCompleted.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run completes and returns its summary. The error
// is the reporter's flush error, if any.
func (r *Runner) Wait() (RunSummary, error) {
	<-r.done
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary, r.err
}

// Run starts the queue and waits for it to complete.
func (r *Runner) Run(ctx context.Context) (RunSummary, error) {
	if err := r.Start(ctx); err != nil {
		return RunSummary{}, err
	}
	return r.Wait()
}

// State returns the lifecycle state and, while running, the index of the
// current test.
func (r *Runner) State() (State, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRunning {
		return r.state, -1
	}
	return r.state, r.current
}

func (r *Runner) execute(ctx context.Context, tests []TestCase) {
	for i, tc := range tests {
		r.mu.Lock()
		r.current = i
		r.mu.Unlock()

		result := r.runTest(ctx, i, tc)

		r.mu.Lock()
		r.summary.Results = append(r.summary.Results, result)
		if result.Passed() {
			r.summary.Passed++
		} else {
			r.summary.Failed++
		}
		r.mu.Unlock()

		if result.Passed() {
			logging.Info("Runner", "%s passed (%v)", result.Name, result.Duration.Round(time.Millisecond))
		} else {
			logging.Warn("Runner", "%s failed: %s", result.Name, result.Reason)
		}
		if r.onResult != nil {
			r.onResult(result)
		}
	}
	r.complete()
}

func (r *Runner) runTest(ctx context.Context, index int, tc TestCase) TestResult {
	result := TestResult{
		Index:     index,
		Name:      tc.Name(),
		StartTime: time.Now(),
	}

	rec := newRecorder(r.reporter, result.Name)
	tc.SetReporter(rec)

	logging.Debug("Runner", "running test %d: %s", index, result.Name)
	if err := r.invoke(ctx, tc); err != nil {
		rec.TestHasFailed(err.Error())
	}

	failed, reason := rec.finish()
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	if failed {
		result.Outcome = OutcomeFailed
		result.Reason = reason
	} else {
		result.Outcome = OutcomePassed
	}
	return result
}

// invoke runs the test, converting a panic into an error.
func (r *Runner) invoke(ctx context.Context, tc TestCase) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.Error("Runner", fmt.Errorf("%v", rec), "test %s panicked\n%s", tc.Name(), debug.Stack())
			err = fmt.Errorf("internal error: %v", rec)
		}
	}()
	return tc.Run(ctx)
}

func (r *Runner) complete() {
	r.mu.Lock()
	r.summary.EndTime = time.Now()
	r.summary.Duration = r.summary.EndTime.Sub(r.summary.StartTime)
	summary := r.summary
	r.mu.Unlock()

	err := r.reporter.Flush(summary)
	if err != nil {
		logging.Error("Runner", err, "failed to flush report")
	}
	logging.Info("Runner", "run %s completed: %d passed, %d failed", summary.RunID, summary.Passed, summary.Failed)

	r.mu.Lock()
	r.state = StateCompleted
	r.err = err
	r.mu.Unlock()
	close(r.done)
}
