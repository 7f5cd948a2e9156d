package harness

import (
	"errors"
	"fmt"
	"time"
)

// ErrAlreadyStarted is returned when the queue is modified or started after
// the run began.
var ErrAlreadyStarted = errors.New("test runner already started")

// SubscriptionError means a test could not attach to the event stream.
type SubscriptionError struct {
	Target string
	Err    error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("failed to subscribe to %s: %v", e.Target, e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }

// SendError means a command could not be written to the controller.
type SendError struct {
	Command string
	Err     error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("failed to send %s: %v", e.Command, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// TimeoutError means an armed wait expired with no matching event.
type TimeoutError struct {
	// Message replaces the default text when set.
	Message string
	After   time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("no reply within %s", e.After)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// ToleranceKind names the pass criterion a value failed.
type ToleranceKind string

const (
	ToleranceRange     ToleranceKind = "range"
	ToleranceExact     ToleranceKind = "exact"
	ToleranceThreshold ToleranceKind = "threshold"
)

// ToleranceError means a received value failed its check.
type ToleranceError struct {
	Kind  ToleranceKind
	Value uint32
	// Lower and Upper bound a range check. Lower alone holds the expected
	// value or the threshold for the other kinds.
	Lower uint32
	Upper uint32
	// Message replaces the default text when set.
	Message string
}

func (e *ToleranceError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	switch e.Kind {
	case ToleranceExact:
		return fmt.Sprintf("Unexpected value. Got %d, Expected %d", e.Value, e.Lower)
	case ToleranceThreshold:
		return fmt.Sprintf("Value below threshold. Got %d, Expected at least %d", e.Value, e.Lower)
	default:
		return fmt.Sprintf("Read value outside range. Got %d, Expected range (%d-%d)", e.Value, e.Lower, e.Upper)
	}
}

// ExhaustedRetriesError means every attempt of a retried check failed.
type ExhaustedRetriesError struct {
	Attempts int
	// Best is the best value observed across all attempts.
	Best      uint32
	Threshold uint32
	// Message replaces the default text when set.
	Message string
	// Err is the failure of the last attempt.
	Err error
}

func (e *ExhaustedRetriesError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("no qualifying value after %d attempts. Best value (%d) below threshold (%d)", e.Attempts, e.Best, e.Threshold)
}

func (e *ExhaustedRetriesError) Unwrap() error { return e.Err }

// InRange reports whether v lies strictly between lower and upper.
func InRange(v, lower, upper uint32) bool {
	return v > lower && v < upper
}

// CheckRange returns a ToleranceError unless v lies strictly inside (lower, upper).
func CheckRange(v, lower, upper uint32) error {
	if InRange(v, lower, upper) {
		return nil
	}
	return &ToleranceError{Kind: ToleranceRange, Value: v, Lower: lower, Upper: upper}
}
