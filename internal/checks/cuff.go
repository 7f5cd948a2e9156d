package checks

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"ioctest/internal/harness"
	"ioctest/internal/iocomm"
	"ioctest/pkg/logging"
)

// CuffCheck waits for the cuff pressure to reach a threshold while the
// operator inflates it. Each attempt solicits samples for the aggregate
// timeout; the whole detection is retried per policy.
type CuffCheck struct {
	base

	threshold uint32
	policy    harness.RetryPolicy
}

var _ harness.TestCase = (*CuffCheck)(nil)

// NewCuff builds the cuff test from the configured threshold and retry
// settings.
func NewCuff(env Env) *CuffCheck {
	cfg := env.Config.Cuff
	c := &CuffCheck{
		base:      env.base("Cuff"),
		threshold: cfg.Threshold,
	}
	c.policy = harness.RetryPolicy{
		MaxAttempts: cfg.Attempts,
		Delay:       cfg.OperatorPause + cfg.RetryDelay,
		BeforeRetry: func(attempt int) {
			logging.Info("Cuff", "Make sure to set the cuff meter to a value over %dmmHg with the pump inflator", c.threshold)
			logging.Info("Cuff", "Retrying in %s...", cfg.OperatorPause+cfg.RetryDelay)
		},
	}
	return c
}

// Run implements harness.TestCase.
func (c *CuffCheck) Run(ctx context.Context) error {
	c.reporter.SetHeader(c.name, fmt.Sprintf("(>=%d)", c.threshold))

	probe, err := harness.Attach(c.ch, iocomm.KindCuff, 0, harness.WithAccept(func(v uint32) bool {
		return v >= c.threshold
	}))
	if err != nil {
		c.reporter.LogResult("Error")
		return err
	}
	defer probe.Detach()

	err = c.policy.Do(ctx, func(attempt int) error {
		logging.Info("Cuff", "waiting for cuff pressure, attempt %d/%d", attempt, c.policy.MaxAttempts)
		v, err := probe.Request(ctx, iocomm.GetCuff(), c.timing.aggregate)
		if err != nil {
			best, _ := probe.Max()
			logging.Warn("Cuff", "no response from IOC or max value (%d) below threshold (%d)", best, c.threshold)
			return err
		}
		c.reporter.LogResult(strconv.FormatUint(uint64(v), 10))
		return nil
	})

	var exhausted *harness.ExhaustedRetriesError
	if errors.As(err, &exhausted) {
		exhausted.Best, _ = probe.Max()
		exhausted.Threshold = c.threshold
		exhausted.Message = fmt.Sprintf("Failed to connect to IOC after %d attempts. Max value (%d) below threshold (%d)",
			exhausted.Attempts, exhausted.Best, c.threshold)
	}
	return err
}
