// Package safeguard drives the fixture power line to a safe level around a
// production run.
package safeguard

import (
	"fmt"

	"ioctest/internal/checks"
	"ioctest/internal/config"
	"ioctest/internal/iocomm"
	"ioctest/pkg/logging"
)

// Guard holds the power line low while the suite is not driving the board.
type Guard struct {
	ch   iocomm.CommandChannel
	line uint16
}

// New returns a guard for the configured power line, or nil when the
// safeguard is disabled. A nil guard is a no-op.
func New(ch iocomm.CommandChannel, settings config.SafeguardSettings) *Guard {
	if !settings.Enabled {
		return nil
	}
	return &Guard{ch: ch, line: settings.PowerLine}
}

// Apply enters test mode, drives the power line low and leaves test mode.
// stage only labels the log output.
func (g *Guard) Apply(stage string) error {
	if g == nil {
		return nil
	}

	scope, err := checks.EnterTestMode(g.ch)
	if err != nil {
		return fmt.Errorf("safeguard %s: %w", stage, err)
	}
	defer scope.Close()

	if err := g.ch.Send(iocomm.SetIO(g.line, 0)); err != nil {
		return fmt.Errorf("safeguard %s: failed to drive IO %d low: %w", stage, g.line, err)
	}
	logging.Info("Safeguard", "%s: IO %d driven low", stage, g.line)
	return nil
}
