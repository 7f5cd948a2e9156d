package iocomm

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"ioctest/internal/waitgate"
)

// QueryFirmware asks the controller for its firmware version and waits for
// the reply.
func QueryFirmware(ctx context.Context, ch CommandChannel, timeout time.Duration) (string, error) {
	gate := waitgate.New()
	var version atomic.Value

	sub, err := ch.Subscribe(MatchKind(KindFirmware), func(e Event) {
		version.Store(e.Text)
		gate.Signal()
	})
	if err != nil {
		return "", fmt.Errorf("failed to subscribe to firmware replies: %w", err)
	}
	defer ch.Unsubscribe(sub)

	gate.Drain()
	if err := ch.Send(RequestFirmware()); err != nil {
		return "", err
	}
	if err := gate.Await(ctx, timeout); err != nil {
		return "", fmt.Errorf("no firmware reply within %s: %w", timeout, err)
	}
	return version.Load().(string), nil
}
