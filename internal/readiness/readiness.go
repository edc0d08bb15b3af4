// Package readiness decides when a freshly started cloud browser can take a
// driver connection.
package readiness

import (
	"context"
	"time"

	"github.com/kornev-zhora/anti-detect-browsing/internal/cloud"
)

// Waiter blocks until the session is expected to accept connections.
type Waiter interface {
	Wait(ctx context.Context, sess *cloud.Session) error
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FixedDelay waits a fixed settle time regardless of the session state.
type FixedDelay time.Duration

func (f FixedDelay) Wait(ctx context.Context, _ *cloud.Session) error {
	return Sleep(ctx, time.Duration(f))
}
