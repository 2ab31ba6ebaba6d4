// Package ctxsleep provides a sleep that is bounded and cancellable by a
// context, so every nap taken by the Scanner and Flush tasks (device
// backoff, DB-retry backoff, flush interval, heartbeat interval) honors
// the single shared stop signal described in spec.md §5 and §9, and
// shutdown always completes within the spec's ~5 second budget.
package ctxsleep

import (
	"context"
	"time"
)

// Sleep blocks for d or until ctx is done, whichever comes first. It
// returns false if ctx was cancelled before d elapsed — callers use this
// to break out of their outer loop immediately instead of finishing the
// nap.
func Sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
