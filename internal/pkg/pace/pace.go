// Package pace spaces out calls against rate-limited upstream APIs.
package pace

import (
	"context"
	"time"
)

// Wait blocks for d or until ctx is done, returning ctx.Err() in that case.
// A non-positive d only checks ctx.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
