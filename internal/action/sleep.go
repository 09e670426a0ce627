package action

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// executeSleep suspends for the payload's "duration_seconds" without holding
// a worker busy. It is cancellable mid-sleep: cancellation or deadline
// expiry interrupts the timer immediately.
func executeSleep(ctx context.Context, payload map[string]any) (map[string]any, error) {
	secs, ok := floatField(payload, "duration_seconds")
	if !ok {
		return nil, errors.New("sleep: missing required field \"duration_seconds\"")
	}
	if secs < 0 {
		return nil, fmt.Errorf("sleep: duration_seconds must be >= 0, got %v", secs)
	}

	d := time.Duration(secs * float64(time.Second))
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return map[string]any{"slept_seconds": secs}, nil
}
