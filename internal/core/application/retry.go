package application

import (
	"context"
	"time"

	"github.com/lightningnetwork/lnd/clock"
)

// retryWithBackoff calls fn up to attempts times, waiting baseDelay, then
// twice as long, and so on between calls. fn is always called at least once.
// It returns the number of calls made and the last error.
func retryWithBackoff(
	ctx context.Context, clk clock.Clock,
	attempts int, baseDelay time.Duration, fn func() error,
) (int, error) {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	delay := baseDelay
	for i := 1; i <= attempts; i++ {
		if err = fn(); err == nil {
			return i, nil
		}
		if i == attempts {
			return i, err
		}

		select {
		case <-ctx.Done():
			return i, ctx.Err()
		case <-clk.TickAfter(delay):
		}
		delay *= 2
	}
	return attempts, err
}
