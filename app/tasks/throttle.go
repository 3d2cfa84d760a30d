package tasks

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter blocks until the next call is allowed.
type Limiter interface {
	Wait(ctx context.Context) error
}

// NewThrottle allows one call per interval. A non-positive interval
// disables throttling.
func NewThrottle(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}
