package limiter

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/olusolaa/fleet-provisioner/internal/core/ports"
)

const (
	DefaultRPS = 10
	MinRPS     = 1
	MaxRPS     = 100
)

// Limiter is a token bucket shared by every registry client in the process.
type Limiter struct {
	limiter *rate.Limiter
	rps     int
}

// New returns a limiter allowing rps calls per second with a burst of rps.
// Out-of-range values fall back to DefaultRPS; zero selects the default
// silently.
func New(rps int, logger ports.Logger) *Limiter {
	value := DefaultRPS
	if rps >= MinRPS && rps <= MaxRPS {
		value = rps
	} else if rps != 0 && logger != nil {
		logger.Warnf(context.Background(), "Invalid AWS API RPS configured (%d), using default %d RPS. Valid range: %d-%d.", rps, DefaultRPS, MinRPS, MaxRPS)
	}
	if logger != nil {
		logger.Debugf(context.Background(), "Initialized AWS API rate limiter: %d RPS", value)
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(value), value), rps: value}
}

func (l *Limiter) RPS() int {
	return l.rps
}

func (l *Limiter) Wait(ctx context.Context, logger ports.Logger) error {
	err := l.limiter.Wait(ctx)
	if err != nil && ctx.Err() == nil && logger != nil {
		logger.Warnf(ctx, "Error waiting for AWS API rate limiter: %v", err)
	}
	return err
}
