package timeouts

import (
	"context"
	"time"
)

const (
	// DefaultAcquisitionTimeout bounds a single download agent run. Unseeded magnets never finish on their own.
	DefaultAcquisitionTimeout = 2 * time.Hour
	// DefaultUpstreamTimeout matches the metadata client budget per attempt.
	DefaultUpstreamTimeout = 8 * time.Second
	// DefaultUpstreamConnectTimeout is the dial budget for metadata upstreams.
	DefaultUpstreamConnectTimeout = 3 * time.Second
)

// Detached returns a context that carries ctx's values but not its cancellation,
// bounded by timeout when timeout is positive. Work shared between several
// requests runs under it so one caller hanging up does not abort the others.
func Detached(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	detached := context.WithoutCancel(ctx)
	if timeout <= 0 {
		return context.WithCancel(detached)
	}
	return context.WithTimeout(detached, timeout)
}
