// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package acquisition

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/rossoflix/rossoflix/internal/locator"
	"github.com/rossoflix/rossoflix/internal/pkg/timeouts"
)

// Outcome labels a finished acquisition.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeTimeout Outcome = "timeout"
)

// Recorder observes acquisitions. Implementations must be safe for concurrent use.
type Recorder interface {
	AcquisitionStarted()
	AcquisitionFinished(outcome Outcome, elapsed time.Duration)
}

// Acquirer is the behaviour the coordinator wraps.
type Acquirer interface {
	Acquire(ctx context.Context, magnet Magnet, dir, filename string) error
}

// Coordinator collapses concurrent acquisitions of the same filename into one
// agent run. Callers that arrive while a run is in flight wait for its result
// instead of starting another.
type Coordinator struct {
	acquirer Acquirer
	dir      string
	timeout  time.Duration
	recorder Recorder
	group    singleflight.Group
}

// NewCoordinator returns a Coordinator storing files in dir. A non-positive
// timeout falls back to timeouts.DefaultAcquisitionTimeout. recorder may be nil.
func NewCoordinator(acquirer Acquirer, dir string, timeout time.Duration, recorder Recorder) *Coordinator {
	if timeout <= 0 {
		timeout = timeouts.DefaultAcquisitionTimeout
	}
	return &Coordinator{
		acquirer: acquirer,
		dir:      dir,
		timeout:  timeout,
		recorder: recorder,
	}
}

// Acquire fetches filename for magnet. The agent run is shared by every caller
// asking for the same filename and is not cancelled when a single caller's ctx
// ends; that caller just stops waiting and gets ctx.Err().
func (c *Coordinator) Acquire(ctx context.Context, magnet Magnet, filename string) error {
	ch := c.group.DoChan(filename, func() (any, error) {
		runCtx, cancel := timeouts.Detached(ctx, c.timeout)
		defer cancel()

		// A flight that finished just before this one started may already have written the file.
		if path, ok := locator.Locate(runCtx, c.dir, filename); ok {
			log.Debug().Str("path", path).Msg("file appeared before acquisition started")
			return nil, nil
		}

		if c.recorder != nil {
			c.recorder.AcquisitionStarted()
		}
		start := time.Now()
		err := c.acquirer.Acquire(runCtx, magnet, c.dir, filename)
		if c.recorder != nil {
			c.recorder.AcquisitionFinished(outcomeOf(err), time.Since(start))
		}
		return nil, err
	})

	select {
	case res := <-ch:
		if res.Shared {
			log.Debug().Str("filename", filename).Msg("joined in-flight acquisition")
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func outcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case isTimeout(err):
		return OutcomeTimeout
	default:
		return OutcomeFailure
	}
}
