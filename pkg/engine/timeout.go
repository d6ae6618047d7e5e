package engine

import (
	"context"
	"errors"
	"time"
)

// EvalTimeout is the hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when a job runs past EvalTimeout.
	ErrTimeout = errors.New("engine: evaluation timed out")
	// ErrSuperseded is returned to an evaluation overtaken by a newer one.
	ErrSuperseded = errors.New("engine: evaluation superseded by newer request")
)

// evalResult passes an evaluation outcome through a channel.
type evalResult struct {
	res *EvalResult
	err error
}

// await blocks until evaluation gen reports on ch or ctx ends, returning
// the cause of ctx ending in that case. current reads the newest
// generation started; a result from an older one is dropped.
//
// An abandoned interpreter keeps running until it returns on its own. ch
// must be buffered so it can still deliver and exit.
func await(ctx context.Context, ch <-chan evalResult, gen uint64, current func() uint64) (*EvalResult, error) {
	select {
	case r := <-ch:
		if current() != gen {
			return nil, ErrSuperseded
		}
		return r.res, r.err
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
}
