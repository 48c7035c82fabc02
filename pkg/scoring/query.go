package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/ris/internal/util"
	"github.com/OFFIS-RIT/ris/pkg/oracle"
)

// querier applies the per-attempt timeout and retry budget to oracle calls.
type querier struct {
	timeout time.Duration
	retries int
	backoff time.Duration
}

// query runs fn with up to q.retries+1 attempts, waiting q.backoff before the
// first retry and twice as long before each further one. A timed-out attempt
// is retried while the parent context is still alive; unknown entities are
// not retried.
func query[T any](ctx context.Context, q querier, op string, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	defer func() {
		metrics.oracleQueries.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	return util.RetryWithBackoff(ctx, q.retries+1, q.backoff, func(ctx context.Context) (T, error) {
		attemptCtx := ctx
		if q.timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, q.timeout)
			defer cancel()
		}
		v, err := fn(attemptCtx)
		switch {
		case err == nil:
			return v, nil
		case errors.Is(err, oracle.ErrUnknownEntity):
			return v, util.Permanent(err)
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			return v, fmt.Errorf("%s timed out after %s", op, q.timeout)
		}
		return v, err
	})
}
