// Package throttle rate-limits calls to an Oracle.
package throttle

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/forPelevin/reelcut/internal/ports"
)

type Oracle struct {
	next    ports.Oracle
	limiter *rate.Limiter
}

// New allows requestsPerMinute calls with a burst of one. A non-positive rate
// returns next unchanged.
func New(next ports.Oracle, requestsPerMinute float64) ports.Oracle {
	if requestsPerMinute <= 0 {
		return next
	}
	return &Oracle{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(requestsPerMinute/60.0), 1),
	}
}

func (o *Oracle) Complete(ctx context.Context, req ports.OracleRequest) (string, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return o.next.Complete(ctx, req)
}
