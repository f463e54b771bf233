package inference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/rhemaflow/internal/pkg/utils"
	"github.com/cenkalti/backoff/v4"
)

// Retrying wraps a provider with a per attempt timeout and
// a bounded jittered backoff for transient failures
type Retrying struct {
	real    Provider
	timeout time.Duration
	backoff func() backoff.BackOff
}

// NewRetrying creates the wrapper
func NewRetrying(real Provider, timeout time.Duration, retries int, initialWait time.Duration) (*Retrying, error) {
	if real == nil {
		return nil, fmt.Errorf("no provider")
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("wrong timeout %v", timeout)
	}
	if retries < 0 {
		return nil, fmt.Errorf("wrong retries %d", retries)
	}
	goapp.Log.Info().Str("provider", real.Name()).Dur("timeout", timeout).Int("retries", retries).Msg("inference")
	return &Retrying{real: real, timeout: timeout, backoff: func() backoff.BackOff {
		res := backoff.NewExponentialBackOff()
		if initialWait > 0 {
			res.InitialInterval = initialWait
		}
		return backoff.WithMaxRetries(res, uint64(retries))
	}}, nil
}

// Name returns the wrapped provider name
func (r *Retrying) Name() string {
	return r.real.Name()
}

// Ready delegates to the wrapped provider
func (r *Retrying) Ready() error {
	return r.real.Ready()
}

// Generate invokes the wrapped provider, retries only transient errors
func (r *Retrying) Generate(ctx context.Context, req *Request) (string, error) {
	if err := r.real.Ready(); err != nil {
		return "", err
	}
	attempt := 0
	return goapp.InvokeWithBackoff(ctx, func() (string, bool, error) {
		attempt++
		actx, cancelF := context.WithTimeout(ctx, r.timeout)
		defer cancelF()
		start := time.Now()
		res, err := r.real.Generate(actx, req)
		if err != nil {
			if ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
				err = utils.NewServiceError(fmt.Errorf("no response in %v: %w", r.timeout, err), true)
			}
			transient := utils.IsTransient(err)
			goapp.Log.Warn().Err(err).Str("provider", r.real.Name()).Int("attempt", attempt).
				Bool("transient", transient).Msg("inference failed")
			return "", transient && ctx.Err() == nil, err
		}
		goapp.Log.Info().Str("provider", r.real.Name()).Int("attempt", attempt).
			Dur("took", time.Since(start)).Int("len", len(res)).Msg("inference done")
		return res, false, nil
	}, r.backoff())
}
