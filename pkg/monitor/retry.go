package monitor

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy decides how long to wait before reconnect attempt n, counted
// from 1. Returning false stops reconnecting.
type RetryPolicy interface {
	NextDelay(attempt int) (time.Duration, bool)
}

// RetryFunc adapts a function to RetryPolicy.
type RetryFunc func(attempt int) (time.Duration, bool)

func (f RetryFunc) NextDelay(attempt int) (time.Duration, bool) {
	return f(attempt)
}

// NoRetry never reconnects.
var NoRetry RetryPolicy = RetryFunc(func(int) (time.Duration, bool) { return 0, false })

// ExponentialPolicy grows the delay exponentially with jitter, up to
// MaxAttempts attempts. MaxAttempts <= 0 retries forever.
type ExponentialPolicy struct {
	MaxAttempts int

	mu sync.Mutex
	b  *backoff.ExponentialBackOff
}

func NewExponentialPolicy(initial, maxInterval time.Duration, maxAttempts int) *ExponentialPolicy {
	b := backoff.NewExponentialBackOff()
	if initial > 0 {
		b.InitialInterval = initial
	}
	if maxInterval > 0 {
		b.MaxInterval = maxInterval
	}
	b.Reset()

	return &ExponentialPolicy{
		MaxAttempts: maxAttempts,
		b:           b,
	}
}

func (p *ExponentialPolicy) NextDelay(attempt int) (time.Duration, bool) {
	if p.MaxAttempts > 0 && attempt > p.MaxAttempts {
		return 0, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if attempt <= 1 {
		p.b.Reset()
	}
	return p.b.NextBackOff(), true
}

// ConstantPolicy waits the same delay between attempts.
type ConstantPolicy struct {
	MaxAttempts int
	b           *backoff.ConstantBackOff
}

func NewConstantPolicy(delay time.Duration, maxAttempts int) *ConstantPolicy {
	return &ConstantPolicy{
		MaxAttempts: maxAttempts,
		b:           backoff.NewConstantBackOff(delay),
	}
}

func (p *ConstantPolicy) NextDelay(attempt int) (time.Duration, bool) {
	if p.MaxAttempts > 0 && attempt > p.MaxAttempts {
		return 0, false
	}
	return p.b.NextBackOff(), true
}
