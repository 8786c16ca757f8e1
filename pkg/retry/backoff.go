package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	errs "igcrawl/pkg/errors"
)

// Backoff computes the pause before a retry
type Backoff interface {
	// Delay returns the pause before the given retry (attempt starts at 1)
	Delay(attempt int, err error) time.Duration
}

// Exponential grows the delay by Multiplier per attempt, capped at Max, with
// +/- Jitter applied as a fraction of the delay.
type Exponential struct {
	Base       time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// DefaultExponential returns a 1s..60s doubling backoff with 10% jitter
func DefaultExponential() *Exponential {
	return &Exponential{
		Base:       time.Second,
		Max:        60 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.1,
	}
}

// Delay implements Backoff
func (e *Exponential) Delay(attempt int, _ error) time.Duration {
	if attempt <= 0 {
		return 0
	}
	mult := e.Multiplier
	if mult < 1 {
		mult = 1
	}

	delay := float64(e.Base) * math.Pow(mult, float64(attempt-1))
	if e.Max > 0 && delay > float64(e.Max) {
		delay = float64(e.Max)
	}
	if e.Jitter > 0 {
		j := delay * e.Jitter
		delay += rand.Float64()*2*j - j
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// ByErrorType picks a backoff from the error's type. Rate limit errors wait
// much longer than transient network failures.
type ByErrorType struct {
	Network   Backoff
	RateLimit Backoff
	Server    Backoff
	Default   Backoff
}

// NewByErrorType builds the per-type schedule around a default backoff
func NewByErrorType(def Backoff) *ByErrorType {
	if def == nil {
		def = DefaultExponential()
	}
	return &ByErrorType{
		Network:   &Exponential{Base: time.Second, Max: 30 * time.Second, Multiplier: 2, Jitter: 0.2},
		RateLimit: &Exponential{Base: 30 * time.Second, Max: 5 * time.Minute, Multiplier: 1.5, Jitter: 0.3},
		Server:    &Exponential{Base: 5 * time.Second, Max: 60 * time.Second, Multiplier: 2, Jitter: 0.1},
		Default:   def,
	}
}

// Delay implements Backoff
func (b *ByErrorType) Delay(attempt int, err error) time.Duration {
	var next Backoff
	switch errs.TypeOf(err) {
	case errs.ErrorTypeNetwork:
		next = b.Network
	case errs.ErrorTypeRateLimit:
		next = b.RateLimit
	case errs.ErrorTypeServerError:
		next = b.Server
	}
	if next == nil {
		next = b.Default
	}
	return next.Delay(attempt, err)
}

// Wait sleeps for delay or until ctx is done
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
