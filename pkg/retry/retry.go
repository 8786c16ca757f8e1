package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"igcrawl/pkg/config"
	errs "igcrawl/pkg/errors"
	"igcrawl/pkg/logger"
)

// Policy decides how often and how long to retry a failed call
type Policy struct {
	// MaxAttempts counts the first call; 1 disables retries
	MaxAttempts int
	Backoff     Backoff
	// RetryIf reports whether err is worth another attempt
	RetryIf func(error) bool
	// OnRetry is called before each pause, e.g. to count retries
	OnRetry func(attempt int, err error, delay time.Duration)
	Logger  logger.Logger
}

// DefaultPolicy retries retryable typed errors three times
func DefaultPolicy() *Policy {
	return &Policy{
		MaxAttempts: 3,
		Backoff:     NewByErrorType(nil),
		RetryIf:     DefaultRetryIf,
		Logger:      logger.GetLogger(),
	}
}

// FromConfig builds a policy from the retry section of the config
func FromConfig(cfg *config.RetryConfig, log logger.Logger) *Policy {
	if log == nil {
		log = logger.GetLogger()
	}
	if cfg == nil {
		p := DefaultPolicy()
		p.Logger = log
		return p
	}

	attempts := cfg.MaxAttempts
	if !cfg.Enabled || attempts < 1 {
		attempts = 1
	}
	return &Policy{
		MaxAttempts: attempts,
		Backoff: NewByErrorType(&Exponential{
			Base:       cfg.BaseDelay,
			Max:        cfg.MaxDelay,
			Multiplier: cfg.Multiplier,
			Jitter:     cfg.Jitter,
		}),
		RetryIf: DefaultRetryIf,
		Logger:  log,
	}
}

// DefaultRetryIf retries typed errors whose type is retryable. Private
// accounts, missing resources and auth failures are never retried.
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *errs.Error
	if errors.As(err, &apiErr) {
		return errs.IsRetryable(apiErr.Type)
	}
	return false
}

// Do runs op until it succeeds, fails with a non-retryable error, runs out of
// attempts, or ctx is cancelled.
func Do(ctx context.Context, p *Policy, op func(ctx context.Context) error) error {
	if p == nil {
		p = DefaultPolicy()
	}
	retryIf := p.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}
	backoff := p.Backoff
	if backoff == nil {
		backoff = DefaultExponential()
	}
	log := p.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			if attempt > 1 {
				log.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}

		if !retryIf(err) {
			return err
		}
		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			if p.MaxAttempts == 1 {
				return err
			}
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", p.MaxAttempts, err)
		}

		delay := backoff.Delay(attempt, err)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}
		log.WarnWithFields("retrying operation", map[string]interface{}{
			"attempt":      attempt,
			"error":        err.Error(),
			"delay_ms":     delay.Milliseconds(),
			"max_attempts": p.MaxAttempts,
		})

		if werr := Wait(ctx, delay); werr != nil {
			return fmt.Errorf("retry cancelled: %w", werr)
		}
	}
}

// DoValue is Do for operations that return a value
func DoValue[T any](ctx context.Context, p *Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := Do(ctx, p, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
