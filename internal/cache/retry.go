package cache

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy - ограниченный экспоненциальный повтор.
// MaxAttempts counts every call including the first one; the wait before
// retry n (0-based) is BaseDelay * 2^n.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy: first call plus three retries after 1s, 2s and 4s
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 4, BaseDelay: time.Second}

// NoRetry calls once
var NoRetry = RetryPolicy{MaxAttempts: 1}

func (p RetryPolicy) Delay(retry int) time.Duration {
	return p.BaseDelay << retry
}

func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return p.do(ctx, fn, sleepContext)
}

func (p RetryPolicy) do(ctx context.Context, fn func(ctx context.Context) error,
	sleep func(ctx context.Context, d time.Duration) error) error {

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		if serr := sleep(ctx, p.Delay(i)); serr != nil {
			return fmt.Errorf("retry aborted: %w (last error: %v)", serr, err)
		}
	}

	if attempts == 1 {
		return err
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
