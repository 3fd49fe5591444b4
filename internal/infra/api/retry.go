package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/vietddude/predictctl/internal/core/domain"
	"github.com/vietddude/predictctl/internal/metrics"
)

// RetryConfig defines fetch-level retry behavior.
type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryConfig: three attempts one second apart.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts: 3,
	Delay:       1 * time.Second,
}

// ErrorAction determines how to handle an error.
type ErrorAction int

const (
	ActionRetry ErrorAction = iota
	ActionFatal
)

// ClassifyError determines the action for a given error. Only server-side
// failures are retried here; a network failure is surfaced at once with a
// friendly message, and everything else is the caller's problem.
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionFatal
	}
	if domain.KindOf(err) == domain.KindTransientServer {
		return ActionRetry
	}
	return ActionFatal
}

// CallWithRetry executes fn with a fixed delay between attempts.
func CallWithRetry[T any](
	ctx context.Context,
	config RetryConfig,
	name string,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	var result T

	maxAttempts := config.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	delay := config.Delay
	if delay <= 0 {
		delay = time.Millisecond
	}
	backoff := retry.WithMaxRetries(uint64(maxAttempts-1), retry.NewConstant(delay))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		r, err := fn(ctx)
		if err == nil {
			result = r
			return nil
		}
		if ClassifyError(err) == ActionFatal {
			return err
		}
		if attempt < maxAttempts {
			metrics.RetriesTotal.WithLabelValues("fetch").Inc()
			slog.Debug("retrying request", "op", name, "attempt", attempt, "max_attempts", maxAttempts, "delay", delay, "error", err)
		}
		return retry.RetryableError(err)
	})
	if err != nil {
		if attempt >= maxAttempts && ClassifyError(err) == ActionRetry {
			return result, domain.Unavailable(fmt.Errorf("%s failed after %d attempts: %w", name, attempt, err))
		}
		return result, err
	}
	return result, nil
}
