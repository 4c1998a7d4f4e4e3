package output

import (
	"context"
	"time"

	retry "github.com/avast/retry-go/v5"

	"github.com/hyp3rd/sinklog/internal/constants"
	"github.com/hyp3rd/sinklog/internal/utils"
)

// retryPolicy retries I/O failures with linear backoff (attempt × base) and
// bounds the whole sequence by a wall-clock budget. Anything that is not an
// I/O failure aborts at once.
type retryPolicy struct {
	attempts uint
	base     time.Duration
	budget   time.Duration
	onRetry  func(attempt uint, err error)
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{
		attempts: constants.RetryAttempts,
		base:     constants.RetryBaseDelay,
		budget:   constants.RetryBudget,
	}
}

func (p retryPolicy) do(fn func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.budget)
	defer cancel()

	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(max(p.attempts, 1)),
		retry.Delay(p.base),
		retry.DelayType(func(n uint, _ error, _ retry.DelayContext) time.Duration {
			return time.Duration(n) * p.base
		}),
		retry.RetryIf(utils.IsIOError),
		retry.LastErrorOnly(true),
	}

	if p.onRetry != nil {
		opts = append(opts, retry.OnRetry(func(n uint, err error) {
			p.onRetry(n+1, err)
		}))
	}

	return retry.New(opts...).Do(fn) //nolint:wrapcheck // callers wrap with context.
}
