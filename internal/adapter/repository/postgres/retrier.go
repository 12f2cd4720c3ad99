package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/iho/cardledger/internal/domain"
)

// RetryPolicy bounds how often and how long a unit of work is replayed.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryPolicy keeps replays short; lock waits are already bounded by
// the transaction's lock_timeout.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:      3,
	InitialInterval: 10 * time.Millisecond,
	MaxInterval:     500 * time.Millisecond,
	MaxElapsedTime:  5 * time.Second,
}

// Retrier replays transient storage failures with jittered exponential
// backoff. It implements usecase.Retrier.
type Retrier struct {
	policy RetryPolicy
	logger zerolog.Logger
}

// NewRetrier returns a Retrier using DefaultRetryPolicy.
func NewRetrier(logger zerolog.Logger) *Retrier {
	return NewRetrierWithPolicy(DefaultRetryPolicy, logger)
}

func NewRetrierWithPolicy(policy RetryPolicy, logger zerolog.Logger) *Retrier {
	return &Retrier{
		policy: policy,
		logger: logger.With().Str("component", "retrier").Logger(),
	}
}

func (r *Retrier) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = r.policy.InitialInterval
	exp.MaxInterval = r.policy.MaxInterval
	exp.MaxElapsedTime = r.policy.MaxElapsedTime

	return backoff.WithContext(backoff.WithMaxRetries(exp, r.policy.MaxRetries), ctx)
}

// Retry runs operation until it succeeds, fails with an error that a replay
// cannot fix, or the policy is exhausted. The last error is returned as is.
func (r *Retrier) Retry(ctx context.Context, operation func() error) error {
	attempt := 0

	return backoff.RetryNotify(
		func() error {
			attempt++
			err := operation()
			if err != nil && !isRetryableError(err) {
				return backoff.Permanent(err)
			}
			return err
		},
		r.backOff(ctx),
		func(err error, wait time.Duration) {
			r.logger.Warn().Err(err).
				Int("attempt", attempt).
				Dur("wait", wait).
				Msg("replaying unit of work")
		},
	)
}

// isRetryableError reports whether rerunning the whole unit of work can
// succeed: deadlocks, serialization failures and collisions of generated
// unique values.
func isRetryableError(err error) bool {
	if errors.Is(err, domain.ErrDuplicateReference) || errors.Is(err, domain.ErrDuplicateCardNumber) {
		return true
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}

	return pgErr.Code == pgErrDeadlock || pgErr.Code == pgErrSerializationFailure
}
