package usecase

import "time"

const (
	// DefaultTransactionTimeout bounds one unit of work, lock waits included.
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultCardValidityYears is how long a newly issued card stays valid.
	DefaultCardValidityYears = 3

	// DefaultSummaryCacheTTL is how long a summary read stays cached.
	DefaultSummaryCacheTTL = 30 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// maxReconcileOwners caps a single reconciliation pass.
	maxReconcileOwners = 10000
)
