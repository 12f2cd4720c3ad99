package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/cardledger/internal/domain"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mock_interfaces.go -package=mocks

// CardRepository defines data access for cards.
type CardRepository interface {
	Create(ctx context.Context, tx Transaction, card *domain.Card) error
	GetByID(ctx context.Context, id string) (*domain.Card, error)
	// GetByIDForUpdate reads the card and holds its row lock until tx ends.
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Card, error)
	UpdateBalance(ctx context.Context, tx Transaction, id string, balance decimal.Decimal, updatedAt time.Time) error
	UpdateStatus(ctx context.Context, tx Transaction, id string, status domain.CardStatus, updatedAt time.Time) error
	// ListByOwner lists the owner's cards, optionally narrowed to one status.
	ListByOwner(ctx context.Context, ownerID string, status domain.CardStatus) ([]*domain.Card, error)
}

// TransactionRepository defines data access for ledger transactions.
type TransactionRepository interface {
	Create(ctx context.Context, tx Transaction, txn *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error)
	// SumCompletedByCard returns the totals of COMPLETED credits and debits on a card.
	SumCompletedByCard(ctx context.Context, cardID string) (credited, debited decimal.Decimal, err error)
}

// SummaryRepository defines data access for account summaries.
type SummaryRepository interface {
	// GetByOwner returns domain.ErrSummaryNotFound when the owner has no summary yet.
	GetByOwner(ctx context.Context, ownerID string) (*domain.AccountSummary, error)
	// LockForUpdate creates the owner's summary row if missing and locks it until tx ends.
	LockForUpdate(ctx context.Context, tx Transaction, ownerID string, now time.Time) error
	// Recompute derives the owner's summary from the cards and transactions visible to tx.
	Recompute(ctx context.Context, tx Transaction, ownerID string, now time.Time) (*domain.AccountSummary, error)
	Save(ctx context.Context, tx Transaction, summary *domain.AccountSummary) error
	ListOwners(ctx context.Context) ([]string, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// ReferenceGenerator produces globally unique transaction references.
// Implementations must be safe for concurrent use.
type ReferenceGenerator interface {
	Next() string
}

// CardIssuer generates the secret card credentials.
type CardIssuer interface {
	NewNumber() (string, error)
	NewCVV() (string, error)
}

// Clock abstracts the current time.
type Clock interface {
	Now() time.Time
}

// Retrier re-runs an operation while it fails with a transient error.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// CardRegistry resolves card eligibility for the ledger.
type CardRegistry interface {
	CheckEligible(ctx context.Context, cardID string) (*domain.Card, error)
}

// SummaryAggregator keeps owner summaries in step with the ledger.
type SummaryAggregator interface {
	// Refresh recomputes and stores the owner's summary inside tx.
	Refresh(ctx context.Context, tx Transaction, ownerID string) (*domain.AccountSummary, error)
	// Invalidate drops any cached copy after tx has committed.
	Invalidate(ctx context.Context, ownerID string)
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error); existingValue is nil while the
	// first request is still in flight.
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release frees a key whose request failed.
	Release(ctx context.Context, key string) error
}

type systemClock struct{}

// SystemClock returns a Clock reading the wall clock in UTC, truncated to the
// microsecond precision PostgreSQL stores.
func SystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
