package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iho/cardledger/internal/domain"
	"github.com/iho/cardledger/internal/infrastructure/postgres/generated"
	"github.com/iho/cardledger/internal/usecase"
)

// SummaryRepository implements usecase.SummaryRepository.
type SummaryRepository struct {
	queries *generated.Queries
}

// NewSummaryRepository creates a new SummaryRepository.
func NewSummaryRepository(db generated.DBTX) *SummaryRepository {
	return &SummaryRepository{
		queries: generated.New(db),
	}
}

// GetByOwner returns the stored summary of an owner.
func (r *SummaryRepository) GetByOwner(ctx context.Context, ownerID string) (*domain.AccountSummary, error) {
	row, err := r.queries.GetSummaryByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSummaryNotFound
		}

		return nil, err
	}

	return rowToSummary(row), nil
}

// LockForUpdate creates the owner's summary row if missing and locks it until
// tx ends.
func (r *SummaryRepository) LockForUpdate(ctx context.Context, tx usecase.Transaction, ownerID string, now time.Time) error {
	queries := generated.New(tx.(*Tx).PgxTx())

	if err := queries.EnsureSummary(ctx, generated.EnsureSummaryParams{
		OwnerID:   ownerID,
		UpdatedAt: timeToPgTimestamptz(now),
	}); err != nil {
		return mapError(err)
	}

	if _, err := queries.LockSummary(ctx, ownerID); err != nil {
		return mapError(err)
	}

	return nil
}

// Recompute derives the owner's summary from the cards and transactions
// visible to tx.
func (r *SummaryRepository) Recompute(ctx context.Context, tx usecase.Transaction, ownerID string, now time.Time) (*domain.AccountSummary, error) {
	queries := generated.New(tx.(*Tx).PgxTx())

	cards, err := queries.ComputeCardTotals(ctx, ownerID)
	if err != nil {
		return nil, mapError(err)
	}

	txns, err := queries.ComputeTransactionTotals(ctx, ownerID)
	if err != nil {
		return nil, mapError(err)
	}

	return &domain.AccountSummary{
		OwnerID:             ownerID,
		TotalBalance:        numericToDecimal(cards.TotalBalance),
		TotalCards:          cards.TotalCards,
		ActiveCards:         cards.ActiveCards,
		TotalTransactions:   txns.TotalTransactions,
		TotalCredited:       numericToDecimal(txns.TotalCredited),
		TotalDebited:        numericToDecimal(txns.TotalDebited),
		LastTransactionDate: pgTimestamptzToTimePtr(txns.LastTransactionDate),
		UpdatedAt:           now,
	}, nil
}

// Save upserts the summary within a transaction.
func (r *SummaryRepository) Save(ctx context.Context, tx usecase.Transaction, summary *domain.AccountSummary) error {
	queries := generated.New(tx.(*Tx).PgxTx())

	err := queries.SaveSummary(ctx, generated.SaveSummaryParams{
		OwnerID:             summary.OwnerID,
		TotalBalance:        decimalToNumeric(summary.TotalBalance),
		TotalCards:          summary.TotalCards,
		ActiveCards:         summary.ActiveCards,
		TotalTransactions:   summary.TotalTransactions,
		TotalCredited:       decimalToNumeric(summary.TotalCredited),
		TotalDebited:        decimalToNumeric(summary.TotalDebited),
		LastTransactionDate: timePtrToPgTimestamptz(summary.LastTransactionDate),
		UpdatedAt:           timeToPgTimestamptz(summary.UpdatedAt),
	})

	return mapError(err)
}

// ListOwners lists every owner with a summary row, in owner order.
func (r *SummaryRepository) ListOwners(ctx context.Context) ([]string, error) {
	return r.queries.ListSummaryOwners(ctx)
}

func rowToSummary(row generated.AccountSummary) *domain.AccountSummary {
	return &domain.AccountSummary{
		OwnerID:             row.OwnerID,
		TotalBalance:        numericToDecimal(row.TotalBalance),
		TotalCards:          row.TotalCards,
		ActiveCards:         row.ActiveCards,
		TotalTransactions:   row.TotalTransactions,
		TotalCredited:       numericToDecimal(row.TotalCredited),
		TotalDebited:        numericToDecimal(row.TotalDebited),
		LastTransactionDate: pgTimestamptzToTimePtr(row.LastTransactionDate),
		UpdatedAt:           row.UpdatedAt.Time.UTC(),
	}
}
