package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/cardledger/internal/domain"
	"github.com/iho/cardledger/internal/infrastructure/postgres/generated"
	"github.com/iho/cardledger/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	queries *generated.Queries
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db generated.DBTX) *TransactionRepository {
	return &TransactionRepository{
		queries: generated.New(db),
	}
}

// Create records a transaction within a transaction.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	queries := generated.New(tx.(*Tx).PgxTx())

	err := queries.CreateTransaction(ctx, generated.CreateTransactionParams{
		ID:            txn.ID,
		CardID:        txn.CardID,
		Type:          string(txn.Type),
		Amount:        decimalToNumeric(txn.Amount),
		Status:        string(txn.Status),
		Reference:     txn.Reference,
		BalanceBefore: decimalPtrToNumeric(txn.BalanceBefore),
		BalanceAfter:  decimalPtrToNumeric(txn.BalanceAfter),
		Description:   txn.Description,
		CreatedAt:     timeToPgTimestamptz(txn.CreatedAt),
	})

	return mapError(err)
}

// GetByID retrieves a transaction by ID.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	row, err := r.queries.GetTransactionByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}

		return nil, err
	}

	return rowToTransaction(row), nil
}

// List returns the owner's transactions matching filter, newest first.
func (r *TransactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	rows, err := r.queries.ListTransactionsByOwner(ctx, generated.ListTransactionsByOwnerParams{
		OwnerID: filter.OwnerID,
		CardID:  filter.CardID,
		Status:  string(filter.Status),
		Type:    string(filter.Type),
		Limit:   int32(filter.Limit),
		Offset:  int32(filter.Offset),
	})
	if err != nil {
		return nil, err
	}

	txns := make([]*domain.Transaction, 0, len(rows))
	for _, row := range rows {
		txns = append(txns, rowToTransaction(row))
	}

	return txns, nil
}

// SumCompletedByCard totals the card's COMPLETED credits and debits.
func (r *TransactionRepository) SumCompletedByCard(ctx context.Context, cardID string) (decimal.Decimal, decimal.Decimal, error) {
	row, err := r.queries.SumCompletedByCard(ctx, cardID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	return numericToDecimal(row.Credited), numericToDecimal(row.Debited), nil
}

func rowToTransaction(row generated.Transaction) *domain.Transaction {
	return &domain.Transaction{
		ID:            row.ID,
		CardID:        row.CardID,
		Reference:     row.Reference,
		Description:   row.Description,
		Type:          domain.TransactionType(row.Type),
		Status:        domain.TransactionStatus(row.Status),
		Amount:        numericToDecimal(row.Amount),
		BalanceBefore: numericToDecimalPtr(row.BalanceBefore),
		BalanceAfter:  numericToDecimalPtr(row.BalanceAfter),
		CreatedAt:     row.CreatedAt.Time.UTC(),
	}
}
