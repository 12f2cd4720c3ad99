package memory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iho/cardledger/internal/domain"
	"github.com/iho/cardledger/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	store *Store
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(store *Store) *TransactionRepository {
	return &TransactionRepository{store: store}
}

// Create stages a transaction record. Reference uniqueness is checked again at commit.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}

	r.store.mu.RLock()
	_, taken := r.store.references[txn.Reference]
	r.store.mu.RUnlock()

	if taken {
		return domain.ErrDuplicateReference
	}

	for _, staged := range t.txns {
		if staged.Reference == txn.Reference {
			return domain.ErrDuplicateReference
		}
	}

	t.txns = append(t.txns, cloneTransaction(txn))

	return nil
}

// GetByID retrieves a committed transaction by ID.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	txn, ok := r.store.transactions[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}

	return cloneTransaction(txn), nil
}

// List returns the owner's transactions matching filter, newest first.
func (r *TransactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]*domain.Transaction, 0)
	skipped := 0

	for i := len(r.store.txnOrder) - 1; i >= 0; i-- {
		txn := r.store.txnOrder[i]

		card, ok := r.store.cards[txn.CardID]
		if !ok || card.OwnerID != filter.OwnerID || !filter.Matches(txn) {
			continue
		}

		if skipped < filter.Offset {
			skipped++
			continue
		}

		result = append(result, cloneTransaction(txn))

		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}

	return result, nil
}

// SumCompletedByCard totals the COMPLETED credits and debits of a card.
func (r *TransactionRepository) SumCompletedByCard(ctx context.Context, cardID string) (decimal.Decimal, decimal.Decimal, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	credited, debited := decimal.Zero, decimal.Zero

	for _, txn := range r.store.byCard[cardID] {
		if txn.Status != domain.TransactionStatusCompleted {
			continue
		}

		switch txn.Type {
		case domain.TransactionTypeCredit:
			credited = credited.Add(txn.Amount)
		case domain.TransactionTypeDebit:
			debited = debited.Add(txn.Amount)
		}
	}

	return credited, debited, nil
}

func cloneTransaction(txn *domain.Transaction) *domain.Transaction {
	c := *txn

	if txn.BalanceBefore != nil {
		b := *txn.BalanceBefore
		c.BalanceBefore = &b
	}

	if txn.BalanceAfter != nil {
		a := *txn.BalanceAfter
		c.BalanceAfter = &a
	}

	return &c
}
