package memory

import (
	"context"
	"time"

	"github.com/iho/cardledger/internal/domain"
	"github.com/iho/cardledger/internal/usecase"
)

// SummaryRepository implements usecase.SummaryRepository.
type SummaryRepository struct {
	store *Store
}

// NewSummaryRepository creates a new SummaryRepository.
func NewSummaryRepository(store *Store) *SummaryRepository {
	return &SummaryRepository{store: store}
}

// GetByOwner retrieves the committed summary of an owner.
func (r *SummaryRepository) GetByOwner(ctx context.Context, ownerID string) (*domain.AccountSummary, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	summary, ok := r.store.summaries[ownerID]
	if !ok {
		return nil, domain.ErrSummaryNotFound
	}

	return cloneSummary(summary), nil
}

// LockForUpdate locks the owner's summary, staging an empty one if none exists.
func (r *SummaryRepository) LockForUpdate(ctx context.Context, tx usecase.Transaction, ownerID string, now time.Time) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}

	if err := t.lock(ctx, summaryLockKey(ownerID)); err != nil {
		return err
	}

	if _, ok := t.summaries[ownerID]; ok {
		return nil
	}

	r.store.mu.RLock()
	_, exists := r.store.summaries[ownerID]
	r.store.mu.RUnlock()

	if !exists {
		summary := domain.NewAccountSummary(ownerID)
		summary.UpdatedAt = now
		t.summaries[ownerID] = summary
	}

	return nil
}

// Recompute derives the owner's summary from the cards and transactions tx sees.
func (r *SummaryRepository) Recompute(ctx context.Context, tx usecase.Transaction, ownerID string, now time.Time) (*domain.AccountSummary, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}

	r.store.mu.RLock()

	cards := make(map[string]*domain.Card)
	for id, card := range r.store.cards {
		if card.OwnerID == ownerID {
			cards[id] = card
		}
	}

	var txns []*domain.Transaction
	for id := range cards {
		txns = append(txns, r.store.byCard[id]...)
	}

	r.store.mu.RUnlock()

	for id, card := range t.cards {
		if card.OwnerID == ownerID {
			cards[id] = card
		}
	}

	for _, txn := range t.txns {
		if _, ok := cards[txn.CardID]; ok {
			txns = append(txns, txn)
		}
	}

	list := make([]*domain.Card, 0, len(cards))
	for _, id := range sortedKeys(cards) {
		list = append(list, cards[id])
	}

	return domain.ComputeSummary(ownerID, list, txns, now), nil
}

// Save stages the owner's summary.
func (r *SummaryRepository) Save(ctx context.Context, tx usecase.Transaction, summary *domain.AccountSummary) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}

	if err := t.lock(ctx, summaryLockKey(summary.OwnerID)); err != nil {
		return err
	}

	t.summaries[summary.OwnerID] = cloneSummary(summary)

	return nil
}

// ListOwners lists every owner with a stored summary.
func (r *SummaryRepository) ListOwners(ctx context.Context) ([]string, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return sortedKeys(r.store.summaries), nil
}

func cloneSummary(s *domain.AccountSummary) *domain.AccountSummary {
	c := *s

	if s.LastTransactionDate != nil {
		d := *s.LastTransactionDate
		c.LastTransactionDate = &d
	}

	return &c
}
