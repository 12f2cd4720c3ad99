package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/cardledger/internal/domain"
	"github.com/iho/cardledger/internal/usecase"
)

// CardRepository implements usecase.CardRepository.
type CardRepository struct {
	store *Store
}

// NewCardRepository creates a new CardRepository.
func NewCardRepository(store *Store) *CardRepository {
	return &CardRepository{store: store}
}

// Create stages a new card. Number uniqueness is checked again at commit.
func (r *CardRepository) Create(ctx context.Context, tx usecase.Transaction, card *domain.Card) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}

	r.store.mu.RLock()
	_, taken := r.store.cardNumbers[card.Number]
	r.store.mu.RUnlock()

	if taken {
		return domain.ErrDuplicateCardNumber
	}

	for id := range t.newCards {
		if t.cards[id].Number == card.Number {
			return domain.ErrDuplicateCardNumber
		}
	}

	c := *card
	t.cards[c.ID] = &c
	t.newCards[c.ID] = true

	return nil
}

// GetByID retrieves a committed card by ID.
func (r *CardRepository) GetByID(ctx context.Context, id string) (*domain.Card, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	card, ok := r.store.cards[id]
	if !ok {
		return nil, domain.ErrCardNotFound
	}

	c := *card

	return &c, nil
}

// GetByIDForUpdate locks the card for the rest of tx and returns its current state.
func (r *CardRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Card, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}

	if _, ok := t.card(id); !ok {
		return nil, domain.ErrCardNotFound
	}

	if err := t.lock(ctx, cardLockKey(id)); err != nil {
		return nil, err
	}

	card, _ := t.card(id)
	c := *card

	return &c, nil
}

// UpdateBalance stages a new balance for a card.
func (r *CardRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, id string, balance decimal.Decimal, updatedAt time.Time) error {
	return r.update(ctx, tx, id, func(c *domain.Card) {
		c.Balance = balance
		c.UpdatedAt = updatedAt
	})
}

// UpdateStatus stages a new status for a card.
func (r *CardRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.CardStatus, updatedAt time.Time) error {
	return r.update(ctx, tx, id, func(c *domain.Card) {
		c.Status = status
		c.UpdatedAt = updatedAt
	})
}

func (r *CardRepository) update(ctx context.Context, tx usecase.Transaction, id string, mutate func(*domain.Card)) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}

	if err := t.lock(ctx, cardLockKey(id)); err != nil {
		return err
	}

	card, ok := t.card(id)
	if !ok {
		return domain.ErrCardNotFound
	}

	c := *card
	mutate(&c)
	t.cards[id] = &c

	return nil
}

// ListByOwner lists committed cards of an owner, newest first.
func (r *CardRepository) ListByOwner(ctx context.Context, ownerID string, status domain.CardStatus) ([]*domain.Card, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	cards := make([]*domain.Card, 0)
	for _, card := range r.store.cards {
		if card.OwnerID != ownerID || (status != "" && card.Status != status) {
			continue
		}

		c := *card
		cards = append(cards, &c)
	}

	sortCards(cards)

	return cards, nil
}

func sortCards(cards []*domain.Card) {
	sort.Slice(cards, func(i, j int) bool {
		if !cards[i].CreatedAt.Equal(cards[j].CreatedAt) {
			return cards[i].CreatedAt.After(cards[j].CreatedAt)
		}

		return cards[i].ID > cards[j].ID
	})
}
