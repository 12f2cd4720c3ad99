package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/cardledger/internal/domain"
	"github.com/iho/cardledger/internal/infrastructure/postgres/generated"
	"github.com/iho/cardledger/internal/usecase"
)

// CardRepository implements usecase.CardRepository.
type CardRepository struct {
	queries *generated.Queries
}

// NewCardRepository creates a new CardRepository. db is usually a
// *pgxpool.Pool.
func NewCardRepository(db generated.DBTX) *CardRepository {
	return &CardRepository{
		queries: generated.New(db),
	}
}

// Create inserts a card within a transaction.
func (r *CardRepository) Create(ctx context.Context, tx usecase.Transaction, card *domain.Card) error {
	queries := generated.New(tx.(*Tx).PgxTx())

	err := queries.CreateCard(ctx, generated.CreateCardParams{
		ID:             card.ID,
		OwnerID:        card.OwnerID,
		CardNumber:     card.Number,
		HolderName:     card.HolderName,
		ExpiryDate:     timeToPgDate(card.ExpiryDate),
		Cvv:            card.CVV,
		InitialBalance: decimalToNumeric(card.InitialBalance),
		Balance:        decimalToNumeric(card.Balance),
		Status:         string(card.Status),
		CreatedAt:      timeToPgTimestamptz(card.CreatedAt),
		UpdatedAt:      timeToPgTimestamptz(card.UpdatedAt),
	})

	return mapError(err)
}

// GetByID retrieves a card by ID.
func (r *CardRepository) GetByID(ctx context.Context, id string) (*domain.Card, error) {
	row, err := r.queries.GetCardByID(ctx, id)
	if err != nil {
		return nil, cardError(err)
	}

	return rowToCard(row), nil
}

// GetByIDForUpdate retrieves a card with a row lock held until tx ends.
func (r *CardRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Card, error) {
	queries := generated.New(tx.(*Tx).PgxTx())

	row, err := queries.GetCardByIDForUpdate(ctx, id)
	if err != nil {
		return nil, cardError(err)
	}

	return rowToCard(row), nil
}

// UpdateBalance sets the card's balance within a transaction.
func (r *CardRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, id string, balance decimal.Decimal, at time.Time) error {
	queries := generated.New(tx.(*Tx).PgxTx())

	n, err := queries.UpdateCardBalance(ctx, generated.UpdateCardBalanceParams{
		ID:        id,
		Balance:   decimalToNumeric(balance),
		UpdatedAt: timeToPgTimestamptz(at),
	})
	if err != nil {
		return mapError(err)
	}

	if n == 0 {
		return domain.ErrCardNotFound
	}

	return nil
}

// UpdateStatus sets the card's status within a transaction.
func (r *CardRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.CardStatus, at time.Time) error {
	queries := generated.New(tx.(*Tx).PgxTx())

	n, err := queries.UpdateCardStatus(ctx, generated.UpdateCardStatusParams{
		ID:        id,
		Status:    string(status),
		UpdatedAt: timeToPgTimestamptz(at),
	})
	if err != nil {
		return mapError(err)
	}

	if n == 0 {
		return domain.ErrCardNotFound
	}

	return nil
}

// ListByOwner lists an owner's cards, newest first. An empty status lists
// every card.
func (r *CardRepository) ListByOwner(ctx context.Context, ownerID string, status domain.CardStatus) ([]*domain.Card, error) {
	rows, err := r.queries.ListCardsByOwner(ctx, generated.ListCardsByOwnerParams{
		OwnerID: ownerID,
		Status:  string(status),
	})
	if err != nil {
		return nil, err
	}

	cards := make([]*domain.Card, 0, len(rows))
	for _, row := range rows {
		cards = append(cards, rowToCard(row))
	}

	return cards, nil
}

func cardError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrCardNotFound
	}

	return mapError(err)
}

func rowToCard(row generated.Card) *domain.Card {
	return &domain.Card{
		ID:             row.ID,
		OwnerID:        row.OwnerID,
		Number:         row.CardNumber,
		HolderName:     row.HolderName,
		ExpiryDate:     pgDateToTime(row.ExpiryDate),
		CVV:            row.Cvv,
		InitialBalance: numericToDecimal(row.InitialBalance),
		Balance:        numericToDecimal(row.Balance),
		Status:         domain.CardStatus(row.Status),
		CreatedAt:      row.CreatedAt.Time.UTC(),
		UpdatedAt:      row.UpdatedAt.Time.UTC(),
	}
}
