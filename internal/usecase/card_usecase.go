package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/cardledger/internal/domain"
	"github.com/iho/cardledger/internal/infrastructure/metrics"
)

// CardUseCase owns card issuance and the card status state machine.
type CardUseCase struct {
	txManager     TransactionManager
	cardRepo      CardRepository
	outboxRepo    OutboxRepository
	summaries     SummaryAggregator
	issuer        CardIssuer
	idGen         IDGenerator
	retrier       Retrier
	clock         Clock
	validityYears int
	metrics       *metrics.Metrics
	logger        zerolog.Logger
}

// NewCardUseCase creates a new CardUseCase.
func NewCardUseCase(
	txManager TransactionManager,
	cardRepo CardRepository,
	outboxRepo OutboxRepository,
	summaries SummaryAggregator,
	issuer CardIssuer,
	idGen IDGenerator,
	retrier Retrier,
	clock Clock,
	validityYears int,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *CardUseCase {
	if clock == nil {
		clock = SystemClock()
	}

	if validityYears <= 0 {
		validityYears = DefaultCardValidityYears
	}

	return &CardUseCase{
		txManager:     txManager,
		cardRepo:      cardRepo,
		outboxRepo:    outboxRepo,
		summaries:     summaries,
		issuer:        issuer,
		idGen:         idGen,
		retrier:       retrier,
		clock:         clock,
		validityYears: validityYears,
		metrics:       metrics,
		logger:        logger.With().Str("component", "cards").Logger(),
	}
}

// CreateCardInput represents input for issuing a card.
type CreateCardInput struct {
	OwnerID        string
	HolderName     string
	InitialBalance decimal.Decimal
}

// CreateCard issues a new ACTIVE card and folds it into the owner's summary.
func (uc *CardUseCase) CreateCard(ctx context.Context, input CreateCardInput) (*domain.Card, error) {
	if err := domain.ValidateOwnerID(input.OwnerID); err != nil {
		return nil, err
	}

	holderName, err := domain.ValidateHolderName(input.HolderName)
	if err != nil {
		return nil, err
	}

	if err := domain.ValidateInitialBalance(input.InitialBalance); err != nil {
		return nil, err
	}

	var card *domain.Card

	err = uc.retrier.Retry(ctx, func() error {
		var issueErr error
		card, issueErr = uc.issue(ctx, input.OwnerID, holderName, input.InitialBalance)
		return issueErr
	})
	if err != nil {
		uc.countError("create_card", err)
		return nil, domain.StorageFault(err)
	}

	uc.summaries.Invalidate(ctx, card.OwnerID)

	if uc.metrics != nil {
		uc.metrics.CardsCreated.Inc()
	}

	uc.logger.Info().
		Str("card_id", card.ID).
		Str("owner_id", card.OwnerID).
		Str("masked_number", card.MaskedNumber()).
		Msg("card issued")

	return card, nil
}

func (uc *CardUseCase) issue(ctx context.Context, ownerID, holderName string, balance decimal.Decimal) (*domain.Card, error) {
	number, err := uc.issuer.NewNumber()
	if err != nil {
		return nil, fmt.Errorf("generate card number: %w", err)
	}

	cvv, err := uc.issuer.NewCVV()
	if err != nil {
		return nil, fmt.Errorf("generate cvv: %w", err)
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	now := uc.clock.Now()
	card := &domain.Card{
		ID:             uc.idGen.Generate(),
		OwnerID:        ownerID,
		Number:         number,
		HolderName:     holderName,
		ExpiryDate:     domain.ExpiryFrom(now, uc.validityYears),
		CVV:            cvv,
		InitialBalance: balance,
		Balance:        balance,
		Status:         domain.CardStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := uc.cardRepo.Create(txCtx, tx, card); err != nil {
		return nil, err
	}

	if _, err := uc.summaries.Refresh(txCtx, tx, ownerID); err != nil {
		return nil, err
	}

	event := domain.NewCardEvent(uc.idGen.Generate(), domain.EventTypeCardCreated, card, now)
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return card, nil
}

// CheckEligible loads a card and resolves its expiry. A card whose expiry
// date has been reached is persisted as EXPIRED before it is returned.
func (uc *CardUseCase) CheckEligible(ctx context.Context, cardID string) (*domain.Card, error) {
	if err := domain.ValidateCardID(cardID); err != nil {
		return nil, err
	}

	card, err := uc.cardRepo.GetByID(ctx, cardID)
	if err != nil {
		return nil, domain.StorageFault(err)
	}

	if card.Status == domain.CardStatusExpired || !card.IsExpiredAt(uc.clock.Now()) {
		return card, nil
	}

	expired, err := uc.expire(ctx, cardID)
	if err != nil {
		uc.countError("expire_card", err)
		return nil, domain.StorageFault(err)
	}

	return expired, nil
}

func (uc *CardUseCase) expire(ctx context.Context, cardID string) (*domain.Card, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	card, err := uc.cardRepo.GetByIDForUpdate(txCtx, tx, cardID)
	if err != nil {
		return nil, err
	}

	if !card.Expire() {
		// Expired by a concurrent caller.
		return card, nil
	}

	now := uc.clock.Now()
	card.UpdatedAt = now

	if err := uc.cardRepo.UpdateStatus(txCtx, tx, card.ID, card.Status, now); err != nil {
		return nil, err
	}

	if _, err := uc.summaries.Refresh(txCtx, tx, card.OwnerID); err != nil {
		return nil, err
	}

	event := domain.NewCardEvent(uc.idGen.Generate(), domain.EventTypeCardExpired, card, now)
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	uc.summaries.Invalidate(ctx, card.OwnerID)
	uc.countTransition(card.Status)

	uc.logger.Info().Str("card_id", card.ID).Time("expiry_date", card.ExpiryDate).Msg("card expired")

	return card, nil
}

// BlockCard moves the owner's ACTIVE card to BLOCKED.
func (uc *CardUseCase) BlockCard(ctx context.Context, cardID, ownerID string) (*domain.Card, error) {
	return uc.transition(ctx, cardID, ownerID, "block_card", (*domain.Card).Block, domain.EventTypeCardBlocked)
}

// UnblockCard moves the owner's BLOCKED card back to ACTIVE.
func (uc *CardUseCase) UnblockCard(ctx context.Context, cardID, ownerID string) (*domain.Card, error) {
	return uc.transition(ctx, cardID, ownerID, "unblock_card", (*domain.Card).Unblock, domain.EventTypeCardUnblocked)
}

func (uc *CardUseCase) transition(
	ctx context.Context,
	cardID, ownerID, operation string,
	apply func(*domain.Card) error,
	eventType string,
) (*domain.Card, error) {
	if err := domain.ValidateOwnerID(ownerID); err != nil {
		return nil, err
	}

	// Resolves expiry first so an expired card reports InvalidTransition.
	if _, err := uc.GetCard(ctx, cardID, ownerID); err != nil {
		return nil, err
	}

	card, err := uc.applyTransition(ctx, cardID, ownerID, apply, eventType)
	if err != nil {
		uc.countError(operation, err)
		return nil, domain.StorageFault(err)
	}

	uc.summaries.Invalidate(ctx, ownerID)
	uc.countTransition(card.Status)

	uc.logger.Info().Str("card_id", card.ID).Str("status", string(card.Status)).Msg("card status changed")

	return card, nil
}

func (uc *CardUseCase) applyTransition(
	ctx context.Context,
	cardID, ownerID string,
	apply func(*domain.Card) error,
	eventType string,
) (*domain.Card, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	card, err := uc.cardRepo.GetByIDForUpdate(txCtx, tx, cardID)
	if err != nil {
		return nil, err
	}

	if card.OwnerID != ownerID {
		return nil, domain.ErrCardNotFound
	}

	if err := apply(card); err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	card.UpdatedAt = now

	if err := uc.cardRepo.UpdateStatus(txCtx, tx, card.ID, card.Status, now); err != nil {
		return nil, err
	}

	if _, err := uc.summaries.Refresh(txCtx, tx, ownerID); err != nil {
		return nil, err
	}

	event := domain.NewCardEvent(uc.idGen.Generate(), eventType, card, now)
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return card, nil
}

// GetCard returns the owner's card. Cards of other owners are reported as
// not found.
func (uc *CardUseCase) GetCard(ctx context.Context, cardID, ownerID string) (*domain.Card, error) {
	if err := domain.ValidateOwnerID(ownerID); err != nil {
		return nil, err
	}

	card, err := uc.CheckEligible(ctx, cardID)
	if err != nil {
		return nil, err
	}

	if card.OwnerID != ownerID {
		return nil, domain.ErrCardNotFound
	}

	return card, nil
}

// ListCards lists the owner's cards, optionally narrowed to one status.
// Expiry is resolved for every card returned.
func (uc *CardUseCase) ListCards(ctx context.Context, ownerID string, status domain.CardStatus) ([]*domain.Card, error) {
	if err := domain.ValidateOwnerID(ownerID); err != nil {
		return nil, err
	}

	cards, err := uc.cardRepo.ListByOwner(ctx, ownerID, "")
	if err != nil {
		return nil, domain.StorageFault(err)
	}

	now := uc.clock.Now()
	result := make([]*domain.Card, 0, len(cards))

	for _, card := range cards {
		if card.Status != domain.CardStatusExpired && card.IsExpiredAt(now) {
			card, err = uc.CheckEligible(ctx, card.ID)
			if err != nil {
				return nil, err
			}
		}

		if status != "" && card.Status != status {
			continue
		}

		result = append(result, card)
	}

	return result, nil
}

func (uc *CardUseCase) countTransition(status domain.CardStatus) {
	if uc.metrics != nil {
		uc.metrics.CardTransitions.WithLabelValues(string(status)).Inc()
	}
}

func (uc *CardUseCase) countError(operation string, err error) {
	if uc.metrics != nil {
		uc.metrics.LedgerErrors.WithLabelValues(operation, string(domain.KindOf(err))).Inc()
	}

	if domain.KindOf(err) == domain.KindStorageFault {
		uc.logger.Error().Err(err).Str("operation", operation).Msg("card operation failed")
	}
}

var _ CardRegistry = (*CardUseCase)(nil)

