package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/cardledger/internal/domain"
	"github.com/iho/cardledger/internal/infrastructure/metrics"
)

// LedgerUseCase applies credits and debits to cards and records them.
type LedgerUseCase struct {
	txManager       TransactionManager
	cardRepo        CardRepository
	transactionRepo TransactionRepository
	outboxRepo      OutboxRepository
	cards           CardRegistry
	summaries       SummaryAggregator
	idGen           IDGenerator
	refGen          ReferenceGenerator
	retrier         Retrier
	clock           Clock
	metrics         *metrics.Metrics
	logger          zerolog.Logger
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(
	txManager TransactionManager,
	cardRepo CardRepository,
	transactionRepo TransactionRepository,
	outboxRepo OutboxRepository,
	cards CardRegistry,
	summaries SummaryAggregator,
	idGen IDGenerator,
	refGen ReferenceGenerator,
	retrier Retrier,
	clock Clock,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *LedgerUseCase {
	if clock == nil {
		clock = SystemClock()
	}

	return &LedgerUseCase{
		txManager:       txManager,
		cardRepo:        cardRepo,
		transactionRepo: transactionRepo,
		outboxRepo:      outboxRepo,
		cards:           cards,
		summaries:       summaries,
		idGen:           idGen,
		refGen:          refGen,
		retrier:         retrier,
		clock:           clock,
		metrics:         metrics,
		logger:          logger.With().Str("component", "ledger").Logger(),
	}
}

// ProcessTransactionInput represents a requested balance movement.
type ProcessTransactionInput struct {
	CardID      string
	OwnerID     string
	Type        domain.TransactionType
	Amount      decimal.Decimal
	Description string
}

// ProcessTransaction validates and applies a credit or debit to the owner's
// card in one unit of work.
//
// A debit exceeding the balance is recorded as a FAILED transaction and
// reported as domain.ErrInsufficientFunds with no transaction returned. The
// card's balance is attached to balance-related errors; see domain.BalanceOf.
func (uc *LedgerUseCase) ProcessTransaction(ctx context.Context, input ProcessTransactionInput) (*domain.Transaction, error) {
	start := time.Now()

	txn, err := uc.process(ctx, input)
	if err != nil {
		uc.countError(err)
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.TransactionsProcessed.WithLabelValues(string(txn.Type), string(txn.Status)).Inc()
		uc.metrics.TransactionDuration.Observe(time.Since(start).Seconds())
		uc.metrics.TransactionAmount.WithLabelValues(string(txn.Type)).Observe(txn.Amount.InexactFloat64())
	}

	uc.logger.Debug().
		Str("transaction_id", txn.ID).
		Str("card_id", txn.CardID).
		Str("reference", txn.Reference).
		Str("type", string(txn.Type)).
		Str("amount", txn.Amount.StringFixed(2)).
		Msg("transaction completed")

	return txn, nil
}

func (uc *LedgerUseCase) process(ctx context.Context, input ProcessTransactionInput) (*domain.Transaction, error) {
	// 0. Validate inputs before touching storage
	if err := domain.ValidateOwnerID(input.OwnerID); err != nil {
		return nil, err
	}

	if err := domain.ValidateCardID(input.CardID); err != nil {
		return nil, err
	}

	txType, err := domain.ParseTransactionType(string(input.Type))
	if err != nil {
		return nil, err
	}

	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	description, err := domain.ValidateDescription(input.Description)
	if err != nil {
		return nil, err
	}

	// 1. Eligibility, resolving expiry
	card, err := uc.cards.CheckEligible(ctx, input.CardID)
	if err != nil {
		return nil, err
	}

	if card.OwnerID != input.OwnerID {
		return nil, domain.ErrCardNotFound
	}

	if !card.IsActive() {
		return nil, notActive(card)
	}

	// 2. Locked apply; collisions and deadlocks rerun the whole unit
	var txn *domain.Transaction

	err = uc.retrier.Retry(ctx, func() error {
		var applyErr error
		txn, applyErr = uc.apply(ctx, card.ID, card.OwnerID, txType, input.Amount, description)
		return applyErr
	})
	if err != nil {
		return nil, domain.StorageFault(err)
	}

	uc.summaries.Invalidate(ctx, card.OwnerID)

	return txn, nil
}

func (uc *LedgerUseCase) apply(
	ctx context.Context,
	cardID, ownerID string,
	txType domain.TransactionType,
	amount decimal.Decimal,
	description string,
) (*domain.Transaction, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	// Lock the card and re-read its state
	card, err := uc.cardRepo.GetByIDForUpdate(txCtx, tx, cardID)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now()

	if !card.IsActive() || card.IsExpiredAt(now) {
		return nil, notActive(card)
	}

	txn := &domain.Transaction{
		ID:          uc.idGen.Generate(),
		CardID:      card.ID,
		Reference:   uc.refGen.Next(),
		Description: description,
		Type:        txType,
		Status:      domain.TransactionStatusPending,
		Amount:      amount,
		CreatedAt:   now,
	}

	newBalance, err := card.Apply(txType, amount)
	if errors.Is(err, domain.ErrInsufficientFunds) {
		return nil, uc.recordFailure(txCtx, tx, card, txn)
	}

	if err != nil {
		return nil, err
	}

	balanceBefore := card.Balance

	if err := uc.cardRepo.UpdateBalance(txCtx, tx, card.ID, newBalance, now); err != nil {
		return nil, err
	}

	txn.Status = domain.TransactionStatusCompleted
	txn.BalanceBefore = &balanceBefore
	txn.BalanceAfter = &newBalance

	if err := uc.transactionRepo.Create(txCtx, tx, txn); err != nil {
		return nil, err
	}

	if _, err := uc.summaries.Refresh(txCtx, tx, ownerID); err != nil {
		return nil, err
	}

	if err := uc.outboxRepo.Create(txCtx, tx, domain.NewTransactionEvent(uc.idGen.Generate(), txn, ownerID)); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return txn, nil
}

// recordFailure commits a FAILED audit record for a debit the balance cannot
// cover and returns the InsufficientFunds error for the caller.
func (uc *LedgerUseCase) recordFailure(ctx context.Context, tx Transaction, card *domain.Card, txn *domain.Transaction) error {
	txn.Status = domain.TransactionStatusFailed

	if err := uc.transactionRepo.Create(ctx, tx, txn); err != nil {
		return err
	}

	if err := uc.outboxRepo.Create(ctx, tx, domain.NewTransactionEvent(uc.idGen.Generate(), txn, card.OwnerID)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	if uc.metrics != nil {
		uc.metrics.TransactionsProcessed.WithLabelValues(string(txn.Type), string(txn.Status)).Inc()
	}

	uc.logger.Info().
		Str("transaction_id", txn.ID).
		Str("card_id", card.ID).
		Str("reference", txn.Reference).
		Str("amount", txn.Amount.StringFixed(2)).
		Str("balance", card.Balance.StringFixed(2)).
		Msg("debit declined for insufficient funds")

	return domain.WithBalance(
		fmt.Errorf("%w: requested %s", domain.ErrInsufficientFunds, txn.Amount.StringFixed(2)),
		card.Balance,
	)
}

// ListTransactions lists the owner's transactions, newest first.
func (uc *LedgerUseCase) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	if err := domain.ValidateOwnerID(filter.OwnerID); err != nil {
		return nil, err
	}

	if filter.CardID != "" {
		card, err := uc.cardRepo.GetByID(ctx, filter.CardID)
		if err != nil {
			return nil, domain.StorageFault(err)
		}

		if card.OwnerID != filter.OwnerID {
			return nil, domain.ErrCardNotFound
		}
	}

	filter.Limit, filter.Offset = domain.ValidatePagination(filter.Limit, filter.Offset)

	txns, err := uc.transactionRepo.List(ctx, filter)
	if err != nil {
		return nil, domain.StorageFault(err)
	}

	return txns, nil
}

// GetTransaction returns one of the owner's transactions.
func (uc *LedgerUseCase) GetTransaction(ctx context.Context, id, ownerID string) (*domain.Transaction, error) {
	if err := domain.ValidateOwnerID(ownerID); err != nil {
		return nil, err
	}

	txn, err := uc.transactionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.StorageFault(err)
	}

	card, err := uc.cardRepo.GetByID(ctx, txn.CardID)
	if err != nil {
		return nil, domain.StorageFault(err)
	}

	if card.OwnerID != ownerID {
		return nil, domain.ErrTransactionNotFound
	}

	return txn, nil
}

func (uc *LedgerUseCase) countError(err error) {
	kind := domain.KindOf(err)

	if uc.metrics != nil {
		uc.metrics.LedgerErrors.WithLabelValues("process_transaction", string(kind)).Inc()
	}

	switch kind {
	case domain.KindStorageFault:
		uc.logger.Error().Err(err).Msg("transaction processing failed")
	case domain.KindConcurrencyConflict:
		uc.logger.Warn().Err(err).Msg("transaction lock wait exceeded")
	}
}

func notActive(card *domain.Card) error {
	return domain.WithBalance(
		fmt.Errorf("%w: card is %s", domain.ErrCardNotActive, card.Status),
		card.Balance,
	)
}
