package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/iho/cardledger/internal/domain"
	"github.com/iho/cardledger/internal/usecase"
	"github.com/iho/cardledger/internal/usecase/mocks"
)

type ledgerFixture struct {
	txManager *mocks.MockTransactionManager
	tx        *mocks.MockTransaction
	cardRepo  *mocks.MockCardRepository
	txnRepo   *mocks.MockTransactionRepository
	outbox    *mocks.MockOutboxRepository
	registry  *mocks.MockCardRegistry
	summaries *mocks.MockSummaryAggregator
	refs      *mocks.MockReferenceGenerator
	uc        *usecase.LedgerUseCase
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	ctrl := gomock.NewController(t)

	f := &ledgerFixture{
		txManager: mocks.NewMockTransactionManager(ctrl),
		tx:        mocks.NewMockTransaction(ctrl),
		cardRepo:  mocks.NewMockCardRepository(ctrl),
		txnRepo:   mocks.NewMockTransactionRepository(ctrl),
		outbox:    mocks.NewMockOutboxRepository(ctrl),
		registry:  mocks.NewMockCardRegistry(ctrl),
		summaries: mocks.NewMockSummaryAggregator(ctrl),
		refs:      mocks.NewMockReferenceGenerator(ctrl),
	}

	f.tx.EXPECT().Rollback(gomock.Any()).Return(nil).AnyTimes()

	f.uc = usecase.NewLedgerUseCase(
		f.txManager, f.cardRepo, f.txnRepo, f.outbox, f.registry, f.summaries,
		&seqIDs{}, f.refs, retryCollisions(ctrl), fixedClock{testNow}, nil, zerolog.Nop(),
	)

	return f
}

func (f *ledgerFixture) expectLockedCard(card *domain.Card) {
	f.registry.EXPECT().CheckEligible(gomock.Any(), card.ID).Return(card, nil)
	f.txManager.EXPECT().Begin(gomock.Any()).Return(f.tx, nil)
	locked := *card
	f.cardRepo.EXPECT().GetByIDForUpdate(gomock.Any(), f.tx, card.ID).Return(&locked, nil)
}

func TestLedgerUseCase_ProcessCredit(t *testing.T) {
	f := newLedgerFixture(t)
	f.expectLockedCard(activeCard("card-1", "owner-1", 100))

	f.refs.EXPECT().Next().Return("TXN0001")
	f.cardRepo.EXPECT().UpdateBalance(gomock.Any(), f.tx, "card-1", decimal.NewFromInt(150), testNow).Return(nil)
	f.txnRepo.EXPECT().Create(gomock.Any(), f.tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ usecase.Transaction, txn *domain.Transaction) error {
			if txn.Status != domain.TransactionStatusCompleted {
				t.Errorf("expected COMPLETED, got %s", txn.Status)
			}
			if !txn.BalanceBefore.Equal(decimal.NewFromInt(100)) || !txn.BalanceAfter.Equal(decimal.NewFromInt(150)) {
				t.Errorf("unexpected snapshots %s -> %s", txn.BalanceBefore, txn.BalanceAfter)
			}
			return nil
		})
	f.summaries.EXPECT().Refresh(gomock.Any(), f.tx, "owner-1").Return(domain.NewAccountSummary("owner-1"), nil)
	f.outbox.EXPECT().Create(gomock.Any(), f.tx, gomock.Any()).Return(nil)
	f.tx.EXPECT().Commit(gomock.Any()).Return(nil)
	f.summaries.EXPECT().Invalidate(gomock.Any(), "owner-1")

	txn, err := f.uc.ProcessTransaction(context.Background(), usecase.ProcessTransactionInput{
		CardID:      "card-1",
		OwnerID:     "owner-1",
		Type:        domain.TransactionTypeCredit,
		Amount:      decimal.NewFromInt(50),
		Description: "top up",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if txn.Reference != "TXN0001" || txn.Description != "top up" {
		t.Fatalf("unexpected transaction %+v", txn)
	}
}

func TestLedgerUseCase_InsufficientFundsRecordsFailure(t *testing.T) {
	f := newLedgerFixture(t)
	f.expectLockedCard(activeCard("card-1", "owner-1", 100))

	f.refs.EXPECT().Next().Return("TXN0002")
	f.txnRepo.EXPECT().Create(gomock.Any(), f.tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ usecase.Transaction, txn *domain.Transaction) error {
			if txn.Status != domain.TransactionStatusFailed {
				t.Errorf("expected FAILED, got %s", txn.Status)
			}
			if txn.BalanceBefore != nil || txn.BalanceAfter != nil {
				t.Errorf("failed records carry no snapshots")
			}
			return nil
		})
	f.outbox.EXPECT().Create(gomock.Any(), f.tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ usecase.Transaction, event *domain.OutboxEvent) error {
			if event.EventType != domain.EventTypeTransactionFailed {
				t.Errorf("expected transaction.failed, got %s", event.EventType)
			}
			return nil
		})
	f.tx.EXPECT().Commit(gomock.Any()).Return(nil)

	txn, err := f.uc.ProcessTransaction(context.Background(), usecase.ProcessTransactionInput{
		CardID:      "card-1",
		OwnerID:     "owner-1",
		Type:        domain.TransactionTypeDebit,
		Amount:      decimal.NewFromInt(150),
		Description: "laptop",
	})

	if txn != nil {
		t.Fatalf("expected no transaction, got %+v", txn)
	}

	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	balance, ok := domain.BalanceOf(err)
	if !ok || !balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected balance 100 attached, got %s (%v)", balance, ok)
	}
}

func TestLedgerUseCase_RejectsInactiveCard(t *testing.T) {
	f := newLedgerFixture(t)
	card := activeCard("card-1", "owner-1", 80)
	card.Status = domain.CardStatusBlocked

	f.registry.EXPECT().CheckEligible(gomock.Any(), "card-1").Return(card, nil)

	_, err := f.uc.ProcessTransaction(context.Background(), usecase.ProcessTransactionInput{
		CardID:      "card-1",
		OwnerID:     "owner-1",
		Type:        domain.TransactionTypeCredit,
		Amount:      decimal.NewFromInt(1),
		Description: "refund",
	})

	if domain.KindOf(err) != domain.KindCardNotActive {
		t.Fatalf("expected card not active, got %v", err)
	}

	if balance, ok := domain.BalanceOf(err); !ok || !balance.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("expected balance 80 attached, got %s", balance)
	}
}

func TestLedgerUseCase_BlockedWhileWaitingForLock(t *testing.T) {
	f := newLedgerFixture(t)
	card := activeCard("card-1", "owner-1", 80)
	locked := *card
	locked.Status = domain.CardStatusBlocked

	f.registry.EXPECT().CheckEligible(gomock.Any(), "card-1").Return(card, nil)
	f.txManager.EXPECT().Begin(gomock.Any()).Return(f.tx, nil)
	f.cardRepo.EXPECT().GetByIDForUpdate(gomock.Any(), f.tx, "card-1").Return(&locked, nil)

	_, err := f.uc.ProcessTransaction(context.Background(), usecase.ProcessTransactionInput{
		CardID:      "card-1",
		OwnerID:     "owner-1",
		Type:        domain.TransactionTypeDebit,
		Amount:      decimal.NewFromInt(1),
		Description: "coffee",
	})

	if !errors.Is(err, domain.ErrCardNotActive) {
		t.Fatalf("expected card not active, got %v", err)
	}
}

func TestLedgerUseCase_OtherOwnersCardIsNotFound(t *testing.T) {
	f := newLedgerFixture(t)

	f.registry.EXPECT().CheckEligible(gomock.Any(), "card-1").Return(activeCard("card-1", "owner-2", 80), nil)

	_, err := f.uc.ProcessTransaction(context.Background(), usecase.ProcessTransactionInput{
		CardID:      "card-1",
		OwnerID:     "owner-1",
		Type:        domain.TransactionTypeDebit,
		Amount:      decimal.NewFromInt(1),
		Description: "coffee",
	})

	if !errors.Is(err, domain.ErrCardNotFound) {
		t.Fatalf("expected card not found, got %v", err)
	}
}

func TestLedgerUseCase_Validation(t *testing.T) {
	valid := usecase.ProcessTransactionInput{
		CardID:      "card-1",
		OwnerID:     "owner-1",
		Type:        domain.TransactionTypeDebit,
		Amount:      decimal.NewFromInt(1),
		Description: "coffee",
	}

	tests := []struct {
		name   string
		mutate func(*usecase.ProcessTransactionInput)
	}{
		{"missing owner", func(in *usecase.ProcessTransactionInput) { in.OwnerID = "" }},
		{"missing card", func(in *usecase.ProcessTransactionInput) { in.CardID = "" }},
		{"bad type", func(in *usecase.ProcessTransactionInput) { in.Type = "REFUND" }},
		{"zero amount", func(in *usecase.ProcessTransactionInput) { in.Amount = decimal.Zero }},
		{"sub-cent amount", func(in *usecase.ProcessTransactionInput) { in.Amount = decimal.RequireFromString("0.001") }},
		{"over maximum", func(in *usecase.ProcessTransactionInput) { in.Amount = decimal.RequireFromString("1000000.01") }},
		{"blank description", func(in *usecase.ProcessTransactionInput) { in.Description = "  " }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLedgerFixture(t)
			input := valid
			tt.mutate(&input)

			_, err := f.uc.ProcessTransaction(context.Background(), input)
			if domain.KindOf(err) != domain.KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestLedgerUseCase_RetriesReferenceCollision(t *testing.T) {
	f := newLedgerFixture(t)
	card := activeCard("card-1", "owner-1", 100)

	f.registry.EXPECT().CheckEligible(gomock.Any(), "card-1").Return(card, nil)
	f.txManager.EXPECT().Begin(gomock.Any()).Return(f.tx, nil).Times(2)
	f.cardRepo.EXPECT().GetByIDForUpdate(gomock.Any(), f.tx, "card-1").DoAndReturn(
		func(context.Context, usecase.Transaction, string) (*domain.Card, error) {
			locked := *card
			return &locked, nil
		}).Times(2)
	gomock.InOrder(
		f.refs.EXPECT().Next().Return("TXNDUP"),
		f.refs.EXPECT().Next().Return("TXNFRESH"),
	)
	f.cardRepo.EXPECT().UpdateBalance(gomock.Any(), f.tx, "card-1", decimal.NewFromInt(90), testNow).Return(nil).Times(2)
	gomock.InOrder(
		f.txnRepo.EXPECT().Create(gomock.Any(), f.tx, gomock.Any()).Return(domain.ErrDuplicateReference),
		f.txnRepo.EXPECT().Create(gomock.Any(), f.tx, gomock.Any()).Return(nil),
	)
	f.summaries.EXPECT().Refresh(gomock.Any(), f.tx, "owner-1").Return(domain.NewAccountSummary("owner-1"), nil)
	f.outbox.EXPECT().Create(gomock.Any(), f.tx, gomock.Any()).Return(nil)
	f.tx.EXPECT().Commit(gomock.Any()).Return(nil)
	f.summaries.EXPECT().Invalidate(gomock.Any(), "owner-1")

	txn, err := f.uc.ProcessTransaction(context.Background(), usecase.ProcessTransactionInput{
		CardID:      "card-1",
		OwnerID:     "owner-1",
		Type:        domain.TransactionTypeDebit,
		Amount:      decimal.NewFromInt(10),
		Description: "coffee",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if txn.Reference != "TXNFRESH" {
		t.Fatalf("expected the regenerated reference, got %s", txn.Reference)
	}
}

func TestLedgerUseCase_StorageFaultIsGeneric(t *testing.T) {
	f := newLedgerFixture(t)

	f.registry.EXPECT().CheckEligible(gomock.Any(), "card-1").Return(activeCard("card-1", "owner-1", 100), nil)
	f.txManager.EXPECT().Begin(gomock.Any()).Return(nil, errors.New("connection refused"))

	_, err := f.uc.ProcessTransaction(context.Background(), usecase.ProcessTransactionInput{
		CardID:      "card-1",
		OwnerID:     "owner-1",
		Type:        domain.TransactionTypeCredit,
		Amount:      decimal.NewFromInt(1),
		Description: "top up",
	})

	if domain.KindOf(err) != domain.KindStorageFault || !errors.Is(err, domain.ErrStorageFault) {
		t.Fatalf("expected storage fault, got %v", err)
	}
}

func TestLedgerUseCase_ListTransactionsChecksCardOwner(t *testing.T) {
	f := newLedgerFixture(t)

	f.cardRepo.EXPECT().GetByID(gomock.Any(), "card-9").Return(activeCard("card-9", "owner-2", 0), nil)

	_, err := f.uc.ListTransactions(context.Background(), domain.TransactionFilter{OwnerID: "owner-1", CardID: "card-9"})
	if !errors.Is(err, domain.ErrCardNotFound) {
		t.Fatalf("expected card not found, got %v", err)
	}
}

func TestLedgerUseCase_ListTransactionsAppliesPaging(t *testing.T) {
	f := newLedgerFixture(t)

	f.txnRepo.EXPECT().List(gomock.Any(), domain.TransactionFilter{
		OwnerID: "owner-1",
		Status:  domain.TransactionStatusCompleted,
		Limit:   100,
	}).Return([]*domain.Transaction{}, nil)

	if _, err := f.uc.ListTransactions(context.Background(), domain.TransactionFilter{
		OwnerID: "owner-1",
		Status:  domain.TransactionStatusCompleted,
		Limit:   1000,
		Offset:  -3,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLedgerUseCase_GetTransactionOfAnotherOwner(t *testing.T) {
	f := newLedgerFixture(t)

	f.txnRepo.EXPECT().GetByID(gomock.Any(), "txn-1").Return(&domain.Transaction{ID: "txn-1", CardID: "card-1"}, nil)
	f.cardRepo.EXPECT().GetByID(gomock.Any(), "card-1").Return(activeCard("card-1", "owner-2", 0), nil)

	_, err := f.uc.GetTransaction(context.Background(), "txn-1", "owner-1")
	if !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Fatalf("expected transaction not found, got %v", err)
	}
}
