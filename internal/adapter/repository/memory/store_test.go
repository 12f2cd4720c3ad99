package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/cardledger/internal/domain"
)

func newCard(id, owner, number string, balance int64) *domain.Card {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	return &domain.Card{
		ID:             id,
		OwnerID:        owner,
		Number:         number,
		HolderName:     "JANE DOE",
		ExpiryDate:     domain.ExpiryFrom(now, 3),
		CVV:            "123",
		InitialBalance: decimal.NewFromInt(balance),
		Balance:        decimal.NewFromInt(balance),
		Status:         domain.CardStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func seedCard(t *testing.T, store *Store, card *domain.Card) {
	t.Helper()

	ctx := context.Background()
	tx, err := NewTxManager(store).Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, NewCardRepository(store).Create(ctx, tx, card))
	require.NoError(t, tx.Commit(ctx))
}

func TestCommitMakesStagedWritesVisible(t *testing.T) {
	store := NewStore(time.Second)
	cards := NewCardRepository(store)
	ctx := context.Background()

	tx, err := NewTxManager(store).Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, cards.Create(ctx, tx, newCard("c1", "o1", "4000000000000002", 100)))

	_, err = cards.GetByID(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrCardNotFound, "uncommitted card must not be visible")

	require.NoError(t, tx.Commit(ctx))

	card, err := cards.GetByID(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, card.Balance.Equal(decimal.NewFromInt(100)))
}

func TestRollbackDiscardsWritesAndReleasesLocks(t *testing.T) {
	store := NewStore(100 * time.Millisecond)
	seedCard(t, store, newCard("c1", "o1", "4000000000000002", 100))

	cards := NewCardRepository(store)
	mgr := NewTxManager(store)
	ctx := context.Background()

	tx, err := mgr.Begin(ctx)
	require.NoError(t, err)

	_, err = cards.GetByIDForUpdate(ctx, tx, "c1")
	require.NoError(t, err)
	require.NoError(t, cards.UpdateBalance(ctx, tx, "c1", decimal.NewFromInt(5), time.Now()))
	require.NoError(t, tx.Rollback(ctx))

	card, err := cards.GetByID(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, card.Balance.Equal(decimal.NewFromInt(100)))

	tx2, err := mgr.Begin(ctx)
	require.NoError(t, err)
	defer tx2.Rollback(ctx)

	_, err = cards.GetByIDForUpdate(ctx, tx2, "c1")
	assert.NoError(t, err, "lock should be free after rollback")
}

func TestLockWaitTimeoutIsConcurrencyConflict(t *testing.T) {
	store := NewStore(50 * time.Millisecond)
	seedCard(t, store, newCard("c1", "o1", "4000000000000002", 100))

	cards := NewCardRepository(store)
	mgr := NewTxManager(store)
	ctx := context.Background()

	holder, err := mgr.Begin(ctx)
	require.NoError(t, err)
	defer holder.Rollback(ctx)

	_, err = cards.GetByIDForUpdate(ctx, holder, "c1")
	require.NoError(t, err)

	waiter, err := mgr.Begin(ctx)
	require.NoError(t, err)
	defer waiter.Rollback(ctx)

	_, err = cards.GetByIDForUpdate(ctx, waiter, "c1")
	require.Error(t, err)
	assert.Equal(t, domain.KindConcurrencyConflict, domain.KindOf(err))
}

func TestLockedReaderSeesPreviousCommit(t *testing.T) {
	store := NewStore(time.Second)
	seedCard(t, store, newCard("c1", "o1", "4000000000000002", 100))

	cards := NewCardRepository(store)
	mgr := NewTxManager(store)
	ctx := context.Background()

	first, err := mgr.Begin(ctx)
	require.NoError(t, err)
	_, err = cards.GetByIDForUpdate(ctx, first, "c1")
	require.NoError(t, err)

	got := make(chan *domain.Card, 1)
	go func() {
		second, err := mgr.Begin(ctx)
		if err != nil {
			got <- nil
			return
		}
		defer second.Rollback(ctx)

		card, err := cards.GetByIDForUpdate(ctx, second, "c1")
		if err != nil {
			got <- nil
			return
		}
		got <- card
	}()

	require.NoError(t, cards.UpdateBalance(ctx, first, "c1", decimal.NewFromInt(40), time.Now()))
	require.NoError(t, first.Commit(ctx))

	card := <-got
	require.NotNil(t, card)
	assert.True(t, card.Balance.Equal(decimal.NewFromInt(40)), "got %s", card.Balance)
}

func TestDuplicateReferenceRejected(t *testing.T) {
	store := NewStore(time.Second)
	seedCard(t, store, newCard("c1", "o1", "4000000000000002", 100))

	txns := NewTransactionRepository(store)
	mgr := NewTxManager(store)
	ctx := context.Background()

	record := func(id string) error {
		tx, err := mgr.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback(ctx)

		if err := txns.Create(ctx, tx, &domain.Transaction{
			ID:        id,
			CardID:    "c1",
			Reference: "TXN-SAME",
			Type:      domain.TransactionTypeCredit,
			Status:    domain.TransactionStatusCompleted,
			Amount:    decimal.NewFromInt(1),
		}); err != nil {
			return err
		}

		return tx.Commit(ctx)
	}

	require.NoError(t, record("t1"))
	assert.ErrorIs(t, record("t2"), domain.ErrDuplicateReference)
}

func TestDuplicateCardNumberRejected(t *testing.T) {
	store := NewStore(time.Second)
	seedCard(t, store, newCard("c1", "o1", "4000000000000002", 0))

	ctx := context.Background()
	tx, err := NewTxManager(store).Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	err = NewCardRepository(store).Create(ctx, tx, newCard("c2", "o1", "4000000000000002", 0))
	assert.ErrorIs(t, err, domain.ErrDuplicateCardNumber)
}

func TestRollbackAfterCommitIsNoop(t *testing.T) {
	store := NewStore(time.Second)
	ctx := context.Background()

	tx, err := NewTxManager(store).Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	assert.NoError(t, tx.Rollback(ctx))
	assert.ErrorIs(t, tx.Commit(ctx), errTxClosed)
}

func TestSummaryRecomputeSeesStagedWrites(t *testing.T) {
	store := NewStore(time.Second)
	seedCard(t, store, newCard("c1", "o1", "4000000000000002", 100))
	seedCard(t, store, newCard("c2", "o2", "4000000000000010", 70))

	cards := NewCardRepository(store)
	txns := NewTransactionRepository(store)
	summaries := NewSummaryRepository(store)
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	tx, err := NewTxManager(store).Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	before, after := decimal.NewFromInt(100), decimal.NewFromInt(75)
	require.NoError(t, cards.UpdateBalance(ctx, tx, "c1", after, now))
	require.NoError(t, txns.Create(ctx, tx, &domain.Transaction{
		ID:            "t1",
		CardID:        "c1",
		Reference:     "TXN1",
		Type:          domain.TransactionTypeDebit,
		Status:        domain.TransactionStatusCompleted,
		Amount:        decimal.NewFromInt(25),
		BalanceBefore: &before,
		BalanceAfter:  &after,
		CreatedAt:     now,
	}))

	require.NoError(t, summaries.LockForUpdate(ctx, tx, "o1", now))
	summary, err := summaries.Recompute(ctx, tx, "o1", now)
	require.NoError(t, err)

	assert.True(t, summary.TotalBalance.Equal(decimal.NewFromInt(75)))
	assert.True(t, summary.TotalDebited.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, int64(1), summary.TotalCards)
	assert.Equal(t, int64(1), summary.TotalTransactions)

	_, err = summaries.GetByOwner(ctx, "o1")
	assert.ErrorIs(t, err, domain.ErrSummaryNotFound)
}

func TestTransactionListFiltersAndPages(t *testing.T) {
	store := NewStore(time.Second)
	seedCard(t, store, newCard("c1", "o1", "4000000000000002", 100))
	seedCard(t, store, newCard("c2", "o2", "4000000000000010", 100))

	txns := NewTransactionRepository(store)
	ctx := context.Background()

	tx, err := NewTxManager(store).Begin(ctx)
	require.NoError(t, err)

	for i, row := range []struct {
		card   string
		typ    domain.TransactionType
		status domain.TransactionStatus
	}{
		{"c1", domain.TransactionTypeCredit, domain.TransactionStatusCompleted},
		{"c1", domain.TransactionTypeDebit, domain.TransactionStatusFailed},
		{"c1", domain.TransactionTypeDebit, domain.TransactionStatusCompleted},
		{"c2", domain.TransactionTypeCredit, domain.TransactionStatusCompleted},
	} {
		require.NoError(t, txns.Create(ctx, tx, &domain.Transaction{
			ID:        string(rune('a' + i)),
			CardID:    row.card,
			Reference: "TXN" + string(rune('a'+i)),
			Type:      row.typ,
			Status:    row.status,
			Amount:    decimal.NewFromInt(1),
		}))
	}
	require.NoError(t, tx.Commit(ctx))

	all, err := txns.List(ctx, domain.TransactionFilter{OwnerID: "o1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID, "newest first")

	debits, err := txns.List(ctx, domain.TransactionFilter{OwnerID: "o1", Type: domain.TransactionTypeDebit, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, debits, 2)

	failed, err := txns.List(ctx, domain.TransactionFilter{OwnerID: "o1", Status: domain.TransactionStatusFailed, Limit: 10})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "b", failed[0].ID)

	page, err := txns.List(ctx, domain.TransactionFilter{OwnerID: "o1", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0].ID)

	credited, debited, err := txns.SumCompletedByCard(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, credited.Equal(decimal.NewFromInt(1)))
	assert.True(t, debited.Equal(decimal.NewFromInt(1)))
}

func TestOutboxPublishCycle(t *testing.T) {
	store := NewStore(time.Second)
	outbox := NewOutboxRepository(store)
	ctx := context.Background()

	tx, err := NewTxManager(store).Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, outbox.Create(ctx, tx, &domain.OutboxEvent{ID: "e1", EventType: domain.EventTypeCardCreated}))
	require.NoError(t, outbox.Create(ctx, tx, &domain.OutboxEvent{ID: "e2", EventType: domain.EventTypeCardBlocked}))
	require.NoError(t, tx.Commit(ctx))

	events, err := outbox.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)

	require.NoError(t, outbox.MarkPublished(ctx, "e1", time.Now()))

	events, err = outbox.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "e2", events[0].ID)
}
