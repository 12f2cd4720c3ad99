package postgres

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/cardledger/internal/domain"
	"github.com/iho/cardledger/internal/infrastructure/cardgen"
	infrapg "github.com/iho/cardledger/internal/infrastructure/postgres"
	"github.com/iho/cardledger/internal/usecase"
)

// testStack is the full use case stack on a real database. It needs
// TEST_DATABASE_URL pointing at a disposable PostgreSQL instance.
type testStack struct {
	pool   *pgxpool.Pool
	cards  *usecase.CardUseCase
	ledger *usecase.LedgerUseCase
	recon  *usecase.ReconciliationUseCase
	cardDB *CardRepository
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	log := zerolog.Nop()
	require.NoError(t, infrapg.RunMigrations(dbURL, "../../../../migrations", log))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := infrapg.NewPool(ctx, dbURL, 20, 2)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE TABLE outbox_events, transactions, account_summaries, cards CASCADE`)
	require.NoError(t, err)

	txManager := NewTxManager(pool, 5*time.Second)
	cardRepo := NewCardRepository(pool)
	txnRepo := NewTransactionRepository(pool)
	summaryRepo := NewSummaryRepository(pool)
	outboxRepo := NewOutboxRepository(pool)
	retrier := NewRetrier(log)
	idGen := NewULIDGenerator()

	summaries := usecase.NewSummaryUseCase(txManager, summaryRepo, nil, 0, nil, nil, log)
	cards := usecase.NewCardUseCase(txManager, cardRepo, outboxRepo, summaries,
		cardgen.NewDefault(), idGen, retrier, nil, 3, nil, log)
	ledger := usecase.NewLedgerUseCase(txManager, cardRepo, txnRepo, outboxRepo,
		cards, summaries, idGen, NewReferenceGenerator(), retrier, nil, nil, log)

	return &testStack{
		pool:   pool,
		cards:  cards,
		ledger: ledger,
		recon:  usecase.NewReconciliationUseCase(txManager, cardRepo, txnRepo, summaryRepo, nil, nil, log),
		cardDB: cardRepo,
	}
}

func TestIntegration_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	card, err := s.cards.CreateCard(ctx, usecase.CreateCardInput{
		OwnerID:        "owner-concurrent",
		HolderName:     "Jane Doe",
		InitialBalance: decimal.NewFromInt(300),
	})
	require.NoError(t, err)

	const attempts = 50
	var (
		wg           sync.WaitGroup
		successCount atomic.Int32
		rejected     atomic.Int32
	)

	wg.Add(attempts)
	for range attempts {
		go func() {
			defer wg.Done()

			_, err := s.ledger.ProcessTransaction(ctx, usecase.ProcessTransactionInput{
				CardID:      card.ID,
				OwnerID:     card.OwnerID,
				Type:        domain.TransactionTypeDebit,
				Amount:      decimal.NewFromInt(10),
				Description: "coffee",
			})
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrInsufficientFunds):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 30, successCount.Load())
	assert.EqualValues(t, 20, rejected.Load())

	stored, err := s.cardDB.GetByID(ctx, card.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.IsZero(), "got %s", stored.Balance)

	report, err := s.recon.ReconcileOwner(ctx, card.OwnerID)
	require.NoError(t, err)
	assert.True(t, report.Consistent(), "%+v", report)
}

func TestIntegration_ConcurrentMovementsAcrossOwnerCards(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	owner := "owner-mixed"

	a, err := s.cards.CreateCard(ctx, usecase.CreateCardInput{OwnerID: owner, HolderName: "A", InitialBalance: decimal.NewFromInt(500)})
	require.NoError(t, err)
	b, err := s.cards.CreateCard(ctx, usecase.CreateCardInput{OwnerID: owner, HolderName: "B", InitialBalance: decimal.NewFromInt(500)})
	require.NoError(t, err)

	const rounds = 25
	var wg sync.WaitGroup
	wg.Add(rounds * 2)

	for range rounds {
		for _, pair := range []struct {
			card   *domain.Card
			txType domain.TransactionType
		}{{a, domain.TransactionTypeDebit}, {b, domain.TransactionTypeCredit}} {
			go func() {
				defer wg.Done()

				_, err := s.ledger.ProcessTransaction(ctx, usecase.ProcessTransactionInput{
					CardID:      pair.card.ID,
					OwnerID:     owner,
					Type:        pair.txType,
					Amount:      decimal.NewFromInt(4),
					Description: "shuffle",
				})
				if err != nil {
					t.Errorf("movement failed: %v", err)
				}
			}()
		}
	}
	wg.Wait()

	storedA, err := s.cardDB.GetByID(ctx, a.ID)
	require.NoError(t, err)
	storedB, err := s.cardDB.GetByID(ctx, b.ID)
	require.NoError(t, err)

	assert.True(t, storedA.Balance.Equal(decimal.NewFromInt(400)), "got %s", storedA.Balance)
	assert.True(t, storedB.Balance.Equal(decimal.NewFromInt(600)), "got %s", storedB.Balance)

	report, err := s.recon.ReconcileOwner(ctx, owner)
	require.NoError(t, err)
	assert.True(t, report.Consistent(), "summary must track every committed movement: %+v", report)
}
