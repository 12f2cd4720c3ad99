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

// ReconciliationUseCase checks stored balances and summaries against the
// transaction log.
type ReconciliationUseCase struct {
	txManager       TransactionManager
	cardRepo        CardRepository
	transactionRepo TransactionRepository
	summaryRepo     SummaryRepository
	clock           Clock
	metrics         *metrics.Metrics
	logger          zerolog.Logger
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(
	txManager TransactionManager,
	cardRepo CardRepository,
	transactionRepo TransactionRepository,
	summaryRepo SummaryRepository,
	clock Clock,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *ReconciliationUseCase {
	if clock == nil {
		clock = SystemClock()
	}

	return &ReconciliationUseCase{
		txManager:       txManager,
		cardRepo:        cardRepo,
		transactionRepo: transactionRepo,
		summaryRepo:     summaryRepo,
		clock:           clock,
		metrics:         metrics,
		logger:          logger.With().Str("component", "reconciliation").Logger(),
	}
}

// CardReconciliation is the balance check of a single card.
type CardReconciliation struct {
	CardID            string          `json:"card_id"`
	OwnerID           string          `json:"owner_id"`
	RecordedBalance   decimal.Decimal `json:"recorded_balance"`
	CalculatedBalance decimal.Decimal `json:"calculated_balance"`
	Difference        decimal.Decimal `json:"difference"`
	IsReconciled      bool            `json:"is_reconciled"`
}

// SummaryReconciliation compares an owner's stored summary with a fresh
// recomputation.
type SummaryReconciliation struct {
	OwnerID      string                 `json:"owner_id"`
	Stored       *domain.AccountSummary `json:"stored"`
	Computed     *domain.AccountSummary `json:"computed"`
	IsReconciled bool                   `json:"is_reconciled"`
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	TotalOwners          int                      `json:"total_owners"`
	TotalCards           int                      `json:"total_cards"`
	ReconciledCards      int                      `json:"reconciled_cards"`
	CardDiscrepancies    []*CardReconciliation    `json:"card_discrepancies"`
	SummaryDiscrepancies []*SummaryReconciliation `json:"summary_discrepancies"`
	CheckedAt            time.Time                `json:"checked_at"`
}

// Consistent reports whether the run found no discrepancy.
func (r *ReconciliationReport) Consistent() bool {
	return len(r.CardDiscrepancies) == 0 && len(r.SummaryDiscrepancies) == 0
}

// ReconcileCard checks that the card's balance equals its initial balance
// plus COMPLETED credits minus COMPLETED debits.
func (uc *ReconciliationUseCase) ReconcileCard(ctx context.Context, card *domain.Card) (*CardReconciliation, error) {
	credited, debited, err := uc.transactionRepo.SumCompletedByCard(ctx, card.ID)
	if err != nil {
		return nil, err
	}

	calculated := card.InitialBalance.Add(credited).Sub(debited)
	difference := card.Balance.Sub(calculated)

	return &CardReconciliation{
		CardID:            card.ID,
		OwnerID:           card.OwnerID,
		RecordedBalance:   card.Balance,
		CalculatedBalance: calculated,
		Difference:        difference,
		IsReconciled:      difference.IsZero() && !card.Balance.IsNegative(),
	}, nil
}

// ReconcileSummary compares the owner's stored summary with a recomputation.
func (uc *ReconciliationUseCase) ReconcileSummary(ctx context.Context, ownerID string) (*SummaryReconciliation, error) {
	stored, err := uc.summaryRepo.GetByOwner(ctx, ownerID)
	if errors.Is(err, domain.ErrSummaryNotFound) {
		stored = domain.NewAccountSummary(ownerID)
	} else if err != nil {
		return nil, err
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	computed, err := uc.summaryRepo.Recompute(ctx, tx, ownerID, uc.clock.Now())
	if err != nil {
		return nil, err
	}

	return &SummaryReconciliation{
		OwnerID:      ownerID,
		Stored:       stored,
		Computed:     computed,
		IsReconciled: stored.SameFigures(computed),
	}, nil
}

// ReconcileOwner reconciles every card of one owner and the owner's summary.
func (uc *ReconciliationUseCase) ReconcileOwner(ctx context.Context, ownerID string) (*ReconciliationReport, error) {
	if err := domain.ValidateOwnerID(ownerID); err != nil {
		return nil, err
	}

	report := uc.newReport()
	if err := uc.reconcileOwner(ctx, ownerID, report); err != nil {
		return nil, domain.StorageFault(err)
	}

	return report, nil
}

// GenerateReconciliationReport reconciles every owner known to the ledger.
func (uc *ReconciliationUseCase) GenerateReconciliationReport(ctx context.Context) (*ReconciliationReport, error) {
	owners, err := uc.summaryRepo.ListOwners(ctx)
	if err != nil {
		uc.countRun("error")
		return nil, domain.StorageFault(err)
	}

	if len(owners) > maxReconcileOwners {
		owners = owners[:maxReconcileOwners]
	}

	report := uc.newReport()
	for _, ownerID := range owners {
		if err := uc.reconcileOwner(ctx, ownerID, report); err != nil {
			uc.countRun("error")
			return nil, domain.StorageFault(fmt.Errorf("failed to reconcile owner %s: %w", ownerID, err))
		}
	}

	if report.Consistent() {
		uc.countRun("consistent")
	} else {
		uc.countRun("discrepancies")
	}

	if uc.metrics != nil {
		uc.metrics.ReconciliationDiscrepancies.Set(float64(len(report.CardDiscrepancies) + len(report.SummaryDiscrepancies)))
	}

	return report, nil
}

func (uc *ReconciliationUseCase) reconcileOwner(ctx context.Context, ownerID string, report *ReconciliationReport) error {
	cards, err := uc.cardRepo.ListByOwner(ctx, ownerID, "")
	if err != nil {
		return err
	}

	for _, card := range cards {
		result, err := uc.ReconcileCard(ctx, card)
		if err != nil {
			return fmt.Errorf("failed to reconcile card %s: %w", card.ID, err)
		}

		report.TotalCards++

		if result.IsReconciled {
			report.ReconciledCards++
			continue
		}

		report.CardDiscrepancies = append(report.CardDiscrepancies, result)
		uc.logger.Warn().
			Str("card_id", card.ID).
			Str("recorded", result.RecordedBalance.StringFixed(2)).
			Str("calculated", result.CalculatedBalance.StringFixed(2)).
			Msg("card balance does not match transaction log")
	}

	summary, err := uc.ReconcileSummary(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to reconcile summary: %w", err)
	}

	report.TotalOwners++

	if !summary.IsReconciled {
		report.SummaryDiscrepancies = append(report.SummaryDiscrepancies, summary)
		uc.logger.Warn().Str("owner_id", ownerID).Msg("account summary does not match recomputation")
	}

	return nil
}

func (uc *ReconciliationUseCase) newReport() *ReconciliationReport {
	return &ReconciliationReport{
		CardDiscrepancies:    make([]*CardReconciliation, 0),
		SummaryDiscrepancies: make([]*SummaryReconciliation, 0),
		CheckedAt:            uc.clock.Now(),
	}
}

func (uc *ReconciliationUseCase) countRun(result string) {
	if uc.metrics != nil {
		uc.metrics.ReconciliationRuns.WithLabelValues(result).Inc()
	}
}
