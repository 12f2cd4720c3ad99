package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/cardledger/internal/domain"
	"github.com/iho/cardledger/internal/infrastructure/metrics"
)

const summaryCachePrefix = "summary:"

// SummaryUseCase maintains and serves per-owner account summaries.
type SummaryUseCase struct {
	txManager   TransactionManager
	summaryRepo SummaryRepository
	cache       Cache
	cacheTTL    time.Duration
	clock       Clock
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// NewSummaryUseCase creates a new SummaryUseCase. cache may be nil.
func NewSummaryUseCase(
	txManager TransactionManager,
	summaryRepo SummaryRepository,
	cache Cache,
	cacheTTL time.Duration,
	clock Clock,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *SummaryUseCase {
	if cacheTTL <= 0 {
		cacheTTL = DefaultSummaryCacheTTL
	}

	if clock == nil {
		clock = SystemClock()
	}

	return &SummaryUseCase{
		txManager:   txManager,
		summaryRepo: summaryRepo,
		cache:       cache,
		cacheTTL:    cacheTTL,
		clock:       clock,
		metrics:     metrics,
		logger:      logger.With().Str("component", "summary").Logger(),
	}
}

// Refresh recomputes the owner's summary from cards and transactions and
// stores it, all inside tx. The summary row stays locked until tx ends, so
// callers must already hold any card lock they need.
func (uc *SummaryUseCase) Refresh(ctx context.Context, tx Transaction, ownerID string) (*domain.AccountSummary, error) {
	now := uc.clock.Now()

	if err := uc.summaryRepo.LockForUpdate(ctx, tx, ownerID, now); err != nil {
		return nil, err
	}

	summary, err := uc.summaryRepo.Recompute(ctx, tx, ownerID, now)
	if err != nil {
		return nil, err
	}

	if err := uc.summaryRepo.Save(ctx, tx, summary); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.SummaryRefreshes.Inc()
	}

	return summary, nil
}

// Invalidate drops the cached summary. Failures are logged only; the entry
// expires on its own.
func (uc *SummaryUseCase) Invalidate(ctx context.Context, ownerID string) {
	if uc.cache == nil {
		return
	}

	if err := uc.cache.Delete(ctx, summaryCachePrefix+ownerID); err != nil {
		uc.logger.Warn().Err(err).Str("owner_id", ownerID).Msg("failed to invalidate summary cache")
	}
}

// GetSummary returns the owner's latest stored summary, or a zero-valued one
// when the owner has none yet.
func (uc *SummaryUseCase) GetSummary(ctx context.Context, ownerID string) (*domain.AccountSummary, error) {
	if err := domain.ValidateOwnerID(ownerID); err != nil {
		return nil, err
	}

	if summary, ok := uc.cached(ctx, ownerID); ok {
		return summary, nil
	}

	summary, err := uc.summaryRepo.GetByOwner(ctx, ownerID)
	if errors.Is(err, domain.ErrSummaryNotFound) {
		return domain.NewAccountSummary(ownerID), nil
	}

	if err != nil {
		return nil, domain.StorageFault(err)
	}

	uc.store(ctx, summary)

	return summary, nil
}

// RefreshSummary recomputes the owner's summary in its own unit of work.
func (uc *SummaryUseCase) RefreshSummary(ctx context.Context, ownerID string) (*domain.AccountSummary, error) {
	if err := domain.ValidateOwnerID(ownerID); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, domain.StorageFault(err)
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	summary, err := uc.Refresh(txCtx, tx, ownerID)
	if err != nil {
		return nil, domain.StorageFault(err)
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, domain.StorageFault(err)
	}

	uc.Invalidate(ctx, ownerID)

	return summary, nil
}

func (uc *SummaryUseCase) cached(ctx context.Context, ownerID string) (*domain.AccountSummary, bool) {
	if uc.cache == nil {
		return nil, false
	}

	data, err := uc.cache.Get(ctx, summaryCachePrefix+ownerID)
	if err != nil {
		uc.logger.Warn().Err(err).Str("owner_id", ownerID).Msg("summary cache read failed")
		return nil, false
	}

	if data == nil {
		uc.countCache("miss")
		return nil, false
	}

	var summary domain.AccountSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		uc.logger.Warn().Err(err).Str("owner_id", ownerID).Msg("discarding malformed cached summary")
		return nil, false
	}

	uc.countCache("hit")

	return &summary, true
}

func (uc *SummaryUseCase) store(ctx context.Context, summary *domain.AccountSummary) {
	if uc.cache == nil {
		return
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return
	}

	if err := uc.cache.Set(ctx, summaryCachePrefix+summary.OwnerID, data, uc.cacheTTL); err != nil {
		uc.logger.Warn().Err(err).Str("owner_id", summary.OwnerID).Msg("summary cache write failed")
	}
}

func (uc *SummaryUseCase) countCache(result string) {
	if uc.metrics != nil {
		uc.metrics.SummaryCache.WithLabelValues(result).Inc()
	}
}
