package handler

import (
	"context"
	"net/http"

	"github.com/iho/cardledger/internal/adapter/http/dto"
	"github.com/iho/cardledger/internal/domain"
	"github.com/iho/cardledger/internal/usecase"
)

// SummaryService defines the behavior needed by SummaryHandler.
type SummaryService interface {
	GetSummary(ctx context.Context, ownerID string) (*domain.AccountSummary, error)
	RefreshSummary(ctx context.Context, ownerID string) (*domain.AccountSummary, error)
}

// ReconciliationService defines the behavior needed by the reconciliation endpoint.
type ReconciliationService interface {
	ReconcileOwner(ctx context.Context, ownerID string) (*usecase.ReconciliationReport, error)
}

// SummaryHandler serves the owner's account summary and reconciliation report.
type SummaryHandler struct {
	summaryUC   SummaryService
	reconcileUC ReconciliationService
}

// NewSummaryHandler creates a new SummaryHandler.
func NewSummaryHandler(summaryUC SummaryService, reconcileUC ReconciliationService) *SummaryHandler {
	return &SummaryHandler{summaryUC: summaryUC, reconcileUC: reconcileUC}
}

// Get returns the owner's summary.
func (h *SummaryHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.summaryUC.GetSummary)
}

// Refresh recomputes the owner's summary from the ledger.
func (h *SummaryHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.summaryUC.RefreshSummary)
}

func (h *SummaryHandler) serve(
	w http.ResponseWriter,
	r *http.Request,
	load func(ctx context.Context, ownerID string) (*domain.AccountSummary, error),
) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	summary, err := load(r.Context(), owner)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SummaryFromDomain(summary))
}

// Reconcile checks the owner's card balances and summary against the
// transaction log.
func (h *SummaryHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	report, err := h.reconcileUC.ReconcileOwner(r.Context(), owner)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationFromUseCase(report))
}
