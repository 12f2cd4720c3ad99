package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/cardledger/internal/adapter/http/dto"
	"github.com/iho/cardledger/internal/domain"
	"github.com/iho/cardledger/internal/usecase"
)

// TransactionService defines the behavior needed by TransactionHandler.
type TransactionService interface {
	ProcessTransaction(ctx context.Context, input usecase.ProcessTransactionInput) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error)
	GetTransaction(ctx context.Context, id, ownerID string) (*domain.Transaction, error)
}

// TransactionHandler handles credit/debit requests and transaction reads.
type TransactionHandler struct {
	ledgerUC TransactionService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(ledgerUC TransactionService) *TransactionHandler {
	return &TransactionHandler{ledgerUC: ledgerUC}
}

// Process applies a credit or debit to one of the owner's cards.
func (h *TransactionHandler) Process(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var req dto.ProcessTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput(owner)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	txn, err := h.ledgerUC.ProcessTransaction(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(txn))
}

// List lists the owner's transactions.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	filter, err := transactionFilter(r, owner)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	txns, err := h.ledgerUC.ListTransactions(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	limit, offset := domain.ValidatePagination(filter.Limit, filter.Offset)

	writeJSON(w, http.StatusOK, dto.ListTransactionsResponse{
		Transactions: dto.TransactionsFromDomain(txns),
		Limit:        limit,
		Offset:       offset,
	})
}

// Get retrieves one of the owner's transactions.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	txn, err := h.ledgerUC.GetTransaction(r.Context(), chi.URLParam(r, "id"), owner)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(txn))
}
