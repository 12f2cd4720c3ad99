package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/cardledger/internal/adapter/http/dto"
	"github.com/iho/cardledger/internal/domain"
	"github.com/iho/cardledger/internal/usecase"
)

// CardService defines the behavior needed by CardHandler.
type CardService interface {
	CreateCard(ctx context.Context, input usecase.CreateCardInput) (*domain.Card, error)
	GetCard(ctx context.Context, cardID, ownerID string) (*domain.Card, error)
	ListCards(ctx context.Context, ownerID string, status domain.CardStatus) ([]*domain.Card, error)
	BlockCard(ctx context.Context, cardID, ownerID string) (*domain.Card, error)
	UnblockCard(ctx context.Context, cardID, ownerID string) (*domain.Card, error)
}

// CardHandler handles card-related HTTP requests.
type CardHandler struct {
	cardUC   CardService
	ledgerUC TransactionService
}

// NewCardHandler creates a new CardHandler.
func NewCardHandler(cardUC CardService, ledgerUC TransactionService) *CardHandler {
	return &CardHandler{cardUC: cardUC, ledgerUC: ledgerUC}
}

// Create issues a new card.
func (h *CardHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var req dto.CreateCardRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	card, err := h.cardUC.CreateCard(r.Context(), req.ToUseCaseInput(owner))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.CardFromDomain(card))
}

// Get retrieves one of the owner's cards.
func (h *CardHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	card, err := h.cardUC.GetCard(r.Context(), chi.URLParam(r, "id"), owner)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.CardFromDomain(card))
}

// List lists the owner's cards, optionally filtered by ?status=.
func (h *CardHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var status domain.CardStatus
	if s := r.URL.Query().Get("status"); s != "" {
		parsed, err := domain.ParseCardStatus(s)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		status = parsed
	}

	cards, err := h.cardUC.ListCards(r.Context(), owner, status)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListCardsResponse{
		Cards: dto.CardsFromDomain(cards),
		Total: len(cards),
	})
}

// Block blocks an active card.
func (h *CardHandler) Block(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.cardUC.BlockCard)
}

// Unblock reactivates a blocked card.
func (h *CardHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.cardUC.UnblockCard)
}

func (h *CardHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, cardID, ownerID string) (*domain.Card, error),
) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	card, err := apply(r.Context(), chi.URLParam(r, "id"), owner)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.CardFromDomain(card))
}

// Transactions lists the transaction history of one card.
func (h *CardHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	filter, err := transactionFilter(r, owner)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	filter.CardID = chi.URLParam(r, "id")

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
