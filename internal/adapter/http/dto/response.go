package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/cardledger/internal/domain"
	"github.com/iho/cardledger/internal/usecase"
)

const dateLayout = "2006-01-02"

func money(d decimal.Decimal) string {
	return d.StringFixed(domain.AmountScale)
}

func moneyPtr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}

	s := money(*d)

	return &s
}

// CardResponse represents a card in API responses. The card number is only
// ever exposed masked and the CVV not at all.
type CardResponse struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"owner_id"`
	MaskedNumber   string    `json:"masked_card_number"`
	HolderName     string    `json:"holder_name"`
	ExpiryDate     string    `json:"expiry_date"`
	InitialBalance string    `json:"initial_balance"`
	Balance        string    `json:"balance"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CardFromDomain converts a domain card to response.
func CardFromDomain(c *domain.Card) *CardResponse {
	return &CardResponse{
		ID:             c.ID,
		OwnerID:        c.OwnerID,
		MaskedNumber:   c.MaskedNumber(),
		HolderName:     c.HolderName,
		ExpiryDate:     c.ExpiryDate.Format(dateLayout),
		InitialBalance: money(c.InitialBalance),
		Balance:        money(c.Balance),
		Status:         string(c.Status),
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

// CardsFromDomain converts domain cards to responses.
func CardsFromDomain(cards []*domain.Card) []*CardResponse {
	result := make([]*CardResponse, len(cards))
	for i, c := range cards {
		result[i] = CardFromDomain(c)
	}
	return result
}

// ListCardsResponse represents a card listing.
type ListCardsResponse struct {
	Cards []*CardResponse `json:"cards"`
	Total int             `json:"total"`
}

// TransactionResponse represents a ledger transaction in API responses.
type TransactionResponse struct {
	ID            string    `json:"id"`
	CardID        string    `json:"card_id"`
	Reference     string    `json:"reference"`
	Type          string    `json:"type"`
	Status        string    `json:"status"`
	Amount        string    `json:"amount"`
	BalanceBefore *string   `json:"balance_before"`
	BalanceAfter  *string   `json:"balance_after"`
	Description   string    `json:"description"`
	CreatedAt     time.Time `json:"created_at"`
}

// TransactionFromDomain converts a domain transaction to response.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:            t.ID,
		CardID:        t.CardID,
		Reference:     t.Reference,
		Type:          string(t.Type),
		Status:        string(t.Status),
		Amount:        money(t.Amount),
		BalanceBefore: moneyPtr(t.BalanceBefore),
		BalanceAfter:  moneyPtr(t.BalanceAfter),
		Description:   t.Description,
		CreatedAt:     t.CreatedAt,
	}
}

// TransactionsFromDomain converts domain transactions to responses.
func TransactionsFromDomain(txns []*domain.Transaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(txns))
	for i, t := range txns {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// ListTransactionsResponse represents a page of transactions.
type ListTransactionsResponse struct {
	Transactions []*TransactionResponse `json:"transactions"`
	Limit        int                    `json:"limit"`
	Offset       int                    `json:"offset"`
}

// SummaryResponse represents an owner's account summary.
type SummaryResponse struct {
	OwnerID             string     `json:"owner_id"`
	TotalBalance        string     `json:"total_balance"`
	TotalCards          int64      `json:"total_cards"`
	ActiveCards         int64      `json:"active_cards"`
	TotalTransactions   int64      `json:"total_transactions"`
	TotalCredited       string     `json:"total_credited"`
	TotalDebited        string     `json:"total_debited"`
	LastTransactionDate *time.Time `json:"last_transaction_date"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// SummaryFromDomain converts a domain summary to response.
func SummaryFromDomain(s *domain.AccountSummary) *SummaryResponse {
	return &SummaryResponse{
		OwnerID:             s.OwnerID,
		TotalBalance:        money(s.TotalBalance),
		TotalCards:          s.TotalCards,
		ActiveCards:         s.ActiveCards,
		TotalTransactions:   s.TotalTransactions,
		TotalCredited:       money(s.TotalCredited),
		TotalDebited:        money(s.TotalDebited),
		LastTransactionDate: s.LastTransactionDate,
		UpdatedAt:           s.UpdatedAt,
	}
}

// ErrorResponse represents an error in API responses. Balance is set for
// failures that report the card's current balance.
type ErrorResponse struct {
	Error   string  `json:"error"`
	Kind    string  `json:"kind,omitempty"`
	Message string  `json:"message,omitempty"`
	Balance *string `json:"balance,omitempty"`
}

// ErrorFromDomain builds the error body for a classified ledger failure.
// Storage faults carry no detail.
func ErrorFromDomain(err error) *ErrorResponse {
	kind := domain.KindOf(err)

	resp := &ErrorResponse{
		Error: string(kind),
		Kind:  string(kind),
	}

	if kind == domain.KindStorageFault {
		resp.Message = "internal server error"
		return resp
	}

	resp.Message = err.Error()

	if balance, ok := domain.BalanceOf(err); ok {
		resp.Balance = moneyPtr(&balance)
	}

	return resp
}

// CardReconciliationResponse is one card whose balance disagrees with its
// transaction log.
type CardReconciliationResponse struct {
	CardID            string `json:"card_id"`
	RecordedBalance   string `json:"recorded_balance"`
	CalculatedBalance string `json:"calculated_balance"`
	Difference        string `json:"difference"`
}

// SummaryReconciliationResponse is an owner whose stored summary disagrees
// with a recomputation.
type SummaryReconciliationResponse struct {
	OwnerID  string           `json:"owner_id"`
	Stored   *SummaryResponse `json:"stored"`
	Computed *SummaryResponse `json:"computed"`
}

// ReconciliationResponse represents a reconciliation report.
type ReconciliationResponse struct {
	Consistent           bool                             `json:"consistent"`
	TotalOwners          int                              `json:"total_owners"`
	TotalCards           int                              `json:"total_cards"`
	ReconciledCards      int                              `json:"reconciled_cards"`
	CardDiscrepancies    []*CardReconciliationResponse    `json:"card_discrepancies"`
	SummaryDiscrepancies []*SummaryReconciliationResponse `json:"summary_discrepancies"`
	CheckedAt            time.Time                        `json:"checked_at"`
}

// ReconciliationFromUseCase converts a reconciliation report to response.
func ReconciliationFromUseCase(r *usecase.ReconciliationReport) *ReconciliationResponse {
	resp := &ReconciliationResponse{
		Consistent:           r.Consistent(),
		TotalOwners:          r.TotalOwners,
		TotalCards:           r.TotalCards,
		ReconciledCards:      r.ReconciledCards,
		CardDiscrepancies:    make([]*CardReconciliationResponse, 0, len(r.CardDiscrepancies)),
		SummaryDiscrepancies: make([]*SummaryReconciliationResponse, 0, len(r.SummaryDiscrepancies)),
		CheckedAt:            r.CheckedAt,
	}

	for _, c := range r.CardDiscrepancies {
		resp.CardDiscrepancies = append(resp.CardDiscrepancies, &CardReconciliationResponse{
			CardID:            c.CardID,
			RecordedBalance:   money(c.RecordedBalance),
			CalculatedBalance: money(c.CalculatedBalance),
			Difference:        money(c.Difference),
		})
	}

	for _, s := range r.SummaryDiscrepancies {
		item := &SummaryReconciliationResponse{OwnerID: s.OwnerID}
		if s.Stored != nil {
			item.Stored = SummaryFromDomain(s.Stored)
		}
		if s.Computed != nil {
			item.Computed = SummaryFromDomain(s.Computed)
		}
		resp.SummaryDiscrepancies = append(resp.SummaryDiscrepancies, item)
	}

	return resp
}
