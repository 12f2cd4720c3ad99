package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a balance movement.
type TransactionType string

const (
	TransactionTypeCredit TransactionType = "CREDIT"
	TransactionTypeDebit  TransactionType = "DEBIT"
)

// ParseTransactionType parses CREDIT or DEBIT, case-insensitively.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case TransactionTypeCredit, TransactionTypeDebit:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTransactionType, s)
	}
}

// TransactionStatus is the outcome of a processing attempt.
//
// PENDING only exists while a unit of work is in flight. REVERSED is part of
// the stored enumeration but nothing produces it.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusReversed  TransactionStatus = "REVERSED"
)

// ParseTransactionStatus parses a status filter.
func ParseTransactionStatus(s string) (TransactionStatus, error) {
	status := TransactionStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch status {
	case TransactionStatusPending, TransactionStatusCompleted, TransactionStatusFailed, TransactionStatusReversed:
		return status, nil
	default:
		return "", fmt.Errorf("%w: unknown transaction status %q", ErrValidation, s)
	}
}

// Transaction is an immutable ledger entry for one processing attempt on a card.
// BalanceBefore and BalanceAfter are nil for FAILED records.
type Transaction struct {
	CreatedAt     time.Time
	BalanceBefore *decimal.Decimal
	BalanceAfter  *decimal.Decimal
	ID            string
	CardID        string
	Reference     string
	Description   string
	Type          TransactionType
	Status        TransactionStatus
	Amount        decimal.Decimal
}

// SignedAmount returns the amount as it affects the card balance.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TransactionTypeDebit {
		return t.Amount.Neg()
	}

	return t.Amount
}

// TransactionFilter narrows an owner's transaction listing. Empty fields do
// not filter.
type TransactionFilter struct {
	OwnerID string
	CardID  string
	Status  TransactionStatus
	Type    TransactionType
	Limit   int
	Offset  int
}

// Matches reports whether txn passes the card, status and type filters.
// Ownership is resolved by the caller.
func (f TransactionFilter) Matches(txn *Transaction) bool {
	if f.CardID != "" && txn.CardID != f.CardID {
		return false
	}

	if f.Status != "" && txn.Status != f.Status {
		return false
	}

	if f.Type != "" && txn.Type != f.Type {
		return false
	}

	return true
}
