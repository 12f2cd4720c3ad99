package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountSummary is a per-owner projection of the owner's cards and
// transactions. It is a cache of derivable facts and never the source of truth.
type AccountSummary struct {
	UpdatedAt           time.Time
	LastTransactionDate *time.Time
	OwnerID             string
	TotalBalance        decimal.Decimal
	TotalCredited       decimal.Decimal
	TotalDebited        decimal.Decimal
	TotalCards          int64
	ActiveCards         int64
	TotalTransactions   int64
}

// NewAccountSummary returns the zero-valued summary for an owner.
func NewAccountSummary(ownerID string) *AccountSummary {
	return &AccountSummary{
		OwnerID:       ownerID,
		TotalBalance:  decimal.Zero,
		TotalCredited: decimal.Zero,
		TotalDebited:  decimal.Zero,
	}
}

// ComputeSummary derives an owner's summary from the owner's cards and the
// transactions recorded against them. Only COMPLETED transactions count, and
// expired cards do not contribute to the total balance.
func ComputeSummary(ownerID string, cards []*Card, transactions []*Transaction, now time.Time) *AccountSummary {
	s := NewAccountSummary(ownerID)
	s.UpdatedAt = now

	owned := make(map[string]bool, len(cards))
	for _, c := range cards {
		if c.OwnerID != ownerID {
			continue
		}

		owned[c.ID] = true
		s.TotalCards++

		if c.Status == CardStatusActive {
			s.ActiveCards++
		}

		if c.Status != CardStatusExpired {
			s.TotalBalance = s.TotalBalance.Add(c.Balance)
		}
	}

	for _, t := range transactions {
		if !owned[t.CardID] || t.Status != TransactionStatusCompleted {
			continue
		}

		s.TotalTransactions++

		switch t.Type {
		case TransactionTypeCredit:
			s.TotalCredited = s.TotalCredited.Add(t.Amount)
		case TransactionTypeDebit:
			s.TotalDebited = s.TotalDebited.Add(t.Amount)
		}

		if s.LastTransactionDate == nil || t.CreatedAt.After(*s.LastTransactionDate) {
			at := t.CreatedAt
			s.LastTransactionDate = &at
		}
	}

	return s
}

// SameFigures reports whether two summaries agree on every derived field.
// UpdatedAt is bookkeeping and is ignored.
func (s *AccountSummary) SameFigures(other *AccountSummary) bool {
	if s.OwnerID != other.OwnerID ||
		s.TotalCards != other.TotalCards ||
		s.ActiveCards != other.ActiveCards ||
		s.TotalTransactions != other.TotalTransactions ||
		!s.TotalBalance.Equal(other.TotalBalance) ||
		!s.TotalCredited.Equal(other.TotalCredited) ||
		!s.TotalDebited.Equal(other.TotalDebited) {
		return false
	}

	switch {
	case s.LastTransactionDate == nil && other.LastTransactionDate == nil:
		return true
	case s.LastTransactionDate == nil || other.LastTransactionDate == nil:
		return false
	default:
		return s.LastTransactionDate.Equal(*other.LastTransactionDate)
	}
}
