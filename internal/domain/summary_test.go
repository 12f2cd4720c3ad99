package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestComputeSummary(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	earlier := now.Add(-time.Hour)

	cards := []*Card{
		{ID: "c1", OwnerID: "o1", Status: CardStatusActive, Balance: decimal.NewFromInt(100)},
		{ID: "c2", OwnerID: "o1", Status: CardStatusBlocked, Balance: decimal.NewFromInt(40)},
		{ID: "c3", OwnerID: "o1", Status: CardStatusExpired, Balance: decimal.NewFromInt(500)},
		{ID: "c4", OwnerID: "o2", Status: CardStatusActive, Balance: decimal.NewFromInt(999)},
	}

	txns := []*Transaction{
		{CardID: "c1", Type: TransactionTypeCredit, Status: TransactionStatusCompleted, Amount: decimal.NewFromInt(60), CreatedAt: earlier},
		{CardID: "c1", Type: TransactionTypeDebit, Status: TransactionStatusCompleted, Amount: decimal.NewFromInt(20), CreatedAt: now},
		{CardID: "c1", Type: TransactionTypeDebit, Status: TransactionStatusFailed, Amount: decimal.NewFromInt(1000), CreatedAt: now.Add(time.Hour)},
		{CardID: "c4", Type: TransactionTypeCredit, Status: TransactionStatusCompleted, Amount: decimal.NewFromInt(7), CreatedAt: now},
	}

	s := ComputeSummary("o1", cards, txns, now)

	if s.TotalCards != 3 || s.ActiveCards != 1 {
		t.Fatalf("unexpected card counts: total=%d active=%d", s.TotalCards, s.ActiveCards)
	}

	if !s.TotalBalance.Equal(decimal.NewFromInt(140)) {
		t.Fatalf("expired cards must not count towards the balance, got %s", s.TotalBalance)
	}

	if s.TotalTransactions != 2 {
		t.Fatalf("only completed transactions count, got %d", s.TotalTransactions)
	}

	if !s.TotalCredited.Equal(decimal.NewFromInt(60)) || !s.TotalDebited.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("unexpected totals: credited=%s debited=%s", s.TotalCredited, s.TotalDebited)
	}

	if s.LastTransactionDate == nil || !s.LastTransactionDate.Equal(now) {
		t.Fatalf("unexpected last transaction date %v", s.LastTransactionDate)
	}
}

func TestComputeSummaryEmpty(t *testing.T) {
	s := ComputeSummary("o1", nil, nil, time.Now())

	if !s.SameFigures(NewAccountSummary("o1")) {
		t.Fatalf("expected zero summary, got %+v", s)
	}
}

func TestSameFigures(t *testing.T) {
	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	a := NewAccountSummary("o1")
	a.TotalBalance = decimal.RequireFromString("10.50")
	a.LastTransactionDate = &at
	a.UpdatedAt = at

	b := NewAccountSummary("o1")
	b.TotalBalance = decimal.RequireFromString("10.5")
	b.LastTransactionDate = &at
	b.UpdatedAt = at.Add(time.Minute)

	if !a.SameFigures(b) {
		t.Fatalf("summaries differing only in UpdatedAt must match")
	}

	b.LastTransactionDate = nil
	if a.SameFigures(b) {
		t.Fatalf("a missing last transaction date must not match")
	}
}
