package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCard_MaskedNumber(t *testing.T) {
	card := &Card{Number: "4111111111111234"}

	if got := card.MaskedNumber(); got != "XXXX-XXXX-XXXX-1234" {
		t.Fatalf("unexpected masked number %q", got)
	}
}

func TestCard_Apply(t *testing.T) {
	tests := []struct {
		name        string
		balance     string
		txType      TransactionType
		amount      string
		want        string
		expectedErr error
	}{
		{"credit", "100", TransactionTypeCredit, "50", "150", nil},
		{"debit", "100", TransactionTypeDebit, "30", "70", nil},
		{"debit exact balance", "100", TransactionTypeDebit, "100", "0", nil},
		{"debit more than balance", "100", TransactionTypeDebit, "100.01", "100", ErrInsufficientFunds},
		{"credit past ceiling", "9999999999.00", TransactionTypeCredit, "1.00", "9999999999.00", ErrInvalidAmount},
		{"unknown type", "100", TransactionType("REFUND"), "1", "100", ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := &Card{Balance: decimal.RequireFromString(tt.balance)}

			got, err := card.Apply(tt.txType, decimal.RequireFromString(tt.amount))
			if tt.expectedErr != nil {
				if !errors.Is(err, tt.expectedErr) {
					t.Fatalf("expected %v, got %v", tt.expectedErr, err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Fatalf("expected balance %s, got %s", tt.want, got)
			}

			if !card.Balance.Equal(decimal.RequireFromString(tt.balance)) {
				t.Fatalf("Apply must not mutate the card")
			}
		})
	}
}

func TestCard_StatusTransitions(t *testing.T) {
	tests := []struct {
		name   string
		from   CardStatus
		apply  func(*Card) error
		want   CardStatus
		errors bool
	}{
		{"block active", CardStatusActive, (*Card).Block, CardStatusBlocked, false},
		{"block blocked", CardStatusBlocked, (*Card).Block, CardStatusBlocked, true},
		{"block expired", CardStatusExpired, (*Card).Block, CardStatusExpired, true},
		{"unblock blocked", CardStatusBlocked, (*Card).Unblock, CardStatusActive, false},
		{"unblock active", CardStatusActive, (*Card).Unblock, CardStatusActive, true},
		{"unblock expired", CardStatusExpired, (*Card).Unblock, CardStatusExpired, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := &Card{Status: tt.from}

			err := tt.apply(card)
			if tt.errors != (err != nil) {
				t.Fatalf("unexpected error result: %v", err)
			}
			if err != nil && !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("expected ErrInvalidTransition, got %v", err)
			}
			if card.Status != tt.want {
				t.Fatalf("expected status %s, got %s", tt.want, card.Status)
			}
		})
	}
}

func TestCard_ExpireIsTerminal(t *testing.T) {
	card := &Card{Status: CardStatusBlocked}

	if !card.Expire() {
		t.Fatalf("expected first Expire to change the card")
	}
	if card.Expire() {
		t.Fatalf("expected second Expire to be a no-op")
	}
	if card.Status != CardStatusExpired {
		t.Fatalf("expected EXPIRED, got %s", card.Status)
	}
}

func TestCard_IsExpiredAt(t *testing.T) {
	issued := time.Date(2026, 2, 14, 15, 30, 0, 0, time.UTC)
	card := &Card{ExpiryDate: ExpiryFrom(issued, 3)}

	if !card.ExpiryDate.Equal(time.Date(2029, 2, 14, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected expiry %s", card.ExpiryDate)
	}

	if card.IsExpiredAt(card.ExpiryDate.Add(-time.Second)) {
		t.Fatalf("card must be valid before its expiry date")
	}

	if !card.IsExpiredAt(card.ExpiryDate) {
		t.Fatalf("card must be expired on its expiry date")
	}
}

func TestParseCardStatus(t *testing.T) {
	status, err := ParseCardStatus(" blocked ")
	if err != nil || status != CardStatusBlocked {
		t.Fatalf("expected BLOCKED, got %s (%v)", status, err)
	}

	if _, err := ParseCardStatus("frozen"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
