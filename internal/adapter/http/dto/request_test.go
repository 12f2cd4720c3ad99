package dto

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/cardledger/internal/domain"
)

func TestCreateCardRequest_ToUseCaseInput(t *testing.T) {
	tests := []struct {
		name string
		body string
		want decimal.Decimal
	}{
		{"explicit balance", `{"holder_name":"jane doe","initial_balance":"150.25"}`, decimal.RequireFromString("150.25")},
		{"numeric balance", `{"holder_name":"jane doe","initial_balance":80}`, decimal.NewFromInt(80)},
		{"missing balance defaults to zero", `{"holder_name":"jane doe"}`, decimal.Zero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req CreateCardRequest
			if err := json.Unmarshal([]byte(tt.body), &req); err != nil {
				t.Fatalf("failed to decode request: %v", err)
			}

			got := req.ToUseCaseInput("owner-1")
			if got.OwnerID != "owner-1" || got.HolderName != "jane doe" {
				t.Fatalf("unexpected input %+v", got)
			}
			if !got.InitialBalance.Equal(tt.want) {
				t.Fatalf("expected balance %s, got %s", tt.want, got.InitialBalance)
			}
		})
	}
}

func TestProcessTransactionRequest_ToUseCaseInput(t *testing.T) {
	req := &ProcessTransactionRequest{
		CardID:      "card-1",
		Type:        "debit",
		Amount:      decimal.RequireFromString("12.34"),
		Description: "coffee",
	}

	got, err := req.ToUseCaseInput("owner-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Type != domain.TransactionTypeDebit || got.OwnerID != "owner-1" || got.CardID != "card-1" {
		t.Fatalf("unexpected input %+v", got)
	}
	if !got.Amount.Equal(decimal.RequireFromString("12.34")) {
		t.Fatalf("unexpected amount %s", got.Amount)
	}
}

func TestProcessTransactionRequest_RejectsUnknownType(t *testing.T) {
	req := &ProcessTransactionRequest{CardID: "card-1", Type: "REFUND", Amount: decimal.NewFromInt(1)}

	_, err := req.ToUseCaseInput("owner-1")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
