package dto

import (
	"github.com/shopspring/decimal"

	"github.com/iho/cardledger/internal/domain"
	"github.com/iho/cardledger/internal/usecase"
)

// CreateCardRequest represents a request to issue a card.
type CreateCardRequest struct {
	HolderName     string           `json:"holder_name"`
	InitialBalance *decimal.Decimal `json:"initial_balance,omitempty"`
}

// ToUseCaseInput converts to use case input. A missing initial balance is zero.
func (r *CreateCardRequest) ToUseCaseInput(ownerID string) usecase.CreateCardInput {
	balance := decimal.Zero
	if r.InitialBalance != nil {
		balance = *r.InitialBalance
	}

	return usecase.CreateCardInput{
		OwnerID:        ownerID,
		HolderName:     r.HolderName,
		InitialBalance: balance,
	}
}

// ProcessTransactionRequest represents a request to credit or debit a card.
type ProcessTransactionRequest struct {
	CardID      string          `json:"card_id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// ToUseCaseInput converts to use case input.
func (r *ProcessTransactionRequest) ToUseCaseInput(ownerID string) (usecase.ProcessTransactionInput, error) {
	txType, err := domain.ParseTransactionType(r.Type)
	if err != nil {
		return usecase.ProcessTransactionInput{}, err
	}

	return usecase.ProcessTransactionInput{
		CardID:      r.CardID,
		OwnerID:     ownerID,
		Type:        txType,
		Amount:      r.Amount,
		Description: r.Description,
	}, nil
}
