package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Validation constants
const (
	MinHolderNameLength  = 3
	MaxHolderNameLength  = 100
	MaxDescriptionLength = 255
	MinTransactionAmount = "0.01"
	MaxTransactionAmount = "1000000.00"
	MaxCardBalance       = "9999999999.99" // NUMERIC(12,2)
	AmountScale          = 2
)

var (
	minAmount  = decimal.RequireFromString(MinTransactionAmount)
	maxAmount  = decimal.RequireFromString(MaxTransactionAmount)
	maxBalance = decimal.RequireFromString(MaxCardBalance)
)

// ValidateOwnerID rejects an empty owner reference.
func ValidateOwnerID(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return ErrMissingOwner
	}

	return nil
}

// ValidateCardID rejects an empty card reference.
func ValidateCardID(cardID string) error {
	if strings.TrimSpace(cardID) == "" {
		return ErrMissingCardID
	}

	return nil
}

// ValidateHolderName validates a card holder name and returns it in the
// stored form: trimmed and upper-cased.
func ValidateHolderName(name string) (string, error) {
	name = strings.TrimSpace(name)

	n := utf8.RuneCountInString(name)
	if n == 0 {
		return "", fmt.Errorf("%w: name cannot be empty", ErrInvalidHolderName)
	}

	if n < MinHolderNameLength {
		return "", fmt.Errorf("%w: name must be at least %d characters", ErrInvalidHolderName, MinHolderNameLength)
	}

	if n > MaxHolderNameLength {
		return "", fmt.Errorf("%w: name exceeds %d characters", ErrInvalidHolderName, MaxHolderNameLength)
	}

	return strings.ToUpper(name), nil
}

// ValidateInitialBalance validates the opening balance of a new card.
func ValidateInitialBalance(balance decimal.Decimal) error {
	if balance.IsNegative() {
		return fmt.Errorf("%w: balance cannot be negative", ErrInvalidBalance)
	}

	if !hasScale(balance, AmountScale) {
		return fmt.Errorf("%w: at most %d decimal places allowed", ErrInvalidBalance, AmountScale)
	}

	if balance.GreaterThan(maxBalance) {
		return fmt.Errorf("%w: maximum balance is %s", ErrInvalidBalance, MaxCardBalance)
	}

	return nil
}

// ValidateAmount validates a credit/debit amount.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	if !hasScale(amount, AmountScale) {
		return fmt.Errorf("%w: at most %d decimal places allowed", ErrInvalidAmount, AmountScale)
	}

	if amount.LessThan(minAmount) {
		return fmt.Errorf("%w: minimum amount is %s", ErrInvalidAmount, MinTransactionAmount)
	}

	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrInvalidAmount, MaxTransactionAmount)
	}

	return nil
}

// ValidateDescription validates a transaction description and returns it trimmed.
func ValidateDescription(description string) (string, error) {
	description = strings.TrimSpace(description)

	if description == "" {
		return "", fmt.Errorf("%w: description cannot be empty", ErrInvalidDescription)
	}

	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return "", fmt.Errorf("%w: description exceeds %d characters", ErrInvalidDescription, MaxDescriptionLength)
	}

	return description, nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int) {
	const MaxPageSize = 100
	const DefaultPageSize = 20

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}

func hasScale(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Truncate(places))
}
