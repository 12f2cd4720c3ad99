package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrorKind is the stable, caller-visible classification of a ledger failure.
type ErrorKind string

const (
	KindValidation          ErrorKind = "validation_error"
	KindCardNotFound        ErrorKind = "card_not_found"
	KindCardNotActive       ErrorKind = "card_not_active"
	KindInsufficientFunds   ErrorKind = "insufficient_funds"
	KindInvalidTransition   ErrorKind = "invalid_transition"
	KindConcurrencyConflict ErrorKind = "concurrency_conflict"
	KindTransactionNotFound ErrorKind = "transaction_not_found"
	KindStorageFault        ErrorKind = "storage_fault"
)

var (
	// Kind sentinels
	ErrValidation          = errors.New("validation error")
	ErrCardNotFound        = errors.New("card not found")
	ErrCardNotActive       = errors.New("card is not active")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInvalidTransition   = errors.New("invalid card status transition")
	ErrConcurrencyConflict = errors.New("card is locked by a concurrent operation, retry")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrStorageFault        = errors.New("storage fault")

	// Validation errors
	ErrInvalidAmount          = fmt.Errorf("%w: amount must be positive", ErrValidation)
	ErrInvalidTransactionType = fmt.Errorf("%w: transaction type must be CREDIT or DEBIT", ErrValidation)
	ErrInvalidHolderName      = fmt.Errorf("%w: invalid card holder name", ErrValidation)
	ErrInvalidDescription     = fmt.Errorf("%w: invalid description", ErrValidation)
	ErrInvalidBalance         = fmt.Errorf("%w: invalid initial balance", ErrValidation)
	ErrMissingOwner           = fmt.Errorf("%w: owner is required", ErrValidation)
	ErrMissingCardID          = fmt.Errorf("%w: card id is required", ErrValidation)

	// Uniqueness collisions; retried internally, never surfaced as such.
	ErrDuplicateReference  = errors.New("duplicate transaction reference")
	ErrDuplicateCardNumber = errors.New("duplicate card number")

	ErrSummaryNotFound = errors.New("account summary not found")
)

// KindOf classifies err. Errors that match no known kind are storage faults.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrCardNotFound):
		return KindCardNotFound
	case errors.Is(err, ErrCardNotActive):
		return KindCardNotActive
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.Is(err, ErrInvalidTransition):
		return KindInvalidTransition
	case errors.Is(err, ErrConcurrencyConflict):
		return KindConcurrencyConflict
	case errors.Is(err, ErrTransactionNotFound):
		return KindTransactionNotFound
	default:
		return KindStorageFault
	}
}

// Retryable reports whether the caller may safely repeat the operation.
func Retryable(err error) bool {
	return KindOf(err) == KindConcurrencyConflict
}

// StorageFault tags an unclassified infrastructure error as a storage fault.
// Errors that already carry a kind are returned unchanged.
func StorageFault(err error) error {
	if err == nil || errors.Is(err, ErrStorageFault) || KindOf(err) != KindStorageFault {
		return err
	}

	return fmt.Errorf("%w: %w", ErrStorageFault, err)
}

// BalanceError attaches the card's current balance to a failure so callers
// can report it.
type BalanceError struct {
	Err     error
	Balance decimal.Decimal
}

// WithBalance wraps err with the card's current balance.
func WithBalance(err error, balance decimal.Decimal) error {
	return &BalanceError{Err: err, Balance: balance}
}

func (e *BalanceError) Error() string {
	return fmt.Sprintf("%s (available balance: %s)", e.Err, e.Balance.StringFixed(2))
}

func (e *BalanceError) Unwrap() error {
	return e.Err
}

// BalanceOf extracts the balance attached with WithBalance, if any.
func BalanceOf(err error) (decimal.Decimal, bool) {
	var be *BalanceError
	if errors.As(err, &be) {
		return be.Balance, true
	}

	return decimal.Zero, false
}
