package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CardStatus is the lifecycle state of a virtual card.
type CardStatus string

const (
	CardStatusActive  CardStatus = "ACTIVE"
	CardStatusBlocked CardStatus = "BLOCKED"
	CardStatusExpired CardStatus = "EXPIRED"
)

// ParseCardStatus parses a status filter. Matching is case-insensitive.
func ParseCardStatus(s string) (CardStatus, error) {
	status := CardStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch status {
	case CardStatusActive, CardStatusBlocked, CardStatusExpired:
		return status, nil
	default:
		return "", fmt.Errorf("%w: unknown card status %q", ErrValidation, s)
	}
}

// Card is a virtual spending instrument owned by exactly one account holder.
// Number and CVV are secrets: they never leave the card registry, callers get
// MaskedNumber instead.
type Card struct {
	ID             string
	OwnerID        string
	Number         string
	HolderName     string
	ExpiryDate     time.Time
	CVV            string
	InitialBalance decimal.Decimal
	Balance        decimal.Decimal
	Status         CardStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// MaskedNumber returns the card number with only the last four digits visible.
func (c *Card) MaskedNumber() string {
	last4 := c.Number
	if len(last4) > 4 {
		last4 = last4[len(last4)-4:]
	}

	return "XXXX-XXXX-XXXX-" + last4
}

// IsExpiredAt reports whether the card's expiry date has been reached at now.
func (c *Card) IsExpiredAt(now time.Time) bool {
	return !now.Before(c.ExpiryDate)
}

// IsActive reports whether the card accepts balance movements.
func (c *Card) IsActive() bool {
	return c.Status == CardStatusActive
}

// Block moves an ACTIVE card to BLOCKED.
func (c *Card) Block() error {
	switch c.Status {
	case CardStatusActive:
		c.Status = CardStatusBlocked
		return nil
	case CardStatusBlocked:
		return fmt.Errorf("%w: card is already blocked", ErrInvalidTransition)
	default:
		return fmt.Errorf("%w: cannot block an expired card", ErrInvalidTransition)
	}
}

// Unblock moves a BLOCKED card back to ACTIVE. Unblocking an active card is
// an error, not a no-op.
func (c *Card) Unblock() error {
	switch c.Status {
	case CardStatusBlocked:
		c.Status = CardStatusActive
		return nil
	case CardStatusActive:
		return fmt.Errorf("%w: only blocked cards can be unblocked", ErrInvalidTransition)
	default:
		return fmt.Errorf("%w: cannot unblock an expired card", ErrInvalidTransition)
	}
}

// Expire marks the card EXPIRED. EXPIRED is terminal; it returns false when
// the card was already expired.
func (c *Card) Expire() bool {
	if c.Status == CardStatusExpired {
		return false
	}

	c.Status = CardStatusExpired

	return true
}

// Apply returns the balance after moving amount in the given direction.
// A debit larger than the balance fails with ErrInsufficientFunds; a credit
// pushing the balance past MaxCardBalance is a validation error.
func (c *Card) Apply(txType TransactionType, amount decimal.Decimal) (decimal.Decimal, error) {
	switch txType {
	case TransactionTypeCredit:
		balance := c.Balance.Add(amount)
		if balance.GreaterThan(maxBalance) {
			return c.Balance, fmt.Errorf("%w: balance would exceed %s", ErrInvalidAmount, MaxCardBalance)
		}

		return balance, nil
	case TransactionTypeDebit:
		if amount.GreaterThan(c.Balance) {
			return c.Balance, ErrInsufficientFunds
		}

		return c.Balance.Sub(amount), nil
	default:
		return c.Balance, fmt.Errorf("%w: unknown transaction type %q", ErrValidation, txType)
	}
}

// ExpiryFrom returns the expiry date for a card issued at issuedAt: the same
// calendar day the given number of years later, at midnight UTC.
func ExpiryFrom(issuedAt time.Time, years int) time.Time {
	t := issuedAt.UTC().AddDate(years, 0, 0)

	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
