package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iho/cardledger/internal/domain"
)

// PostgreSQL error codes the ledger reacts to.
const (
	pgErrDeadlock             = "40P01"
	pgErrSerializationFailure = "40001"
	pgErrLockNotAvailable     = "55P03"
	pgErrUniqueViolation      = "23505"
)

// Unique constraints with a domain meaning.
const (
	constraintTransactionReference = "transactions_reference_key"
	constraintCardNumber           = "cards_card_number_key"
)

// mapError translates PostgreSQL errors with a domain meaning. Everything
// else is returned unchanged.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgErrLockNotAvailable:
		return fmt.Errorf("%w: %s", domain.ErrConcurrencyConflict, pgErr.Message)
	case pgErrUniqueViolation:
		switch pgErr.ConstraintName {
		case constraintTransactionReference:
			return domain.ErrDuplicateReference
		case constraintCardNumber:
			return domain.ErrDuplicateCardNumber
		}
	}

	return err
}
