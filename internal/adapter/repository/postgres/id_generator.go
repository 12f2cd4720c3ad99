package postgres

import (
	"github.com/oklog/ulid/v2"
)

// ReferencePrefix starts every transaction reference.
const ReferencePrefix = "TXN"

// ULIDGenerator generates ULID-based IDs.
type ULIDGenerator struct{}

// NewULIDGenerator creates a new ULIDGenerator.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{}
}

// Generate generates a new ULID.
func (g *ULIDGenerator) Generate() string {
	return ulid.Make().String()
}

// ReferenceGenerator issues transaction references: the prefix followed by a
// ULID, a millisecond timestamp plus 80 random bits drawn from a
// process-wide monotonic source. It needs no coordination between callers.
type ReferenceGenerator struct{}

// NewReferenceGenerator creates a new ReferenceGenerator.
func NewReferenceGenerator() *ReferenceGenerator {
	return &ReferenceGenerator{}
}

// Next returns a new reference.
func (g *ReferenceGenerator) Next() string {
	return ReferencePrefix + ulid.Make().String()
}
