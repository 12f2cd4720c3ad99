// Package cardgen issues virtual card credentials.
package cardgen

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

const (
	numberLength = 16
	cvvLength    = 3

	// DefaultPrefix is the issuer prefix of every generated number.
	DefaultPrefix = "4"
)

var errBadPrefix = errors.New("cardgen: prefix must be 1-6 digits")

// Issuer generates Luhn-valid card numbers and CVVs from crypto/rand. It is
// safe for concurrent use. Uniqueness is enforced by storage, not here.
type Issuer struct {
	prefix string
}

// New creates an Issuer whose numbers start with prefix.
func New(prefix string) (*Issuer, error) {
	if len(prefix) == 0 || len(prefix) > 6 || !allDigits(prefix) {
		return nil, errBadPrefix
	}

	return &Issuer{prefix: prefix}, nil
}

// NewDefault creates an Issuer using DefaultPrefix.
func NewDefault() *Issuer {
	return &Issuer{prefix: DefaultPrefix}
}

// NewNumber returns a 16-digit number whose last digit is the Luhn check digit.
func (i *Issuer) NewNumber() (string, error) {
	body, err := randomDigits(numberLength - len(i.prefix) - 1)
	if err != nil {
		return "", err
	}

	partial := i.prefix + body

	return partial + string('0'+luhnCheckDigit(partial)), nil
}

// NewCVV returns a 3-digit security code.
func (i *Issuer) NewCVV() (string, error) {
	return randomDigits(cvvLength)
}

// ValidLuhn reports whether number is all digits and passes the Luhn check.
func ValidLuhn(number string) bool {
	if len(number) < 2 || !allDigits(number) {
		return false
	}

	return luhnCheckDigit(number[:len(number)-1]) == number[len(number)-1]-'0'
}

// luhnCheckDigit computes the digit that makes partial+digit Luhn-valid.
func luhnCheckDigit(partial string) byte {
	sum := 0
	double := true

	for i := len(partial) - 1; i >= 0; i-- {
		d := int(partial[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}

		sum += d
		double = !double
	}

	return byte((10 - sum%10) % 10)
}

func randomDigits(n int) (string, error) {
	buf := make([]byte, n)
	ten := big.NewInt(10)

	for i := range buf {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("cardgen: read random: %w", err)
		}

		buf[i] = byte('0' + d.Int64())
	}

	return string(buf), nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}
