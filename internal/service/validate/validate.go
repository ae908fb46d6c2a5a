package validate

import (
	"strings"

	"github.com/ybenkirane/atlaspay/internal/apperrors"
)

// RIB is a 24 digit bank account identifier
const ribLength = 24

// RIB strips formatting characters from a user supplied bank account number
// and checks the remainder is exactly 24 ASCII digits.
// Returns the normalized number or apperrors.ErrInvalidAccountNumber.
func RIB(number string) (string, error) {
	var b strings.Builder
	b.Grow(ribLength)

	for i := 0; i < len(number); i++ {
		c := number[i]
		if c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}

	normalized := b.String()
	if len(normalized) != ribLength {
		return "", apperrors.ErrInvalidAccountNumber
	}

	return normalized, nil
}
