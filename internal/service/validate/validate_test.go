package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ybenkirane/atlaspay/internal/apperrors"
)

func TestRIB(t *testing.T) {
	t.Run("valid numbers", func(t *testing.T) {
		tests := []struct {
			name   string
			number string
			want   string
		}{
			{
				name:   "plain 24 digits",
				number: "123456789012345678901234",
				want:   "123456789012345678901234",
			},
			{
				name:   "digits with spaces",
				number: "1234 5678 9012 3456 7890 1234",
				want:   "123456789012345678901234",
			},
			{
				name:   "digits with dashes",
				number: "123456-789012-345678-901234",
				want:   "123456789012345678901234",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := RIB(tt.number)

				require.NoError(t, err, "valid RIB should not fail")
				require.Equal(t, tt.want, got)
			})
		}
	})

	t.Run("invalid numbers", func(t *testing.T) {
		tests := []struct {
			name   string
			number string
		}{
			{name: "too short", number: "12345"},
			{name: "too long", number: strings.Repeat("1", 25)},
			{name: "empty", number: ""},
			{name: "letters only", number: "abcdefghijklmnopqrstuvwx"},
			{name: "23 digits and a letter", number: "1234567890123456789012a3"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := RIB(tt.number)

				require.ErrorIs(t, err, apperrors.ErrInvalidAccountNumber)
			})
		}
	})
}
