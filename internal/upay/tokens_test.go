package upay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Эталонные значения посчитаны напрямую: MD5(login + поля + password).
func TestAccessTokens(t *testing.T) {
	t.Run("register token", func(t *testing.T) {
		got := RegisterToken("demo", "8600123456789012", "2512", "pass")
		assert.Equal(t, "ffe15131a053b4ec1a1dde829f17ab8f", got)
	})

	t.Run("confirm token", func(t *testing.T) {
		got := ConfirmToken("demo", "169425", "874123", "pass")
		assert.Equal(t, "413f2ef7d3c64e77d61f8a51190ea313", got)
	})

	t.Run("card list token", func(t *testing.T) {
		got := CardListToken("demo", "451698", "pass")
		assert.Equal(t, "b273801c473f60edad514c3123f34ea6", got)
	})

	t.Run("payment token", func(t *testing.T) {
		got := PaymentToken("demo", "998901234567", "16942587410", "117", "a2b3c4d5", "2500000", "pass")
		assert.Equal(t, "fe43c200c76141db39672b265c6c0341", got)
	})

	// порядок полей — контракт провайдера: перестановка меняет подпись
	t.Run("field order matters", func(t *testing.T) {
		assert.NotEqual(t,
			ConfirmToken("demo", "169425", "874123", "pass"),
			ConfirmToken("demo", "874123", "169425", "pass"))
	})
}

func TestConvertExpiryDate(t *testing.T) {
	t.Run("transposes MMYY to YYMM", func(t *testing.T) {
		got, err := ConvertExpiryDate("1225")
		assert.NoError(t, err)
		assert.Equal(t, "2512", got)
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		for _, input := range []string{"", "125", "12255", "12/25"} {
			_, err := ConvertExpiryDate(input)
			assert.ErrorIs(t, err, ErrInvalidExpiryFormat, "input %q", input)
		}
	})
}
