package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeeFor(t *testing.T) {
	tests := []struct {
		name  string
		kind  Kind
		gross string
		want  string
	}{
		{"card transfer 2 percent", KindCardTransfer, "100.00", "2.00"},
		{"card transfer rounds", KindCardTransfer, "10.33", "0.21"},
		{"stripe deposit 2.9 percent plus 30 cents", KindStripeDeposit, "50.00", "1.75"},
		{"stripe deposit small amount", KindStripeDeposit, "1.00", "0.33"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gross := decimal.RequireFromString(tt.gross)
			fee, err := FeeFor(tt.kind, gross)
			require.NoError(t, err)
			assert.True(t, fee.Equal(decimal.RequireFromString(tt.want)),
				"fee = %s, want %s", fee, tt.want)
		})
	}
}

func TestFeeForRejectsNonPositiveGross(t *testing.T) {
	for _, gross := range []string{"0", "-1", "-0.01"} {
		_, err := FeeFor(KindCardTransfer, decimal.RequireFromString(gross))
		assert.ErrorIs(t, err, ErrInvalidAmount, "gross %s", gross)
	}
}

func TestFeeForRejectsUnknownKind(t *testing.T) {
	_, err := FeeFor(Kind("wire_transfer"), decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

// fee + net must equal gross to 2 decimal places for every kind.
func TestFeePlusNetEqualsGross(t *testing.T) {
	amounts := []string{"0.01", "0.50", "1.00", "33.33", "50.00", "100.00", "9999.99"}

	for _, kind := range []Kind{KindCardTransfer, KindStripeDeposit} {
		for _, amount := range amounts {
			gross := decimal.RequireFromString(amount)
			fee, err := FeeFor(kind, gross)
			require.NoError(t, err)

			net := gross.Sub(fee)
			assert.True(t, fee.Add(net).Equal(gross), "%s %s: fee %s + net %s != gross", kind, amount, fee, net)
			assert.False(t, fee.IsNegative(), "%s %s: negative fee", kind, amount)
		}
	}
}
