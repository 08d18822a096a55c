package domain

import "github.com/shopspring/decimal"

var (
	cardTransferRate  = decimal.NewFromFloat(0.02)
	stripeDepositRate = decimal.NewFromFloat(0.029)
	stripeDepositFlat = decimal.NewFromFloat(0.30)
)

// FeeFor maps a transaction kind and gross amount to the fee charged,
// rounded to 2 decimal places:
//
//	card_transfer:  gross * 2%
//	stripe_deposit: gross * 2.9% + 0.30
//
// New kinds are added by extending the switch; an unlisted kind fails with
// ErrUnknownKind rather than defaulting to a zero fee.
func FeeFor(kind Kind, gross decimal.Decimal) (decimal.Decimal, error) {
	if gross.LessThanOrEqual(decimal.Zero) {
		return decimal.Decimal{}, ErrInvalidAmount
	}

	switch kind {
	case KindCardTransfer:
		return gross.Mul(cardTransferRate).Round(2), nil
	case KindStripeDeposit:
		return gross.Mul(stripeDepositRate).Add(stripeDepositFlat).Round(2), nil
	}
	return decimal.Decimal{}, ErrUnknownKind
}
