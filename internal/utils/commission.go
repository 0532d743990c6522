package utils

import (
	"github.com/shopspring/decimal"
)

const basisPointsDenominator = 10000

// CommissionCents computes the commission on a paid amount at a rate given
// in basis points (1000 = 10%), rounded to the nearest cent. Results that
// are zero or negative must not become ledger entries; callers skip them.
func CommissionCents(paidCents int64, rateBasisPoints int64) int64 {
	if paidCents <= 0 || rateBasisPoints <= 0 {
		return 0
	}
	amount := decimal.NewFromInt(paidCents).
		Mul(decimal.NewFromInt(rateBasisPoints)).
		Div(decimal.NewFromInt(basisPointsDenominator))
	return amount.Round(0).IntPart()
}

// RefundFraction computes refunded/original clamped to [0, 1]. An original
// amount of zero or less yields a full-refund fraction: there is nothing
// proportional to preserve.
func RefundFraction(refundedCents, originalCents int64) decimal.Decimal {
	one := decimal.NewFromInt(1)
	if originalCents <= 0 {
		return one
	}
	if refundedCents <= 0 {
		return decimal.Zero
	}
	fraction := decimal.NewFromInt(refundedCents).Div(decimal.NewFromInt(originalCents))
	if fraction.GreaterThan(one) {
		return one
	}
	return fraction
}

// ProportionalCents applies a fraction to an amount, rounding to the
// nearest cent.
func ProportionalCents(amountCents int64, fraction decimal.Decimal) int64 {
	return decimal.NewFromInt(amountCents).Mul(fraction).Round(0).IntPart()
}
