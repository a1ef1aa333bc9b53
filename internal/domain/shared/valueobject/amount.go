package valueobject

import "github.com/shopspring/decimal"

// AmountScale is the number of fractional digits stored for every monetary amount.
// Storage columns are DECIMAL(18,4), which leaves 14 integer digits.
const AmountScale = 4

// MaxAmount is the smallest value that no longer fits the storage columns
var MaxAmount = decimal.New(1, 18-AmountScale)

// FitsScale reports whether amount has no more than AmountScale significant fractional digits.
// Trailing zeros do not count, so 1.50000 fits.
func FitsScale(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(AmountScale))
}

// FitsStorage reports whether amount is representable without rounding or overflow
func FitsStorage(amount decimal.Decimal) bool {
	return FitsScale(amount) && amount.Abs().LessThan(MaxAmount)
}
