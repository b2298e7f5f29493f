package tron

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SunPerTRX is the number of smallest units (SUN) per whole TRX.
const SunPerTRX = 1_000_000

// sunExponent is the base-10 exponent between SUN and TRX.
const sunExponent = 6

// SunToTRX converts an integer SUN amount to a whole-unit decimal string.
// The conversion is exact; no floating point is involved.
func SunToTRX(sun int64) string {
	return decimal.New(sun, -sunExponent).String()
}

// TRXToSun converts a whole-unit decimal string to an integer SUN amount.
// Amounts with more than six fractional digits are rejected rather than
// truncated.
func TRXToSun(trx string) (int64, error) {
	d, err := decimal.NewFromString(trx)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", trx, err)
	}
	scaled := d.Shift(sunExponent)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("amount %q has sub-SUN precision", trx)
	}
	if !scaled.BigInt().IsInt64() {
		return 0, fmt.Errorf("amount %q overflows int64 SUN", trx)
	}
	return scaled.IntPart(), nil
}
