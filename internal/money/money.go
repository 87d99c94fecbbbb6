// Package money provides fixed-point arithmetic for monetary values.
// All cash, fee, and PnL mutations go through these helpers so float drift
// is bounded to the rounding precision instead of accumulating.
package money

import "github.com/shopspring/decimal"

// Precision is the number of decimal places monetary fields are rounded to
// whenever they are written (micro-USD).
const Precision = 6

// Round rounds v half-up to Precision decimal places.
func Round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(Precision).InexactFloat64()
}

// Mul returns a*b rounded to Precision.
func Mul(a, b float64) float64 {
	return decimal.NewFromFloat(a).Mul(decimal.NewFromFloat(b)).Round(Precision).InexactFloat64()
}

// Div returns a/b rounded to Precision. b must be non-zero.
func Div(a, b float64) float64 {
	return decimal.NewFromFloat(a).Div(decimal.NewFromFloat(b)).Round(Precision).InexactFloat64()
}

// Add returns a+b rounded to Precision.
func Add(a, b float64) float64 {
	return decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).Round(Precision).InexactFloat64()
}

// Sub returns a-b rounded to Precision.
func Sub(a, b float64) float64 {
	return decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Round(Precision).InexactFloat64()
}

// BpsOf returns bps basis points of v, rounded to Precision.
func BpsOf(v float64, bps int64) float64 {
	return decimal.NewFromFloat(v).
		Mul(decimal.NewFromInt(bps)).
		Div(decimal.NewFromInt(10000)).
		Round(Precision).
		InexactFloat64()
}
