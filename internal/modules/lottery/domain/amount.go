package domain

import "github.com/shopspring/decimal"

// Amount is a quantity of the pool currency in its smallest unit (lovelace).
type Amount int64

// LovelacePerADA is the number of smallest units in one ADA.
const LovelacePerADA Amount = 1_000_000

// ADA converts the amount to whole ADA for display.
func (a Amount) ADA() decimal.Decimal {
	return decimal.New(int64(a), -6)
}

// MulBps returns a * bps / 10000 rounded down to a whole unit.
func (a Amount) MulBps(bps int64) Amount {
	return Amount(decimal.NewFromInt(int64(a)).
		Mul(decimal.NewFromInt(bps)).
		Div(decimal.NewFromInt(10000)).
		Floor().
		IntPart())
}
