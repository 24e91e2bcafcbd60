// Package money holds the decimal helpers shared by the pricing packages.
// Every currency-producing step rounds half away from zero to two places.
package money

import "github.com/shopspring/decimal"

// Places is the number of decimal places kept on monetary amounts.
const Places = 2

var (
	Zero    = decimal.Zero
	One     = decimal.NewFromInt(1)
	Hundred = decimal.NewFromInt(100)
)

// Round rounds d half-up (away from zero) to two decimal places.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Percent returns amount × pct / 100 rounded to two places.
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return Round(amount.Mul(pct).Div(Hundred))
}

// Ratio returns num / den, or zero when den is not positive.
func Ratio(num, den decimal.Decimal) decimal.Decimal {
	if !den.IsPositive() {
		return Zero
	}
	return num.Div(den)
}

// PerHead divides amount by a head count and rounds, returning zero for an empty group.
func PerHead(amount decimal.Decimal, count int) decimal.Decimal {
	if count <= 0 {
		return Zero
	}
	return Round(amount.Div(decimal.NewFromInt(int64(count))))
}

// Int converts a count to a decimal.
func Int(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}

// Sum adds the given amounts.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// MustParse parses a literal amount and panics on malformed input.
// It is meant for constants and tests.
func MustParse(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
