// Package pricing holds the per-item primitives of the quotation engine:
// unit cost resolution, currency conversion, VAT extraction, quantities,
// margins and the trip-level VAT and commission breakdown.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/domain"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/money"
)

var (
	maxMarginPct = decimal.NewFromInt(99)
	minDivisor   = decimal.RequireFromString("0.01")
)

// MarginRule is the pricing method of an item together with the trip margin
// it falls back on.
type MarginRule struct {
	Method     domain.PricingMethod
	Value      *decimal.Decimal
	DefaultPct decimal.Decimal
}

// RuleFor builds the margin rule of an item inside a trip.
func RuleFor(item domain.Item, trip domain.Trip) MarginRule {
	return MarginRule{
		Method:     item.PricingMethod,
		Value:      item.PricingValue,
		DefaultPct: trip.MarginPct,
	}
}

// ApplyMargin turns a cost into a selling price. Items without their own
// price rule divide by the trip margin, whatever the trip's margin type.
func ApplyMargin(cost decimal.Decimal, rule MarginRule) decimal.Decimal {
	switch rule.Method {
	case domain.PricingFixed:
		if rule.Value != nil {
			return *rule.Value
		}
	case domain.PricingAmount:
		if rule.Value != nil {
			return cost.Add(*rule.Value)
		}
	case domain.PricingMarkup:
		pct := rule.DefaultPct
		if rule.Value != nil {
			pct = *rule.Value
		}
		return Markup(cost, pct)
	case domain.PricingMargin:
		if rule.Value != nil {
			return MarginDivide(cost, *rule.Value)
		}
	}

	return MarginDivide(cost, rule.DefaultPct)
}

// Markup returns cost × (1 + pct/100), rounded.
func Markup(cost, pct decimal.Decimal) decimal.Decimal {
	return money.Round(cost.Mul(money.One.Add(pct.Div(money.Hundred))))
}

// MarginDivide returns cost / (1 − pct/100), rounded. The margin is capped at
// 99% and the divisor never drops below 0.01.
func MarginDivide(cost, pct decimal.Decimal) decimal.Decimal {
	if pct.GreaterThanOrEqual(money.Hundred) {
		pct = maxMarginPct
	}
	divisor := money.One.Sub(pct.Div(money.Hundred))
	if divisor.LessThanOrEqual(money.Zero) {
		divisor = minDivisor
	}
	return money.Round(cost.Div(divisor))
}

// CostFromMarginPrice inverts MarginDivide: price × (1 − pct/100).
func CostFromMarginPrice(price, pct decimal.Decimal) decimal.Decimal {
	return money.Round(price.Mul(money.One.Sub(pct.Div(money.Hundred))))
}
