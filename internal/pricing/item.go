package pricing

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/domain"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/money"
)

// ItemContext is what an item is priced against: the trip, the owning
// formula and one pax composition.
type ItemContext struct {
	Trip       domain.Trip
	Formula    domain.Formula
	Args       map[string]int
	TotalPax   int
	CountryVAT *domain.CountryVATRate
}

// ItemCost is the cost of one item for one pax composition.
// Local amounts are in the item currency, the others in the trip currency.
type ItemCost struct {
	UnitCostLocal     decimal.Decimal
	UnitCost          decimal.Decimal
	Quantity          decimal.Decimal
	SubtotalCostLocal decimal.Decimal
	SubtotalCost      decimal.Decimal
	ItemCurrency      string
	SellingCurrency   string
	ExchangeRate      decimal.Decimal
	VATRecoverable    decimal.Decimal
	VATSurcharge      decimal.Decimal
	Warnings          []string
}

// CostItem prices one item. When the exchange rate is missing it still
// returns a complete cost computed at an identity rate, together with a
// *MissingExchangeRateError.
func CostItem(item domain.Item, ctx ItemContext) (ItemCost, error) {
	var warnings []string
	addWarning := func(w string) {
		if w != "" {
			warnings = append(warnings, w)
		}
	}

	uc, w := ResolveUnitCost(item, ctx.Trip, ctx.Args, ctx.TotalPax)
	addWarning(w)

	currency := item.Currency
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	rate, rateErr := ExchangeRate(ctx.Trip, currency)
	var missing *MissingExchangeRateError
	if rateErr != nil && !errors.As(rateErr, &missing) {
		return ItemCost{}, rateErr
	}
	converted := currency != ctx.Trip.SellingCurrency()
	convert := func(d decimal.Decimal) decimal.Decimal {
		if !converted {
			return d
		}
		return Convert(d, rate)
	}

	mode := ctx.Trip.EffectiveVATMode()
	unit := ApplyItemVAT(item, uc.Base, mode, ctx.CountryVAT)

	out := ItemCost{
		UnitCostLocal:   unit.UnitCost,
		UnitCost:        convert(unit.UnitCost),
		ItemCurrency:    currency,
		SellingCurrency: ctx.Trip.SellingCurrency(),
		ExchangeRate:    rate,
	}
	if !converted {
		out.ExchangeRate = money.One
	}
	vatRecoverable := convert(unit.VATRecoverable)
	vatSurcharge := convert(unit.VATSurcharge)

	times := TemporalMultiplier(item, ctx.Formula, ctx.Trip.DurationDays)

	switch {
	case uc.Adjustments != nil && item.RatioType == domain.RatioSet:
		per := item.RatioPer
		if per <= 0 {
			per = 1
		}
		out.Quantity = money.Int(per * times)
		out.SubtotalCostLocal = money.Round(out.UnitCostLocal.Mul(out.Quantity))
		out.SubtotalCost = money.Round(out.UnitCost.Mul(out.Quantity))
		out.VATRecoverable = money.Round(vatRecoverable.Mul(out.Quantity))
		out.VATSurcharge = money.Round(vatSurcharge.Mul(out.Quantity))

	case uc.Adjustments != nil:
		per, w := ratioPer(item)
		addWarning(w)
		out.Quantity, out.SubtotalCostLocal, out.VATRecoverable, out.VATSurcharge =
			categoryCosts(item, uc, ctx, per, times, mode)
		out.SubtotalCost = convert(out.SubtotalCostLocal)
		out.VATRecoverable = convert(out.VATRecoverable)
		out.VATSurcharge = convert(out.VATSurcharge)

	default:
		q, w := Quantity(item, ctx.Formula, ctx.Trip.DurationDays, ctx.Args, ctx.TotalPax)
		addWarning(w)
		out.Quantity = q
		out.SubtotalCostLocal = money.Round(out.UnitCostLocal.Mul(q))
		out.SubtotalCost = money.Round(out.UnitCost.Mul(q))
		out.VATRecoverable = money.Round(vatRecoverable.Mul(q))
		out.VATSurcharge = money.Round(vatSurcharge.Mul(q))
	}

	out.Warnings = warnings
	if missing != nil {
		return out, missing
	}
	return out, nil
}

// categoryCosts prices a tiered ratio item category by category, each
// category at its adjusted unit cost and with its own ceil(count/per)
// quantity. Amounts are in the item currency.
func categoryCosts(item domain.Item, uc UnitCost, ctx ItemContext, per, times int, mode domain.VATMode) (qty, subtotal, recoverable, surcharge decimal.Decimal) {
	cats := make([]string, 0, len(ctx.Args))
	for cat, n := range ctx.Args {
		if n > 0 && categorySelected(item.RatioCategories, cat) {
			cats = append(cats, cat)
		}
	}
	sort.Strings(cats)

	qty, subtotal, recoverable, surcharge = money.Zero, money.Zero, money.Zero, money.Zero
	for _, cat := range cats {
		catUnit := uc.Base
		if adj, ok := uc.Adjustments[cat]; ok {
			catUnit = money.Round(uc.Base.Mul(money.One.Add(adj.Div(money.Hundred))))
		}
		vat := ApplyItemVAT(item, catUnit, mode, ctx.CountryVAT)
		n := money.Int(ceilDiv(ctx.Args[cat], per) * times)

		qty = qty.Add(n)
		subtotal = subtotal.Add(vat.UnitCost.Mul(n))
		recoverable = recoverable.Add(vat.VATRecoverable.Mul(n))
		surcharge = surcharge.Add(vat.VATSurcharge.Mul(n))
	}
	return qty, money.Round(subtotal), money.Round(recoverable), money.Round(surcharge)
}
