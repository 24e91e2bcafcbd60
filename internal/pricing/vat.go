package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/domain"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/money"
)

// ItemVATRate resolves the VAT rate of an item: the item's own rate, else the
// destination rate for its cost nature, else none.
func ItemVATRate(item domain.Item, country *domain.CountryVATRate) (decimal.Decimal, bool) {
	if item.VATRate != nil {
		return *item.VATRate, true
	}
	if country != nil {
		return country.RateFor(domain.VATCategory(item.CostNatureCode)), true
	}
	return money.Zero, false
}

// ExtractVAT splits a tax-inclusive cost into its tax-exclusive part and the
// recoverable VAT, both rounded.
func ExtractVAT(ttc, ratePct decimal.Decimal) (ht, recoverable decimal.Decimal) {
	if !ratePct.IsPositive() {
		return ttc, money.Zero
	}
	raw := ttc.Div(money.One.Add(ratePct.Div(money.Hundred)))
	return money.Round(raw), money.Round(ttc.Sub(raw))
}

// VATSurcharge is the non-recoverable VAT added on top of a tax-exclusive cost
// so that the margin survives VAT on the selling price.
func VATSurcharge(ht, ratePct decimal.Decimal) decimal.Decimal {
	if !ratePct.IsPositive() {
		return money.Zero
	}
	return money.Percent(ht, ratePct)
}

// VATTreatment is the VAT outcome for one unit of an item, in item currency.
type VATTreatment struct {
	UnitCost       decimal.Decimal
	VATRecoverable decimal.Decimal
	VATSurcharge   decimal.Decimal
}

// ApplyItemVAT extracts recoverable VAT from TTC items, or surcharges HT
// items when the trip pays VAT on its selling price and the destination rate
// is known.
func ApplyItemVAT(item domain.Item, unitCost decimal.Decimal, mode domain.VATMode, country *domain.CountryVATRate) VATTreatment {
	out := VATTreatment{UnitCost: unitCost, VATRecoverable: money.Zero, VATSurcharge: money.Zero}

	if item.IsTTC() {
		rate, ok := ItemVATRate(item, country)
		if ok && rate.IsPositive() {
			out.UnitCost, out.VATRecoverable = ExtractVAT(unitCost, rate)
		}
		return out
	}

	if mode == domain.VATOnSellingPrice && country != nil {
		rate, ok := ItemVATRate(item, country)
		if ok && rate.IsPositive() {
			out.VATSurcharge = VATSurcharge(unitCost, rate)
			out.UnitCost = unitCost.Add(out.VATSurcharge)
		}
	}
	return out
}
