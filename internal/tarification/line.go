package tarification

import (
	"github.com/shopspring/decimal"

	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/domain"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/money"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/pricing"
)

// Line is the margin forecast of one selling price. The pointer fields are
// only set by the modes they belong to.
type Line struct {
	Label                     string          `json:"label"`
	SellingPrice              decimal.Decimal `json:"selling_price"`
	TotalCost                 decimal.Decimal `json:"total_cost"`
	MarginTotal               decimal.Decimal `json:"margin_total"`
	MarginPct                 decimal.Decimal `json:"margin_pct"`
	PrimaryCommissionAmount   decimal.Decimal `json:"primary_commission_amount"`
	SecondaryCommissionAmount decimal.Decimal `json:"secondary_commission_amount"`
	CommissionAmount          decimal.Decimal `json:"commission_amount"`
	AgencySellingPrice        decimal.Decimal `json:"agency_selling_price"`
	MarginAfterCommission     decimal.Decimal `json:"margin_after_commission"`
	VATForecast               decimal.Decimal `json:"vat_forecast"`
	VATRecoverable            decimal.Decimal `json:"vat_recoverable"`
	NetVAT                    decimal.Decimal `json:"net_vat"`
	MarginNette               decimal.Decimal `json:"margin_nette"`

	RangeLabel            string           `json:"range_label,omitempty"`
	SellingPricePerPerson *decimal.Decimal `json:"selling_price_per_person,omitempty"`
	PricePerPerson        *decimal.Decimal `json:"price_per_person,omitempty"`
	CostPerPerson         *decimal.Decimal `json:"cost_per_person,omitempty"`
	UnitPrice             *decimal.Decimal `json:"unit_price,omitempty"`
	PayingPax             *int             `json:"paying_pax,omitempty"`
	Pax                   *int             `json:"pax,omitempty"`
	Quantity              *int             `json:"quantity,omitempty"`
}

// marginLine computes margin, commissions and VAT for a selling price and the
// supplier cost it covers. Under VAT on margin there is nothing to recover.
func marginLine(label string, selling, cost, recoverable decimal.Decimal, s Settings) Line {
	margin := selling.Sub(cost)

	primary := money.Percent(selling, s.PrimaryCommission.Pct)
	secondary := money.Percent(selling, s.SecondaryCommission.Pct)
	commission := primary.Add(secondary)
	afterCommission := margin.Sub(commission)

	if s.VATMode != domain.VATOnSellingPrice {
		recoverable = money.Zero
	}

	forecast, net := money.Zero, money.Zero
	if s.VATPct.IsPositive() {
		vat := pricing.CalculateVAT(pricing.VATInput{
			TotalCost:      cost,
			TotalPrice:     selling,
			VATPct:         s.VATPct,
			Mode:           s.VATMode,
			CommissionPct:  s.PrimaryCommission.Pct.Add(s.SecondaryCommission.Pct),
			VATRecoverable: recoverable,
		})
		forecast = vat.VATAmount
		net = vat.NetVAT
	}

	return Line{
		Label:                     label,
		SellingPrice:              money.Round(selling),
		TotalCost:                 money.Round(cost),
		MarginTotal:               money.Round(margin),
		MarginPct:                 marginPct(margin, selling),
		PrimaryCommissionAmount:   primary,
		SecondaryCommissionAmount: secondary,
		CommissionAmount:          commission,
		AgencySellingPrice:        money.Round(selling.Sub(commission)),
		MarginAfterCommission:     money.Round(afterCommission),
		VATForecast:               forecast,
		VATRecoverable:            money.Round(recoverable),
		NetVAT:                    net,
		MarginNette:               money.Round(afterCommission.Sub(net)),
	}
}

func marginPct(margin, selling decimal.Decimal) decimal.Decimal {
	return money.Round(money.Ratio(margin, selling).Mul(money.Hundred))
}

// totals sums the computed lines. Only the margin percentage is derived
// again, from the summed margin and selling price.
func totals(lines []Line) Line {
	t := Line{
		Label:                     "Total",
		SellingPrice:              money.Zero,
		TotalCost:                 money.Zero,
		MarginTotal:               money.Zero,
		PrimaryCommissionAmount:   money.Zero,
		SecondaryCommissionAmount: money.Zero,
		CommissionAmount:          money.Zero,
		AgencySellingPrice:        money.Zero,
		MarginAfterCommission:     money.Zero,
		VATForecast:               money.Zero,
		VATRecoverable:            money.Zero,
		NetVAT:                    money.Zero,
		MarginNette:               money.Zero,
	}
	for _, l := range lines {
		t.SellingPrice = t.SellingPrice.Add(l.SellingPrice)
		t.TotalCost = t.TotalCost.Add(l.TotalCost)
		t.MarginTotal = t.MarginTotal.Add(l.MarginTotal)
		t.PrimaryCommissionAmount = t.PrimaryCommissionAmount.Add(l.PrimaryCommissionAmount)
		t.SecondaryCommissionAmount = t.SecondaryCommissionAmount.Add(l.SecondaryCommissionAmount)
		t.CommissionAmount = t.CommissionAmount.Add(l.CommissionAmount)
		t.AgencySellingPrice = t.AgencySellingPrice.Add(l.AgencySellingPrice)
		t.MarginAfterCommission = t.MarginAfterCommission.Add(l.MarginAfterCommission)
		t.VATForecast = t.VATForecast.Add(l.VATForecast)
		t.VATRecoverable = t.VATRecoverable.Add(l.VATRecoverable)
		t.NetVAT = t.NetVAT.Add(l.NetVAT)
		t.MarginNette = t.MarginNette.Add(l.MarginNette)
	}
	t.MarginPct = marginPct(t.MarginTotal, t.SellingPrice)
	return t
}
