package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/domain"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/money"
)

// VATInput carries the trip-level figures the VAT breakdown is computed from.
type VATInput struct {
	TotalCost      decimal.Decimal
	TotalPrice     decimal.Decimal
	VATPct         decimal.Decimal
	Mode           domain.VATMode
	CommissionPct  decimal.Decimal
	VATRecoverable decimal.Decimal
}

type VATBreakdown struct {
	Margin         decimal.Decimal `json:"margin"`
	VATBase        decimal.Decimal `json:"vat_base"`
	VATAmount      decimal.Decimal `json:"vat_amount"`
	VATRecoverable decimal.Decimal `json:"vat_recoverable"`
	NetVAT         decimal.Decimal `json:"net_vat"`
	PriceTTC       decimal.Decimal `json:"price_ttc"`
	Mode           domain.VATMode  `json:"vat_calculation_mode"`
}

// CalculateVAT computes the VAT owed under either travel-agency regime.
// On margin the base is price − cost; on selling price it is price minus the
// commission, computed on the gross price.
func CalculateVAT(in VATInput) VATBreakdown {
	margin := in.TotalPrice.Sub(in.TotalCost)

	mode := in.Mode
	base := margin
	if mode == domain.VATOnSellingPrice {
		base = in.TotalPrice.Sub(money.Percent(in.TotalPrice, in.CommissionPct))
	} else {
		mode = domain.VATOnMargin
	}

	amount := money.Percent(base, in.VATPct)
	net := money.Round(amount.Sub(in.VATRecoverable))
	if net.IsNegative() {
		net = money.Zero
	}

	return VATBreakdown{
		Margin:         money.Round(margin),
		VATBase:        money.Round(base),
		VATAmount:      amount,
		VATRecoverable: in.VATRecoverable,
		NetVAT:         net,
		PriceTTC:       money.Round(in.TotalPrice.Add(net)),
		Mode:           mode,
	}
}

// Commission is one level of the commission cascade.
type Commission struct {
	Pct   decimal.Decimal
	Label string
}

type CommissionBreakdown struct {
	GrossPrice               decimal.Decimal `json:"gross_price"`
	PrimaryCommission        decimal.Decimal `json:"primary_commission"`
	PrimaryCommissionLabel   string          `json:"primary_commission_label"`
	SecondaryCommission      decimal.Decimal `json:"secondary_commission"`
	SecondaryCommissionLabel string          `json:"secondary_commission_label"`
	TotalCommissions         decimal.Decimal `json:"total_commissions"`
	NetPrice                 decimal.Decimal `json:"net_price"`
}

// CalculateCommissions computes both commissions on the gross selling price.
func CalculateCommissions(price decimal.Decimal, primary, secondary Commission) CommissionBreakdown {
	out := CommissionBreakdown{
		GrossPrice:               price,
		PrimaryCommission:        money.Zero,
		PrimaryCommissionLabel:   primary.Label,
		SecondaryCommission:      money.Zero,
		SecondaryCommissionLabel: secondary.Label,
	}
	if primary.Pct.IsPositive() {
		out.PrimaryCommission = money.Percent(price, primary.Pct)
	}
	if secondary.Pct.IsPositive() {
		out.SecondaryCommission = money.Percent(price, secondary.Pct)
	}
	out.TotalCommissions = out.PrimaryCommission.Add(out.SecondaryCommission)
	out.NetPrice = price.Sub(out.TotalCommissions)
	return out
}

// TripCommissions returns the primary and secondary commissions of a trip.
func TripCommissions(trip domain.Trip) (Commission, Commission) {
	return Commission{Pct: trip.PrimaryCommissionPct, Label: trip.PrimaryCommissionLabel},
		Commission{Pct: trip.SecondaryCommissionPct, Label: trip.SecondaryCommissionLabel}
}
