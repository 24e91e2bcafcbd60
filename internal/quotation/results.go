package quotation

import (
	"github.com/shopspring/decimal"

	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/domain"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/pricing"
)

type ItemResult struct {
	ItemID            int64                `json:"item_id"`
	ItemName          string               `json:"item_name"`
	CostNatureCode    string               `json:"cost_nature_code"`
	UnitCostLocal     decimal.Decimal      `json:"unit_cost_local"`
	UnitCost          decimal.Decimal      `json:"unit_cost"`
	Quantity          decimal.Decimal      `json:"quantity"`
	SubtotalCostLocal decimal.Decimal      `json:"subtotal_cost_local"`
	SubtotalCost      decimal.Decimal      `json:"subtotal_cost"`
	UnitPrice         decimal.Decimal      `json:"unit_price"`
	SubtotalPrice     decimal.Decimal      `json:"subtotal_price"`
	MarginApplied     decimal.Decimal      `json:"margin_applied"`
	PricingMethod     domain.PricingMethod `json:"pricing_method"`
	ItemCurrency      string               `json:"item_currency"`
	ExchangeRate      decimal.Decimal      `json:"exchange_rate"`
	VATRecoverable    decimal.Decimal      `json:"vat_recoverable"`
	VATSurcharge      decimal.Decimal      `json:"vat_surcharge"`
}

type FormulaResult struct {
	FormulaID      int64           `json:"formula_id"`
	FormulaName    string          `json:"formula_name"`
	Items          []ItemResult    `json:"items"`
	Blocks         []FormulaResult `json:"blocks,omitempty"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	VATRecoverable decimal.Decimal `json:"vat_recoverable"`
	VATSurcharge   decimal.Decimal `json:"vat_surcharge"`
}

type DayResult struct {
	DayID      int64           `json:"day_id"`
	DayNumber  int             `json:"day_number"`
	Title      string          `json:"title"`
	Formulas   []FormulaResult `json:"formulas"`
	TotalCost  decimal.Decimal `json:"total_cost"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// PaxResult is the priced quotation for one pax composition.
type PaxResult struct {
	Label         string          `json:"label"`
	ArgsLabel     string          `json:"args_label"`
	MarginDefault decimal.Decimal `json:"margin_default"`
	TotalPax      int             `json:"total_pax"`
	PayingPax     int             `json:"paying_pax"`
	Args          map[string]int  `json:"args"`

	Days                []DayResult     `json:"days"`
	TransversalFormulas []FormulaResult `json:"transversal_formulas"`

	TotalCost            decimal.Decimal `json:"total_cost"`
	TotalPrice           decimal.Decimal `json:"total_price"`
	TotalProfit          decimal.Decimal `json:"total_profit"`
	CostPerPerson        decimal.Decimal `json:"cost_per_person"`
	PricePerPerson       decimal.Decimal `json:"price_per_person"`
	PricePerPayingPerson decimal.Decimal `json:"price_per_paying_person"`
	MarginPct            decimal.Decimal `json:"margin_pct"`

	VAT                 *pricing.VATBreakdown        `json:"vat,omitempty"`
	VATRecoverableTotal decimal.Decimal              `json:"vat_recoverable_total"`
	VATSurchargeTotal   decimal.Decimal              `json:"vat_surcharge_total"`
	Commissions         *pricing.CommissionBreakdown `json:"commissions,omitempty"`
	PriceTTC            decimal.Decimal              `json:"price_ttc"`
}

// Totals returns the figures written back onto the pax config.
func (r PaxResult) Totals() domain.PaxTotals {
	return domain.PaxTotals{
		TotalCost:      r.TotalCost,
		TotalPrice:     r.TotalPrice,
		PricePerPerson: r.PricePerPerson,
		PriceTTC:       r.PriceTTC,
	}
}

// Results is the stored output of a calculation run.
type Results struct {
	RunID                string            `json:"run_id,omitempty"`
	TripID               int64             `json:"trip_id"`
	TripName             string            `json:"trip_name"`
	Currency             string            `json:"currency"`
	MarginType           domain.MarginType `json:"margin_type"`
	DefaultMarginPct     decimal.Decimal   `json:"default_margin_pct"`
	PaxConfigs           []PaxResult       `json:"pax_configs"`
	Warnings             []string          `json:"warnings"`
	MissingExchangeRates []string          `json:"missing_exchange_rates"`
}
