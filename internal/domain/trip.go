// Package domain contains the value objects the quotation engine computes over.
// A repository assembles them eagerly; the engine never loads anything itself.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type VATMode string

const (
	VATOnMargin       VATMode = "on_margin"
	VATOnSellingPrice VATMode = "on_selling_price"
)

type MarginType string

const (
	MarginTypeMargin MarginType = "margin"
	MarginTypeMarkup MarginType = "markup"
)

// DefaultCurrency is used when a trip or an item carries no currency.
const DefaultCurrency = "EUR"

// CurrencyRate converts one unit of a foreign currency into the trip currency.
type CurrencyRate struct {
	Rate   decimal.Decimal `json:"rate"`
	Source string          `json:"source,omitempty"`
}

// Trip is the pricing context of a quotation.
type Trip struct {
	ID           int64
	Name         string
	DurationDays int
	StartDate    *time.Time

	DefaultCurrency string
	CurrencyRates   map[string]CurrencyRate

	MarginPct  decimal.Decimal
	MarginType MarginType

	VATPct  decimal.Decimal
	VATMode VATMode

	PrimaryCommissionPct     decimal.Decimal
	PrimaryCommissionLabel   string
	SecondaryCommissionPct   decimal.Decimal
	SecondaryCommissionLabel string

	DestinationCountry string

	Days                []Day
	TransversalFormulas []Formula
	Conditions          []ConditionSelection
}

// SellingCurrency returns the trip currency, defaulting to EUR.
func (t Trip) SellingCurrency() string {
	if t.DefaultCurrency == "" {
		return DefaultCurrency
	}
	return t.DefaultCurrency
}

// EffectiveVATMode defaults an unset mode to on_margin.
func (t Trip) EffectiveVATMode() VATMode {
	if t.VATMode == VATOnSellingPrice {
		return VATOnSellingPrice
	}
	return VATOnMargin
}

// Day is one trip day with its ordered formulas.
type Day struct {
	ID        int64
	DayNumber int
	Title     string
	SortOrder int
	Formulas  []Formula
}

// Formula groups items for a day or for the whole trip. Blocks are nested
// sub-formulas priced inside their parent.
type Formula struct {
	ID              int64
	Name            string
	SortOrder       int
	ServiceDayStart int
	ServiceDayEnd   int
	ConditionID     *int64
	Items           []Item
	Blocks          []Formula
}

// ServiceDays returns the span of days the formula covers, at least 1.
func (f Formula) ServiceDays() int {
	start := f.ServiceDayStart
	if start == 0 {
		start = 1
	}
	end := f.ServiceDayEnd
	if end == 0 {
		end = start
	}
	return max(1, end-start+1)
}

// ConditionSelection is a condition's state for a trip or a cotation:
// whether it is active and which option is selected.
type ConditionSelection struct {
	ConditionID         int64  `json:"condition_id"`
	SelectedOptionID    *int64 `json:"selected_option_id,omitempty"`
	SelectedOptionLabel string `json:"selected_option_label,omitempty"`
	IsActive            bool   `json:"is_active"`
}
