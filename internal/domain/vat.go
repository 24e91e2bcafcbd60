package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CountryVATRate holds the VAT rates of a destination country.
type CountryVATRate struct {
	CountryCode string
	Standard    decimal.Decimal
	Hotel       *decimal.Decimal
	Restaurant  *decimal.Decimal
	Transport   *decimal.Decimal
	Activity    *decimal.Decimal
}

// RateFor returns the rate of a service category, falling back to the standard rate.
func (c CountryVATRate) RateFor(category string) decimal.Decimal {
	var specific *decimal.Decimal
	switch strings.ToLower(category) {
	case "hotel", "accommodation":
		specific = c.Hotel
	case "restaurant", "meal":
		specific = c.Restaurant
	case "transport":
		specific = c.Transport
	case "activity":
		specific = c.Activity
	}
	if specific != nil {
		return *specific
	}
	return c.Standard
}

var costNatureVATCategory = map[string]string{
	"HTL": "hotel",
	"TRS": "transport",
	"ACT": "activity",
	"RES": "restaurant",
	"GDE": "standard",
	"MIS": "standard",
}

// VATCategory maps a cost nature code to a VAT category.
func VATCategory(costNatureCode string) string {
	if cat, ok := costNatureVATCategory[strings.ToUpper(costNatureCode)]; ok {
		return cat
	}
	return "standard"
}
