package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type RatioType string

const (
	RatioPerPax RatioType = "ratio"
	RatioSet    RatioType = "set"
)

type TimesType string

const (
	TimesFixed       TimesType = "fixed"
	TimesTotal       TimesType = "total"
	TimesServiceDays TimesType = "service_days"
)

type PricingMethod string

const (
	PricingQuotation PricingMethod = "quotation"
	PricingMargin    PricingMethod = "margin"
	PricingMarkup    PricingMethod = "markup"
	PricingAmount    PricingMethod = "amount"
	PricingFixed     PricingMethod = "fixed"
)

// AllCategories is the ratio category that selects every traveler.
const AllCategories = "all"

// Item is a priced cost element inside a formula.
type Item struct {
	ID             int64
	Name           string
	SortOrder      int
	CostNatureCode string
	// VATRecoverableDefault is the cost nature's TTC default, used when
	// PriceIncludesVAT is not set on the item.
	VATRecoverableDefault bool

	UnitCost decimal.Decimal
	Currency string

	RatioCategories []string
	RatioPer        int
	RatioType       RatioType
	TimesType       TimesType
	TimesValue      int

	PricingMethod PricingMethod
	PricingValue  *decimal.Decimal

	PriceIncludesVAT *bool
	VATRate          *decimal.Decimal

	ConditionOptionID    *int64
	ConditionOptionLabel string

	Seasons        []Season
	PriceTiers     []PriceTier
	TierCategories []string
}

// IsTTC reports whether the item cost is tax-inclusive.
func (i Item) IsTTC() bool {
	if i.PriceIncludesVAT != nil {
		return *i.PriceIncludesVAT
	}
	return i.VATRecoverableDefault
}

// Season is a validity window overriding or scaling an item's unit cost.
// A zero bound is open. InvalidDates is set when a stored bound could not be
// read.
type Season struct {
	Name           string
	ValidFrom      time.Time
	ValidTo        time.Time
	CostOverride   *decimal.Decimal
	CostMultiplier *decimal.Decimal
	InvalidDates   bool
}

// Malformed reports unreadable or inverted bounds. Malformed seasons never match.
func (s Season) Malformed() bool {
	if s.InvalidDates {
		return true
	}
	return !s.ValidFrom.IsZero() && !s.ValidTo.IsZero() && s.ValidFrom.After(s.ValidTo)
}

// Contains reports whether day falls inside the season window, bounds included.
func (s Season) Contains(day time.Time) bool {
	if s.Malformed() {
		return false
	}
	if !s.ValidFrom.IsZero() && day.Before(s.ValidFrom) {
		return false
	}
	if !s.ValidTo.IsZero() && day.After(s.ValidTo) {
		return false
	}
	return true
}

// PriceTier prices an item by group size. CategoryAdjustments holds a
// percentage per pax category (-10 means 10% cheaper).
type PriceTier struct {
	PaxMin              int
	PaxMax              int
	UnitCost            decimal.Decimal
	CategoryAdjustments map[string]decimal.Decimal
}

// ParseCategories splits a comma separated category list, lower-cased.
func ParseCategories(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SelectsAll reports whether a category list targets every traveler.
func SelectsAll(categories []string) bool {
	if len(categories) == 0 {
		return true
	}
	for _, c := range categories {
		if c == AllCategories {
			return true
		}
	}
	return false
}
