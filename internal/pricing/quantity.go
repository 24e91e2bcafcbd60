package pricing

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/domain"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/money"
)

func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}

func isRoomKey(key string) bool {
	return slices.Contains(domain.RoomKeys, key)
}

// relevantPax sums the counts of the selected categories, or returns
// totalPax when the selection covers everyone.
func relevantPax(categories []string, args map[string]int, totalPax int) int {
	if domain.SelectsAll(categories) {
		return totalPax
	}
	n := 0
	for _, c := range categories {
		n += args[c]
	}
	return n
}

// ratioPer returns the item divisor, correcting non-positive values to 1.
func ratioPer(item domain.Item) (int, string) {
	if item.RatioPer > 0 {
		return item.RatioPer, ""
	}
	return 1, fmt.Sprintf("Item %s: ratio_per must be > 0, defaulting to 1", item.Name)
}

// BaseQuantity applies the ratio rule: a fixed count for "set" items,
// ceil(relevant pax / ratio_per) otherwise.
func BaseQuantity(item domain.Item, args map[string]int, totalPax int) (int, string) {
	if item.RatioType == domain.RatioSet {
		if item.RatioPer > 0 {
			return item.RatioPer, ""
		}
		return ratioPer(item)
	}

	relevant := relevantPax(item.RatioCategories, args, totalPax)
	if relevant <= 0 {
		return 0, ""
	}
	per, warning := ratioPer(item)
	return ceilDiv(relevant, per), warning
}

// TemporalMultiplier returns how many times the item repeats over time.
func TemporalMultiplier(item domain.Item, formula domain.Formula, durationDays int) int {
	switch item.TimesType {
	case domain.TimesTotal:
		return durationDays
	case domain.TimesServiceDays:
		return formula.ServiceDays()
	case domain.TimesFixed, "":
		if item.TimesValue <= 0 {
			return 1
		}
		return item.TimesValue
	}
	return 1
}

// Quantity combines the ratio rule and the temporal multiplier, rounded to two places.
func Quantity(item domain.Item, formula domain.Formula, durationDays int, args map[string]int, totalPax int) (decimal.Decimal, string) {
	base, warning := BaseQuantity(item, args, totalPax)
	times := TemporalMultiplier(item, formula, durationDays)
	return money.Round(money.Int(base * times)), warning
}

// categorySelected reports whether a category participates in a ratio item.
// Room counts only participate when named explicitly.
func categorySelected(categories []string, category string) bool {
	if domain.SelectsAll(categories) {
		return !isRoomKey(category)
	}
	return slices.Contains(categories, category)
}
