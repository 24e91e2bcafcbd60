package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/domain"
)

// UnitCost is the resolved cost of one unit in the item currency, before VAT
// handling. Adjustments is set when a price tier carries per-category percentages.
type UnitCost struct {
	Base        decimal.Decimal
	Adjustments map[string]decimal.Decimal
}

// SeasonalCost applies the first season containing day to the item base cost.
// An override wins over a multiplier. A nil day disables seasons.
func SeasonalCost(item domain.Item, day *time.Time) decimal.Decimal {
	if day == nil {
		return item.UnitCost
	}
	for _, s := range item.Seasons {
		if !s.Contains(*day) {
			continue
		}
		if s.CostOverride != nil {
			return *s.CostOverride
		}
		if s.CostMultiplier != nil {
			return item.UnitCost.Mul(*s.CostMultiplier)
		}
	}
	return item.UnitCost
}

// ResolveUnitCost picks the matching price tier for the group, falling back
// to the seasonal base cost. The returned warning is empty unless the item has
// tiers and none matched.
func ResolveUnitCost(item domain.Item, trip domain.Trip, args map[string]int, totalPax int) (UnitCost, string) {
	if len(item.PriceTiers) == 0 {
		return UnitCost{Base: SeasonalCost(item, trip.StartDate)}, ""
	}

	categories := item.TierCategories
	if len(categories) == 0 {
		categories = item.RatioCategories
	}
	count := relevantPax(categories, args, totalPax)

	for _, tier := range item.PriceTiers {
		if tier.PaxMin <= count && count <= tier.PaxMax {
			uc := UnitCost{Base: tier.UnitCost}
			if len(tier.CategoryAdjustments) > 0 {
				uc.Adjustments = tier.CategoryAdjustments
			}
			return uc, ""
		}
	}

	warning := fmt.Sprintf("Item '%s': no price tier for %d pax, using base price", item.Name, count)
	return UnitCost{Base: SeasonalCost(item, trip.StartDate)}, warning
}
