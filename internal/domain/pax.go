package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Traveler categories.
const (
	PaxAdult      = "adult"
	PaxTeen       = "teen"
	PaxChild      = "child"
	PaxBaby       = "baby"
	PaxGuide      = "guide"
	PaxDriver     = "driver"
	PaxTourLeader = "tour_leader"
	PaxCook       = "cook"
)

// Room and bed types.
const (
	RoomDouble   = "dbl"
	RoomSingle   = "sgl"
	RoomTwin     = "twn"
	RoomTriple   = "tpl"
	RoomFamily   = "fam"
	RoomExtraBed = "exb"
	RoomCanvas   = "cnt"
)

// PaxKeys lists traveler categories in display order.
var PaxKeys = []string{PaxAdult, PaxTeen, PaxChild, PaxBaby, PaxGuide, PaxDriver, PaxTourLeader, PaxCook}

// RoomKeys lists room types in display order.
var RoomKeys = []string{RoomDouble, RoomSingle, RoomTwin, RoomTriple, RoomFamily, RoomExtraBed, RoomCanvas}

// PaxConfig is one traveler composition a quotation is priced for.
type PaxConfig struct {
	Label    string         `json:"label"`
	Counts   map[string]int `json:"counts"`
	Rooms    map[string]int `json:"rooms,omitempty"`
	TotalPax int            `json:"total_pax"`
	// MarginOverridePct replaces the trip margin for this composition only.
	MarginOverridePct *decimal.Decimal `json:"margin_override_pct,omitempty"`
	Totals            *PaxTotals       `json:"totals,omitempty"`
}

// PaxTotals are computed figures a caller may store back on a pax config.
type PaxTotals struct {
	TotalCost      decimal.Decimal `json:"total_cost"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	PricePerPerson decimal.Decimal `json:"price_per_person"`
	PriceTTC       decimal.Decimal `json:"price_ttc"`
}

// People sums every traveler count.
func (p PaxConfig) People() int {
	total := 0
	for _, n := range p.Counts {
		total += n
	}
	return total
}

// Headcount returns TotalPax, or the sum of counts when it was not set.
func (p PaxConfig) Headcount() int {
	if p.TotalPax > 0 {
		return p.TotalPax
	}
	return p.People()
}

// Args merges traveler and room counts, dropping zeros. Adult is always present.
func (p PaxConfig) Args() map[string]int {
	args := make(map[string]int, len(p.Counts)+len(p.Rooms)+1)
	for k, v := range p.Counts {
		if v > 0 {
			args[k] = v
		}
	}
	for k, v := range p.Rooms {
		if v > 0 {
			args[k] = v
		}
	}
	if _, ok := args[PaxAdult]; !ok {
		args[PaxAdult] = 0
	}
	return args
}

// ArgsLabel renders the composition as "adult-4, guide-1, driver-1, dbl-2".
func (p PaxConfig) ArgsLabel() string {
	var parts []string
	for _, key := range PaxKeys {
		if n := p.Counts[key]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s-%d", key, n))
		}
	}
	for _, key := range RoomKeys {
		if n := p.Rooms[key]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s-%d", key, n))
		}
	}
	return strings.Join(parts, ", ")
}

// PaxCategory describes a traveler class and whether it divides the price per person.
type PaxCategory struct {
	Code             string
	Label            string
	GroupType        string
	CountsForPricing bool
	SortOrder        int
}

// PayingCategories returns the set of codes counting for pricing, or nil
// when no categories are configured (everyone pays).
func PayingCategories(categories []PaxCategory) map[string]bool {
	if len(categories) == 0 {
		return nil
	}
	paying := make(map[string]bool, len(categories))
	for _, c := range categories {
		if c.CountsForPricing {
			paying[c.Code] = true
		}
	}
	return paying
}

// RoomDemand is an explicit room allocation line.
type RoomDemand struct {
	BedType string `json:"bed_type"`
	Qty     int    `json:"qty"`
}
