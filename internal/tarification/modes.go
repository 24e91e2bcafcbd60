package tarification

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/money"
)

// rangeWeb expands each [pax_min, pax_max] entry into one line per pax value.
// The selling price is the price per person times the paying pax of the point.
func rangeWeb(entries []Entry, curve []CurvePoint, s Settings) []Line {
	var lines []Line
	for _, e := range entries {
		lo := e.PaxMin
		if lo <= 0 {
			lo = 1
		}
		hi := max(e.PaxMax, lo)
		rangeLabel := e.PaxLabel
		if rangeLabel == "" {
			rangeLabel = strconv.Itoa(lo)
		}

		for pax := lo; pax <= hi; pax++ {
			p, ok := findPoint(curve, pax)
			if !ok {
				continue
			}
			paying := p.PayingPax
			if paying <= 0 {
				paying = p.TotalPax
			}
			cost := p.supplierCost()

			line := marginLine(strconv.Itoa(pax), e.SellingPrice.Mul(money.Int(paying)), cost, p.VATRecoverable, s)
			line.SellingPricePerPerson = ptr(e.SellingPrice)
			line.CostPerPerson = ptr(money.PerHead(cost, p.TotalPax))
			line.PayingPax = ptr(paying)
			line.RangeLabel = rangeLabel
			lines = append(lines, line)
		}
	}
	return lines
}

// extrapolate scales the supplier cost per person of the closest point to
// the chosen group size.
func extrapolate(curve []CurvePoint, totalPax int) (costPP, cost, recoverable decimal.Decimal, ok bool) {
	p, found := findPoint(curve, totalPax)
	if !found {
		return costPP, cost, recoverable, false
	}
	pcPax := p.TotalPax
	if pcPax <= 0 {
		pcPax = totalPax
	}
	costPP = money.PerHead(p.supplierCost(), pcPax)
	cost = costPP.Mul(money.Int(totalPax))
	recoverable = prorate(p.VATRecoverable, totalPax, pcPax)
	return costPP, cost, recoverable, true
}

func perPerson(entries []Entry, curve []CurvePoint, s Settings) []Line {
	var lines []Line
	for _, e := range entries {
		totalPax := groupSize(e)
		costPP, cost, recoverable, ok := extrapolate(curve, totalPax)
		if !ok {
			continue
		}
		label := fmt.Sprintf("%d pers × %s", totalPax, e.PricePerPerson.StringFixed(0))
		line := marginLine(label, e.PricePerPerson.Mul(money.Int(totalPax)), cost, recoverable, s)
		line.PricePerPerson = ptr(e.PricePerPerson)
		line.CostPerPerson = ptr(costPP)
		line.PayingPax = ptr(totalPax)
		lines = append(lines, line)
	}
	return lines
}

func perGroup(entries []Entry, curve []CurvePoint, s Settings) []Line {
	var lines []Line
	for _, e := range entries {
		totalPax := groupSize(e)
		costPP, cost, recoverable, ok := extrapolate(curve, totalPax)
		if !ok {
			continue
		}
		line := marginLine(fmt.Sprintf("Group of %d", totalPax), e.GroupPrice, cost, recoverable, s)
		line.PricePerPerson = ptr(money.PerHead(e.GroupPrice, totalPax))
		line.CostPerPerson = ptr(costPP)
		line.PayingPax = ptr(totalPax)
		lines = append(lines, line)
	}
	return lines
}

func groupSize(e Entry) int {
	if e.TotalPax > 0 {
		return e.TotalPax
	}
	return 2
}

// serviceList prices groups of travelers booked together. Each line's cost
// comes from the point matching the running total of pax so far.
func serviceList(entries []Entry, curve []CurvePoint, s Settings) []Line {
	var lines []Line
	cumulative := 0
	for _, e := range entries {
		pax := e.Pax
		if pax <= 0 {
			pax = 2
		}
		if e.CumulativePax > 0 {
			cumulative = e.CumulativePax
		} else {
			cumulative += pax
		}

		cost, recoverable := shareOfPoint(curve, cumulative, pax)
		line := marginLine(orDefault(e.Label), e.PricePerPerson.Mul(money.Int(pax)), cost, recoverable, s)
		line.Pax = ptr(pax)
		line.PricePerPerson = ptr(e.PricePerPerson)
		line.CostPerPerson = ptr(money.PerHead(cost, pax))
		lines = append(lines, line)
	}
	return lines
}

// enumeration itemizes services sold to one group. The first entry's
// quantity is the group size every line is costed for.
func enumeration(entries []Entry, curve []CurvePoint, s Settings) []Line {
	var lines []Line
	reference := 1
	if len(entries) > 0 && entries[0].Quantity > 0 {
		reference = entries[0].Quantity
	}
	for _, e := range entries {
		qty := e.Quantity
		if qty <= 0 {
			qty = 1
		}

		cost, recoverable := shareOfPoint(curve, reference, qty)
		line := marginLine(orDefault(e.Label), e.UnitPrice.Mul(money.Int(qty)), cost, recoverable, s)
		line.UnitPrice = ptr(e.UnitPrice)
		line.Quantity = ptr(qty)
		line.CostPerPerson = ptr(money.PerHead(cost, qty))
		lines = append(lines, line)
	}
	return lines
}

// shareOfPoint returns the share of the point's supplier cost and
// recoverable VAT that units out of its paying pax represent. A point with no
// paying pax costs nothing.
func shareOfPoint(curve []CurvePoint, lookupPax, units int) (decimal.Decimal, decimal.Decimal) {
	p, ok := findPoint(curve, lookupPax)
	if !ok {
		return money.Zero, money.Zero
	}
	paying := p.PayingPax
	if paying <= 0 {
		return money.Zero, money.Zero
	}
	return prorate(p.supplierCost(), units, paying), prorate(p.VATRecoverable, units, paying)
}

func orDefault(label string) string {
	if label == "" {
		return "Service"
	}
	return label
}
