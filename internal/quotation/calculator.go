// Package quotation walks a trip's day, formula and item tree for one or more
// pax compositions and aggregates costs, prices and VAT.
//
// The calculator only reads the value graph it is given. Calling it twice on
// the same input returns the same output.
package quotation

import (
	"cmp"
	"errors"
	"log"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/domain"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/money"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/pricing"
)

// Settings is the immutable context of a calculation run.
type Settings struct {
	// PayingCategories lists the categories dividing the price per paying
	// person. Nil means everyone pays.
	PayingCategories map[string]bool
	CountryVAT       *domain.CountryVATRate
	Conditions       Conditions
	Logger           *log.Logger
}

func (s Settings) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}

// PaxOutcome is the result of one pax composition with the warnings and
// missing currencies it produced.
type PaxOutcome struct {
	Result       PaxResult
	Warnings     []string
	MissingRates []string
}

// run accumulates warnings for one pax composition.
type run struct {
	trip     domain.Trip
	settings Settings
	args     map[string]int
	totalPax int
	margin   decimal.Decimal

	warnings []string
	missing  []string
}

func (r *run) warn(w string) {
	r.warnings = append(r.warnings, w)
}

func (r *run) missingRate(err *pricing.MissingExchangeRateError) {
	if slices.Contains(r.missing, err.From) {
		return
	}
	r.missing = append(r.missing, err.From)
	r.warn(err.Error())
}

// CalculatePaxConfig prices the trip for one pax composition.
func CalculatePaxConfig(trip domain.Trip, pc domain.PaxConfig, s Settings) PaxOutcome {
	margin := trip.MarginPct
	if pc.MarginOverridePct != nil {
		margin = *pc.MarginOverridePct
	}
	r := &run{
		trip:     trip,
		settings: s,
		args:     pc.Args(),
		totalPax: pc.Headcount(),
		margin:   margin,
	}

	res := PaxResult{
		Label:         pc.Label,
		ArgsLabel:     pc.ArgsLabel(),
		MarginDefault: margin,
		TotalPax:      r.totalPax,
		PayingPax:     payingPax(pc, s.PayingCategories),
		Args:          r.args,
		Days:          []DayResult{},
	}

	cost, price := money.Zero, money.Zero
	recoverable, surcharge := money.Zero, money.Zero

	for _, day := range sortedBy(trip.Days, func(d domain.Day) int { return d.SortOrder }) {
		dr := DayResult{
			DayID:      day.ID,
			DayNumber:  day.DayNumber,
			Title:      day.Title,
			Formulas:   []FormulaResult{},
			TotalCost:  money.Zero,
			TotalPrice: money.Zero,
		}
		for _, f := range sortedBy(day.Formulas, formulaOrder) {
			fr := r.formula(f)
			dr.Formulas = append(dr.Formulas, fr)
			dr.TotalCost = dr.TotalCost.Add(fr.TotalCost)
			dr.TotalPrice = dr.TotalPrice.Add(fr.TotalPrice)
			recoverable = recoverable.Add(fr.VATRecoverable)
			surcharge = surcharge.Add(fr.VATSurcharge)
		}
		res.Days = append(res.Days, dr)
		cost = cost.Add(dr.TotalCost)
		price = price.Add(dr.TotalPrice)
	}

	res.TransversalFormulas = []FormulaResult{}
	for _, f := range sortedBy(trip.TransversalFormulas, formulaOrder) {
		fr := r.formula(f)
		res.TransversalFormulas = append(res.TransversalFormulas, fr)
		cost = cost.Add(fr.TotalCost)
		price = price.Add(fr.TotalPrice)
		recoverable = recoverable.Add(fr.VATRecoverable)
		surcharge = surcharge.Add(fr.VATSurcharge)
	}

	res.TotalCost = cost
	res.TotalPrice = price
	res.TotalProfit = price.Sub(cost)
	res.CostPerPerson = money.PerHead(cost, res.TotalPax)
	res.PricePerPerson = money.PerHead(price, res.TotalPax)
	res.PricePerPayingPerson = money.PerHead(price, res.PayingPax)
	res.MarginPct = money.Round(money.Ratio(res.TotalProfit, price).Mul(money.Hundred))
	res.VATRecoverableTotal = recoverable
	res.VATSurchargeTotal = surcharge
	res.PriceTTC = price

	if trip.VATPct.IsPositive() {
		vat := pricing.CalculateVAT(pricing.VATInput{
			TotalCost:      cost,
			TotalPrice:     price,
			VATPct:         trip.VATPct,
			Mode:           trip.EffectiveVATMode(),
			CommissionPct:  trip.PrimaryCommissionPct,
			VATRecoverable: recoverable,
		})
		res.VAT = &vat
		res.PriceTTC = vat.PriceTTC
	}

	primary, secondary := pricing.TripCommissions(trip)
	if primary.Pct.IsPositive() || secondary.Pct.IsPositive() {
		c := pricing.CalculateCommissions(price, primary, secondary)
		res.Commissions = &c
	}

	s.logf("quotation: trip=%d pax=%q total_cost=%s total_price=%s warnings=%d",
		trip.ID, pc.Label, cost, price, len(r.warnings))

	return PaxOutcome{Result: res, Warnings: r.warnings, MissingRates: r.missing}
}

func (r *run) formula(f domain.Formula) FormulaResult {
	fr := FormulaResult{
		FormulaID:      f.ID,
		FormulaName:    f.Name,
		Items:          []ItemResult{},
		TotalCost:      money.Zero,
		TotalPrice:     money.Zero,
		VATRecoverable: money.Zero,
		VATSurcharge:   money.Zero,
	}

	for _, item := range sortedBy(f.Items, func(i domain.Item) int { return i.SortOrder }) {
		include, reason := ShouldInclude(item, f, r.settings.Conditions)
		if !include {
			r.warn(reason)
			continue
		}
		ir, ok := r.item(item, f)
		if !ok {
			continue
		}
		fr.Items = append(fr.Items, ir)
		fr.TotalCost = fr.TotalCost.Add(ir.SubtotalCost)
		fr.TotalPrice = fr.TotalPrice.Add(ir.SubtotalPrice)
		fr.VATRecoverable = fr.VATRecoverable.Add(ir.VATRecoverable)
		fr.VATSurcharge = fr.VATSurcharge.Add(ir.VATSurcharge)
	}

	for _, block := range sortedBy(f.Blocks, formulaOrder) {
		br := r.formula(block)
		fr.Blocks = append(fr.Blocks, br)
		fr.TotalCost = fr.TotalCost.Add(br.TotalCost)
		fr.TotalPrice = fr.TotalPrice.Add(br.TotalPrice)
		fr.VATRecoverable = fr.VATRecoverable.Add(br.VATRecoverable)
		fr.VATSurcharge = fr.VATSurcharge.Add(br.VATSurcharge)
	}
	return fr
}

func (r *run) item(item domain.Item, f domain.Formula) (ItemResult, bool) {
	cost, err := pricing.CostItem(item, pricing.ItemContext{
		Trip:       r.trip,
		Formula:    f,
		Args:       r.args,
		TotalPax:   r.totalPax,
		CountryVAT: r.settings.CountryVAT,
	})
	if err != nil {
		var missing *pricing.MissingExchangeRateError
		if !errors.As(err, &missing) {
			r.warn(err.Error())
			return ItemResult{}, false
		}
		r.missingRate(missing)
	}
	for _, w := range cost.Warnings {
		r.warn(w)
	}

	rule := pricing.RuleFor(item, r.trip)
	rule.DefaultPct = r.margin
	price := pricing.ApplyMargin(cost.SubtotalCost, rule)

	unitPrice := money.Zero
	if cost.Quantity.IsPositive() {
		unitPrice = money.Round(price.Div(cost.Quantity))
	}

	return ItemResult{
		ItemID:            item.ID,
		ItemName:          item.Name,
		CostNatureCode:    costNature(item),
		UnitCostLocal:     cost.UnitCostLocal,
		UnitCost:          cost.UnitCost,
		Quantity:          cost.Quantity,
		SubtotalCostLocal: cost.SubtotalCostLocal,
		SubtotalCost:      cost.SubtotalCost,
		UnitPrice:         unitPrice,
		SubtotalPrice:     price,
		MarginApplied:     r.margin,
		PricingMethod:     pricingMethod(item),
		ItemCurrency:      cost.ItemCurrency,
		ExchangeRate:      cost.ExchangeRate,
		VATRecoverable:    cost.VATRecoverable,
		VATSurcharge:      cost.VATSurcharge,
	}, true
}

// Calculate prices every pax composition in order and assembles the run result.
func Calculate(trip domain.Trip, configs []domain.PaxConfig, s Settings) Results {
	outcomes := make([]PaxOutcome, len(configs))
	for i, pc := range configs {
		outcomes[i] = CalculatePaxConfig(trip, pc, s)
	}
	return Assemble(trip, outcomes)
}

// Assemble builds the run result from ordered outcomes, deduplicating
// warnings and missing currencies in first-seen order.
func Assemble(trip domain.Trip, outcomes []PaxOutcome) Results {
	res := Results{
		TripID:               trip.ID,
		TripName:             trip.Name,
		Currency:             trip.SellingCurrency(),
		MarginType:           trip.MarginType,
		DefaultMarginPct:     trip.MarginPct,
		PaxConfigs:           make([]PaxResult, 0, len(outcomes)),
		Warnings:             []string{},
		MissingExchangeRates: []string{},
	}
	if res.MarginType == "" {
		res.MarginType = domain.MarginTypeMargin
	}

	seenWarning := map[string]bool{}
	seenRate := map[string]bool{}
	for _, o := range outcomes {
		res.PaxConfigs = append(res.PaxConfigs, o.Result)
		for _, w := range o.Warnings {
			if !seenWarning[w] {
				seenWarning[w] = true
				res.Warnings = append(res.Warnings, w)
			}
		}
		for _, c := range o.MissingRates {
			if !seenRate[c] {
				seenRate[c] = true
				res.MissingExchangeRates = append(res.MissingExchangeRates, c)
			}
		}
	}
	return res
}

func payingPax(pc domain.PaxConfig, paying map[string]bool) int {
	if paying == nil {
		return pc.People()
	}
	n := 0
	for cat, count := range pc.Counts {
		if paying[cat] {
			n += count
		}
	}
	return n
}

func costNature(item domain.Item) string {
	if item.CostNatureCode == "" {
		return "MIS"
	}
	return item.CostNatureCode
}

func pricingMethod(item domain.Item) domain.PricingMethod {
	if item.PricingMethod == "" {
		return domain.PricingQuotation
	}
	return item.PricingMethod
}

func formulaOrder(f domain.Formula) int { return f.SortOrder }

// sortedBy returns a stably sorted copy, leaving the input untouched.
func sortedBy[T any](in []T, key func(T) int) []T {
	out := slices.Clone(in)
	slices.SortStableFunc(out, func(a, b T) int { return cmp.Compare(key(a), key(b)) })
	return out
}
