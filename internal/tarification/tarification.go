// Package tarification works backwards from a declared selling price to the
// margin, commission and VAT it leaves, using the cost curve of a calculated
// cotation. Costs are looked up, never recomputed.
package tarification

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/domain"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/money"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/pricing"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/quotation"
)

var (
	ErrUnknownMode  = errors.New("unknown tarification mode")
	ErrRangeTooWide = errors.New("tarification pax range too wide")
)

// MaxRangeSpan bounds how many pax values one range_web entry expands to.
const MaxRangeSpan = 200

type Mode string

const (
	ModeRangeWeb    Mode = "range_web"
	ModePerPerson   Mode = "per_person"
	ModePerGroup    Mode = "per_group"
	ModeServiceList Mode = "service_list"
	ModeEnumeration Mode = "enumeration"
)

// Entry is one declared selling price. Which fields apply depends on the mode.
type Entry struct {
	// range_web
	PaxMin       int             `json:"pax_min,omitempty"`
	PaxMax       int             `json:"pax_max,omitempty"`
	PaxLabel     string          `json:"pax_label,omitempty"`
	SellingPrice decimal.Decimal `json:"selling_price"`

	// per_person, per_group
	TotalPax       int             `json:"total_pax,omitempty"`
	PricePerPerson decimal.Decimal `json:"price_per_person"`
	GroupPrice     decimal.Decimal `json:"group_price"`

	// service_list
	Label         string `json:"label,omitempty"`
	Pax           int    `json:"pax,omitempty"`
	CumulativePax int    `json:"cumulative_pax,omitempty"`

	// enumeration
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity,omitempty"`
}

// Declaration is the client-facing price list of a cotation.
type Declaration struct {
	Mode    Mode    `json:"mode"`
	Entries []Entry `json:"entries"`
	// ValidityDate is an optional tariff expiry, YYYY-MM-DD.
	ValidityDate string `json:"validity_date,omitempty"`
}

// Validate checks the mode and the validity date.
func (d Declaration) Validate() error {
	switch d.Mode {
	case "", ModeRangeWeb, ModePerPerson, ModePerGroup, ModeServiceList, ModeEnumeration:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, d.Mode)
	}
	if d.Mode == "" || d.Mode == ModeRangeWeb {
		if err := checkSpans(d.Entries); err != nil {
			return err
		}
	}
	if d.ValidityDate != "" {
		if _, err := time.Parse(time.DateOnly, d.ValidityDate); err != nil {
			return fmt.Errorf("parse validity_date: %w", err)
		}
	}
	return nil
}

// checkSpans rejects range_web entries expanding to more than MaxRangeSpan lines.
func checkSpans(entries []Entry) error {
	for i, e := range entries {
		lo := max(e.PaxMin, 1)
		if e.PaxMax > lo && e.PaxMax-lo >= MaxRangeSpan {
			return fmt.Errorf("%w: entry %d covers %d..%d", ErrRangeTooWide, i, lo, e.PaxMax)
		}
	}
	return nil
}

// CurvePoint is the stored cost of one calculated pax composition.
type CurvePoint struct {
	Label          string
	TotalPax       int
	PayingPax      int
	TotalCost      decimal.Decimal
	CostPerPerson  decimal.Decimal
	VATSurcharge   decimal.Decimal
	VATRecoverable decimal.Decimal
}

// supplierCost removes the margin-protecting VAT surcharge from the cost.
func (p CurvePoint) supplierCost() decimal.Decimal {
	return p.TotalCost.Sub(p.VATSurcharge)
}

// CurveFromResults extracts the cost curve from a calculation result.
func CurveFromResults(res quotation.Results) []CurvePoint {
	curve := make([]CurvePoint, 0, len(res.PaxConfigs))
	for _, pc := range res.PaxConfigs {
		curve = append(curve, CurvePoint{
			Label:          pc.Label,
			TotalPax:       pc.TotalPax,
			PayingPax:      pc.PayingPax,
			TotalCost:      pc.TotalCost,
			CostPerPerson:  pc.CostPerPerson,
			VATSurcharge:   pc.VATSurchargeTotal,
			VATRecoverable: pc.VATRecoverableTotal,
		})
	}
	return curve
}

// Settings are the trip figures margin lines are computed with.
type Settings struct {
	PrimaryCommission   pricing.Commission
	SecondaryCommission pricing.Commission
	VATPct              decimal.Decimal
	VATMode             domain.VATMode
}

func SettingsFromTrip(trip domain.Trip) Settings {
	primary, secondary := pricing.TripCommissions(trip)
	return Settings{
		PrimaryCommission:   primary,
		SecondaryCommission: secondary,
		VATPct:              trip.VATPct,
		VATMode:             trip.EffectiveVATMode(),
	}
}

// Result holds one line per priced entry (or per pax value in range_web)
// and their sum.
type Result struct {
	Mode   Mode   `json:"mode"`
	Lines  []Line `json:"lines"`
	Totals Line   `json:"totals"`
}

// Compute resolves every entry of the declaration against the cost curve.
func Compute(decl Declaration, curve []CurvePoint, s Settings) (Result, error) {
	mode := decl.Mode
	if mode == "" {
		mode = ModeRangeWeb
	}

	var lines []Line
	switch mode {
	case ModeRangeWeb:
		if err := checkSpans(decl.Entries); err != nil {
			return Result{}, err
		}
		lines = rangeWeb(decl.Entries, curve, s)
	case ModePerPerson:
		lines = perPerson(decl.Entries, curve, s)
	case ModePerGroup:
		lines = perGroup(decl.Entries, curve, s)
	case ModeServiceList:
		lines = serviceList(decl.Entries, curve, s)
	case ModeEnumeration:
		lines = enumeration(decl.Entries, curve, s)
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownMode, decl.Mode)
	}
	if lines == nil {
		lines = []Line{}
	}

	return Result{Mode: mode, Lines: lines, Totals: totals(lines)}, nil
}

// findPoint returns the curve point for a pax count: exact total pax, then
// exact paying pax, then the closest total pax (first wins on ties).
func findPoint(curve []CurvePoint, pax int) (CurvePoint, bool) {
	if len(curve) == 0 {
		return CurvePoint{}, false
	}
	for _, p := range curve {
		if p.TotalPax == pax {
			return p, true
		}
	}
	for _, p := range curve {
		if p.PayingPax == pax {
			return p, true
		}
	}
	best := curve[0]
	for _, p := range curve[1:] {
		if absInt(p.TotalPax-pax) < absInt(best.TotalPax-pax) {
			best = p
		}
	}
	return best, true
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// prorate returns amount × part / whole, rounded, or zero for an empty whole.
func prorate(amount decimal.Decimal, part, whole int) decimal.Decimal {
	if whole <= 0 {
		return money.Zero
	}
	return money.Round(amount.Mul(money.Int(part)).Div(money.Int(whole)))
}

func ptr[T any](v T) *T { return &v }
