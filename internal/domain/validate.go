package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidRatioPer = errors.New("ratio_per must be greater than 0")
	ErrMarginTooHigh   = errors.New("margin must be below 100%")
	ErrMalformedSeason = errors.New("season dates are unreadable or inverted")
)

var hundred = decimal.NewFromInt(100)

// ValidateTrip lists the inputs the engine would silently correct.
// The engine still prices such trips; callers decide whether to block them.
func ValidateTrip(t Trip) error {
	var errs []error
	if t.MarginPct.GreaterThanOrEqual(hundred) {
		errs = append(errs, fmt.Errorf("trip %d: %w (got %s)", t.ID, ErrMarginTooHigh, t.MarginPct))
	}
	for _, day := range t.Days {
		for _, f := range day.Formulas {
			errs = append(errs, validateFormula(f)...)
		}
	}
	for _, f := range t.TransversalFormulas {
		errs = append(errs, validateFormula(f)...)
	}
	return errors.Join(errs...)
}

func validateFormula(f Formula) []error {
	var errs []error
	for _, item := range f.Items {
		if item.RatioType != RatioSet && item.RatioPer <= 0 {
			errs = append(errs, fmt.Errorf("item %d %q: %w", item.ID, item.Name, ErrInvalidRatioPer))
		}
		if item.PricingMethod == PricingMargin && item.PricingValue != nil && item.PricingValue.GreaterThanOrEqual(hundred) {
			errs = append(errs, fmt.Errorf("item %d %q: %w", item.ID, item.Name, ErrMarginTooHigh))
		}
		for _, season := range item.Seasons {
			if season.Malformed() {
				errs = append(errs, fmt.Errorf("item %d %q season %q: %w", item.ID, item.Name, season.Name, ErrMalformedSeason))
			}
		}
	}
	for _, block := range f.Blocks {
		errs = append(errs, validateFormula(block)...)
	}
	return errs
}
