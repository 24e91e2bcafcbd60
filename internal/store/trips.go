package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/cotation"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/domain"
)

// formulaTree selects every formula of a trip: day formulas, transversal
// formulas and their nested blocks.
const formulaTree = `
	WITH RECURSIVE tree(id) AS (
		SELECT f.id
		FROM formulas f
		LEFT JOIN trip_days d ON d.id = f.day_id
		WHERE f.parent_id IS NULL AND (f.trip_id = ? OR d.trip_id = ?)
		UNION ALL
		SELECT f.id
		FROM formulas f
		JOIN tree t ON f.parent_id = t.id
	)
`

type formulaRow struct {
	dayID    *int64
	parentID *int64
	formula  domain.Formula
}

// LoadTrip assembles the full value graph of a trip in a handful of queries.
func (s *Store) LoadTrip(ctx context.Context, tripID int64) (domain.Trip, error) {
	trip, err := s.loadTripRow(ctx, tripID)
	if err != nil {
		return domain.Trip{}, err
	}
	if trip.Conditions, err = s.loadTripConditions(ctx, tripID); err != nil {
		return domain.Trip{}, err
	}

	seasons, err := s.loadSeasons(ctx, tripID)
	if err != nil {
		return domain.Trip{}, err
	}
	tiers, err := s.loadTiers(ctx, tripID)
	if err != nil {
		return domain.Trip{}, err
	}
	items, err := s.loadItems(ctx, tripID, seasons, tiers)
	if err != nil {
		return domain.Trip{}, err
	}
	formulas, err := s.loadFormulas(ctx, tripID)
	if err != nil {
		return domain.Trip{}, err
	}
	days, err := s.loadDays(ctx, tripID)
	if err != nil {
		return domain.Trip{}, err
	}

	children := map[int64][]formulaRow{}
	byDay := map[int64][]formulaRow{}
	var transversal []formulaRow
	for _, fr := range formulas {
		switch {
		case fr.parentID != nil:
			children[*fr.parentID] = append(children[*fr.parentID], fr)
		case fr.dayID != nil:
			byDay[*fr.dayID] = append(byDay[*fr.dayID], fr)
		default:
			transversal = append(transversal, fr)
		}
	}

	var build func(fr formulaRow) domain.Formula
	build = func(fr formulaRow) domain.Formula {
		f := fr.formula
		f.Items = items[f.ID]
		for _, child := range children[f.ID] {
			f.Blocks = append(f.Blocks, build(child))
		}
		return f
	}

	for i := range days {
		for _, fr := range byDay[days[i].ID] {
			days[i].Formulas = append(days[i].Formulas, build(fr))
		}
	}
	trip.Days = days
	for _, fr := range transversal {
		trip.TransversalFormulas = append(trip.TransversalFormulas, build(fr))
	}
	return trip, nil
}

func (s *Store) loadTripRow(ctx context.Context, tripID int64) (domain.Trip, error) {
	var (
		t         domain.Trip
		startDate sql.NullString
		rates     string
		vatMode   string
		margin    string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, duration_days, start_date, default_currency, currency_rates,
		       margin_pct, margin_type, vat_pct, vat_calculation_mode,
		       primary_commission_pct, primary_commission_label,
		       secondary_commission_pct, secondary_commission_label,
		       destination_country
		FROM trips
		WHERE id = ?
	`, tripID).Scan(
		&t.ID, &t.Name, &t.DurationDays, &startDate, &t.DefaultCurrency, &rates,
		&t.MarginPct, &margin, &t.VATPct, &vatMode,
		&t.PrimaryCommissionPct, &t.PrimaryCommissionLabel,
		&t.SecondaryCommissionPct, &t.SecondaryCommissionLabel,
		&t.DestinationCountry,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Trip{}, fmt.Errorf("trip %d: %w", tripID, cotation.ErrNotFound)
	}
	if err != nil {
		return domain.Trip{}, fmt.Errorf("query trip %d: %w", tripID, err)
	}

	t.MarginType = domain.MarginType(margin)
	t.VATMode = domain.VATMode(vatMode)
	if startDate.Valid && startDate.String != "" {
		d, err := parseDate(startDate)
		if err != nil {
			return domain.Trip{}, fmt.Errorf("parse trip %d start_date: %w", tripID, err)
		}
		t.StartDate = &d
	}
	if err := json.Unmarshal([]byte(rates), &t.CurrencyRates); err != nil {
		return domain.Trip{}, fmt.Errorf("decode trip %d currency_rates: %w", tripID, err)
	}
	return t, nil
}

func (s *Store) loadTripConditions(ctx context.Context, tripID int64) ([]domain.ConditionSelection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tc.condition_id, tc.selected_option_id, COALESCE(o.label, ''), tc.is_active
		FROM trip_conditions tc
		LEFT JOIN condition_options o ON o.id = tc.selected_option_id
		WHERE tc.trip_id = ?
		ORDER BY tc.condition_id
	`, tripID)
	if err != nil {
		return nil, fmt.Errorf("query trip conditions: %w", err)
	}
	defer rows.Close()

	var out []domain.ConditionSelection
	for rows.Next() {
		var (
			c        domain.ConditionSelection
			selected sql.NullInt64
		)
		if err := rows.Scan(&c.ConditionID, &selected, &c.SelectedOptionLabel, &c.IsActive); err != nil {
			return nil, fmt.Errorf("scan trip condition: %w", err)
		}
		c.SelectedOptionID = nullInt64Ptr(selected)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trip conditions: %w", err)
	}
	return out, nil
}

func (s *Store) loadDays(ctx context.Context, tripID int64) ([]domain.Day, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, day_number, title, sort_order
		FROM trip_days
		WHERE trip_id = ?
		ORDER BY sort_order, day_number, id
	`, tripID)
	if err != nil {
		return nil, fmt.Errorf("query trip days: %w", err)
	}
	defer rows.Close()

	var out []domain.Day
	for rows.Next() {
		var d domain.Day
		if err := rows.Scan(&d.ID, &d.DayNumber, &d.Title, &d.SortOrder); err != nil {
			return nil, fmt.Errorf("scan trip day: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trip days: %w", err)
	}
	return out, nil
}

func (s *Store) loadFormulas(ctx context.Context, tripID int64) ([]formulaRow, error) {
	rows, err := s.db.QueryContext(ctx, formulaTree+`
		SELECT f.id, f.day_id, f.parent_id, f.name, f.sort_order,
		       f.service_day_start, f.service_day_end, f.condition_id
		FROM formulas f
		WHERE f.id IN (SELECT id FROM tree)
		ORDER BY f.sort_order, f.id
	`, tripID, tripID)
	if err != nil {
		return nil, fmt.Errorf("query formulas: %w", err)
	}
	defer rows.Close()

	var out []formulaRow
	for rows.Next() {
		var (
			fr                      formulaRow
			dayID, parentID, condID sql.NullInt64
		)
		if err := rows.Scan(
			&fr.formula.ID, &dayID, &parentID, &fr.formula.Name, &fr.formula.SortOrder,
			&fr.formula.ServiceDayStart, &fr.formula.ServiceDayEnd, &condID,
		); err != nil {
			return nil, fmt.Errorf("scan formula: %w", err)
		}
		fr.dayID = nullInt64Ptr(dayID)
		fr.parentID = nullInt64Ptr(parentID)
		fr.formula.ConditionID = nullInt64Ptr(condID)
		out = append(out, fr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate formulas: %w", err)
	}
	return out, nil
}

// loadItems returns the items of every formula of the trip keyed by formula id.
func (s *Store) loadItems(ctx context.Context, tripID int64, seasons map[int64][]domain.Season, tiers map[int64][]domain.PriceTier) (map[int64][]domain.Item, error) {
	rows, err := s.db.QueryContext(ctx, formulaTree+`
		SELECT i.id, i.formula_id, i.name, i.sort_order, i.cost_nature_code, i.vat_recoverable_default,
		       i.unit_cost, i.currency, i.ratio_categories, i.ratio_per, i.ratio_type,
		       i.times_type, i.times_value, i.pricing_method, i.pricing_value,
		       i.price_includes_vat, i.vat_rate, i.condition_option_id, COALESCE(o.label, ''),
		       i.tier_categories
		FROM items i
		LEFT JOIN condition_options o ON o.id = i.condition_option_id
		WHERE i.formula_id IN (SELECT id FROM tree)
		ORDER BY i.sort_order, i.id
	`, tripID, tripID)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	out := map[int64][]domain.Item{}
	for rows.Next() {
		var (
			it             domain.Item
			formulaID      int64
			categories     string
			ratioType      string
			timesType      string
			method         string
			tierCategories string
			pricingValue   decimal.NullDecimal
			vatRate        decimal.NullDecimal
			includesVAT    sql.NullBool
			optionID       sql.NullInt64
		)
		if err := rows.Scan(
			&it.ID, &formulaID, &it.Name, &it.SortOrder, &it.CostNatureCode, &it.VATRecoverableDefault,
			&it.UnitCost, &it.Currency, &categories, &it.RatioPer, &ratioType,
			&timesType, &it.TimesValue, &method, &pricingValue,
			&includesVAT, &vatRate, &optionID, &it.ConditionOptionLabel,
			&tierCategories,
		); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}

		it.RatioCategories = domain.ParseCategories(categories)
		it.TierCategories = domain.ParseCategories(tierCategories)
		it.RatioType = domain.RatioType(ratioType)
		it.TimesType = domain.TimesType(timesType)
		it.PricingMethod = domain.PricingMethod(method)
		if pricingValue.Valid {
			it.PricingValue = &pricingValue.Decimal
		}
		if vatRate.Valid {
			it.VATRate = &vatRate.Decimal
		}
		if includesVAT.Valid {
			it.PriceIncludesVAT = &includesVAT.Bool
		}
		it.ConditionOptionID = nullInt64Ptr(optionID)
		it.Seasons = seasons[it.ID]
		it.PriceTiers = tiers[it.ID]

		out[formulaID] = append(out[formulaID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return out, nil
}

func (s *Store) loadSeasons(ctx context.Context, tripID int64) (map[int64][]domain.Season, error) {
	rows, err := s.db.QueryContext(ctx, formulaTree+`
		SELECT s.item_id, s.name, s.valid_from, s.valid_to, s.cost_override, s.cost_multiplier
		FROM item_seasons s
		JOIN items i ON i.id = s.item_id
		WHERE i.formula_id IN (SELECT id FROM tree)
		ORDER BY s.item_id, s.sort_order, s.id
	`, tripID, tripID)
	if err != nil {
		return nil, fmt.Errorf("query item seasons: %w", err)
	}
	defer rows.Close()

	out := map[int64][]domain.Season{}
	for rows.Next() {
		var (
			itemID             int64
			season             domain.Season
			from, to           sql.NullString
			override, multiply decimal.NullDecimal
		)
		if err := rows.Scan(&itemID, &season.Name, &from, &to, &override, &multiply); err != nil {
			return nil, fmt.Errorf("scan item season: %w", err)
		}
		// Unreadable bounds keep the season but it never matches.
		validFrom, fromErr := parseDate(from)
		validTo, toErr := parseDate(to)
		if fromErr != nil || toErr != nil {
			season.InvalidDates = true
		} else {
			season.ValidFrom, season.ValidTo = validFrom, validTo
		}
		if override.Valid {
			season.CostOverride = &override.Decimal
		}
		if multiply.Valid {
			season.CostMultiplier = &multiply.Decimal
		}
		out[itemID] = append(out[itemID], season)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate item seasons: %w", err)
	}
	return out, nil
}

func (s *Store) loadTiers(ctx context.Context, tripID int64) (map[int64][]domain.PriceTier, error) {
	rows, err := s.db.QueryContext(ctx, formulaTree+`
		SELECT t.item_id, t.pax_min, t.pax_max, t.unit_cost, t.category_adjustments
		FROM item_price_tiers t
		JOIN items i ON i.id = t.item_id
		WHERE i.formula_id IN (SELECT id FROM tree)
		ORDER BY t.item_id, t.sort_order, t.pax_min, t.id
	`, tripID, tripID)
	if err != nil {
		return nil, fmt.Errorf("query item price tiers: %w", err)
	}
	defer rows.Close()

	out := map[int64][]domain.PriceTier{}
	for rows.Next() {
		var (
			itemID      int64
			tier        domain.PriceTier
			adjustments string
		)
		if err := rows.Scan(&itemID, &tier.PaxMin, &tier.PaxMax, &tier.UnitCost, &adjustments); err != nil {
			return nil, fmt.Errorf("scan item price tier: %w", err)
		}
		if err := json.Unmarshal([]byte(adjustments), &tier.CategoryAdjustments); err != nil {
			return nil, fmt.Errorf("decode price tier adjustments of item %d: %w", itemID, err)
		}
		out[itemID] = append(out[itemID], tier)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate item price tiers: %w", err)
	}
	return out, nil
}
