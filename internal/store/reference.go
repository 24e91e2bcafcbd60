package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/domain"
)

// OptionLabels returns the labels of the given condition options. Unknown ids
// are absent from the map.
func (s *Store) OptionLabels(ctx context.Context, optionIDs []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(optionIDs))
	if len(optionIDs) == 0 {
		return out, nil
	}

	args := make([]any, len(optionIDs))
	for i, id := range optionIDs {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label FROM condition_options WHERE id IN (`+placeholders(len(optionIDs))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query condition options: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    int64
			label string
		)
		if err := rows.Scan(&id, &label); err != nil {
			return nil, fmt.Errorf("scan condition option: %w", err)
		}
		out[id] = label
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate condition options: %w", err)
	}
	return out, nil
}

// CountryVAT returns the VAT rates of a destination, or nil when none are configured.
func (s *Store) CountryVAT(ctx context.Context, countryCode string) (*domain.CountryVATRate, error) {
	var (
		rate                                   domain.CountryVATRate
		hotel, restaurant, transport, activity decimal.NullDecimal
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT country_code, standard, hotel, restaurant, transport, activity
		FROM country_vat_rates
		WHERE country_code = ?
	`, strings.ToUpper(countryCode)).Scan(&rate.CountryCode, &rate.Standard, &hotel, &restaurant, &transport, &activity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query country vat %s: %w", countryCode, err)
	}

	rate.Hotel = nullDecimalPtr(hotel)
	rate.Restaurant = nullDecimalPtr(restaurant)
	rate.Transport = nullDecimalPtr(transport)
	rate.Activity = nullDecimalPtr(activity)
	return &rate, nil
}

func (s *Store) PaxCategories(ctx context.Context) ([]domain.PaxCategory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, label, group_type, counts_for_pricing, sort_order
		FROM pax_categories
		ORDER BY sort_order, code
	`)
	if err != nil {
		return nil, fmt.Errorf("query pax categories: %w", err)
	}
	defer rows.Close()

	var out []domain.PaxCategory
	for rows.Next() {
		var c domain.PaxCategory
		if err := rows.Scan(&c.Code, &c.Label, &c.GroupType, &c.CountsForPricing, &c.SortOrder); err != nil {
			return nil, fmt.Errorf("scan pax category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pax categories: %w", err)
	}
	return out, nil
}

func nullDecimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}
