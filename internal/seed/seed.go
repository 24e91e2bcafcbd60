package seed

import (
	"database/sql"
	"fmt"
)

type paxCategory struct {
	code             string
	label            string
	groupType        string
	countsForPricing bool
	sortOrder        int
}

var defaultPaxCategories = []paxCategory{
	{"adult", "Adult", "tourist", true, 1},
	{"teen", "Teenager (11-16)", "tourist", true, 2},
	{"child", "Child (2-10)", "tourist", true, 3},
	{"baby", "Baby (under 2)", "tourist", true, 4},
	{"tour_leader", "Tour Leader", "leader", false, 5},
	{"guide", "Guide", "staff", true, 10},
	{"driver", "Driver", "staff", true, 11},
	{"cook", "Cook", "staff", true, 12},
}

type countryVAT struct {
	code       string
	standard   string
	hotel      any
	restaurant any
}

var defaultCountryVAT = []countryVAT{
	{"FR", "20.00", "10.00", "10.00"},
	{"MA", "20.00", "10.00", nil},
	{"TH", "7.00", nil, nil},
	{"VN", "10.00", nil, nil},
	{"KH", "10.00", nil, nil},
	{"LA", "10.00", nil, nil},
	{"MM", "5.00", nil, nil},
	{"ID", "11.00", nil, nil},
	{"MY", "6.00", nil, nil},
	{"GE", "18.00", nil, nil},
	{"AM", "20.00", nil, nil},
}

// Config contains the values required by startup seed.
type Config struct {
	// DemoTrip adds a small trip to price during local development.
	DemoTrip bool
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
}

// Run executes the startup seed in an idempotent way.
func Run(db *sql.DB, cfg Config) (Stats, error) {
	tx, err := db.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	if err := ensurePaxCategories(tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensureCountryVAT(tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if cfg.DemoTrip {
		if err := ensureDemoTrip(tx, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func ensurePaxCategories(tx *sql.Tx, stats *Stats) error {
	for _, c := range defaultPaxCategories {
		var exists bool
		if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM pax_categories WHERE code = ? LIMIT 1)`, c.code).Scan(&exists); err != nil {
			return fmt.Errorf("check pax category %s existence: %w", c.code, err)
		}
		if exists {
			continue
		}

		if _, err := tx.Exec(`
			INSERT INTO pax_categories (code, label, group_type, counts_for_pricing, sort_order)
			VALUES (?, ?, ?, ?, ?)
		`, c.code, c.label, c.groupType, c.countsForPricing, c.sortOrder); err != nil {
			return fmt.Errorf("insert pax category %s: %w", c.code, err)
		}
		stats.Inserts++
	}
	return nil
}

func ensureCountryVAT(tx *sql.Tx, stats *Stats) error {
	for _, r := range defaultCountryVAT {
		var exists bool
		if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM country_vat_rates WHERE country_code = ? LIMIT 1)`, r.code).Scan(&exists); err != nil {
			return fmt.Errorf("check country vat %s existence: %w", r.code, err)
		}
		if exists {
			continue
		}

		if _, err := tx.Exec(`
			INSERT INTO country_vat_rates (country_code, standard, hotel, restaurant)
			VALUES (?, ?, ?, ?)
		`, r.code, r.standard, r.hotel, r.restaurant); err != nil {
			return fmt.Errorf("insert country vat %s: %w", r.code, err)
		}
		stats.Inserts++
	}
	return nil
}

const demoTripName = "Demo: Bangkok and the river"

// ensureDemoTrip inserts a one-day trip with a transversal formula. It counts
// as a single insert.
func ensureDemoTrip(tx *sql.Tx, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM trips WHERE name = ? LIMIT 1)`, demoTripName).Scan(&exists); err != nil {
		return fmt.Errorf("check demo trip existence: %w", err)
	}
	if exists {
		return nil
	}

	res, err := tx.Exec(`
		INSERT INTO trips (name, duration_days, default_currency, currency_rates, margin_pct, margin_type,
		                   vat_pct, vat_calculation_mode, primary_commission_pct, primary_commission_label, destination_country)
		VALUES (?, 2, 'EUR', '{"THB":{"rate":"0.026","source":"manual"}}', '30', 'margin', '20', 'on_margin', '10', 'Agency', 'TH')
	`, demoTripName)
	if err != nil {
		return fmt.Errorf("insert demo trip: %w", err)
	}
	tripID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read demo trip id: %w", err)
	}

	res, err = tx.Exec(`INSERT INTO trip_days (trip_id, day_number, title, sort_order) VALUES (?, 1, 'Bangkok', 1)`, tripID)
	if err != nil {
		return fmt.Errorf("insert demo day: %w", err)
	}
	dayID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read demo day id: %w", err)
	}

	res, err = tx.Exec(`INSERT INTO formulas (day_id, name, sort_order) VALUES (?, 'City tour', 1)`, dayID)
	if err != nil {
		return fmt.Errorf("insert demo formula: %w", err)
	}
	formulaID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read demo formula id: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO items (formula_id, name, sort_order, cost_nature_code, unit_cost, currency, ratio_categories, ratio_type, ratio_per, times_type)
		VALUES
			(?, 'Minivan with driver', 1, 'TRS', '3500', 'THB', '', 'set', 1, 'fixed'),
			(?, 'Riverside hotel', 2, 'HTL', '2400', 'THB', 'dbl,sgl', 'ratio', 1, 'fixed'),
			(?, 'Temple entrance', 3, 'ACT', '500', 'THB', 'adult', 'ratio', 1, 'fixed')
	`, formulaID, formulaID, formulaID); err != nil {
		return fmt.Errorf("insert demo items: %w", err)
	}

	res, err = tx.Exec(`INSERT INTO formulas (trip_id, name, sort_order) VALUES (?, 'Assistance', 1)`, tripID)
	if err != nil {
		return fmt.Errorf("insert demo transversal formula: %w", err)
	}
	assistanceID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read demo transversal formula id: %w", err)
	}
	if _, err := tx.Exec(`
		INSERT INTO items (formula_id, name, unit_cost, currency, ratio_type, ratio_per, times_type)
		VALUES (?, 'Local guide', '40', 'EUR', 'set', 1, 'service_days')
	`, assistanceID); err != nil {
		return fmt.Errorf("insert demo transversal item: %w", err)
	}

	stats.Inserts++
	return nil
}
