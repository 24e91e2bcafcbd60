package store

import (
	"context"
	"database/sql"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/cotation"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/db"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/domain"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/migrations"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/money"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/pax"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/pricing"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/tarification"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "store-test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := migrations.Up(database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return database
}

func mustExec(t *testing.T, database *sql.DB, query string, args ...any) int64 {
	t.Helper()
	res, err := database.Exec(query, args...)
	if err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("last insert id: %v", err)
	}
	return id
}

type fixture struct {
	tripID      int64
	conditionID int64
	cookingID   int64
	boatID      int64
}

// seedTrip stores a two-day trip with a conditional formula, a nested block,
// a transversal formula, a seasonal item and a tiered item.
func seedTrip(t *testing.T, database *sql.DB) fixture {
	t.Helper()
	var f fixture

	f.tripID = mustExec(t, database, `
		INSERT INTO trips (name, duration_days, start_date, default_currency, currency_rates, margin_pct, margin_type,
		                   vat_pct, vat_calculation_mode, primary_commission_pct, primary_commission_label, destination_country)
		VALUES ('Northern loop', 2, '2026-07-10', 'EUR', '{"USD":{"rate":"0.5","source":"manual"}}', '30', 'margin',
		        '20', 'on_margin', '10', 'Agency', 'TH')
	`)

	f.conditionID = mustExec(t, database, `INSERT INTO conditions (name) VALUES ('Activity')`)
	f.cookingID = mustExec(t, database, `INSERT INTO condition_options (condition_id, label, sort_order) VALUES (?, 'Cooking', 1)`, f.conditionID)
	f.boatID = mustExec(t, database, `INSERT INTO condition_options (condition_id, label, sort_order) VALUES (?, 'Boat', 2)`, f.conditionID)
	mustExec(t, database, `INSERT INTO trip_conditions (trip_id, condition_id, selected_option_id, is_active) VALUES (?, ?, ?, 1)`,
		f.tripID, f.conditionID, f.cookingID)

	day2 := mustExec(t, database, `INSERT INTO trip_days (trip_id, day_number, title, sort_order) VALUES (?, 2, 'Coast', 2)`, f.tripID)
	day1 := mustExec(t, database, `INSERT INTO trip_days (trip_id, day_number, title, sort_order) VALUES (?, 1, 'Arrival', 1)`, f.tripID)

	base := mustExec(t, database, `INSERT INTO formulas (day_id, name, sort_order) VALUES (?, 'Base', 1)`, day1)
	mustExec(t, database, `
		INSERT INTO items (formula_id, name, sort_order, unit_cost, ratio_type, ratio_per)
		VALUES (?, 'Jeep', 1, '100', 'set', 1)
	`, base)
	hotel := mustExec(t, database, `
		INSERT INTO items (formula_id, name, sort_order, cost_nature_code, vat_recoverable_default, unit_cost,
		                   ratio_categories, ratio_type, ratio_per, times_type, price_includes_vat)
		VALUES (?, 'Hotel', 2, 'HTL', 1, '60', 'dbl', 'ratio', 1, 'fixed', 0)
	`, base)
	mustExec(t, database, `
		INSERT INTO item_seasons (item_id, name, valid_from, valid_to, cost_multiplier, sort_order)
		VALUES (?, 'High', '2026-07-01', '2026-08-31', '1.5', 1)
	`, hotel)

	block := mustExec(t, database, `INSERT INTO formulas (parent_id, name, sort_order) VALUES (?, 'Extras', 1)`, base)
	mustExec(t, database, `
		INSERT INTO items (formula_id, name, unit_cost, ratio_categories, ratio_type, ratio_per, pricing_method, pricing_value)
		VALUES (?, 'Water', '2', 'adult, child', 'ratio', 1, 'markup', '50')
	`, block)

	options := mustExec(t, database, `INSERT INTO formulas (day_id, name, sort_order, condition_id) VALUES (?, 'Options', 1, ?)`, day2, f.conditionID)
	mustExec(t, database, `INSERT INTO items (formula_id, name, unit_cost, ratio_type, condition_option_id) VALUES (?, 'Cooking class', '20', 'set', ?)`, options, f.cookingID)
	mustExec(t, database, `INSERT INTO items (formula_id, name, unit_cost, ratio_type, condition_option_id) VALUES (?, 'Boat tour', '30', 'set', ?)`, options, f.boatID)

	insurance := mustExec(t, database, `INSERT INTO formulas (trip_id, name, sort_order) VALUES (?, 'Insurance', 1)`, f.tripID)
	cover := mustExec(t, database, `
		INSERT INTO items (formula_id, name, unit_cost, currency, ratio_type, ratio_per, tier_categories)
		VALUES (?, 'Cover', '40', 'USD', 'ratio', 1, 'adult')
	`, insurance)
	mustExec(t, database, `
		INSERT INTO item_price_tiers (item_id, pax_min, pax_max, unit_cost, category_adjustments)
		VALUES (?, 1, 4, '40', '{"child":"-50"}'), (?, 5, 99, '30', '{}')
	`, cover, cover)

	return f
}

func TestLoadTrip_AssemblesGraph(t *testing.T) {
	database := openTestDB(t)
	f := seedTrip(t, database)
	s := New(database)

	trip, err := s.LoadTrip(context.Background(), f.tripID)
	require.NoError(t, err)

	assert.Equal(t, "Northern loop", trip.Name)
	require.NotNil(t, trip.StartDate)
	assert.Equal(t, time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC), *trip.StartDate)
	assert.True(t, trip.CurrencyRates["USD"].Rate.Equal(money.MustParse("0.5")))
	assert.Equal(t, domain.MarginTypeMargin, trip.MarginType)
	assert.Equal(t, "Agency", trip.PrimaryCommissionLabel)

	require.Len(t, trip.Conditions, 1)
	assert.True(t, trip.Conditions[0].IsActive)
	assert.Equal(t, "Cooking", trip.Conditions[0].SelectedOptionLabel)

	require.Len(t, trip.Days, 2)
	assert.Equal(t, 1, trip.Days[0].DayNumber, "days follow sort order")

	require.Len(t, trip.Days[0].Formulas, 1)
	base := trip.Days[0].Formulas[0]
	require.Len(t, base.Items, 2)
	assert.Equal(t, "Jeep", base.Items[0].Name)

	hotel := base.Items[1]
	assert.Equal(t, []string{"dbl"}, hotel.RatioCategories)
	require.NotNil(t, hotel.PriceIncludesVAT)
	assert.False(t, *hotel.PriceIncludesVAT)
	assert.True(t, hotel.VATRecoverableDefault)
	require.Len(t, hotel.Seasons, 1)
	assert.True(t, hotel.Seasons[0].CostMultiplier.Equal(money.MustParse("1.5")))
	assert.Nil(t, hotel.Seasons[0].CostOverride)

	require.Len(t, base.Blocks, 1)
	water := base.Blocks[0].Items[0]
	assert.Equal(t, []string{"adult", "child"}, water.RatioCategories)
	assert.Equal(t, domain.PricingMarkup, water.PricingMethod)
	require.NotNil(t, water.PricingValue)
	assert.True(t, water.PricingValue.Equal(money.MustParse("50")))

	options := trip.Days[1].Formulas[0]
	require.NotNil(t, options.ConditionID)
	assert.Equal(t, f.conditionID, *options.ConditionID)
	assert.Equal(t, "Boat", options.Items[1].ConditionOptionLabel)

	require.Len(t, trip.TransversalFormulas, 1)
	cover := trip.TransversalFormulas[0].Items[0]
	require.Len(t, cover.PriceTiers, 2)
	assert.True(t, cover.PriceTiers[0].CategoryAdjustments["child"].Equal(money.MustParse("-50")))
	assert.Equal(t, []string{"adult"}, cover.TierCategories)
}

func TestLoadTrip_UnreadableSeasonDatesNeverMatch(t *testing.T) {
	database := openTestDB(t)

	tripID := mustExec(t, database, `INSERT INTO trips (name, duration_days, start_date, margin_pct) VALUES ('Rainy', 1, '2026-07-10', '30')`)
	day := mustExec(t, database, `INSERT INTO trip_days (trip_id, day_number, sort_order) VALUES (?, 1, 1)`, tripID)
	formula := mustExec(t, database, `INSERT INTO formulas (day_id, name, sort_order) VALUES (?, 'Base', 1)`, day)
	item := mustExec(t, database, `INSERT INTO items (formula_id, name, unit_cost, ratio_type) VALUES (?, 'Lodge', '100', 'set')`, formula)
	mustExec(t, database, `
		INSERT INTO item_seasons (item_id, name, valid_from, valid_to, cost_override, sort_order)
		VALUES (?, 'bad', '2026/13/40', '2026-12-31', '500', 1)
	`, item)

	trip, err := New(database).LoadTrip(context.Background(), tripID)
	require.NoError(t, err)

	lodge := trip.Days[0].Formulas[0].Items[0]
	require.Len(t, lodge.Seasons, 1)
	assert.True(t, lodge.Seasons[0].InvalidDates)
	assert.True(t, pricing.SeasonalCost(lodge, trip.StartDate).Equal(money.MustParse("100")))
	assert.ErrorIs(t, domain.ValidateTrip(trip), domain.ErrMalformedSeason)
}

func TestLoadTrip_NotFound(t *testing.T) {
	s := New(openTestDB(t))

	_, err := s.LoadTrip(context.Background(), 404)
	assert.ErrorIs(t, err, cotation.ErrNotFound)
}

func TestCotationRoundTrip(t *testing.T) {
	database := openTestDB(t)
	f := seedTrip(t, database)
	s := New(database)
	ctx := context.Background()

	configs, err := pax.GenerateRange(2, 3)
	require.NoError(t, err)
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	created, err := s.CreateCotation(ctx, cotation.Cotation{
		TripID:              f.tripID,
		Name:                "Standard",
		Mode:                cotation.ModeRange,
		ConditionSelections: map[int64]int64{f.conditionID: f.boatID},
		MinPax:              2,
		MaxPax:              3,
		PaxConfigs:          configs,
		Status:              cotation.StatusDraft,
		CreatedAt:           now,
		UpdatedAt:           now,
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	got, err := s.GetCotation(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, f.boatID, got.ConditionSelections[f.conditionID])
	assert.Equal(t, configs, got.PaxConfigs)
	assert.Nil(t, got.Results)
	assert.Nil(t, got.CalculatedAt)
	assert.Equal(t, now, got.CreatedAt)

	got.Tarification = &tarification.Declaration{Mode: tarification.ModePerGroup, Entries: []tarification.Entry{{TotalPax: 4, GroupPrice: money.MustParse("900")}}}
	got.Status = cotation.StatusCalculated
	got.CalculatedAt = &now
	require.NoError(t, s.SaveCotation(ctx, got))

	again, err := s.GetCotation(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, again.Tarification)
	assert.True(t, again.Tarification.Entries[0].GroupPrice.Equal(money.MustParse("900")))
	require.NotNil(t, again.CalculatedAt)
	assert.Equal(t, now, *again.CalculatedAt)

	require.NoError(t, s.SetStatus(ctx, created.ID, cotation.StatusError))
	list, err := s.ListCotations(ctx, f.tripID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, cotation.StatusError, list[0].Status)

	assert.ErrorIs(t, s.SetStatus(ctx, 999, cotation.StatusDraft), cotation.ErrNotFound)
	_, err = s.GetCotation(ctx, 999)
	assert.ErrorIs(t, err, cotation.ErrNotFound)
}

func TestReferenceData(t *testing.T) {
	database := openTestDB(t)
	f := seedTrip(t, database)
	s := New(database)
	ctx := context.Background()

	labels, err := s.OptionLabels(ctx, []int64{f.cookingID, f.boatID, 999})
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{f.cookingID: "Cooking", f.boatID: "Boat"}, labels)

	empty, err := s.OptionLabels(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	vat, err := s.CountryVAT(ctx, "th")
	require.NoError(t, err)
	assert.Nil(t, vat, "no rates configured yet")

	mustExec(t, database, `INSERT INTO country_vat_rates (country_code, standard, hotel) VALUES ('TH', '7', '5')`)
	vat, err = s.CountryVAT(ctx, "th")
	require.NoError(t, err)
	require.NotNil(t, vat)
	assert.True(t, vat.RateFor("hotel").Equal(money.MustParse("5")))
	assert.True(t, vat.RateFor("transport").Equal(money.MustParse("7")))
	assert.Nil(t, vat.Restaurant)

	mustExec(t, database, `INSERT INTO pax_categories (code, label, group_type, counts_for_pricing, sort_order) VALUES ('tour_leader', 'Tour Leader', 'leader', 0, 5), ('adult', 'Adult', 'tourist', 1, 1)`)
	cats, err := s.PaxCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "adult", cats[0].Code)
	assert.False(t, cats[1].CountsForPricing)
}

func TestServiceOverStore_CalculateHonoursOverrides(t *testing.T) {
	database := openTestDB(t)
	f := seedTrip(t, database)
	s := New(database)
	ctx := context.Background()

	svc := cotation.NewService(s, cotation.Options{Workers: 3, Logger: log.New(io.Discard, "", 0)})
	c, err := svc.Create(ctx, cotation.CreateInput{
		TripID:              f.tripID,
		Name:                "Boat variant",
		MinPax:              2,
		MaxPax:              4,
		ConditionSelections: map[int64]int64{f.conditionID: f.boatID},
	})
	require.NoError(t, err)

	calculated, err := svc.Calculate(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, calculated.Results)
	require.Len(t, calculated.Results.PaxConfigs, 3)

	day2 := calculated.Results.PaxConfigs[0].Days[1]
	var names []string
	for _, fr := range day2.Formulas {
		for _, ir := range fr.Items {
			names = append(names, ir.ItemName)
		}
	}
	assert.Equal(t, []string{"Boat tour"}, names)

	stored, err := s.GetCotation(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, cotation.StatusCalculated, stored.Status)
	require.NotNil(t, stored.Results)
	assert.Equal(t, calculated.Results.RunID, stored.Results.RunID)
	for _, pc := range stored.PaxConfigs {
		assert.NotNil(t, pc.Totals, pc.Label)
	}
}
