package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/cotation"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/db"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/domain"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/migrations"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/seed"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/store"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/tarification"
)

// newTestServer returns a router over a migrated database seeded with the
// demo trip, and that trip's id.
func newTestServer(t *testing.T) (http.Handler, int64) {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "server-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, migrations.Up(database))
	_, err = seed.Run(database, seed.Config{DemoTrip: true})
	require.NoError(t, err)

	var tripID int64
	require.NoError(t, database.QueryRow(`SELECT id FROM trips LIMIT 1`).Scan(&tripID))

	svc := cotation.NewService(store.New(database), cotation.Options{
		Workers:         2,
		DefaultCurrency: "EUR",
		Logger:          log.New(io.Discard, "", 0),
	})
	srv := &server{cotations: svc}
	return srv.routes(), tripID
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func createCotation(t *testing.T, h http.Handler, tripID int64, body string) cotation.Cotation {
	t.Helper()

	rr := do(t, h, http.MethodPost, "/trips/"+itoa(tripID)+"/cotations", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decodeBody[cotation.Cotation](t, rr)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestHealthz(t *testing.T) {
	h, _ := newTestServer(t)

	rr := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestCreateListAndCalculateCotation(t *testing.T) {
	h, tripID := newTestServer(t)

	created := createCotation(t, h, tripID, `{"name":"Standard","min_pax":2,"max_pax":4}`)
	assert.Equal(t, cotation.ModeRange, created.Mode)
	assert.Equal(t, cotation.StatusDraft, created.Status)
	require.Len(t, created.PaxConfigs, 3)

	rr := do(t, h, http.MethodGet, "/trips/"+itoa(tripID)+"/cotations", "")
	require.Equal(t, http.StatusOK, rr.Code)
	list := decodeBody[[]cotation.Cotation](t, rr)
	require.Len(t, list, 1)
	assert.Equal(t, "Standard", list[0].Name)

	rr = do(t, h, http.MethodPost, "/cotations/"+itoa(created.ID)+"/calculate", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	calculated := decodeBody[cotation.Cotation](t, rr)
	assert.Equal(t, cotation.StatusCalculated, calculated.Status)
	require.NotNil(t, calculated.Results)
	require.Len(t, calculated.Results.PaxConfigs, 3)
	assert.Equal(t, "EUR", calculated.Results.Currency)
	for _, pc := range calculated.PaxConfigs {
		require.NotNil(t, pc.Totals, pc.Label)
		assert.True(t, pc.Totals.TotalCost.IsPositive(), pc.Label)
	}

	rr = do(t, h, http.MethodGet, "/cotations/"+itoa(created.ID), "")
	require.Equal(t, http.StatusOK, rr.Code)
	stored := decodeBody[cotation.Cotation](t, rr)
	assert.Equal(t, cotation.StatusCalculated, stored.Status)
	assert.NotNil(t, stored.CalculatedAt)
}

func TestCreateCustomCotation(t *testing.T) {
	h, tripID := newTestServer(t)

	created := createCotation(t, h, tripID, `{"name":"Family","mode":"custom","composition":{"adult":2,"child":1}}`)
	require.Len(t, created.PaxConfigs, 1)
	assert.Equal(t, "2 ad. + 1 enf.", created.PaxConfigs[0].Label)

	rr := do(t, h, http.MethodPut, "/cotations/"+itoa(created.ID)+"/pax-range", `{"min_pax":2,"max_pax":6}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, h, http.MethodPut, "/cotations/"+itoa(created.ID)+"/composition", `{"adult":3}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decodeBody[cotation.Cotation](t, rr)
	assert.Equal(t, "3 ad.", updated.PaxConfigs[0].Label)
}

func TestCotationErrors(t *testing.T) {
	h, tripID := newTestServer(t)
	c := createCotation(t, h, tripID, `{"name":"Standard"}`)
	id := itoa(c.ID)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"unknown trip", http.MethodPost, "/trips/999/cotations", `{"name":"x"}`, http.StatusNotFound},
		{"bad trip id", http.MethodGet, "/trips/abc/cotations", "", http.StatusBadRequest},
		{"zero id", http.MethodGet, "/cotations/0", "", http.StatusBadRequest},
		{"unknown cotation", http.MethodGet, "/cotations/999", "", http.StatusNotFound},
		{"invalid mode", http.MethodPost, "/trips/" + itoa(tripID) + "/cotations", `{"mode":"fixed"}`, http.StatusBadRequest},
		{"malformed json", http.MethodPut, "/cotations/" + id + "/pax-range", `{`, http.StatusBadRequest},
		{"inverted range", http.MethodPut, "/cotations/" + id + "/pax-range", `{"min_pax":5,"max_pax":2}`, http.StatusBadRequest},
		{"composition on range", http.MethodPut, "/cotations/" + id + "/composition", `{"adult":2}`, http.StatusConflict},
		{"negative composition", http.MethodPost, "/pax/preview", `{"mode":"custom","composition":{"adult":-1}}`, http.StatusBadRequest},
		{"compute before calculate", http.MethodPost, "/cotations/" + id + "/tarification/compute", `{"mode":"per_person","entries":[{"total_pax":2,"price_per_person":"100"}]}`, http.StatusConflict},
		{"compute without declaration", http.MethodPost, "/cotations/" + id + "/tarification/compute", "", http.StatusBadRequest},
		{"unknown tarification mode", http.MethodPut, "/cotations/" + id + "/tarification", `{"mode":"barter"}`, http.StatusBadRequest},
		{"pax range too large", http.MethodPost, "/pax/preview", `{"min_pax":1,"max_pax":2000000000}`, http.StatusBadRequest},
		{"create range too large", http.MethodPost, "/trips/" + itoa(tripID) + "/cotations", `{"min_pax":2,"max_pax":201}`, http.StatusBadRequest},
		{"tarification range too wide", http.MethodPut, "/cotations/" + id + "/tarification", `{"mode":"range_web","entries":[{"pax_min":1,"pax_max":2000000000,"selling_price":"10"}]}`, http.StatusBadRequest},
		{"bad validity date", http.MethodPut, "/cotations/" + id + "/tarification", `{"mode":"per_person","validity_date":"31/12/2026"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())

			body := decodeBody[map[string]string](t, rr)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestInputChangesInvalidateResults(t *testing.T) {
	h, tripID := newTestServer(t)
	c := createCotation(t, h, tripID, `{"name":"Standard","min_pax":2,"max_pax":3}`)
	id := itoa(c.ID)

	rr := do(t, h, http.MethodPost, "/cotations/"+id+"/calculate", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(t, h, http.MethodPut, "/cotations/"+id+"/pax-range", `{"min_pax":4,"max_pax":6}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decodeBody[cotation.Cotation](t, rr)
	assert.Equal(t, cotation.StatusDraft, updated.Status)
	assert.Nil(t, updated.Results)
	require.Len(t, updated.PaxConfigs, 3)
	assert.Equal(t, "4 pax", updated.PaxConfigs[0].Label)

	rr = do(t, h, http.MethodPut, "/cotations/"+id+"/conditions", `{"selections":{"1":2}}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated = decodeBody[cotation.Cotation](t, rr)
	assert.Equal(t, int64(2), updated.ConditionSelections[1])

	configs := `[{"label":"Duo","counts":{"adult":2},"rooms":{"dbl":1},"total_pax":2}]`
	rr = do(t, h, http.MethodPut, "/cotations/"+id+"/pax-configs", configs)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated = decodeBody[cotation.Cotation](t, rr)
	require.Len(t, updated.PaxConfigs, 1)
	assert.Equal(t, "Duo", updated.PaxConfigs[0].Label)

	rr = do(t, h, http.MethodPost, "/cotations/"+id+"/regenerate", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated = decodeBody[cotation.Cotation](t, rr)
	assert.Len(t, updated.PaxConfigs, 3)
}

func TestTarificationSaveAndCompute(t *testing.T) {
	h, tripID := newTestServer(t)
	c := createCotation(t, h, tripID, `{"name":"Standard","min_pax":2,"max_pax":4}`)
	id := itoa(c.ID)

	rr := do(t, h, http.MethodPost, "/cotations/"+id+"/calculate", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	decl := `{"mode":"per_group","entries":[{"total_pax":3,"group_price":"1500"}],"validity_date":"2026-12-31"}`
	rr = do(t, h, http.MethodPut, "/cotations/"+id+"/tarification", decl)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	saved := decodeBody[cotation.Cotation](t, rr)
	require.NotNil(t, saved.Tarification)
	assert.Equal(t, tarification.ModePerGroup, saved.Tarification.Mode)

	rr = do(t, h, http.MethodPost, "/cotations/"+id+"/tarification/compute", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res := decodeBody[tarification.Result](t, rr)
	assert.Equal(t, tarification.ModePerGroup, res.Mode)
	require.Len(t, res.Lines, 1)
	assert.Equal(t, "Group of 3", res.Lines[0].Label)
	assert.True(t, res.Lines[0].SellingPrice.Equal(decimal.NewFromInt(1500)), res.Lines[0].SellingPrice.String())
	assert.True(t, res.Totals.SellingPrice.Equal(res.Lines[0].SellingPrice))

	rr = do(t, h, http.MethodPost, "/cotations/"+id+"/tarification/compute", `{"mode":"per_person","entries":[{"total_pax":2,"price_per_person":"700"}]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res = decodeBody[tarification.Result](t, rr)
	assert.Equal(t, tarification.ModePerPerson, res.Mode)
	require.Len(t, res.Lines, 1)
	assert.True(t, res.Lines[0].SellingPrice.Equal(decimal.NewFromInt(1400)), res.Lines[0].SellingPrice.String())

	rr = do(t, h, http.MethodPost, "/cotations/"+id+"/tarification/compute", `{"mode":"range_web","entries":[{"pax_min":1,"pax_max":100000,"selling_price":"10"}]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
}

func TestCalculateAll(t *testing.T) {
	h, tripID := newTestServer(t)

	rr := do(t, h, http.MethodPost, "/trips/"+itoa(tripID)+"/calculate-all", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	createCotation(t, h, tripID, `{"name":"Small","min_pax":2,"max_pax":3}`)
	createCotation(t, h, tripID, `{"name":"Family","mode":"custom"}`)

	rr = do(t, h, http.MethodPost, "/trips/"+itoa(tripID)+"/calculate-all", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	all := decodeBody[[]cotation.Cotation](t, rr)
	require.Len(t, all, 2)
	for _, c := range all {
		assert.Equal(t, cotation.StatusCalculated, c.Status, c.Name)
		assert.NotNil(t, c.Results, c.Name)
	}
}

func TestPaxPreview(t *testing.T) {
	h, _ := newTestServer(t)

	rr := do(t, h, http.MethodPost, "/pax/preview", `{}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	configs := decodeBody[[]domain.PaxConfig](t, rr)
	require.Len(t, configs, cotation.DefaultMaxPax-cotation.DefaultMinPax+1)
	assert.Equal(t, "2 pax", configs[0].Label)

	rr = do(t, h, http.MethodPost, "/pax/preview", `{"mode":"custom","composition":{"adult":2,"teen":1}}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	configs = decodeBody[[]domain.PaxConfig](t, rr)
	require.Len(t, configs, 1)
	assert.Equal(t, "2 ad. + 1 ado.", configs[0].Label)
}

func TestHandleCotationGetRejectsNonNumericID(t *testing.T) {
	srv := &server{}

	req := httptest.NewRequest(http.MethodGet, "/cotations/x", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "x")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rr := httptest.NewRecorder()
	srv.handleCotationGet(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "invalid id") {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}
