package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/cotation"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/domain"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/pax"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/tarification"
)

const maxBodyBytes = 1 << 20

type server struct {
	cotations *cotation.Service
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Post("/pax/preview", s.handlePaxPreview)

	r.Route("/trips/{tripID}", func(r chi.Router) {
		r.Get("/cotations", s.handleCotationsList)
		r.Post("/cotations", s.handleCotationCreate)
		r.Post("/calculate-all", s.handleCalculateAll)
	})

	r.Route("/cotations/{id}", func(r chi.Router) {
		r.Get("/", s.handleCotationGet)
		r.Put("/conditions", s.handleConditionsUpdate)
		r.Put("/pax-range", s.handlePaxRangeUpdate)
		r.Put("/composition", s.handleCompositionUpdate)
		r.Put("/pax-configs", s.handlePaxConfigsUpdate)
		r.Post("/regenerate", s.handleRegenerate)
		r.Post("/calculate", s.handleCalculate)
		r.Put("/tarification", s.handleTarificationSave)
		r.Post("/tarification/compute", s.handleTarificationCompute)
	})

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type paxPreviewRequest struct {
	Mode        cotation.Mode    `json:"mode"`
	MinPax      int              `json:"min_pax"`
	MaxPax      int              `json:"max_pax"`
	Composition *pax.Composition `json:"composition,omitempty"`
}

func (s *server) handlePaxPreview(w http.ResponseWriter, r *http.Request) {
	var req paxPreviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Mode == cotation.ModeCustom {
		comp := pax.Composition{Adult: 2}
		if req.Composition != nil {
			comp = *req.Composition
		}
		pc, err := pax.GenerateCustom(comp)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, []domain.PaxConfig{pc})
		return
	}

	if req.MinPax == 0 {
		req.MinPax = cotation.DefaultMinPax
	}
	if req.MaxPax == 0 {
		req.MaxPax = max(cotation.DefaultMaxPax, req.MinPax)
	}
	configs, err := pax.GenerateRange(req.MinPax, req.MaxPax)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, configs)
}

func (s *server) handleCotationsList(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathID(w, r, "tripID")
	if !ok {
		return
	}
	cotations, err := s.cotations.List(r.Context(), tripID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cotations)
}

func (s *server) handleCotationCreate(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathID(w, r, "tripID")
	if !ok {
		return
	}
	var in cotation.CreateInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.TripID = tripID
	if in.Mode != "" && in.Mode != cotation.ModeRange && in.Mode != cotation.ModeCustom {
		writeError(w, http.StatusBadRequest, "mode must be range or custom")
		return
	}

	c, err := s.cotations.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *server) handleCalculateAll(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathID(w, r, "tripID")
	if !ok {
		return
	}
	cotations, err := s.cotations.CalculateAll(r.Context(), tripID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cotations)
}

func (s *server) handleCotationGet(w http.ResponseWriter, r *http.Request) {
	s.withCotation(w, r, s.cotations.Get)
}

type conditionsRequest struct {
	Selections map[int64]int64 `json:"selections"`
}

func (s *server) handleConditionsUpdate(w http.ResponseWriter, r *http.Request) {
	var req conditionsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.withCotation(w, r, func(ctx context.Context, id int64) (cotation.Cotation, error) {
		return s.cotations.UpdateSelections(ctx, id, req.Selections)
	})
}

type paxRangeRequest struct {
	MinPax int `json:"min_pax"`
	MaxPax int `json:"max_pax"`
}

func (s *server) handlePaxRangeUpdate(w http.ResponseWriter, r *http.Request) {
	var req paxRangeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.withCotation(w, r, func(ctx context.Context, id int64) (cotation.Cotation, error) {
		return s.cotations.SetPaxRange(ctx, id, req.MinPax, req.MaxPax)
	})
}

func (s *server) handleCompositionUpdate(w http.ResponseWriter, r *http.Request) {
	var comp pax.Composition
	if !decodeJSON(w, r, &comp) {
		return
	}
	s.withCotation(w, r, func(ctx context.Context, id int64) (cotation.Cotation, error) {
		return s.cotations.SetComposition(ctx, id, comp)
	})
}

func (s *server) handlePaxConfigsUpdate(w http.ResponseWriter, r *http.Request) {
	var configs []domain.PaxConfig
	if !decodeJSON(w, r, &configs) {
		return
	}
	s.withCotation(w, r, func(ctx context.Context, id int64) (cotation.Cotation, error) {
		return s.cotations.SetPaxConfigs(ctx, id, configs)
	})
}

func (s *server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	s.withCotation(w, r, s.cotations.Regenerate)
}

func (s *server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	s.withCotation(w, r, s.cotations.Calculate)
}

func (s *server) handleTarificationSave(w http.ResponseWriter, r *http.Request) {
	var decl tarification.Declaration
	if !decodeJSON(w, r, &decl) {
		return
	}
	if err := decl.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.withCotation(w, r, func(ctx context.Context, id int64) (cotation.Cotation, error) {
		return s.cotations.SaveTarification(ctx, id, decl)
	})
}

// handleTarificationCompute evaluates the posted declaration, or the stored
// one when the body carries no entries.
func (s *server) handleTarificationCompute(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var decl tarification.Declaration
	if r.ContentLength != 0 {
		if !decodeJSON(w, r, &decl) {
			return
		}
	}

	if len(decl.Entries) == 0 {
		c, err := s.cotations.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if c.Tarification == nil {
			writeError(w, http.StatusBadRequest, "no tarification declared")
			return
		}
		decl = *c.Tarification
	}

	res, err := s.cotations.ComputeTarification(r.Context(), id, decl)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) withCotation(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64) (cotation.Cotation, error)) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := fn(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+param)
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cotation.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, cotation.ErrCustomModeFixed),
		errors.Is(err, cotation.ErrCustomModeOnly),
		errors.Is(err, cotation.ErrNotCalculated):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, tarification.ErrUnknownMode),
		errors.Is(err, tarification.ErrRangeTooWide),
		errors.Is(err, pax.ErrInvalidRange),
		errors.Is(err, pax.ErrNegativeCount):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("error: encode response: %v", err)
	}
}
