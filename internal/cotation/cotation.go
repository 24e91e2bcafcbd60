// Package cotation manages priced variants of a trip: their condition
// selections, pax compositions, stored results and tarification.
package cotation

import (
	"context"
	"errors"
	"time"

	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/domain"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/pax"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/quotation"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/tarification"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrCustomModeFixed = errors.New("custom cotation composition is fixed")
	ErrCustomModeOnly  = errors.New("composition can only be set on custom cotations")
	ErrNotCalculated   = errors.New("cotation has no calculated results")
)

type Mode string

const (
	ModeRange  Mode = "range"
	ModeCustom Mode = "custom"
)

type Status string

const (
	StatusDraft       Status = "draft"
	StatusCalculating Status = "calculating"
	StatusCalculated  Status = "calculated"
	StatusError       Status = "error"
)

const (
	DefaultMinPax = 2
	DefaultMaxPax = 10
)

// Cotation is one priced variant of a trip.
type Cotation struct {
	ID        int64  `json:"id"`
	TripID    int64  `json:"trip_id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
	Mode      Mode   `json:"mode"`

	// ConditionSelections overrides trip conditions: condition id -> option id.
	ConditionSelections map[int64]int64 `json:"condition_selections"`

	MinPax      int                `json:"min_pax"`
	MaxPax      int                `json:"max_pax"`
	Composition *pax.Composition   `json:"composition,omitempty"`
	PaxConfigs  []domain.PaxConfig `json:"pax_configs"`

	Results      *quotation.Results        `json:"results,omitempty"`
	Tarification *tarification.Declaration `json:"tarification,omitempty"`

	Status       Status     `json:"status"`
	CalculatedAt *time.Time `json:"calculated_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// invalidate drops stored results after any input change.
func (c *Cotation) invalidate() {
	c.Results = nil
	c.CalculatedAt = nil
	c.Status = StatusDraft
}

func (c Cotation) isCustom() bool {
	return c.Mode == ModeCustom
}

// Repository is the persistence the service needs. Implementations load the
// trip graph eagerly and return ErrNotFound for unknown ids.
type Repository interface {
	GetCotation(ctx context.Context, id int64) (Cotation, error)
	ListCotations(ctx context.Context, tripID int64) ([]Cotation, error)
	CreateCotation(ctx context.Context, c Cotation) (Cotation, error)
	SaveCotation(ctx context.Context, c Cotation) error
	SetStatus(ctx context.Context, id int64, status Status) error

	LoadTrip(ctx context.Context, tripID int64) (domain.Trip, error)
	OptionLabels(ctx context.Context, optionIDs []int64) (map[int64]string, error)
	// CountryVAT returns nil without error when the country has no rates.
	CountryVAT(ctx context.Context, countryCode string) (*domain.CountryVATRate, error)
	PaxCategories(ctx context.Context) ([]domain.PaxCategory, error)
}
