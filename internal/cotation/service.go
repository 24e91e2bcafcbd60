package cotation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/domain"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/pax"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/quotation"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/tarification"
)

type Options struct {
	// Workers bounds how many pax configs are priced at once.
	Workers int
	// DefaultCurrency applies to trips stored without a currency.
	DefaultCurrency string
	Logger          *log.Logger
	Now             func() time.Time
}

type Service struct {
	repo            Repository
	workers         int
	defaultCurrency string
	logger          *log.Logger
	now             func() time.Time
}

func NewService(repo Repository, opts Options) *Service {
	s := &Service{
		repo:            repo,
		workers:         opts.Workers,
		defaultCurrency: opts.DefaultCurrency,
		logger:          opts.Logger,
		now:             opts.Now,
	}
	if s.workers <= 0 {
		s.workers = 1
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CreateInput describes a new cotation. Range mode uses MinPax/MaxPax,
// custom mode uses Composition.
type CreateInput struct {
	TripID              int64            `json:"trip_id"`
	Name                string           `json:"name"`
	Mode                Mode             `json:"mode"`
	ConditionSelections map[int64]int64  `json:"condition_selections"`
	MinPax              int              `json:"min_pax"`
	MaxPax              int              `json:"max_pax"`
	Composition         *pax.Composition `json:"composition,omitempty"`
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Cotation, error) {
	if _, err := s.repo.LoadTrip(ctx, in.TripID); err != nil {
		return Cotation{}, fmt.Errorf("load trip %d: %w", in.TripID, err)
	}
	existing, err := s.repo.ListCotations(ctx, in.TripID)
	if err != nil {
		return Cotation{}, fmt.Errorf("list cotations: %w", err)
	}

	c := Cotation{
		TripID:              in.TripID,
		Name:                in.Name,
		SortOrder:           len(existing),
		Mode:                in.Mode,
		ConditionSelections: in.ConditionSelections,
		MinPax:              in.MinPax,
		MaxPax:              in.MaxPax,
		Status:              StatusDraft,
	}
	if c.Mode == "" {
		c.Mode = ModeRange
	}
	if c.MinPax == 0 {
		c.MinPax = DefaultMinPax
	}
	if c.MaxPax == 0 {
		c.MaxPax = max(DefaultMaxPax, c.MinPax)
	}
	if c.ConditionSelections == nil {
		c.ConditionSelections = map[int64]int64{}
	}

	if c.isCustom() {
		comp := pax.Composition{Adult: 2}
		if in.Composition != nil {
			comp = *in.Composition
		}
		pc, err := pax.GenerateCustom(comp)
		if err != nil {
			return Cotation{}, err
		}
		c.Composition = &comp
		c.PaxConfigs = []domain.PaxConfig{pc}
	} else {
		c.PaxConfigs, err = pax.GenerateRange(c.MinPax, c.MaxPax)
		if err != nil {
			return Cotation{}, err
		}
	}

	now := s.now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	created, err := s.repo.CreateCotation(ctx, c)
	if err != nil {
		return Cotation{}, fmt.Errorf("create cotation: %w", err)
	}
	s.logger.Printf("cotation: created id=%d trip=%d mode=%s pax_configs=%d", created.ID, created.TripID, created.Mode, len(created.PaxConfigs))
	return created, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Cotation, error) {
	c, err := s.repo.GetCotation(ctx, id)
	if err != nil {
		return Cotation{}, fmt.Errorf("get cotation %d: %w", id, err)
	}
	return c, nil
}

// List returns the cotations of a trip in display order.
func (s *Service) List(ctx context.Context, tripID int64) ([]Cotation, error) {
	cotations, err := s.repo.ListCotations(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("list cotations: %w", err)
	}
	if cotations == nil {
		cotations = []Cotation{}
	}
	return cotations, nil
}

// update loads a cotation, applies fn and saves the result.
func (s *Service) update(ctx context.Context, id int64, fn func(*Cotation) error) (Cotation, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return Cotation{}, err
	}
	if err := fn(&c); err != nil {
		return Cotation{}, err
	}
	c.UpdatedAt = s.now().UTC()
	if err := s.repo.SaveCotation(ctx, c); err != nil {
		return Cotation{}, fmt.Errorf("save cotation %d: %w", id, err)
	}
	return c, nil
}

// UpdateSelections replaces the condition overrides and drops stored results.
func (s *Service) UpdateSelections(ctx context.Context, id int64, selections map[int64]int64) (Cotation, error) {
	return s.update(ctx, id, func(c *Cotation) error {
		c.ConditionSelections = maps.Clone(selections)
		if c.ConditionSelections == nil {
			c.ConditionSelections = map[int64]int64{}
		}
		c.invalidate()
		return nil
	})
}

// SetPaxRange changes the range of a range cotation and regenerates its pax configs.
func (s *Service) SetPaxRange(ctx context.Context, id int64, minPax, maxPax int) (Cotation, error) {
	return s.update(ctx, id, func(c *Cotation) error {
		if c.isCustom() {
			return ErrCustomModeFixed
		}
		configs, err := pax.GenerateRange(minPax, maxPax)
		if err != nil {
			return err
		}
		c.MinPax, c.MaxPax = minPax, maxPax
		c.PaxConfigs = configs
		c.invalidate()
		return nil
	})
}

// Regenerate rebuilds the pax configs of a range cotation from its stored range.
func (s *Service) Regenerate(ctx context.Context, id int64) (Cotation, error) {
	return s.update(ctx, id, func(c *Cotation) error {
		if c.isCustom() {
			return ErrCustomModeFixed
		}
		configs, err := pax.GenerateRange(c.MinPax, c.MaxPax)
		if err != nil {
			return err
		}
		c.PaxConfigs = configs
		c.invalidate()
		return nil
	})
}

// SetComposition replaces the single composition of a custom cotation.
func (s *Service) SetComposition(ctx context.Context, id int64, comp pax.Composition) (Cotation, error) {
	return s.update(ctx, id, func(c *Cotation) error {
		if !c.isCustom() {
			return ErrCustomModeOnly
		}
		pc, err := pax.GenerateCustom(comp)
		if err != nil {
			return err
		}
		c.Composition = &comp
		c.PaxConfigs = []domain.PaxConfig{pc}
		c.invalidate()
		return nil
	})
}

// SetPaxConfigs stores hand-edited pax configs as they are.
func (s *Service) SetPaxConfigs(ctx context.Context, id int64, configs []domain.PaxConfig) (Cotation, error) {
	return s.update(ctx, id, func(c *Cotation) error {
		c.PaxConfigs = slices.Clone(configs)
		c.invalidate()
		return nil
	})
}

// SaveTarification stores a price declaration without computing it.
func (s *Service) SaveTarification(ctx context.Context, id int64, decl tarification.Declaration) (Cotation, error) {
	if err := decl.Validate(); err != nil {
		return Cotation{}, err
	}
	return s.update(ctx, id, func(c *Cotation) error {
		c.Tarification = &decl
		return nil
	})
}

// ComputeTarification evaluates a declaration against the stored cost curve.
// Nothing is saved.
func (s *Service) ComputeTarification(ctx context.Context, id int64, decl tarification.Declaration) (tarification.Result, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return tarification.Result{}, err
	}
	if c.Results == nil {
		return tarification.Result{}, ErrNotCalculated
	}
	trip, err := s.repo.LoadTrip(ctx, c.TripID)
	if err != nil {
		return tarification.Result{}, fmt.Errorf("load trip %d: %w", c.TripID, err)
	}
	return tarification.Compute(decl, tarification.CurveFromResults(*c.Results), tarification.SettingsFromTrip(trip))
}

// tripContext is what every cotation of a trip shares during a calculation.
type tripContext struct {
	trip       domain.Trip
	countryVAT *domain.CountryVATRate
	paying     map[string]bool
}

func (s *Service) loadTripContext(ctx context.Context, tripID int64) (tripContext, error) {
	trip, err := s.repo.LoadTrip(ctx, tripID)
	if err != nil {
		return tripContext{}, fmt.Errorf("load trip %d: %w", tripID, err)
	}
	if trip.DefaultCurrency == "" {
		trip.DefaultCurrency = s.defaultCurrency
	}
	if err := domain.ValidateTrip(trip); err != nil {
		s.logger.Printf("warning: trip %d has inputs the engine will correct: %v", trip.ID, err)
	}

	tc := tripContext{trip: trip}
	if trip.DestinationCountry != "" {
		tc.countryVAT, err = s.repo.CountryVAT(ctx, trip.DestinationCountry)
		if err != nil {
			return tripContext{}, fmt.Errorf("load country vat %s: %w", trip.DestinationCountry, err)
		}
	}
	categories, err := s.repo.PaxCategories(ctx)
	if err != nil {
		return tripContext{}, fmt.Errorf("load pax categories: %w", err)
	}
	tc.paying = domain.PayingCategories(categories)
	return tc, nil
}

// Calculate prices every pax config of a cotation and stores the results.
// A failed run leaves the cotation in the error status.
func (s *Service) Calculate(ctx context.Context, id int64) (Cotation, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return Cotation{}, err
	}
	if err := s.repo.SetStatus(ctx, id, StatusCalculating); err != nil {
		return Cotation{}, fmt.Errorf("mark cotation %d calculating: %w", id, err)
	}

	tc, err := s.loadTripContext(ctx, c.TripID)
	if err != nil {
		return Cotation{}, s.fail(ctx, c, err)
	}
	if err := s.calculate(ctx, &c, tc); err != nil {
		return Cotation{}, s.fail(ctx, c, err)
	}
	return c, nil
}

// CalculateAll calculates every cotation of a trip, in sort order, sharing
// one trip load. A failing cotation is marked as such and does not stop the others.
func (s *Service) CalculateAll(ctx context.Context, tripID int64) ([]Cotation, error) {
	cotations, err := s.repo.ListCotations(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("list cotations: %w", err)
	}
	if len(cotations) == 0 {
		return nil, fmt.Errorf("cotations of trip %d: %w", tripID, ErrNotFound)
	}
	tc, err := s.loadTripContext(ctx, tripID)
	if err != nil {
		return nil, err
	}

	out := make([]Cotation, 0, len(cotations))
	for _, c := range cotations {
		if err := s.calculate(ctx, &c, tc); err != nil {
			s.logger.Printf("cotation: calculate id=%d failed: %v", c.ID, err)
			if serr := s.repo.SetStatus(ctx, c.ID, StatusError); serr != nil {
				return nil, fmt.Errorf("mark cotation %d failed: %w", c.ID, serr)
			}
			c.Status = StatusError
		}
		out = append(out, c)
	}
	s.logger.Printf("cotation: calculated trip=%d cotations=%d", tripID, len(out))
	return out, nil
}

func (s *Service) fail(ctx context.Context, c Cotation, cause error) error {
	s.logger.Printf("cotation: calculate id=%d failed: %v", c.ID, cause)
	if err := s.repo.SetStatus(ctx, c.ID, StatusError); err != nil {
		return errors.Join(cause, fmt.Errorf("mark cotation %d failed: %w", c.ID, err))
	}
	return cause
}

func (s *Service) calculate(ctx context.Context, c *Cotation, tc tripContext) error {
	labels, err := s.repo.OptionLabels(ctx, slices.Collect(maps.Values(c.ConditionSelections)))
	if err != nil {
		return fmt.Errorf("load option labels: %w", err)
	}
	settings := quotation.Settings{
		PayingCategories: tc.paying,
		CountryVAT:       tc.countryVAT,
		Conditions:       quotation.MergeConditions(tc.trip.Conditions, c.ConditionSelections, labels),
		Logger:           s.logger,
	}

	outcomes, err := s.priceConfigs(ctx, tc.trip, c.PaxConfigs, settings)
	if err != nil {
		return err
	}

	results := quotation.Assemble(tc.trip, outcomes)
	results.RunID = uuid.NewString()
	for i := range c.PaxConfigs {
		totals := results.PaxConfigs[i].Totals()
		c.PaxConfigs[i].Totals = &totals
	}

	now := s.now().UTC()
	c.Results = &results
	c.Status = StatusCalculated
	c.CalculatedAt = &now
	c.UpdatedAt = now
	if err := s.repo.SaveCotation(ctx, *c); err != nil {
		return fmt.Errorf("save cotation %d: %w", c.ID, err)
	}

	s.logger.Printf("cotation: calculated id=%d trip=%d run=%s pax_configs=%d warnings=%d missing_rates=%d",
		c.ID, c.TripID, results.RunID, len(results.PaxConfigs), len(results.Warnings), len(results.MissingExchangeRates))
	return nil
}

// priceConfigs prices pax configs concurrently. Outcomes keep input order.
func (s *Service) priceConfigs(ctx context.Context, trip domain.Trip, configs []domain.PaxConfig, settings quotation.Settings) ([]quotation.PaxOutcome, error) {
	outcomes := make([]quotation.PaxOutcome, len(configs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, pc := range configs {
		g.Go(func() (err error) {
			if err := gctx.Err(); err != nil {
				return err
			}
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("price pax config %q: %v", pc.Label, r)
				}
			}()
			outcomes[i] = quotation.CalculatePaxConfig(trip, pc, settings)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}
