// Package pax builds the traveler compositions a cotation is priced for.
package pax

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/domain"
)

var (
	ErrInvalidRange  = errors.New("invalid pax range")
	ErrNegativeCount = errors.New("pax counts must not be negative")
)

const (
	touristsPerGuide = 10
	seatsPerDriver   = 6
)

// MaxPax is the largest adult count a range may reach.
const MaxPax = 200

func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}

// guides returns one guide up to ten tourists, then one per ten.
func guides(tourists int) int {
	if tourists <= touristsPerGuide {
		return 1
	}
	return ceilDiv(tourists, touristsPerGuide)
}

// GenerateRange returns one composition per adult count in [minPax, maxPax],
// with guides, drivers and rooms derived from the group size. maxPax may not
// exceed MaxPax.
func GenerateRange(minPax, maxPax int) ([]domain.PaxConfig, error) {
	if minPax < 1 || maxPax < minPax || maxPax > MaxPax {
		return nil, fmt.Errorf("%w: %d..%d", ErrInvalidRange, minPax, maxPax)
	}

	configs := make([]domain.PaxConfig, 0, maxPax-minPax+1)
	for adults := minPax; adults <= maxPax; adults++ {
		guide := guides(adults)
		driver := ceilDiv(adults+guide, seatsPerDriver)
		configs = append(configs, domain.PaxConfig{
			Label: fmt.Sprintf("%d pax", adults),
			Counts: map[string]int{
				domain.PaxAdult:  adults,
				domain.PaxGuide:  guide,
				domain.PaxDriver: driver,
			},
			Rooms: map[string]int{
				domain.RoomDouble: adults / 2,
				domain.RoomSingle: adults % 2,
			},
			TotalPax: adults + guide + driver,
		})
	}
	return configs, nil
}

// Composition is a custom traveler mix. Nil Guide or Driver are derived from
// the group; nil Rooms puts adults in doubles plus one single.
type Composition struct {
	Adult      int                 `json:"adult"`
	Teen       int                 `json:"teen"`
	Child      int                 `json:"child"`
	Baby       int                 `json:"baby"`
	Guide      *int                `json:"guide,omitempty"`
	Driver     *int                `json:"driver,omitempty"`
	TourLeader int                 `json:"tour_leader"`
	Cook       int                 `json:"cook"`
	Rooms      []domain.RoomDemand `json:"rooms,omitempty"`
}

func (c Composition) validate() error {
	counts := []int{c.Adult, c.Teen, c.Child, c.Baby, c.TourLeader, c.Cook}
	if c.Guide != nil {
		counts = append(counts, *c.Guide)
	}
	if c.Driver != nil {
		counts = append(counts, *c.Driver)
	}
	for _, n := range counts {
		if n < 0 {
			return ErrNegativeCount
		}
	}
	return nil
}

// GenerateCustom returns the single composition described by c.
func GenerateCustom(c Composition) (domain.PaxConfig, error) {
	if err := c.validate(); err != nil {
		return domain.PaxConfig{}, err
	}

	tourists := c.Adult + c.Teen + c.Child + c.Baby

	guide := guides(tourists)
	if c.Guide != nil {
		guide = *c.Guide
	}
	driver := ceilDiv(tourists+guide+c.TourLeader+c.Cook, seatsPerDriver)
	if c.Driver != nil {
		driver = *c.Driver
	}

	counts := map[string]int{
		domain.PaxAdult:  c.Adult,
		domain.PaxGuide:  guide,
		domain.PaxDriver: driver,
	}
	for key, n := range map[string]int{
		domain.PaxTeen:       c.Teen,
		domain.PaxChild:      c.Child,
		domain.PaxBaby:       c.Baby,
		domain.PaxTourLeader: c.TourLeader,
		domain.PaxCook:       c.Cook,
	} {
		if n > 0 {
			counts[key] = n
		}
	}

	return domain.PaxConfig{
		Label:    customLabel(c),
		Counts:   counts,
		Rooms:    rooms(c),
		TotalPax: tourists + guide + driver + c.TourLeader + c.Cook,
	}, nil
}

func rooms(c Composition) map[string]int {
	out := map[string]int{domain.RoomDouble: 0, domain.RoomSingle: 0}
	// A supplied list is authoritative, even when none of its entries is usable.
	for _, r := range c.Rooms {
		bed := strings.ToLower(strings.TrimSpace(r.BedType))
		if bed == "" || r.Qty <= 0 {
			continue
		}
		out[bed] = r.Qty
	}
	if len(c.Rooms) == 0 {
		out[domain.RoomDouble] = c.Adult / 2
		out[domain.RoomSingle] = c.Adult % 2
	}
	return out
}

var shortLabels = []struct {
	suffix string
	count  func(Composition) int
}{
	{"ad.", func(c Composition) int { return c.Adult }},
	{"ado.", func(c Composition) int { return c.Teen }},
	{"enf.", func(c Composition) int { return c.Child }},
	{"bb.", func(c Composition) int { return c.Baby }},
}

// customLabel renders "2 ad. + 1 enf.", or "0 pax" for an empty group.
func customLabel(c Composition) string {
	var parts []string
	for _, l := range shortLabels {
		if n := l.count(c); n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, l.suffix))
		}
	}
	if len(parts) == 0 {
		return "0 pax"
	}
	return strings.Join(parts, " + ")
}
