package stats

import (
	"cmp"
	"slices"
	"time"

	"fishbox/internal/core"
)

const (
	DefaultSpotPrecision = 5
	MaxSpotPrecision     = 8
)

type SpotSort string

const (
	SpotByCount     SpotSort = "count"
	SpotBySpecies   SpotSort = "species"
	SpotByLastCatch SpotSort = "last"
)

// ParseSpotSort maps a query value to a SpotSort. Empty means SpotByCount.
func ParseSpotSort(s string) (SpotSort, bool) {
	switch SpotSort(s) {
	case "", SpotByCount:
		return SpotByCount, true
	case SpotBySpecies, SpotByLastCatch:
		return SpotSort(s), true
	default:
		return "", false
	}
}

type SpotOptions struct {
	// Precision is the number of decimal places coordinates are rounded to
	// before grouping. Values outside 1..MaxSpotPrecision fall back to
	// DefaultSpotPrecision or are clamped.
	Precision int
	SortBy    SpotSort
}

type Spot struct {
	Key         string           `json:"key"`
	Coordinates core.Coordinates `json:"coordinates"`
	Count       int              `json:"count"`
	Species     []string         `json:"species"`
	Location    string           `json:"location,omitempty"`
	LastCatch   time.Time        `json:"lastCatch"`
}

// Spots groups catches with coordinates into spots. Catches without
// coordinates are ignored. The location label and coordinates come from the
// first member of each spot.
func Spots(catches []core.Catch, opts SpotOptions) []Spot {
	precision := opts.Precision
	switch {
	case precision <= 0:
		precision = DefaultSpotPrecision
	case precision > MaxSpotPrecision:
		precision = MaxSpotPrecision
	}

	out := []Spot{}
	index := make(map[string]int)
	for _, c := range catches {
		if c.Coordinates == nil {
			continue
		}
		key := core.QuantizeKey(*c.Coordinates, precision)
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, Spot{
				Key:         key,
				Coordinates: *c.Coordinates,
				Location:    c.Location,
				LastCatch:   c.Date,
			})
		}
		s := &out[i]
		s.Count++
		if !slices.Contains(s.Species, c.Species) {
			s.Species = append(s.Species, c.Species)
		}
		if c.Date.After(s.LastCatch) {
			s.LastCatch = c.Date
		}
	}

	slices.SortFunc(out, spotOrder(opts.SortBy))
	return out
}

func spotOrder(by SpotSort) func(a, b Spot) int {
	var primary func(a, b Spot) int
	switch by {
	case SpotBySpecies:
		primary = func(a, b Spot) int { return len(b.Species) - len(a.Species) }
	case SpotByLastCatch:
		primary = func(a, b Spot) int { return b.LastCatch.Compare(a.LastCatch) }
	default:
		primary = func(a, b Spot) int { return b.Count - a.Count }
	}
	return func(a, b Spot) int {
		if c := primary(a, b); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	}
}
