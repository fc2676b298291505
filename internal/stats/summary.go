package stats

import (
	"slices"
	"strings"

	"fishbox/internal/core"
)

const DefaultTopBaits = 5

type BaitCount struct {
	Bait  string `json:"bait"`
	Count int    `json:"count"`
}

// Summary holds headline figures over a set of catches. Averages are not
// rounded.
type Summary struct {
	Total           int         `json:"total"`
	AverageLength   float64     `json:"averageLength"`
	AverageWeight   float64     `json:"averageWeight"`
	WeightedCount   int         `json:"weightedCount"`
	MaxLength       int         `json:"maxLength"`
	MaxWeight       int         `json:"maxWeight"`
	TopSpecies      string      `json:"topSpecies,omitempty"`
	TopSpeciesCount int         `json:"topSpeciesCount"`
	TopBait         string      `json:"topBait,omitempty"`
	TopBaitCount    int         `json:"topBaitCount"`
	TopBaits        []BaitCount `json:"topBaits"`
	DistinctSpecies int         `json:"distinctSpecies"`

	// TotalWeight is the sum of recorded weights in grams.
	TotalWeight     int `json:"totalWeight"`
	WithPhotos      int `json:"withPhotos"`
	WithCoordinates int `json:"withCoordinates"`
}

// Summarize computes the summary of catches. The average weight only counts
// catches that carry a weight. topBaits limits Summary.TopBaits; zero means
// DefaultTopBaits.
func Summarize(catches []core.Catch, topBaits int) Summary {
	if topBaits <= 0 {
		topBaits = DefaultTopBaits
	}
	s := Summary{Total: len(catches), TopBaits: []BaitCount{}}
	if len(catches) == 0 {
		return s
	}

	var lengthSum, weightSum int
	for _, c := range catches {
		lengthSum += c.Length
		s.MaxLength = max(s.MaxLength, c.Length)
		if c.HasWeight() {
			weightSum += *c.Weight
			s.WeightedCount++
			s.MaxWeight = max(s.MaxWeight, *c.Weight)
		}
		if c.PrimaryPhoto() != "" {
			s.WithPhotos++
		}
		if c.Coordinates != nil {
			s.WithCoordinates++
		}
	}
	s.TotalWeight = weightSum
	s.AverageLength = float64(lengthSum) / float64(len(catches))
	if s.WeightedCount > 0 {
		s.AverageWeight = float64(weightSum) / float64(s.WeightedCount)
	}

	dist := SpeciesDistribution(catches)
	s.DistinctSpecies = len(dist)
	s.TopSpecies, s.TopSpeciesCount = dist[0].Species, dist[0].Count

	baits := BaitDistribution(catches)
	if len(baits) > 0 {
		s.TopBait, s.TopBaitCount = baits[0].Bait, baits[0].Count
	}
	s.TopBaits = TopN(baits, topBaits)
	return s
}

// BaitDistribution counts catches per bait, most used first. Catches without
// bait are skipped.
func BaitDistribution(catches []core.Catch) []BaitCount {
	out := []BaitCount{}
	index := make(map[string]int)
	for _, c := range catches {
		bait := strings.TrimSpace(c.Bait)
		if bait == "" {
			continue
		}
		i, ok := index[bait]
		if !ok {
			i = len(out)
			index[bait] = i
			out = append(out, BaitCount{Bait: bait})
		}
		out[i].Count++
	}
	slices.SortStableFunc(out, func(a, b BaitCount) int {
		return b.Count - a.Count
	})
	return out
}
