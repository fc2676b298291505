// Package stats derives views from a set of catches: species distribution,
// spots, leaderboard ranking, time buckets and summary figures.
//
// Every function is pure and total. Empty input gives an empty or zero
// result, never an error. Records are expected to be validated before they
// reach this package.
package stats

import (
	"slices"

	"fishbox/internal/core"
)

type SpeciesCount struct {
	Species string `json:"species"`
	Count   int    `json:"count"`
}

type SpeciesAverage struct {
	Species       string  `json:"species"`
	AverageLength float64 `json:"averageLength"`
	Count         int     `json:"count"`
}

// SpeciesDistribution counts catches per species, most frequent first.
// Species with equal counts keep the order in which they first appear.
func SpeciesDistribution(catches []core.Catch) []SpeciesCount {
	out := []SpeciesCount{}
	index := make(map[string]int)
	for _, c := range catches {
		i, ok := index[c.Species]
		if !ok {
			i = len(out)
			index[c.Species] = i
			out = append(out, SpeciesCount{Species: c.Species})
		}
		out[i].Count++
	}
	slices.SortStableFunc(out, func(a, b SpeciesCount) int {
		return b.Count - a.Count
	})
	return out
}

// AverageLengthBySpecies returns the mean length per species, longest first.
func AverageLengthBySpecies(catches []core.Catch) []SpeciesAverage {
	type acc struct {
		sum, n int
	}
	order := []string{}
	sums := make(map[string]*acc)
	for _, c := range catches {
		a, ok := sums[c.Species]
		if !ok {
			a = &acc{}
			sums[c.Species] = a
			order = append(order, c.Species)
		}
		a.sum += c.Length
		a.n++
	}

	out := make([]SpeciesAverage, 0, len(order))
	for _, sp := range order {
		a := sums[sp]
		out = append(out, SpeciesAverage{
			Species:       sp,
			AverageLength: float64(a.sum) / float64(a.n),
			Count:         a.n,
		})
	}
	slices.SortStableFunc(out, func(a, b SpeciesAverage) int {
		return compareFloatDesc(a.AverageLength, b.AverageLength)
	})
	return out
}

// TopN returns at most the first n elements of s. n <= 0 returns s unchanged.
func TopN[T any](s []T, n int) []T {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}

func compareFloatDesc(a, b float64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	default:
		return 0
	}
}
