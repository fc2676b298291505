package stats

import (
	"cmp"
	"slices"
	"time"

	"fishbox/internal/core"
)

const DefaultLeaderboardLimit = 100

type Window string

const (
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
	WindowAll   Window = "all"
)

func ParseWindow(s string) (Window, bool) {
	switch Window(s) {
	case "", WindowAll:
		return WindowAll, true
	case WindowWeek, WindowMonth:
		return Window(s), true
	default:
		return "", false
	}
}

// Since returns the inclusive lower bound of the window relative to now.
// ok is false for WindowAll, which has no bound.
func (w Window) Since(now time.Time) (since time.Time, ok bool) {
	switch w {
	case WindowWeek:
		return now.AddDate(0, 0, -7), true
	case WindowMonth:
		return now.AddDate(0, 0, -30), true
	default:
		return time.Time{}, false
	}
}

type Metric string

const (
	MetricCatches Metric = "catches"
	MetricWeight  Metric = "weight"
	MetricSize    Metric = "size"
	MetricSpecies Metric = "species"
)

func ParseMetric(s string) (Metric, bool) {
	switch Metric(s) {
	case "", MetricCatches:
		return MetricCatches, true
	case MetricWeight, MetricSize, MetricSpecies:
		return Metric(s), true
	default:
		return "", false
	}
}

type LeaderboardOptions struct {
	Window Window
	Metric Metric
	Now    time.Time
	// Limit caps the number of entries. Zero means DefaultLeaderboardLimit.
	Limit int
}

type LeaderboardEntry struct {
	Rank         int    `json:"rank"`
	OwnerID      string `json:"ownerId"`
	Catches      int    `json:"catches"`
	TotalWeight  int    `json:"totalWeight"`
	MaxLength    int    `json:"maxLength"`
	SpeciesCount int    `json:"speciesCount"`
}

// Leaderboard ranks owners of public catches inside the window by the chosen
// metric, highest first. Owners with equal scores are ordered by owner id.
// Private catches are skipped even if the caller passes them in.
func Leaderboard(catches []core.Catch, opts LeaderboardOptions) []LeaderboardEntry {
	since, bounded := opts.Window.Since(opts.Now)
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}

	entries := []LeaderboardEntry{}
	index := make(map[string]int)
	species := make(map[string]map[string]struct{})
	for _, c := range catches {
		if !c.IsPublic {
			continue
		}
		if bounded && c.Date.Before(since) {
			continue
		}
		i, ok := index[c.OwnerID]
		if !ok {
			i = len(entries)
			index[c.OwnerID] = i
			entries = append(entries, LeaderboardEntry{OwnerID: c.OwnerID})
			species[c.OwnerID] = make(map[string]struct{})
		}
		e := &entries[i]
		e.Catches++
		if c.HasWeight() {
			e.TotalWeight += *c.Weight
		}
		e.MaxLength = max(e.MaxLength, c.Length)
		species[c.OwnerID][c.Species] = struct{}{}
	}
	for i := range entries {
		entries[i].SpeciesCount = len(species[entries[i].OwnerID])
	}

	score := metricScore(opts.Metric)
	slices.SortFunc(entries, func(a, b LeaderboardEntry) int {
		if c := score(b) - score(a); c != 0 {
			return c
		}
		return cmp.Compare(a.OwnerID, b.OwnerID)
	})

	entries = TopN(entries, limit)
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// Rank returns the 1-based position of ownerID in entries, or 0 if the owner
// is not ranked.
func Rank(entries []LeaderboardEntry, ownerID string) int {
	for i, e := range entries {
		if e.OwnerID == ownerID {
			return i + 1
		}
	}
	return 0
}

func metricScore(m Metric) func(LeaderboardEntry) int {
	switch m {
	case MetricWeight:
		return func(e LeaderboardEntry) int { return e.TotalWeight }
	case MetricSize:
		return func(e LeaderboardEntry) int { return e.MaxLength }
	case MetricSpecies:
		return func(e LeaderboardEntry) int { return e.SpeciesCount }
	default:
		return func(e LeaderboardEntry) int { return e.Catches }
	}
}
