package stats

import (
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fishbox/internal/core"
)

func publicCatches(owner string, n int, at time.Time) []core.Catch {
	out := make([]core.Catch, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, core.Catch{
			ID:       fmt.Sprintf("%s-%d", owner, i),
			OwnerID:  owner,
			Species:  "Barsch",
			Length:   20 + i,
			Date:     at,
			IsPublic: true,
		})
	}
	return out
}

func TestLeaderboardByCatches(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	in := append(publicCatches("A", 3, now), publicCatches("B", 5, now)...)

	entries := Leaderboard(in, LeaderboardOptions{Window: WindowAll, Metric: MetricCatches, Now: now})
	require.Len(t, entries, 2)
	assert.Equal(t, "B", entries[0].OwnerID)
	assert.Equal(t, 5, entries[0].Catches)

	assert.Equal(t, 1, Rank(entries, "B"))
	assert.Equal(t, 2, Rank(entries, "A"))
	assert.Equal(t, 0, Rank(entries, "C"), "owner without public catches is unranked")
}

func TestLeaderboardAggregates(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	in := []core.Catch{
		{OwnerID: "u1", Species: "Hecht", Length: 80, Weight: weight(4000), Date: now, IsPublic: true},
		{OwnerID: "u1", Species: "Barsch", Length: 30, Date: now, IsPublic: true},
		{OwnerID: "u1", Species: "Hecht", Length: 55, Weight: weight(1500), Date: now, IsPublic: true},
		{OwnerID: "u1", Species: "Wels", Length: 150, Date: now, IsPublic: false},
		{OwnerID: "u2", Species: "Karpfen", Length: 70, Weight: weight(9000), Date: now, IsPublic: true},
	}

	got := Leaderboard(in, LeaderboardOptions{Window: WindowAll, Metric: MetricWeight, Now: now})
	want := []LeaderboardEntry{
		{Rank: 1, OwnerID: "u2", Catches: 1, TotalWeight: 9000, MaxLength: 70, SpeciesCount: 1},
		{Rank: 2, OwnerID: "u1", Catches: 3, TotalWeight: 5500, MaxLength: 80, SpeciesCount: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("leaderboard mismatch (-want +got):\n%s", diff)
	}
}

func TestLeaderboardMetricKeepsOwnerSet(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	in := []core.Catch{
		{OwnerID: "a", Species: "Hecht", Length: 90, Date: now, IsPublic: true},
		{OwnerID: "b", Species: "Barsch", Length: 20, Weight: weight(300), Date: now, IsPublic: true},
		{OwnerID: "b", Species: "Aal", Length: 60, Date: now, IsPublic: true},
		{OwnerID: "c", Species: "Karpfen", Length: 50, Weight: weight(5000), Date: now, IsPublic: true},
	}

	owners := func(m Metric) []string {
		var ids []string
		for _, e := range Leaderboard(in, LeaderboardOptions{Window: WindowAll, Metric: m, Now: now}) {
			ids = append(ids, e.OwnerID)
		}
		slices.Sort(ids)
		return ids
	}

	base := owners(MetricCatches)
	for _, m := range []Metric{MetricWeight, MetricSize, MetricSpecies} {
		assert.Equal(t, base, owners(m), "metric %s", m)
	}
}

func TestLeaderboardWindow(t *testing.T) {
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	var in []core.Catch
	in = append(in, publicCatches("x", 1, now.AddDate(0, 0, -2))...)
	in = append(in, publicCatches("x", 1, now.AddDate(0, 0, -7))...) // boundary is inclusive
	in = append(in, publicCatches("x", 1, now.AddDate(0, 0, -20))...)
	in = append(in, publicCatches("x", 1, now.AddDate(0, 0, -90))...)

	counts := map[Window]int{}
	for _, w := range []Window{WindowWeek, WindowMonth, WindowAll} {
		entries := Leaderboard(in, LeaderboardOptions{Window: w, Now: now})
		require.Len(t, entries, 1)
		counts[w] = entries[0].Catches
	}

	assert.Equal(t, 2, counts[WindowWeek])
	assert.Equal(t, 3, counts[WindowMonth])
	assert.Equal(t, 4, counts[WindowAll])
	assert.LessOrEqual(t, counts[WindowWeek], counts[WindowMonth])
	assert.LessOrEqual(t, counts[WindowMonth], counts[WindowAll])
}

func TestLeaderboardTiesAndLimit(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	var in []core.Catch
	for _, owner := range []string{"d", "b", "c", "a"} {
		in = append(in, publicCatches(owner, 1, now)...)
	}

	entries := Leaderboard(in, LeaderboardOptions{Now: now, Limit: 3})
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{entries[0].OwnerID, entries[1].OwnerID, entries[2].OwnerID})
	assert.Equal(t, 3, entries[2].Rank)

	var many []core.Catch
	for i := 0; i < 150; i++ {
		many = append(many, publicCatches(fmt.Sprintf("owner-%03d", i), 1, now)...)
	}
	assert.Len(t, Leaderboard(many, LeaderboardOptions{Now: now}), DefaultLeaderboardLimit)
	assert.Empty(t, Leaderboard(nil, LeaderboardOptions{Now: now}))
}

func TestParseWindowAndMetric(t *testing.T) {
	tests := []struct {
		in     string
		window Window
		ok     bool
	}{
		{"", WindowAll, true},
		{"week", WindowWeek, true},
		{"month", WindowMonth, true},
		{"year", "", false},
	}
	for _, tt := range tests {
		w, ok := ParseWindow(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.window, w, tt.in)
	}

	m, ok := ParseMetric("size")
	assert.True(t, ok)
	assert.Equal(t, MetricSize, m)
	_, ok = ParseMetric("luck")
	assert.False(t, ok)
}

func TestSpots(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2024, 5, 1, h, 0, 0, 0, time.UTC) }
	in := []core.Catch{
		{ID: "1", Species: "Hecht", Length: 60, Date: at(6), Location: "Müggelsee", Coordinates: &core.Coordinates{Lat: 52.437201, Lng: 13.644001}},
		{ID: "2", Species: "Barsch", Length: 25, Date: at(9), Location: "Müggelsee Ost", Coordinates: &core.Coordinates{Lat: 52.437204, Lng: 13.643998}},
		{ID: "3", Species: "Hecht", Length: 70, Date: at(7), Coordinates: &core.Coordinates{Lat: 52.437199, Lng: 13.644003}},
		{ID: "4", Species: "Zander", Length: 50, Date: at(20), Location: "Wannsee", Coordinates: &core.Coordinates{Lat: 52.43, Lng: 13.17}},
		{ID: "5", Species: "Aal", Length: 40, Date: at(22)},
	}

	spots := Spots(in, SpotOptions{})
	require.Len(t, spots, 2)
	assert.Equal(t, "52.43720,13.64400", spots[0].Key)
	assert.Equal(t, 3, spots[0].Count)
	assert.Equal(t, []string{"Hecht", "Barsch"}, spots[0].Species)
	assert.Equal(t, "Müggelsee", spots[0].Location)
	assert.Equal(t, at(9), spots[0].LastCatch)

	byLast := Spots(in, SpotOptions{SortBy: SpotByLastCatch})
	assert.Equal(t, "Wannsee", byLast[0].Location)

	coarse := Spots(in, SpotOptions{Precision: 1})
	require.Len(t, coarse, 2, "13.6 and 13.2 stay apart at one decimal")

	t.Run("membership does not depend on order", func(t *testing.T) {
		reversed := slices.Clone(in)
		slices.Reverse(reversed)
		members := func(spots []Spot) map[string]int {
			m := map[string]int{}
			for _, s := range spots {
				m[s.Key] = s.Count
			}
			return m
		}
		assert.Equal(t, members(spots), members(Spots(reversed, SpotOptions{})))
	})

	t.Run("catches without coordinates are ignored", func(t *testing.T) {
		total := 0
		for _, s := range spots {
			total += s.Count
		}
		assert.Equal(t, 4, total)
		assert.Empty(t, Spots([]core.Catch{{Species: "Aal", Length: 40}}, SpotOptions{}))
	})
}

func TestParseSpotSort(t *testing.T) {
	s, ok := ParseSpotSort("")
	assert.True(t, ok)
	assert.Equal(t, SpotByCount, s)
	s, ok = ParseSpotSort("species")
	assert.True(t, ok)
	assert.Equal(t, SpotBySpecies, s)
	_, ok = ParseSpotSort("distance")
	assert.False(t, ok)
}
