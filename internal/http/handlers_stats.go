package http

import (
	"net/http"

	"fishbox/internal/core"
	"fishbox/internal/stats"
)

const (
	defaultMonths = 6
	maxMonths     = 36
)

type summaryView struct {
	stats.Summary
	AverageLengthLabel string `json:"averageLengthLabel"`
	AverageWeightLabel string `json:"averageWeightLabel,omitempty"`
	MaxLengthLabel     string `json:"maxLengthLabel"`
	MaxWeightLabel     string `json:"maxWeightLabel,omitempty"`
}

func newSummaryView(sum stats.Summary) summaryView {
	v := summaryView{
		Summary:            sum,
		AverageLengthLabel: FormatLength(int(sum.AverageLength + 0.5)),
		MaxLengthLabel:     FormatLength(sum.MaxLength),
	}
	if sum.WeightedCount > 0 {
		v.AverageWeightLabel = FormatWeight(int(sum.AverageWeight + 0.5))
		v.MaxWeightLabel = FormatWeight(sum.MaxWeight)
	}
	return v
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	store, ok := s.session(w, r)
	if !ok {
		return
	}
	top := IntParam(r.URL.Query(), "baits", stats.DefaultTopBaits, 1, 50)
	writeJSON(w, http.StatusOK, newSummaryView(stats.Summarize(store.Catches(), top)))
}

// handleSpecies returns the species distribution, optionally cut to ?top=N.
func (s *Server) handleSpecies(w http.ResponseWriter, r *http.Request) {
	store, ok := s.session(w, r)
	if !ok {
		return
	}
	dist := stats.SpeciesDistribution(store.Catches())
	if top := IntParam(r.URL.Query(), "top", 0, 0, 100); top > 0 {
		dist = stats.TopN(dist, top)
	}
	writeJSON(w, http.StatusOK, dist)
}

func (s *Server) handleSpeciesLength(w http.ResponseWriter, r *http.Request) {
	store, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, stats.AverageLengthBySpecies(store.Catches()))
}

func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	store, ok := s.session(w, r)
	if !ok {
		return
	}
	n := IntParam(r.URL.Query(), "months", defaultMonths, 1, maxMonths)
	writeJSON(w, http.StatusOK, stats.MonthlyCountsLast(store.Catches(), s.now(), n))
}

func (s *Server) handleHours(w http.ResponseWriter, r *http.Request) {
	store, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, stats.HourlyCounts(store.Catches()))
}

func (s *Server) handleSpots(w http.ResponseWriter, r *http.Request) {
	store, ok := s.session(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	sortBy, valid := stats.ParseSpotSort(q.Get("sort"))
	if !valid {
		writeError(w, r, &core.ValidationError{Field: "sort", Reason: "must be count, species or last"})
		return
	}
	precision := IntParam(q, "precision", s.spotPrecision, 1, stats.MaxSpotPrecision)
	writeJSON(w, http.StatusOK, stats.Spots(store.Catches(), stats.SpotOptions{Precision: precision, SortBy: sortBy}))
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	window, valid := stats.ParseWindow(q.Get("window"))
	if !valid {
		writeError(w, r, &core.ValidationError{Field: "window", Reason: "must be week, month or all"})
		return
	}
	metric, valid := stats.ParseMetric(q.Get("metric"))
	if !valid {
		writeError(w, r, &core.ValidationError{Field: "metric", Reason: "must be catches, weight, size or species"})
		return
	}
	result, err := s.social.Leaderboard(r.Context(), window, metric, uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
