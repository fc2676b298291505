package stats

import (
	"time"

	"fishbox/internal/core"
)

const HoursPerDay = 24

type MonthCount struct {
	// Month is midnight on the first day of the month.
	Month time.Time `json:"month"`
	Count int       `json:"count"`
}

type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// MonthlyCounts returns one bucket per calendar month from the month of from
// to the month of to, inclusive, including months without catches. An empty
// slice is returned when to is before from. Bucket boundaries use from's
// location; each catch is assigned by the year and month of its own Date.
func MonthlyCounts(catches []core.Catch, from, to time.Time) []MonthCount {
	first := monthIndex(from)
	last := monthIndex(to)
	if last < first {
		return []MonthCount{}
	}

	out := make([]MonthCount, 0, last-first+1)
	for m := first; m <= last; m++ {
		out = append(out, MonthCount{
			Month: time.Date(m/12, time.Month(m%12+1), 1, 0, 0, 0, 0, from.Location()),
		})
	}
	for _, c := range catches {
		m := monthIndex(c.Date)
		if m >= first && m <= last {
			out[m-first].Count++
		}
	}
	return out
}

// MonthlyCountsLast returns the n months ending with the month of now.
func MonthlyCountsLast(catches []core.Catch, now time.Time, n int) []MonthCount {
	if n <= 0 {
		return []MonthCount{}
	}
	start := time.Date(now.Year(), now.Month()-time.Month(n-1), 1, 0, 0, 0, 0, now.Location())
	return MonthlyCounts(catches, start, now)
}

// HourlyCounts always returns 24 buckets, hour 0 first.
func HourlyCounts(catches []core.Catch) []HourCount {
	out := make([]HourCount, HoursPerDay)
	for h := range out {
		out[h].Hour = h
	}
	for _, c := range catches {
		out[c.Date.Hour()].Count++
	}
	return out
}

func monthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}
