package core

import (
	"math"
	"strconv"
)

const earthRadiusKm = 6371.0

// Distance returns the great-circle distance in kilometres between a and b,
// rounded to two decimals.
func Distance(a, b Coordinates) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	d := earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return math.Round(d*100) / 100
}

// QuantizeKey renders c with the given number of decimal places, so fixes
// that round to the same grid cell share a key.
func QuantizeKey(c Coordinates, places int) string {
	if places < 0 {
		places = 0
	}
	return strconv.FormatFloat(roundTo(c.Lat, places), 'f', places, 64) + "," +
		strconv.FormatFloat(roundTo(c.Lng, places), 'f', places, 64)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	r := math.Round(v*p) / p
	if r == 0 {
		// avoid "-0.0000" keys for tiny negative values
		return 0
	}
	return r
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
