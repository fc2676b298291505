package enrich

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fishbox/internal/core"
)

const hourlyFields = "temperature_2m,relative_humidity_2m,pressure_msl,wind_speed_10m,wind_direction_10m,weather_code"

// ErrNoWeatherData is returned when the forecast has no entry for the
// requested hour.
var ErrNoWeatherData = errors.New("no weather data for requested hour")

// WeatherClient reads hourly values from the Open-Meteo forecast API. Times
// are requested and matched in UTC.
type WeatherClient struct {
	baseURL string
	http    *http.Client
}

func NewWeatherClient(baseURL string) *WeatherClient {
	return &WeatherClient{baseURL: strings.TrimRight(baseURL, "/"), http: newHTTPClient()}
}

type forecastResponse struct {
	Hourly struct {
		Time          []string   `json:"time"`
		Temperature   []*float64 `json:"temperature_2m"`
		Humidity      []*float64 `json:"relative_humidity_2m"`
		Pressure      []*float64 `json:"pressure_msl"`
		WindSpeed     []*float64 `json:"wind_speed_10m"`
		WindDirection []*float64 `json:"wind_direction_10m"`
		WeatherCode   []*float64 `json:"weather_code"`
	} `json:"hourly"`
}

func (c *WeatherClient) WeatherAt(ctx context.Context, coords core.Coordinates, at time.Time) (core.Weather, error) {
	at = at.UTC()
	day := at.Format(time.DateOnly)

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(coords.Lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(coords.Lng, 'f', -1, 64))
	q.Set("hourly", hourlyFields)
	q.Set("timezone", "UTC")
	q.Set("start_date", day)
	q.Set("end_date", day)

	var resp forecastResponse
	if err := getJSON(ctx, c.http, c.baseURL+"/v1/forecast?"+q.Encode(), &resp); err != nil {
		return core.Weather{}, fmt.Errorf("open-meteo: %w", err)
	}

	h := resp.Hourly
	idx := -1
	for i, ts := range h.Time {
		t, err := time.Parse("2006-01-02T15:04", ts)
		if err == nil && t.Hour() == at.Hour() {
			idx = i
			break
		}
	}
	if idx < 0 {
		return core.Weather{}, ErrNoWeatherData
	}

	code := int(value(h.WeatherCode, idx))
	description, icon := DescribeWeatherCode(code)
	return core.Weather{
		Temperature:   round(value(h.Temperature, idx)),
		WindSpeed:     round(value(h.WindSpeed, idx)),
		WindDirection: round(value(h.WindDirection, idx)),
		Pressure:      round(value(h.Pressure, idx)),
		Humidity:      round(value(h.Humidity, idx)),
		Description:   description,
		Icon:          icon,
	}, nil
}

// value treats missing and null entries as zero.
func value(series []*float64, i int) float64 {
	if i >= len(series) || series[i] == nil {
		return 0
	}
	return *series[i]
}

func round(v float64) int {
	return int(math.Round(v))
}

// DescribeWeatherCode maps a WMO weather code to a German description and an
// icon.
func DescribeWeatherCode(code int) (description, icon string) {
	switch code {
	case 0:
		return "Klar", "☀️"
	case 1:
		return "Überwiegend klar", "🌤️"
	case 2:
		return "Teilweise bewölkt", "⛅"
	case 3:
		return "Bewölkt", "☁️"
	case 45, 48:
		return "Nebel", "🌫️"
	case 51, 53, 55:
		return "Nieselregen", "🌦️"
	case 56, 57:
		return "Gefrierender Nieselregen", "🌧️"
	case 61, 63, 65:
		return "Regen", "🌧️"
	case 66, 67:
		return "Gefrierender Regen", "🌧️"
	case 71, 73, 75:
		return "Schneefall", "🌨️"
	case 77:
		return "Schneegriesel", "🌨️"
	case 80, 81, 82:
		return "Regenschauer", "🌧️"
	case 85, 86:
		return "Schneeschauer", "🌨️"
	case 95:
		return "Gewitter", "⛈️"
	case 96, 99:
		return "Gewitter mit Hagel", "⛈️"
	default:
		return "Unbekannt", "🌡️"
	}
}

// WindDirection returns the German compass point for degrees.
func WindDirection(degrees int) string {
	directions := [...]string{"N", "NO", "O", "SO", "S", "SW", "W", "NW"}
	d := math.Mod(float64(degrees), 360)
	if d < 0 {
		d += 360
	}
	return directions[int(math.Round(d/45))%8]
}
