package services

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"fishbox/internal/cache"
	"fishbox/internal/core"
	applog "fishbox/internal/log"
	"fishbox/internal/ports"
)

const (
	// Lookups for fixes within roughly 100 m share a cache entry.
	enrichKeyPlaces = 3
	enrichCacheSize = 512
)

// Enricher fills in the location label and weather of a new catch from its
// coordinates. Lookups are cached and concurrent identical lookups share one
// upstream call. Failures never reach the caller.
type Enricher struct {
	geocoder ports.Geocoder
	weather  ports.WeatherProvider
	places   *cache.Loader[string]
	forecast *cache.Loader[core.Weather]
	timeout  time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewEnricher accepts nil for either collaborator to skip that lookup.
func NewEnricher(geocoder ports.Geocoder, weather ports.WeatherProvider, ttl, timeout time.Duration) *Enricher {
	return &Enricher{
		geocoder: geocoder,
		weather:  weather,
		places:   cache.NewLoader(cache.NewLRUCache[string](enrichCacheSize, ttl)),
		forecast: cache.NewLoader(cache.NewLRUCache[core.Weather](enrichCacheSize, ttl)),
		timeout:  timeout,
		now:      time.Now,
		logger:   applog.WithComponent(applog.ComponentEnrich),
	}
}

// Caches returns the lookup caches for cleanup registration.
func (e *Enricher) Caches() []cache.Cleaner {
	return []cache.Cleaner{e.places.Cache(), e.forecast.Cache()}
}

// Enrich sets in.Location when it is empty and in.Weather when it is nil.
// Inputs without coordinates are left alone.
func (e *Enricher) Enrich(ctx context.Context, in *core.CatchInput) {
	if in == nil || in.Coordinates == nil {
		return
	}
	coords := *in.Coordinates
	at := in.Date
	if at.IsZero() {
		at = e.now()
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var (
		location string
		weather  *core.Weather
	)
	var g errgroup.Group
	if in.Location == "" && e.geocoder != nil {
		g.Go(func() error {
			key := core.QuantizeKey(coords, enrichKeyPlaces)
			label, err := e.places.Get(ctx, key, func(ctx context.Context) (string, error) {
				return e.geocoder.ReverseGeocode(ctx, coords)
			})
			if err != nil {
				e.logger.WarnContext(ctx, "Reverse geocoding failed", "coordinates", key, applog.FieldError, err)
				return nil
			}
			location = label
			return nil
		})
	}
	if in.Weather == nil && e.weather != nil {
		g.Go(func() error {
			hour := at.UTC().Truncate(time.Hour)
			key := core.QuantizeKey(coords, enrichKeyPlaces) + "@" + hour.Format(time.RFC3339)
			w, err := e.forecast.Get(ctx, key, func(ctx context.Context) (core.Weather, error) {
				return e.weather.WeatherAt(ctx, coords, at)
			})
			if err != nil {
				e.logger.WarnContext(ctx, "Weather lookup failed", "key", key, applog.FieldError, err)
				return nil
			}
			weather = &w
			return nil
		})
	}
	_ = g.Wait()

	if location != "" {
		in.Location = location
	}
	if weather != nil {
		in.Weather = weather
	}
}
