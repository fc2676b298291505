package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fishbox/internal/core"
)

type countingGeocoder struct {
	calls atomic.Int32
	label string
	err   error
}

func (g *countingGeocoder) ReverseGeocode(_ context.Context, _ core.Coordinates) (string, error) {
	g.calls.Add(1)
	return g.label, g.err
}

type countingWeather struct {
	calls atomic.Int32
	err   error
}

func (w *countingWeather) WeatherAt(_ context.Context, _ core.Coordinates, _ time.Time) (core.Weather, error) {
	w.calls.Add(1)
	return core.Weather{Temperature: 18, Description: "Klar", Icon: "☀️"}, w.err
}

func TestEnricherFillsMissingFields(t *testing.T) {
	geo := &countingGeocoder{label: "Müggelsee, Berlin"}
	weather := &countingWeather{}
	e := NewEnricher(geo, weather, time.Minute, time.Second)

	in := core.CatchInput{Species: "Hecht", Length: 60, Date: testNow, Coordinates: coords(52.4372, 13.644)}
	e.Enrich(context.Background(), &in)

	assert.Equal(t, "Müggelsee, Berlin", in.Location)
	require.NotNil(t, in.Weather)
	assert.Equal(t, 18, in.Weather.Temperature)

	// a fix a few metres away in the same hour hits the cache
	again := core.CatchInput{Species: "Barsch", Length: 20, Date: testNow.Add(10 * time.Minute), Coordinates: coords(52.43721, 13.64402)}
	e.Enrich(context.Background(), &again)

	assert.Equal(t, int32(1), geo.calls.Load())
	assert.Equal(t, int32(1), weather.calls.Load())
	assert.Equal(t, "Müggelsee, Berlin", again.Location)
}

func TestEnricherKeepsUserValues(t *testing.T) {
	geo := &countingGeocoder{label: "irgendwo"}
	weather := &countingWeather{}
	e := NewEnricher(geo, weather, time.Minute, time.Second)

	given := &core.Weather{Temperature: 3, Description: "Schnee"}
	in := core.CatchInput{Species: "Hecht", Length: 60, Location: "Hausstrecke", Weather: given, Coordinates: coords(52, 13)}
	e.Enrich(context.Background(), &in)

	assert.Equal(t, "Hausstrecke", in.Location)
	assert.Same(t, given, in.Weather)
	assert.Zero(t, geo.calls.Load())
	assert.Zero(t, weather.calls.Load())
}

func TestEnricherWithoutCoordinates(t *testing.T) {
	geo := &countingGeocoder{label: "irgendwo"}
	e := NewEnricher(geo, nil, time.Minute, time.Second)

	in := core.CatchInput{Species: "Hecht", Length: 60}
	e.Enrich(context.Background(), &in)

	assert.Empty(t, in.Location)
	assert.Nil(t, in.Weather)
	assert.Zero(t, geo.calls.Load())
}

func TestEnricherSwallowsFailures(t *testing.T) {
	geo := &countingGeocoder{err: errors.New("429 too many requests")}
	weather := &countingWeather{err: errors.New("timeout")}
	e := NewEnricher(geo, weather, time.Minute, time.Second)

	in := core.CatchInput{Species: "Hecht", Length: 60, Coordinates: coords(52, 13)}
	e.Enrich(context.Background(), &in)

	assert.Empty(t, in.Location)
	assert.Nil(t, in.Weather)

	// errors are not cached
	e.Enrich(context.Background(), &in)
	assert.Equal(t, int32(2), geo.calls.Load())
}

func TestEnricherConcurrentLookupsShareOneCall(t *testing.T) {
	geo := &blockingGeocoder{release: make(chan struct{})}
	e := NewEnricher(geo, nil, time.Minute, 5*time.Second)

	var wg sync.WaitGroup
	results := make([]string, 6)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			in := core.CatchInput{Species: "Hecht", Length: 60, Coordinates: coords(48.1, 11.5)}
			e.Enrich(context.Background(), &in)
			results[i] = in.Location
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(geo.release)
	wg.Wait()

	assert.Equal(t, int32(1), geo.calls.Load())
	for _, r := range results {
		assert.Equal(t, "Isar, München", r)
	}
}

type blockingGeocoder struct {
	calls   atomic.Int32
	release chan struct{}
}

func (g *blockingGeocoder) ReverseGeocode(ctx context.Context, _ core.Coordinates) (string, error) {
	g.calls.Add(1)
	select {
	case <-g.release:
		return "Isar, München", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
