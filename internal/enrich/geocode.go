package enrich

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"fishbox/internal/core"
)

// GeocodeClient resolves coordinates to a short place label with the
// Nominatim reverse API.
type GeocodeClient struct {
	baseURL string
	http    *http.Client
}

func NewGeocodeClient(baseURL string) *GeocodeClient {
	return &GeocodeClient{baseURL: strings.TrimRight(baseURL, "/"), http: newHTTPClient()}
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		Water   string `json:"water"`
		Lake    string `json:"lake"`
		River   string `json:"river"`
		Town    string `json:"town"`
		City    string `json:"city"`
		Village string `json:"village"`
		County  string `json:"county"`
	} `json:"address"`
}

// ReverseGeocode returns "water, town" when Nominatim knows the parts and the
// full display name otherwise.
func (c *GeocodeClient) ReverseGeocode(ctx context.Context, coords core.Coordinates) (string, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(coords.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(coords.Lng, 'f', -1, 64))
	q.Set("zoom", "10")

	var resp reverseResponse
	if err := getJSON(ctx, c.http, c.baseURL+"/reverse?"+q.Encode(), &resp); err != nil {
		return "", fmt.Errorf("nominatim: %w", err)
	}

	if label := placeLabel(resp); label != "" {
		return label, nil
	}
	return "", errors.New("nominatim: empty result")
}

func placeLabel(r reverseResponse) string {
	a := r.Address
	var parts []string
	if water := firstNonEmpty(a.Water, a.Lake, a.River); water != "" {
		parts = append(parts, water)
	}
	if place := firstNonEmpty(a.Town, a.City, a.Village); place != "" {
		parts = append(parts, place)
	} else if a.County != "" {
		parts = append(parts, a.County)
	}
	if len(parts) > 0 {
		return strings.Join(parts, ", ")
	}
	return strings.TrimSpace(r.DisplayName)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
