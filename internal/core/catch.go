package core

import (
	"math"
	"strings"
	"time"
)

const (
	maxSpeciesLength = 100
	maxNotesLength   = 2000
	maxTextLength    = 200
)

// Catch dates must fall in [minCatchDate, maxCatchDate).
var (
	minCatchDate = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)
	maxCatchDate = time.Date(2100, time.January, 1, 0, 0, 0, 0, time.UTC)
)

type (
	Coordinates struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	}

	// Weather is the snapshot captured when the catch was logged.
	// It is stored once and never re-fetched.
	Weather struct {
		Temperature   int    `json:"temperature"`   // Celsius
		WindSpeed     int    `json:"windSpeed"`     // km/h
		WindDirection int    `json:"windDirection"` // degrees
		Pressure      int    `json:"pressure"`      // hPa
		Humidity      int    `json:"humidity"`      // %
		Description   string `json:"description"`
		Icon          string `json:"icon"`
	}

	Catch struct {
		ID          string       `json:"id"`
		OwnerID     string       `json:"ownerId"`
		Species     string       `json:"species"`
		Length      int          `json:"length"`           // cm
		Weight      *int         `json:"weight,omitempty"` // grams
		Date        time.Time    `json:"date"`
		Location    string       `json:"location,omitempty"`
		Coordinates *Coordinates `json:"coordinates,omitempty"`
		Bait        string       `json:"bait,omitempty"`
		Notes       string       `json:"notes,omitempty"`
		Photos      []string     `json:"photos,omitempty"`
		Weather     *Weather     `json:"weather,omitempty"`
		IsPublic    bool         `json:"isPublic"`
		CreatedAt   time.Time    `json:"createdAt"`
	}

	// CatchInput is what a user submits when logging a catch. The id and
	// owner are assigned elsewhere.
	CatchInput struct {
		Species     string       `json:"species"`
		Length      int          `json:"length"`
		Weight      *int         `json:"weight,omitempty"`
		Date        time.Time    `json:"date"`
		Location    string       `json:"location,omitempty"`
		Coordinates *Coordinates `json:"coordinates,omitempty"`
		Bait        string       `json:"bait,omitempty"`
		Notes       string       `json:"notes,omitempty"`
		Photos      []string     `json:"photos,omitempty"`
		Weather     *Weather     `json:"weather,omitempty"`
		IsPublic    bool         `json:"isPublic"`
	}

	// CatchPatch is a partial update. Nil fields are left untouched.
	// Weather, owner and id cannot be patched.
	CatchPatch struct {
		Species     *string      `json:"species,omitempty"`
		Length      *int         `json:"length,omitempty"`
		Weight      *int         `json:"weight,omitempty"`
		Date        *time.Time   `json:"date,omitempty"`
		Location    *string      `json:"location,omitempty"`
		Coordinates *Coordinates `json:"coordinates,omitempty"`
		Bait        *string      `json:"bait,omitempty"`
		Notes       *string      `json:"notes,omitempty"`
		Photos      []string     `json:"photos,omitempty"`
		IsPublic    *bool        `json:"isPublic,omitempty"`
	}
)

// SuggestedSpecies is offered to the UI for autocompletion. It is not an enum:
// any non-empty species is accepted.
var SuggestedSpecies = []string{
	"Hecht", "Zander", "Barsch", "Forelle", "Karpfen", "Wels", "Aal",
	"Brasse", "Rotauge", "Schleie", "Döbel", "Rapfen", "Saibling", "Äsche",
}

func (c Coordinates) Validate() error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || c.Lat < -90 || c.Lat > 90 {
		return &ValidationError{Field: "coordinates.lat", Reason: "must be between -90 and 90"}
	}
	if math.IsNaN(c.Lng) || math.IsInf(c.Lng, 0) || c.Lng < -180 || c.Lng > 180 {
		return &ValidationError{Field: "coordinates.lng", Reason: "must be between -180 and 180"}
	}
	return nil
}

// PrimaryPhoto returns the photo shown on cards and lists, or "" if none.
func (c Catch) PrimaryPhoto() string {
	if len(c.Photos) == 0 {
		return ""
	}
	return c.Photos[0]
}

// HasWeight reports whether a weight was recorded.
func (c Catch) HasWeight() bool {
	return c.Weight != nil && *c.Weight > 0
}

func (in CatchInput) Validate() error {
	if err := validateSpecies(in.Species); err != nil {
		return err
	}
	if in.Length <= 0 {
		return &ValidationError{Field: "length", Reason: "must be greater than 0"}
	}
	if err := validateWeight(in.Weight); err != nil {
		return err
	}
	if !in.Date.IsZero() {
		if err := validateDate(in.Date); err != nil {
			return err
		}
	}
	if in.Coordinates != nil {
		if err := in.Coordinates.Validate(); err != nil {
			return err
		}
	}
	return validateText(in.Location, in.Bait, in.Notes)
}

// NewCatch builds the record to persist from a validated input.
func NewCatch(ownerID string, in CatchInput, now time.Time) Catch {
	date := in.Date
	if date.IsZero() {
		date = now
	}
	return Catch{
		OwnerID:     ownerID,
		Species:     strings.TrimSpace(in.Species),
		Length:      in.Length,
		Weight:      in.Weight,
		Date:        date,
		Location:    strings.TrimSpace(in.Location),
		Coordinates: in.Coordinates,
		Bait:        strings.TrimSpace(in.Bait),
		Notes:       in.Notes,
		Photos:      append([]string(nil), in.Photos...),
		Weather:     in.Weather,
		IsPublic:    in.IsPublic,
		CreatedAt:   now,
	}
}

func (p CatchPatch) Validate() error {
	if p.Species != nil {
		if err := validateSpecies(*p.Species); err != nil {
			return err
		}
	}
	if p.Length != nil && *p.Length <= 0 {
		return &ValidationError{Field: "length", Reason: "must be greater than 0"}
	}
	if err := validateWeight(p.Weight); err != nil {
		return err
	}
	if p.Date != nil {
		if p.Date.IsZero() {
			return &ValidationError{Field: "date", Reason: "cannot be zero"}
		}
		if err := validateDate(*p.Date); err != nil {
			return err
		}
	}
	if p.Coordinates != nil {
		if err := p.Coordinates.Validate(); err != nil {
			return err
		}
	}
	return validateText(deref(p.Location), deref(p.Bait), deref(p.Notes))
}

// IsEmpty reports whether the patch changes nothing.
func (p CatchPatch) IsEmpty() bool {
	return p.Species == nil && p.Length == nil && p.Weight == nil && p.Date == nil &&
		p.Location == nil && p.Coordinates == nil && p.Bait == nil && p.Notes == nil &&
		p.Photos == nil && p.IsPublic == nil
}

// Apply merges the patch into c and returns the result. c is not modified.
func (p CatchPatch) Apply(c Catch) Catch {
	if p.Species != nil {
		c.Species = strings.TrimSpace(*p.Species)
	}
	if p.Length != nil {
		c.Length = *p.Length
	}
	if p.Weight != nil {
		w := *p.Weight
		c.Weight = &w
	}
	if p.Date != nil {
		c.Date = *p.Date
	}
	if p.Location != nil {
		c.Location = strings.TrimSpace(*p.Location)
	}
	if p.Coordinates != nil {
		coords := *p.Coordinates
		c.Coordinates = &coords
	}
	if p.Bait != nil {
		c.Bait = strings.TrimSpace(*p.Bait)
	}
	if p.Notes != nil {
		c.Notes = *p.Notes
	}
	if p.Photos != nil {
		c.Photos = append([]string(nil), p.Photos...)
	}
	if p.IsPublic != nil {
		c.IsPublic = *p.IsPublic
	}
	return c
}

func validateSpecies(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return &ValidationError{Field: "species", Reason: "cannot be empty"}
	}
	if len(s) > maxSpeciesLength {
		return &ValidationError{Field: "species", Reason: "too long (max 100 characters)"}
	}
	return nil
}

func validateWeight(w *int) error {
	if w != nil && *w <= 0 {
		return &ValidationError{Field: "weight", Reason: "must be greater than 0"}
	}
	return nil
}

func validateDate(t time.Time) error {
	if t.Before(minCatchDate) || !t.Before(maxCatchDate) {
		return &ValidationError{Field: "date", Reason: "must be between 1900 and 2099"}
	}
	return nil
}

func validateText(location, bait, notes string) error {
	if len(location) > maxTextLength {
		return &ValidationError{Field: "location", Reason: "too long (max 200 characters)"}
	}
	if len(bait) > maxTextLength {
		return &ValidationError{Field: "bait", Reason: "too long (max 200 characters)"}
	}
	if len(notes) > maxNotesLength {
		return &ValidationError{Field: "notes", Reason: "too long (max 2000 characters)"}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
