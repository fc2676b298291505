package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"fishbox/internal/core"
	applog "fishbox/internal/log"
)

// HeaderUserID carries the authenticated user id set by the auth proxy.
const HeaderUserID = "X-User-ID"

const maxUserIDLength = 128

// userID returns the caller's id or writes 401.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if id == "" || len(id) > maxUserIDLength {
		NewJSONResponse().Status(http.StatusUnauthorized).Error("Nicht angemeldet").Write(w)
		return "", false
	}
	return id, true
}

// writeError maps the error taxonomy to a status code and a German message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := classify(err)
	logger := applog.FromContext(r.Context())
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logger.Log(r.Context(), level, "Request failed",
		applog.FieldStatusCode, status,
		applog.FieldErrorType, errorType(err),
		applog.FieldError, err)
	NewJSONResponse().Status(status).Error(message).Write(w)
}

func classify(err error) (int, string) {
	var validation *core.ValidationError
	switch {
	case errors.As(err, &validation):
		return http.StatusUnprocessableEntity, validationMessage(validation)
	case errors.Is(err, core.ErrValidation):
		return http.StatusUnprocessableEntity, "Ungültige Eingabe"
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict, "Eintrag existiert bereits"
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "Nicht gefunden"
	case errors.Is(err, core.ErrPersistence):
		return http.StatusBadGateway, "Speichern fehlgeschlagen, bitte erneut versuchen"
	case errors.Is(err, core.ErrFetch):
		return http.StatusServiceUnavailable, "Daten konnten nicht geladen werden"
	default:
		return http.StatusInternalServerError, "Interner Fehler"
	}
}

var fieldNames = map[string]string{
	"species":         "Fischart",
	"length":          "Länge",
	"weight":          "Gewicht",
	"coordinates.lat": "Breitengrad",
	"coordinates.lng": "Längengrad",
	"location":        "Ort",
	"bait":            "Köder",
	"notes":           "Notizen",
	"content":         "Kommentar",
	"friendId":        "Freund",
	"status":          "Status",
	"date":            "Datum",
	"sort":            "Sortierung",
	"window":          "Zeitraum",
	"metric":          "Wertung",
	"format":          "Format",
}

func validationMessage(err *core.ValidationError) string {
	name, ok := fieldNames[err.Field]
	if !ok {
		name = err.Field
	}
	return fmt.Sprintf("Ungültige Angabe: %s", name)
}

func errorType(err error) string {
	switch {
	case errors.Is(err, core.ErrValidation):
		return applog.ErrorTypeValidation
	case errors.Is(err, core.ErrNotFound):
		return applog.ErrorTypeNotFound
	case errors.Is(err, core.ErrConflict):
		return applog.ErrorTypeConflict
	case errors.Is(err, core.ErrPersistence):
		return applog.ErrorTypePersistence
	case errors.Is(err, core.ErrFetch):
		return applog.ErrorTypeFetch
	default:
		return applog.ErrorTypeInternal
	}
}

// FormatLength renders a length in centimetres.
func FormatLength(cm int) string {
	return fmt.Sprintf("%d cm", cm)
}

// FormatWeight renders grams, switching to kilograms above 1000 g.
func FormatWeight(grams int) string {
	if grams > 1000 {
		return fmt.Sprintf("%.2f kg", float64(grams)/1000)
	}
	return fmt.Sprintf("%d g", grams)
}

// catchView is a catch with display labels for the UI.
type catchView struct {
	core.Catch
	LengthLabel string `json:"lengthLabel"`
	WeightLabel string `json:"weightLabel,omitempty"`
}

func newCatchView(c core.Catch) catchView {
	v := catchView{Catch: c, LengthLabel: FormatLength(c.Length)}
	if c.HasWeight() {
		v.WeightLabel = FormatWeight(*c.Weight)
	}
	return v
}

func newCatchViews(catches []core.Catch) []catchView {
	out := make([]catchView, len(catches))
	for i, c := range catches {
		out[i] = newCatchView(c)
	}
	return out
}
