package http

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"fishbox/internal/core"
	applog "fishbox/internal/log"
)

var exportHeader = []string{"Datum", "Art", "Länge (cm)", "Gewicht (g)", "Ort", "Köder", "Notizen"}

// handleExportCatches downloads the caller's catches as JSON (default) or
// CSV (?format=csv).
func (s *Server) handleExportCatches(w http.ResponseWriter, r *http.Request) {
	store, ok := s.session(w, r)
	if !ok {
		return
	}
	catches := store.Catches()
	stamp := s.now().Format(time.DateOnly)

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		NewJSONResponse().
			Header("Content-Disposition", fmt.Sprintf(`attachment; filename="fishbox-backup-%s.json"`, stamp)).
			Body(catches).
			Write(w)
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="fishbox-export-%s.csv"`, stamp))
		if err := writeCatchesCSV(w, catches); err != nil {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to write CSV export", applog.FieldError, err)
		}
	default:
		writeError(w, r, &core.ValidationError{Field: "format", Reason: "must be json or csv"})
	}
}

func writeCatchesCSV(w http.ResponseWriter, catches []core.Catch) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, c := range catches {
		weight := ""
		if c.HasWeight() {
			weight = strconv.Itoa(*c.Weight)
		}
		row := []string{
			c.Date.Format("02.01.2006"),
			c.Species,
			strconv.Itoa(c.Length),
			weight,
			c.Location,
			c.Bait,
			c.Notes,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
