// Package google appends catches to a yearly catch-log sheet in Google
// Sheets.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fishbox/internal/core"
	applog "fishbox/internal/log"
	"fishbox/internal/ports"
)

const rowDateLayout = "02.01.2006 15:04"

var _ ports.CatchExporter = (*CatchLog)(nil)

// CatchLog writes one row per catch to "<year> <sheet>" where year is the
// year of the catch date.
type CatchLog struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
}

type Options struct {
	SpreadsheetID string
	// SheetName is the base name without year, e.g. "Fänge".
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// New creates a CatchLog authenticated with a service account.
func New(ctx context.Context, opts Options) (*CatchLog, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, opts.CredentialsJSON, opts.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, opts.SpreadsheetID, opts.SheetName), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *CatchLog {
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Fänge"
	}
	return &CatchLog{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(spreadsheetID),
		sheetBase:     strings.TrimSpace(sheetName),
	}
}

// newSheetsService prefers inline JSON credentials over a credentials file.
func newSheetsService(ctx context.Context, credentialsJSON, credentialsFile string, extra ...goption.ClientOption) (*gsheet.Service, error) {
	var (
		creds []byte
		err   error
	)
	switch {
	case strings.TrimSpace(credentialsJSON) != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		creds = []byte(credentialsJSON)
	case strings.TrimSpace(credentialsFile) != "":
		slog.InfoContext(ctx, "Reading service account credentials from file", "path", credentialsFile)
		creds, err = os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	opts := append([]goption.ClientOption{
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, extra...)
	service, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Export appends c and returns the A1 range of the written row.
func (l *CatchLog) Export(ctx context.Context, c core.Catch) (string, error) {
	if l.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if c.ID == "" {
		return "", errors.New("catch without id")
	}

	sheet := yearPrefixedName(l.sheetBase, c.Date.Year())
	rng := quoteSheet(sheet) + "!A:I"
	vr := &gsheet.ValueRange{Values: [][]any{catchRow(c)}}

	resp, err := l.svc.Spreadsheets.Values.Append(l.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	slog.InfoContext(ctx, "Catch appended to catch log",
		applog.FieldComponent, applog.ComponentSheets,
		applog.FieldCatchID, c.ID,
		applog.FieldRowRef, ref)
	return ref, nil
}

// catchRow lays out columns A..I: date, species, length, weight, location,
// bait, lat, lng, id. Missing values are empty cells.
func catchRow(c core.Catch) []any {
	row := []any{
		c.Date.Format(rowDateLayout),
		c.Species,
		c.Length,
		"",
		c.Location,
		c.Bait,
		"",
		"",
		c.ID,
	}
	if c.HasWeight() {
		row[3] = *c.Weight
	}
	if c.Coordinates != nil {
		row[6] = strconv.FormatFloat(c.Coordinates.Lat, 'f', 6, 64)
		row[7] = strconv.FormatFloat(c.Coordinates.Lng, 'f', 6, 64)
	}
	return row
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
