package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"fishbox/internal/core"
)

const catchColumns = `id, owner_id, species, length_cm, weight_g, caught_at, location, lat, lng, bait, notes, photos, weather, is_public, created_at, caught_offset`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteRepository) ListByOwner(ctx context.Context, ownerID string) ([]core.Catch, error) {
	rows, err := r.listByOwnerStmt.QueryContext(ctx, ownerID)
	if err != nil {
		return nil, &core.FetchError{Op: "list catches by owner", Err: err}
	}
	return collectCatches(rows, "list catches by owner")
}

func (r *SQLiteRepository) ListPublicSince(ctx context.Context, since time.Time) ([]core.Catch, error) {
	lower := int64(math.MinInt64)
	if !since.IsZero() {
		lower = toUnix(since)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+catchColumns+` FROM catches WHERE is_public = 1 AND caught_at >= ? ORDER BY caught_at DESC`, lower)
	if err != nil {
		return nil, &core.FetchError{Op: "list public catches", Err: err}
	}
	return collectCatches(rows, "list public catches")
}

func (r *SQLiteRepository) RecentPublic(ctx context.Context, limit int) ([]core.Catch, error) {
	if limit <= 0 {
		limit = -1 // no limit in SQLite
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+catchColumns+` FROM catches WHERE is_public = 1 ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, &core.FetchError{Op: "list recent public catches", Err: err}
	}
	return collectCatches(rows, "list recent public catches")
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.Catch, error) {
	return getCatch(ctx, r.db, id)
}

func (r *SQLiteRepository) Insert(ctx context.Context, c core.Catch) (core.Catch, error) {
	c.ID = uuid.NewString()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	args, err := catchArgs(c)
	if err != nil {
		return core.Catch{}, &core.PersistenceError{Op: "insert catch", Err: err}
	}
	if _, err := r.insertStmt.ExecContext(ctx, args...); err != nil {
		return core.Catch{}, &core.PersistenceError{Op: "insert catch", Err: err}
	}
	// Round-trip through the stored representation so callers see what a
	// later read returns.
	c.Date = inZone(fromUnix(toUnix(c.Date)), utcOffset(c.Date))
	c.CreatedAt = fromUnix(toUnix(c.CreatedAt))
	return c, nil
}

// Update reads, patches and rewrites the row in one transaction.
func (r *SQLiteRepository) Update(ctx context.Context, id string, patch core.CatchPatch) (core.Catch, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Catch{}, &core.PersistenceError{Op: "update catch", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	current, err := getCatch(ctx, tx, id)
	if err != nil {
		return core.Catch{}, err
	}
	updated := patch.Apply(current)

	photos, weather, err := encodeJSONColumns(updated)
	if err != nil {
		return core.Catch{}, &core.PersistenceError{Op: "update catch", Err: err}
	}
	lat, lng := nullCoords(updated.Coordinates)
	_, err = tx.ExecContext(ctx, `
		UPDATE catches
		SET species = ?, length_cm = ?, weight_g = ?, caught_at = ?, location = ?, lat = ?, lng = ?,
		    bait = ?, notes = ?, photos = ?, weather = ?, is_public = ?, caught_offset = ?
		WHERE id = ?`,
		updated.Species, updated.Length, nullInt(updated.Weight), toUnix(updated.Date), updated.Location, lat, lng,
		updated.Bait, updated.Notes, photos, weather, updated.IsPublic, utcOffset(updated.Date), id)
	if err != nil {
		return core.Catch{}, &core.PersistenceError{Op: "update catch", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return core.Catch{}, &core.PersistenceError{Op: "update catch", Err: err}
	}
	updated.Date = inZone(fromUnix(toUnix(updated.Date)), utcOffset(updated.Date))
	return updated, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM catches WHERE id = ?`, id)
	if err != nil {
		return &core.PersistenceError{Op: "delete catch", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &core.PersistenceError{Op: "delete catch", Err: err}
	}
	if n == 0 {
		return &core.NotFoundError{Kind: "catch", ID: id}
	}
	return nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getCatch(ctx context.Context, q querier, id string) (core.Catch, error) {
	row := q.QueryRowContext(ctx, `SELECT `+catchColumns+` FROM catches WHERE id = ?`, id)
	c, err := scanCatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Catch{}, &core.NotFoundError{Kind: "catch", ID: id}
	}
	if err != nil {
		return core.Catch{}, &core.FetchError{Op: "get catch", Err: err}
	}
	return c, nil
}

func collectCatches(rows *sql.Rows, op string) ([]core.Catch, error) {
	defer rows.Close()
	out := []core.Catch{}
	for rows.Next() {
		c, err := scanCatch(rows)
		if err != nil {
			return nil, &core.FetchError{Op: op, Err: err}
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.FetchError{Op: op, Err: err}
	}
	return out, nil
}

func scanCatch(s rowScanner) (core.Catch, error) {
	var (
		c                 core.Catch
		weight            sql.NullInt64
		caughtAt, created int64
		offset            int
		lat, lng          sql.NullFloat64
		photos            string
		weather           sql.NullString
	)
	err := s.Scan(&c.ID, &c.OwnerID, &c.Species, &c.Length, &weight, &caughtAt, &c.Location,
		&lat, &lng, &c.Bait, &c.Notes, &photos, &weather, &c.IsPublic, &created, &offset)
	if err != nil {
		return core.Catch{}, err
	}

	c.Date = inZone(fromUnix(caughtAt), offset)
	c.CreatedAt = fromUnix(created)
	if weight.Valid {
		w := int(weight.Int64)
		c.Weight = &w
	}
	if lat.Valid && lng.Valid {
		c.Coordinates = &core.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
	}
	if err := json.Unmarshal([]byte(photos), &c.Photos); err != nil {
		return core.Catch{}, fmt.Errorf("decode photos: %w", err)
	}
	if len(c.Photos) == 0 {
		c.Photos = nil
	}
	if weather.Valid {
		var w core.Weather
		if err := json.Unmarshal([]byte(weather.String), &w); err != nil {
			return core.Catch{}, fmt.Errorf("decode weather: %w", err)
		}
		c.Weather = &w
	}
	return c, nil
}

func catchArgs(c core.Catch) ([]any, error) {
	photos, weather, err := encodeJSONColumns(c)
	if err != nil {
		return nil, err
	}
	lat, lng := nullCoords(c.Coordinates)
	return []any{
		c.ID, c.OwnerID, c.Species, c.Length, nullInt(c.Weight), toUnix(c.Date), c.Location,
		lat, lng, c.Bait, c.Notes, photos, weather, c.IsPublic, toUnix(c.CreatedAt),
		utcOffset(c.Date),
	}, nil
}

func encodeJSONColumns(c core.Catch) (photos string, weather sql.NullString, err error) {
	p := c.Photos
	if p == nil {
		p = []string{}
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", weather, fmt.Errorf("encode photos: %w", err)
	}
	if c.Weather != nil {
		w, err := json.Marshal(c.Weather)
		if err != nil {
			return "", weather, fmt.Errorf("encode weather: %w", err)
		}
		weather = sql.NullString{String: string(w), Valid: true}
	}
	return string(b), weather, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullCoords(c *core.Coordinates) (lat, lng sql.NullFloat64) {
	if c == nil {
		return lat, lng
	}
	return sql.NullFloat64{Float64: c.Lat, Valid: true}, sql.NullFloat64{Float64: c.Lng, Valid: true}
}
