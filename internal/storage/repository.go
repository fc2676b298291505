// Package storage is the SQLite persistence collaborator. It implements
// ports.CatchRepository and ports.SocialRepository.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type SQLiteRepository struct {
	db *sql.DB

	listByOwnerStmt *sql.Stmt
	insertStmt      *sql.Stmt
	countLikesStmt  *sql.Stmt
	countCommStmt   *sql.Stmt
}

// dsn enables WAL with a lock wait and turns on foreign keys so deleting a
// catch cascades to its likes and comments.
func dsn(dbPath string) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)",
		filepath.Clean(dbPath))
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &SQLiteRepository{db: db}
	if err := r.prepare(); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRepository) prepare() error {
	stmts := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&r.listByOwnerStmt, `SELECT ` + catchColumns + ` FROM catches WHERE owner_id = ? ORDER BY caught_at DESC, created_at DESC`},
		{&r.insertStmt, `INSERT INTO catches (` + catchColumns + `) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`},
		{&r.countLikesStmt, `SELECT COUNT(*) FROM likes WHERE catch_id = ?`},
		{&r.countCommStmt, `SELECT COUNT(*) FROM comments WHERE catch_id = ?`},
	}
	for _, s := range stmts {
		stmt, err := r.db.Prepare(s.query)
		if err != nil {
			return fmt.Errorf("prepare statement: %w", err)
		}
		*s.dst = stmt
	}
	return nil
}

func (r *SQLiteRepository) Close() error {
	for _, stmt := range []*sql.Stmt{r.listByOwnerStmt, r.insertStmt, r.countLikesStmt, r.countCommStmt} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping is used by the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	return isConstraint(err, "UNIQUE", sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY)
}

func isForeignKeyViolation(err error) bool {
	return isConstraint(err, "FOREIGN KEY", sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY)
}

// isConstraint matches the extended result code, falling back to the message
// when only the primary SQLITE_CONSTRAINT code is reported.
func isConstraint(err error, kind string, codes ...int) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	if slices.Contains(codes, se.Code()) {
		return true
	}
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), kind)
}

func toUnix(t time.Time) int64 {
	return t.UnixNano()
}

func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// utcOffset is the offset of t's zone in seconds east of UTC.
func utcOffset(t time.Time) int {
	_, offset := t.Zone()
	return offset
}

// inZone restores the wall clock a time was recorded in.
func inZone(t time.Time, offset int) time.Time {
	if offset == 0 {
		return t.UTC()
	}
	return t.In(time.FixedZone("", offset))
}
