package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"fishbox/internal/core"
)

func (r *SQLiteRepository) AddLike(ctx context.Context, l core.Like) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO likes (catch_id, user_id, created_at) VALUES (?, ?, ?)`,
		l.CatchID, l.UserID, toUnix(l.CreatedAt))
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return &core.PersistenceError{Op: "add like", Err: core.ErrConflict}
	case isForeignKeyViolation(err):
		return &core.NotFoundError{Kind: "catch", ID: l.CatchID}
	default:
		return &core.PersistenceError{Op: "add like", Err: err}
	}
}

func (r *SQLiteRepository) RemoveLike(ctx context.Context, catchID, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM likes WHERE catch_id = ? AND user_id = ?`, catchID, userID); err != nil {
		return &core.PersistenceError{Op: "remove like", Err: err}
	}
	return nil
}

func (r *SQLiteRepository) HasLiked(ctx context.Context, catchID, userID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM likes WHERE catch_id = ? AND user_id = ?`, catchID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, &core.FetchError{Op: "check like", Err: err}
	}
	return true, nil
}

func (r *SQLiteRepository) CountLikes(ctx context.Context, catchID string) (int, error) {
	var n int
	if err := r.countLikesStmt.QueryRowContext(ctx, catchID).Scan(&n); err != nil {
		return 0, &core.FetchError{Op: "count likes", Err: err}
	}
	return n, nil
}

func (r *SQLiteRepository) AddComment(ctx context.Context, c core.Comment) (core.Comment, error) {
	c.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO comments (id, catch_id, user_id, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.CatchID, c.UserID, c.Content, toUnix(c.CreatedAt))
	if isForeignKeyViolation(err) {
		return core.Comment{}, &core.NotFoundError{Kind: "catch", ID: c.CatchID}
	}
	if err != nil {
		return core.Comment{}, &core.PersistenceError{Op: "add comment", Err: err}
	}
	c.CreatedAt = fromUnix(toUnix(c.CreatedAt))
	return c, nil
}

func (r *SQLiteRepository) GetComment(ctx context.Context, id string) (core.Comment, error) {
	var (
		c       core.Comment
		created int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, catch_id, user_id, content, created_at FROM comments WHERE id = ?`, id).
		Scan(&c.ID, &c.CatchID, &c.UserID, &c.Content, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Comment{}, &core.NotFoundError{Kind: "comment", ID: id}
	}
	if err != nil {
		return core.Comment{}, &core.FetchError{Op: "get comment", Err: err}
	}
	c.CreatedAt = fromUnix(created)
	return c, nil
}

func (r *SQLiteRepository) DeleteComment(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "comments", "comment", id)
}

func (r *SQLiteRepository) ListComments(ctx context.Context, catchID string) ([]core.Comment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, catch_id, user_id, content, created_at FROM comments WHERE catch_id = ? ORDER BY created_at DESC`, catchID)
	if err != nil {
		return nil, &core.FetchError{Op: "list comments", Err: err}
	}
	defer rows.Close()

	out := []core.Comment{}
	for rows.Next() {
		var (
			c       core.Comment
			created int64
		)
		if err := rows.Scan(&c.ID, &c.CatchID, &c.UserID, &c.Content, &created); err != nil {
			return nil, &core.FetchError{Op: "list comments", Err: err}
		}
		c.CreatedAt = fromUnix(created)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.FetchError{Op: "list comments", Err: err}
	}
	return out, nil
}

func (r *SQLiteRepository) CountComments(ctx context.Context, catchID string) (int, error) {
	var n int
	if err := r.countCommStmt.QueryRowContext(ctx, catchID).Scan(&n); err != nil {
		return 0, &core.FetchError{Op: "count comments", Err: err}
	}
	return n, nil
}

const friendshipColumns = `id, user_id, friend_id, status, created_at`

func (r *SQLiteRepository) CreateFriendship(ctx context.Context, f core.Friendship) (core.Friendship, error) {
	f.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO friendships (id, user_id, friend_id, pair_key, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		f.ID, f.UserID, f.FriendID, pairKey(f.UserID, f.FriendID), string(f.Status), toUnix(f.CreatedAt))
	if isUniqueViolation(err) {
		return core.Friendship{}, &core.PersistenceError{Op: "create friendship", Err: core.ErrConflict}
	}
	if err != nil {
		return core.Friendship{}, &core.PersistenceError{Op: "create friendship", Err: err}
	}
	f.CreatedAt = fromUnix(toUnix(f.CreatedAt))
	return f, nil
}

func (r *SQLiteRepository) GetFriendship(ctx context.Context, id string) (core.Friendship, error) {
	f, err := scanFriendship(r.db.QueryRowContext(ctx,
		`SELECT `+friendshipColumns+` FROM friendships WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Friendship{}, &core.NotFoundError{Kind: "friendship", ID: id}
	}
	if err != nil {
		return core.Friendship{}, &core.FetchError{Op: "get friendship", Err: err}
	}
	return f, nil
}

func (r *SQLiteRepository) UpdateFriendshipStatus(ctx context.Context, id string, status core.FriendshipStatus) (core.Friendship, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE friendships SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return core.Friendship{}, &core.PersistenceError{Op: "update friendship", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Friendship{}, &core.NotFoundError{Kind: "friendship", ID: id}
	}
	return r.GetFriendship(ctx, id)
}

func (r *SQLiteRepository) DeleteFriendship(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "friendships", "friendship", id)
}

func (r *SQLiteRepository) ListFriendships(ctx context.Context, userID string) ([]core.Friendship, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+friendshipColumns+` FROM friendships WHERE user_id = ? OR friend_id = ? ORDER BY created_at`, userID, userID)
	if err != nil {
		return nil, &core.FetchError{Op: "list friendships", Err: err}
	}
	defer rows.Close()

	out := []core.Friendship{}
	for rows.Next() {
		f, err := scanFriendship(rows)
		if err != nil {
			return nil, &core.FetchError{Op: "list friendships", Err: err}
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.FetchError{Op: "list friendships", Err: err}
	}
	return out, nil
}

// deleteByID is only called with fixed table names.
func (r *SQLiteRepository) deleteByID(ctx context.Context, table, kind, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return &core.PersistenceError{Op: "delete " + kind, Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}

func scanFriendship(s rowScanner) (core.Friendship, error) {
	var (
		f       core.Friendship
		status  string
		created int64
	)
	if err := s.Scan(&f.ID, &f.UserID, &f.FriendID, &status, &created); err != nil {
		return core.Friendship{}, err
	}
	f.Status = core.FriendshipStatus(status)
	f.CreatedAt = fromUnix(created)
	return f, nil
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}
