// Package memory is an in-process persistence collaborator used for tests
// and for DATA_BACKEND=memory.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"fishbox/internal/core"
)

type Store struct {
	mu          sync.Mutex
	catches     []core.Catch
	likes       []core.Like
	comments    []core.Comment
	friendships []core.Friendship
}

func New() *Store {
	return &Store{}
}

// Seed inserts catches as-is, keeping their ids. Catches without id get one.
func (s *Store) Seed(catches ...core.Catch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range catches {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		s.catches = append(s.catches, cloneCatch(c))
	}
}

func (s *Store) ListByOwner(_ context.Context, ownerID string) ([]core.Catch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.filter(func(c core.Catch) bool { return c.OwnerID == ownerID })
	slices.SortStableFunc(out, func(a, b core.Catch) int { return b.Date.Compare(a.Date) })
	return out, nil
}

func (s *Store) ListPublicSince(_ context.Context, since time.Time) ([]core.Catch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.filter(func(c core.Catch) bool { return c.IsPublic && !c.Date.Before(since) })
	slices.SortStableFunc(out, func(a, b core.Catch) int { return b.Date.Compare(a.Date) })
	return out, nil
}

func (s *Store) RecentPublic(_ context.Context, limit int) ([]core.Catch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.filter(func(c core.Catch) bool { return c.IsPublic })
	slices.SortStableFunc(out, func(a, b core.Catch) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Get(_ context.Context, id string) (core.Catch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.catchIndex(id)
	if i < 0 {
		return core.Catch{}, &core.NotFoundError{Kind: "catch", ID: id}
	}
	return cloneCatch(s.catches[i]), nil
}

func (s *Store) Insert(_ context.Context, c core.Catch) (core.Catch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = uuid.NewString()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	s.catches = append(s.catches, cloneCatch(c))
	return cloneCatch(c), nil
}

func (s *Store) Update(_ context.Context, id string, patch core.CatchPatch) (core.Catch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.catchIndex(id)
	if i < 0 {
		return core.Catch{}, &core.NotFoundError{Kind: "catch", ID: id}
	}
	s.catches[i] = cloneCatch(patch.Apply(s.catches[i]))
	return cloneCatch(s.catches[i]), nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.catchIndex(id)
	if i < 0 {
		return &core.NotFoundError{Kind: "catch", ID: id}
	}
	s.catches = slices.Delete(s.catches, i, i+1)
	s.likes = slices.DeleteFunc(s.likes, func(l core.Like) bool { return l.CatchID == id })
	s.comments = slices.DeleteFunc(s.comments, func(c core.Comment) bool { return c.CatchID == id })
	return nil
}

func (s *Store) AddLike(_ context.Context, l core.Like) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.catchIndex(l.CatchID) < 0 {
		return &core.NotFoundError{Kind: "catch", ID: l.CatchID}
	}
	if s.likeIndex(l.CatchID, l.UserID) >= 0 {
		return &core.PersistenceError{Op: "add like", Err: core.ErrConflict}
	}
	s.likes = append(s.likes, l)
	return nil
}

func (s *Store) RemoveLike(_ context.Context, catchID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.likeIndex(catchID, userID); i >= 0 {
		s.likes = slices.Delete(s.likes, i, i+1)
	}
	return nil
}

func (s *Store) HasLiked(_ context.Context, catchID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.likeIndex(catchID, userID) >= 0, nil
}

func (s *Store) CountLikes(_ context.Context, catchID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.likes {
		if l.CatchID == catchID {
			n++
		}
	}
	return n, nil
}

func (s *Store) AddComment(_ context.Context, c core.Comment) (core.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.catchIndex(c.CatchID) < 0 {
		return core.Comment{}, &core.NotFoundError{Kind: "catch", ID: c.CatchID}
	}
	c.ID = uuid.NewString()
	s.comments = append(s.comments, c)
	return c, nil
}

func (s *Store) GetComment(_ context.Context, id string) (core.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.comments {
		if c.ID == id {
			return c, nil
		}
	}
	return core.Comment{}, &core.NotFoundError{Kind: "comment", ID: id}
}

func (s *Store) DeleteComment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.comments)
	s.comments = slices.DeleteFunc(s.comments, func(c core.Comment) bool { return c.ID == id })
	if len(s.comments) == n {
		return &core.NotFoundError{Kind: "comment", ID: id}
	}
	return nil
}

func (s *Store) ListComments(_ context.Context, catchID string) ([]core.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Comment{}
	for _, c := range s.comments {
		if c.CatchID == catchID {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b core.Comment) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (s *Store) CountComments(_ context.Context, catchID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.comments {
		if c.CatchID == catchID {
			n++
		}
	}
	return n, nil
}

func (s *Store) CreateFriendship(_ context.Context, f core.Friendship) (core.Friendship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.friendships {
		if existing.Involves(f.UserID) && existing.Involves(f.FriendID) {
			return core.Friendship{}, &core.PersistenceError{Op: "create friendship", Err: core.ErrConflict}
		}
	}
	f.ID = uuid.NewString()
	s.friendships = append(s.friendships, f)
	return f, nil
}

func (s *Store) GetFriendship(_ context.Context, id string) (core.Friendship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.friendshipIndex(id)
	if i < 0 {
		return core.Friendship{}, &core.NotFoundError{Kind: "friendship", ID: id}
	}
	return s.friendships[i], nil
}

func (s *Store) UpdateFriendshipStatus(_ context.Context, id string, status core.FriendshipStatus) (core.Friendship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.friendshipIndex(id)
	if i < 0 {
		return core.Friendship{}, &core.NotFoundError{Kind: "friendship", ID: id}
	}
	s.friendships[i].Status = status
	return s.friendships[i], nil
}

func (s *Store) DeleteFriendship(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.friendshipIndex(id)
	if i < 0 {
		return &core.NotFoundError{Kind: "friendship", ID: id}
	}
	s.friendships = slices.Delete(s.friendships, i, i+1)
	return nil
}

func (s *Store) ListFriendships(_ context.Context, userID string) ([]core.Friendship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Friendship{}
	for _, f := range s.friendships {
		if f.Involves(userID) {
			out = append(out, f)
		}
	}
	slices.SortStableFunc(out, func(a, b core.Friendship) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

// filter must be called with s.mu held.
func (s *Store) filter(keep func(core.Catch) bool) []core.Catch {
	out := []core.Catch{}
	for _, c := range s.catches {
		if keep(c) {
			out = append(out, cloneCatch(c))
		}
	}
	return out
}

func (s *Store) catchIndex(id string) int {
	return slices.IndexFunc(s.catches, func(c core.Catch) bool { return c.ID == id })
}

func (s *Store) likeIndex(catchID, userID string) int {
	return slices.IndexFunc(s.likes, func(l core.Like) bool { return l.CatchID == catchID && l.UserID == userID })
}

func (s *Store) friendshipIndex(id string) int {
	return slices.IndexFunc(s.friendships, func(f core.Friendship) bool { return f.ID == id })
}

func cloneCatch(c core.Catch) core.Catch {
	c.Photos = slices.Clone(c.Photos)
	if c.Weight != nil {
		w := *c.Weight
		c.Weight = &w
	}
	if c.Coordinates != nil {
		coords := *c.Coordinates
		c.Coordinates = &coords
	}
	if c.Weather != nil {
		w := *c.Weather
		c.Weather = &w
	}
	return c
}
