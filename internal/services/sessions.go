package services

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	applog "fishbox/internal/log"
	"fishbox/internal/ports"
)

// Sessions keeps one CatchStore per signed-in user. Signing out clears the
// store so nothing of the previous identity stays in memory.
type Sessions struct {
	repo ports.CatchRepository
	opts []StoreOption
	bg   *Background

	mu     sync.Mutex
	stores map[string]*CatchStore
}

// NewSessions builds stores with opts. All stores share one Background so
// Wait covers every user.
func NewSessions(repo ports.CatchRepository, bg *Background, opts ...StoreOption) *Sessions {
	if bg == nil {
		bg = NewBackground(0)
	}
	return &Sessions{
		repo:   repo,
		opts:   append(slices.Clip(opts), WithBackground(bg)),
		bg:     bg,
		stores: make(map[string]*CatchStore),
	}
}

// SignIn loads the user's catches. An existing store is reloaded in place and
// keeps its list if the reload fails. If the user signs out while that reload
// runs, a fresh store is started instead of reviving the cleared one. A new
// store is registered only after a successful first load.
func (s *Sessions) SignIn(ctx context.Context, userID string) (*CatchStore, error) {
	s.mu.Lock()
	existing, exists := s.stores[userID]
	s.mu.Unlock()

	if exists {
		if err := existing.Load(ctx); err != nil {
			return nil, err
		}
		if current, ok := s.Store(userID); ok {
			return current, nil
		}
		slog.DebugContext(ctx, "Session ended during reload, starting a new one",
			applog.FieldComponent, applog.ComponentSessions,
			applog.FieldUserID, userID)
	}

	store := NewCatchStore(userID, s.repo, s.opts...)
	if err := store.Load(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.stores[userID]; ok {
		return current, nil
	}
	s.stores[userID] = store
	slog.InfoContext(ctx, "Session started",
		applog.FieldComponent, applog.ComponentSessions,
		applog.FieldUserID, userID,
		applog.FieldCount, store.Len())
	return store, nil
}

func (s *Sessions) Store(userID string) (*CatchStore, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	store, ok := s.stores[userID]
	return store, ok
}

// SignOut clears and forgets the user's store. It reports whether a session
// existed.
func (s *Sessions) SignOut(userID string) bool {
	s.mu.Lock()
	store, ok := s.stores[userID]
	delete(s.stores, userID)
	s.mu.Unlock()

	if ok {
		store.Clear()
		slog.Info("Session ended",
			applog.FieldComponent, applog.ComponentSessions,
			applog.FieldUserID, userID)
	}
	return ok
}

func (s *Sessions) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stores)
}

// Wait blocks until side effects of every store have finished.
func (s *Sessions) Wait() {
	s.bg.Wait()
}
