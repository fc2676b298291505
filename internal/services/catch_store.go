package services

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"fishbox/internal/core"
	applog "fishbox/internal/log"
	"fishbox/internal/ports"
)

// CatchStore is the authoritative in-memory list of one user's catches. It
// mutates the list only after the repository has confirmed a write, and it
// never holds its lock across a repository call.
type CatchStore struct {
	ownerID  string
	repo     ports.CatchRepository
	photos   ports.PhotoStore
	notifier ports.Notifier
	exports  ports.ExportQueue
	enricher ports.CatchEnricher
	bg       *Background
	now      func() time.Time
	logger   *slog.Logger

	mu      sync.RWMutex
	catches []core.Catch

	// loadToken is bumped by every Load and by Clear. A load applies its
	// result only if its token is still the latest.
	loadToken atomic.Uint64
}

type StoreOption func(*CatchStore)

func WithPhotoStore(p ports.PhotoStore) StoreOption {
	return func(s *CatchStore) { s.photos = p }
}

func WithNotifier(n ports.Notifier) StoreOption {
	return func(s *CatchStore) { s.notifier = n }
}

func WithExportQueue(q ports.ExportQueue) StoreOption {
	return func(s *CatchStore) { s.exports = q }
}

func WithEnricher(e ports.CatchEnricher) StoreOption {
	return func(s *CatchStore) { s.enricher = e }
}

// WithBackground shares a side-effect runner between stores so shutdown can
// wait on all of them at once.
func WithBackground(bg *Background) StoreOption {
	return func(s *CatchStore) { s.bg = bg }
}

func WithClock(now func() time.Time) StoreOption {
	return func(s *CatchStore) { s.now = now }
}

func WithLogger(l *slog.Logger) StoreOption {
	return func(s *CatchStore) { s.logger = l }
}

func NewCatchStore(ownerID string, repo ports.CatchRepository, opts ...StoreOption) *CatchStore {
	s := &CatchStore{
		ownerID: ownerID,
		repo:    repo,
		now:     time.Now,
		logger:  slog.Default(),
		catches: []core.Catch{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.bg == nil {
		s.bg = NewBackground(0)
	}
	s.logger = s.logger.With(applog.FieldComponent, applog.ComponentCatchStore, applog.FieldOwnerID, ownerID)
	return s
}

func (s *CatchStore) OwnerID() string {
	return s.ownerID
}

// Load replaces the list with the owner's catches, newest first. On failure
// the previous list is kept. A load overtaken by a later Load or Clear is
// discarded silently.
func (s *CatchStore) Load(ctx context.Context) error {
	token := s.loadToken.Add(1)

	list, err := s.repo.ListByOwner(ctx, s.ownerID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load catches", applog.FieldError, err)
		return asFetch("load catches", err)
	}
	if list == nil {
		list = []core.Catch{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadToken.Load() != token {
		s.logger.DebugContext(ctx, "Discarding stale load", applog.FieldCount, len(list))
		return nil
	}
	s.catches = list
	s.logger.DebugContext(ctx, "Catches loaded", applog.FieldCount, len(list))
	return nil
}

// Add validates and persists a new catch, then places the stored record first
// in the list. It is not re-sorted by date.
func (s *CatchStore) Add(ctx context.Context, in core.CatchInput) (core.Catch, error) {
	if err := in.Validate(); err != nil {
		return core.Catch{}, err
	}

	if s.enricher != nil {
		s.enricher.Enrich(ctx, &in)
	}

	saved, err := s.repo.Insert(ctx, core.NewCatch(s.ownerID, in, s.now()))
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to save catch", applog.FieldSpecies, in.Species, applog.FieldError, err)
		return core.Catch{}, asPersistence("add catch", err)
	}

	s.mu.Lock()
	s.catches = append([]core.Catch{saved}, s.catches...)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Catch created",
		applog.NewFields().Operation(applog.OpCreate).Catch(saved.ID, saved.Species)...)

	s.enqueueExport(ctx, saved)
	if saved.IsPublic {
		dispatch(ctx, s.bg, s.notifier, catchSharedNotification(saved, s.now()))
	}
	return saved, nil
}

// Update applies patch to a catch present in the list.
func (s *CatchStore) Update(ctx context.Context, id string, patch core.CatchPatch) (core.Catch, error) {
	current, ok := s.find(id)
	if !ok {
		return core.Catch{}, &core.NotFoundError{Kind: "catch", ID: id}
	}
	if err := patch.Validate(); err != nil {
		return core.Catch{}, err
	}
	if patch.IsEmpty() {
		return current, nil
	}

	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to update catch", applog.FieldCatchID, id, applog.FieldError, err)
		return core.Catch{}, asPersistence("update catch", err)
	}

	s.mu.Lock()
	if i := s.index(id); i >= 0 {
		next := slices.Clone(s.catches)
		next[i] = updated
		s.catches = next
	}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Catch updated", applog.FieldCatchID, id)

	if !current.IsPublic && updated.IsPublic {
		dispatch(ctx, s.bg, s.notifier, catchSharedNotification(updated, s.now()))
	}
	return updated, nil
}

// Remove deletes a catch and drops it from the list once the repository has
// confirmed. Stored photos are removed afterwards on a best-effort basis.
func (s *CatchStore) Remove(ctx context.Context, id string) error {
	current, ok := s.find(id)
	if !ok {
		return &core.NotFoundError{Kind: "catch", ID: id}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete catch", applog.FieldCatchID, id, applog.FieldError, err)
		return asPersistence("remove catch", err)
	}

	s.mu.Lock()
	if i := s.index(id); i >= 0 {
		s.catches = slices.Delete(slices.Clone(s.catches), i, i+1)
	}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Catch deleted", applog.FieldCatchID, id)
	s.removePhotos(ctx, current)
	return nil
}

// Clear empties the list without touching the repository. Loads still in
// flight will not repopulate it.
func (s *CatchStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadToken.Add(1)
	s.catches = []core.Catch{}
}

// Catches returns a copy of the list.
func (s *CatchStore) Catches() []core.Catch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.catches)
}

func (s *CatchStore) Get(id string) (core.Catch, error) {
	c, ok := s.find(id)
	if !ok {
		return core.Catch{}, &core.NotFoundError{Kind: "catch", ID: id}
	}
	return c, nil
}

func (s *CatchStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.catches)
}

// Wait blocks until background side effects started by this store are done.
func (s *CatchStore) Wait() {
	s.bg.Wait()
}

func (s *CatchStore) find(id string) (core.Catch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(id); i >= 0 {
		return s.catches[i], true
	}
	return core.Catch{}, false
}

// index must be called with mu held.
func (s *CatchStore) index(id string) int {
	return slices.IndexFunc(s.catches, func(c core.Catch) bool { return c.ID == id })
}

func (s *CatchStore) enqueueExport(ctx context.Context, c core.Catch) {
	if s.exports == nil {
		return
	}
	if err := s.exports.EnqueueExport(ctx, c); err != nil {
		s.logger.WarnContext(ctx, "Failed to enqueue catch export",
			applog.FieldCatchID, c.ID, applog.FieldError, err)
	}
}

func (s *CatchStore) removePhotos(ctx context.Context, c core.Catch) {
	if s.photos == nil || len(c.Photos) == 0 {
		return
	}
	photos := slices.Clone(c.Photos)
	s.bg.Go(ctx, func(ctx context.Context) {
		for _, url := range photos {
			if err := s.photos.Delete(ctx, url); err != nil {
				s.logger.WarnContext(ctx, "Failed to delete photo",
					applog.FieldCatchID, c.ID, "url", url, applog.FieldError, err)
			}
		}
	})
}
