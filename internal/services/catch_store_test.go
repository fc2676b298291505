package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fishbox/internal/core"
	"fishbox/internal/memory"
)

func seedCatches() []core.Catch {
	return []core.Catch{
		{ID: "c1", OwnerID: "u1", Species: "Hecht", Length: 60, Date: day(1), CreatedAt: day(1)},
		{ID: "c2", OwnerID: "u1", Species: "Barsch", Length: 25, Date: day(10), CreatedAt: day(10)},
		{ID: "c3", OwnerID: "u2", Species: "Zander", Length: 50, Date: day(5), CreatedAt: day(5), IsPublic: true},
	}
}

func ids(list []core.Catch) []string {
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.ID
	}
	return out
}

func TestCatchStoreLoad(t *testing.T) {
	repo := newFlakyRepo(seedCatches()...)
	store := NewCatchStore("u1", repo, WithClock(fixedClock))

	require.NoError(t, store.Load(context.Background()))
	assert.Equal(t, []string{"c2", "c1"}, ids(store.Catches()))
}

func TestCatchStoreLoadFailureKeepsState(t *testing.T) {
	repo := newFlakyRepo(seedCatches()...)
	store := NewCatchStore("u1", repo)
	require.NoError(t, store.Load(context.Background()))

	repo.listErr = errors.New("connection reset")
	err := store.Load(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrFetch)
	var fe *core.FetchError
	assert.ErrorAs(t, err, &fe)
	assert.Equal(t, []string{"c2", "c1"}, ids(store.Catches()))
}

func TestCatchStoreStaleLoadIsDiscarded(t *testing.T) {
	base := memory.New()
	base.Seed(seedCatches()...)
	repo := &gatedRepo{
		Store:   base,
		stale:   []core.Catch{{ID: "old", OwnerID: "u1", Species: "Aal", Length: 40, Date: day(1)}},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	store := NewCatchStore("u1", repo)

	done := make(chan error)
	go func() { done <- store.Load(context.Background()) }()
	<-repo.entered

	require.NoError(t, store.Load(context.Background()))
	close(repo.release)
	require.NoError(t, <-done)

	assert.Equal(t, []string{"c2", "c1"}, ids(store.Catches()))
}

func TestCatchStoreClearInvalidatesInFlightLoad(t *testing.T) {
	repo := &gatedRepo{
		Store:   memory.New(),
		stale:   seedCatches()[:2],
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	store := NewCatchStore("u1", repo)

	done := make(chan error)
	go func() { done <- store.Load(context.Background()) }()
	<-repo.entered

	store.Clear()
	close(repo.release)
	require.NoError(t, <-done)

	assert.Empty(t, store.Catches())
}

func TestCatchStoreAdd(t *testing.T) {
	t.Run("validation fails before any repository call", func(t *testing.T) {
		tests := []struct {
			name  string
			in    core.CatchInput
			field string
		}{
			{"empty species", core.CatchInput{Species: "  ", Length: 30}, "species"},
			{"zero length", core.CatchInput{Species: "Hecht", Length: 0}, "length"},
			{"negative weight", core.CatchInput{Species: "Hecht", Length: 30, Weight: intPtr(-1)}, "weight"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				repo := newFlakyRepo()
				store := NewCatchStore("u1", repo)

				_, err := store.Add(context.Background(), tt.in)

				var ve *core.ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, tt.field, ve.Field)
				assert.Zero(t, repo.inserts.Load())
				assert.Empty(t, store.Catches())
			})
		}
	})

	t.Run("prepends the stored record even when back-dated", func(t *testing.T) {
		repo := newFlakyRepo(seedCatches()...)
		store := NewCatchStore("u1", repo, WithClock(fixedClock))
		require.NoError(t, store.Load(context.Background()))

		saved, err := store.Add(context.Background(), core.CatchInput{Species: " Karpfen ", Length: 70, Date: day(2)})
		require.NoError(t, err)

		assert.NotEmpty(t, saved.ID)
		assert.Equal(t, "u1", saved.OwnerID)
		assert.Equal(t, "Karpfen", saved.Species)
		assert.Equal(t, []string{saved.ID, "c2", "c1"}, ids(store.Catches()))
	})

	t.Run("date defaults to now", func(t *testing.T) {
		store := NewCatchStore("u1", newFlakyRepo(), WithClock(fixedClock))
		saved, err := store.Add(context.Background(), core.CatchInput{Species: "Aal", Length: 55})
		require.NoError(t, err)
		assert.True(t, saved.Date.Equal(testNow))
	})

	t.Run("persistence failure leaves the list untouched", func(t *testing.T) {
		repo := newFlakyRepo(seedCatches()...)
		store := NewCatchStore("u1", repo)
		require.NoError(t, store.Load(context.Background()))
		repo.insertErr = errors.New("disk full")

		_, err := store.Add(context.Background(), core.CatchInput{Species: "Aal", Length: 55})

		assert.ErrorIs(t, err, core.ErrPersistence)
		assert.Equal(t, []string{"c2", "c1"}, ids(store.Catches()))
	})

	t.Run("public catch is exported and announced", func(t *testing.T) {
		notifier := &recordingNotifier{}
		queue := &recordingQueue{err: errors.New("broker down")}
		store := NewCatchStore("u1", newFlakyRepo(),
			WithNotifier(notifier), WithExportQueue(queue), WithClock(fixedClock))

		saved, err := store.Add(context.Background(), core.CatchInput{Species: "Wels", Length: 140, IsPublic: true})
		require.NoError(t, err, "export failures must not fail the add")
		store.Wait()

		assert.Equal(t, []string{saved.ID}, queue.ids)
		sent := notifier.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, core.NotifyCatchShared, sent[0].Kind)
		assert.Equal(t, "u1", sent[0].UserID)
		assert.Equal(t, "Wels - 140 cm", sent[0].Body)
	})

	t.Run("private catch is not announced", func(t *testing.T) {
		notifier := &recordingNotifier{}
		store := NewCatchStore("u1", newFlakyRepo(), WithNotifier(notifier))

		_, err := store.Add(context.Background(), core.CatchInput{Species: "Wels", Length: 140})
		require.NoError(t, err)
		store.Wait()

		assert.Empty(t, notifier.Sent())
	})

	t.Run("notifier failure does not surface", func(t *testing.T) {
		notifier := &recordingNotifier{err: errors.New("unreachable")}
		store := NewCatchStore("u1", newFlakyRepo(), WithNotifier(notifier))

		_, err := store.Add(context.Background(), core.CatchInput{Species: "Wels", Length: 140, IsPublic: true})
		store.Wait()

		assert.NoError(t, err)
		assert.Len(t, notifier.Sent(), 1)
	})
}

type stubEnricher struct{ location string }

func (e stubEnricher) Enrich(_ context.Context, in *core.CatchInput) {
	if in.Location == "" {
		in.Location = e.location
	}
}

func TestCatchStoreAddEnriches(t *testing.T) {
	store := NewCatchStore("u1", newFlakyRepo(), WithEnricher(stubEnricher{location: "Müggelsee, Berlin"}))

	saved, err := store.Add(context.Background(), core.CatchInput{Species: "Hecht", Length: 60, Coordinates: coords(52.43, 13.64)})
	require.NoError(t, err)
	assert.Equal(t, "Müggelsee, Berlin", saved.Location)

	saved, err = store.Add(context.Background(), core.CatchInput{Species: "Hecht", Length: 60, Location: "Wannsee"})
	require.NoError(t, err)
	assert.Equal(t, "Wannsee", saved.Location)
}

func TestCatchStoreUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown id fails before any repository call", func(t *testing.T) {
		repo := newFlakyRepo(seedCatches()...)
		store := NewCatchStore("u1", repo)
		require.NoError(t, store.Load(ctx))

		// c3 exists in the repository but belongs to another user
		_, err := store.Update(ctx, "c3", core.CatchPatch{Length: intPtr(10)})

		assert.ErrorIs(t, err, core.ErrNotFound)
		assert.Zero(t, repo.updates.Load())
	})

	t.Run("invalid patch is rejected", func(t *testing.T) {
		repo := newFlakyRepo(seedCatches()...)
		store := NewCatchStore("u1", repo)
		require.NoError(t, store.Load(ctx))

		_, err := store.Update(ctx, "c1", core.CatchPatch{Species: strPtr("")})

		assert.ErrorIs(t, err, core.ErrValidation)
		assert.Zero(t, repo.updates.Load())
	})

	t.Run("merges the confirmed record and announces sharing", func(t *testing.T) {
		notifier := &recordingNotifier{}
		repo := newFlakyRepo(seedCatches()...)
		store := NewCatchStore("u1", repo, WithNotifier(notifier))
		require.NoError(t, store.Load(ctx))

		updated, err := store.Update(ctx, "c1", core.CatchPatch{Length: intPtr(64), IsPublic: boolPtr(true)})
		require.NoError(t, err)
		store.Wait()

		assert.Equal(t, 64, updated.Length)
		got, err := store.Get("c1")
		require.NoError(t, err)
		assert.Equal(t, 64, got.Length)
		assert.True(t, got.IsPublic)
		assert.Equal(t, "Hecht", got.Species)
		assert.Len(t, notifier.Sent(), 1)

		_, err = store.Update(ctx, "c1", core.CatchPatch{Length: intPtr(65)})
		require.NoError(t, err)
		store.Wait()
		assert.Len(t, notifier.Sent(), 1, "already public catches are not announced again")
	})

	t.Run("rejection keeps the old record", func(t *testing.T) {
		repo := newFlakyRepo(seedCatches()...)
		store := NewCatchStore("u1", repo)
		require.NoError(t, store.Load(ctx))
		repo.updateErr = errors.New("constraint failed")

		_, err := store.Update(ctx, "c1", core.CatchPatch{Length: intPtr(64)})

		assert.ErrorIs(t, err, core.ErrPersistence)
		got, _ := store.Get("c1")
		assert.Equal(t, 60, got.Length)
	})
}

func TestCatchStoreRemove(t *testing.T) {
	ctx := context.Background()

	t.Run("failure keeps the record", func(t *testing.T) {
		repo := newFlakyRepo(seedCatches()...)
		store := NewCatchStore("u1", repo)
		require.NoError(t, store.Load(ctx))
		repo.deleteErr = errors.New("timeout")

		err := store.Remove(ctx, "c1")

		assert.ErrorIs(t, err, core.ErrPersistence)
		assert.Equal(t, []string{"c2", "c1"}, ids(store.Catches()))
	})

	t.Run("unknown id", func(t *testing.T) {
		repo := newFlakyRepo(seedCatches()...)
		store := NewCatchStore("u1", repo)

		assert.ErrorIs(t, store.Remove(ctx, "c1"), core.ErrNotFound)
		assert.Zero(t, repo.deletes.Load())
	})

	t.Run("success removes the record and its photos", func(t *testing.T) {
		seed := seedCatches()
		seed[0].Photos = []string{"http://minio:9000/fish-photos/u1/a.jpg", "http://minio:9000/fish-photos/u1/b.jpg"}
		repo := newFlakyRepo(seed...)
		photos := &recordingPhotos{}
		store := NewCatchStore("u1", repo, WithPhotoStore(photos))
		require.NoError(t, store.Load(ctx))

		require.NoError(t, store.Remove(ctx, "c1"))
		store.Wait()

		assert.Equal(t, []string{"c2"}, ids(store.Catches()))
		assert.ElementsMatch(t, seed[0].Photos, photos.deleted)
		_, err := repo.Get(ctx, "c1")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})
}

func TestCatchStoreCatchesReturnsCopy(t *testing.T) {
	store := NewCatchStore("u1", newFlakyRepo(seedCatches()...))
	require.NoError(t, store.Load(context.Background()))

	list := store.Catches()
	list[0].Species = "changed"

	got, err := store.Get(list[0].ID)
	require.NoError(t, err)
	assert.NotEqual(t, "changed", got.Species)
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	repo := newFlakyRepo(seedCatches()...)
	sessions := NewSessions(repo, nil)

	store, err := sessions.SignIn(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())

	again, err := sessions.SignIn(ctx, "u1")
	require.NoError(t, err)
	assert.Same(t, store, again)

	got, ok := sessions.Store("u1")
	require.True(t, ok)
	assert.Same(t, store, got)

	assert.True(t, sessions.SignOut("u1"))
	assert.Empty(t, store.Catches(), "signing out clears the previous identity's data")
	_, ok = sessions.Store("u1")
	assert.False(t, ok)
	assert.False(t, sessions.SignOut("u1"))

	repo.listErr = errors.New("offline")
	_, err = sessions.SignIn(ctx, "u2")
	assert.ErrorIs(t, err, core.ErrFetch)
	assert.Zero(t, sessions.Count())
	sessions.Wait()
}

func TestSessionsSignOutDuringReload(t *testing.T) {
	ctx := context.Background()
	base := memory.New()
	base.Seed(seedCatches()...)
	repo := &gatedRepo{
		Store:   base,
		gate:    2,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	sessions := NewSessions(repo, nil)

	first, err := sessions.SignIn(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 2, first.Len())

	type result struct {
		store *CatchStore
		err   error
	}
	done := make(chan result)
	go func() {
		store, err := sessions.SignIn(ctx, "u1")
		done <- result{store, err}
	}()
	<-repo.entered

	require.True(t, sessions.SignOut("u1"))
	close(repo.release)
	res := <-done
	require.NoError(t, res.err)

	assert.NotSame(t, first, res.store, "the cleared store is not revived")
	assert.Equal(t, []string{"c2", "c1"}, ids(res.store.Catches()))
	registered, ok := sessions.Store("u1")
	require.True(t, ok)
	assert.Same(t, res.store, registered)
	assert.Empty(t, first.Catches())
	sessions.Wait()
}

func TestCatchStoreAddThenRemoveRestoresList(t *testing.T) {
	ctx := context.Background()
	store := NewCatchStore("u1", newFlakyRepo(seedCatches()...), WithClock(fixedClock))
	require.NoError(t, store.Load(ctx))
	before := store.Catches()

	added, err := store.Add(ctx, core.CatchInput{Species: "Forelle", Length: 35, Date: day(12), Bait: "Spinner"})
	require.NoError(t, err)
	require.Len(t, store.Catches(), len(before)+1)

	require.NoError(t, store.Remove(ctx, added.ID))
	store.Wait()

	if diff := cmp.Diff(before, store.Catches()); diff != "" {
		t.Errorf("list after add and remove differs (-before +after):\n%s", diff)
	}
}

func TestCatchStoreCreatedLogNamesOwnerOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	store := NewCatchStore("u1", newFlakyRepo(), WithLogger(logger), WithClock(fixedClock))

	_, err := store.Add(context.Background(), core.CatchInput{Species: "Hecht", Length: 60})
	require.NoError(t, err)

	var line string
	for _, l := range strings.Split(buf.String(), "\n") {
		if strings.Contains(l, "Catch created") {
			line = l
		}
	}
	require.NotEmpty(t, line)
	assert.Equal(t, 1, strings.Count(line, "owner_id="), line)
}
