package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prime-nature-nuts/apperror"
	"prime-nature-nuts/models"
)

type fakeFetcher struct {
	mu      sync.Mutex
	entries []models.CatalogEntry
	err     error
	calls   int
}

func (f *fakeFetcher) FetchAll(ctx context.Context) ([]models.CatalogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

// gatedFetcher hands each call's result channel to the test so results can be
// released in any order.
type gatedFetcher struct {
	started chan chan []models.CatalogEntry
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{started: make(chan chan []models.CatalogEntry)}
}

func (g *gatedFetcher) FetchAll(ctx context.Context) ([]models.CatalogEntry, error) {
	result := make(chan []models.CatalogEntry)
	g.started <- result
	return <-result, nil
}

func TestStore_RefreshReplacesListWholesale(t *testing.T) {
	fetcher := &fakeFetcher{entries: sampleEntries()}
	store := NewStore(fetcher)

	require.NoError(t, store.Refresh(context.Background()))
	view := store.CurrentView()
	assert.Equal(t, 5, view.SourceCount)
	assert.Len(t, view.Entries, 5)
	assert.False(t, view.Stale())

	fetcher.entries = sampleEntries()[:2]
	require.NoError(t, store.Refresh(context.Background()))
	assert.Equal(t, []string{"1", "2"}, ids(store.CurrentView().Entries))
}

func TestStore_FetchFailureKeepsPreviousList(t *testing.T) {
	fetcher := &fakeFetcher{entries: sampleEntries()}
	store := NewStore(fetcher)
	require.NoError(t, store.Refresh(context.Background()))

	fetcher.err = errors.New("connection refused")
	err := store.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindFetch))

	view := store.CurrentView()
	assert.True(t, view.Stale())
	assert.Equal(t, 5, view.SourceCount)
	assert.Len(t, view.Entries, 5)
	assert.False(t, view.EmptySource())

	fetcher.err = nil
	require.NoError(t, store.Refresh(context.Background()))
	assert.False(t, store.CurrentView().Stale())
}

func TestStore_FiltersRecomputeView(t *testing.T) {
	store := NewStore(nil)
	store.SetList(sampleEntries())

	store.SetCategory("nuts")
	assert.Equal(t, []string{"1", "3", "4"}, ids(store.CurrentView().Entries))

	store.SetSearch("cash")
	view := store.CurrentView()
	assert.Equal(t, []string{"1", "3"}, ids(view.Entries))
	assert.Equal(t, "nuts", view.Category)
	assert.Equal(t, "cash", view.Search)

	store.SetCategory("")
	assert.Equal(t, AllCategories, store.CurrentView().Category)
	assert.Equal(t, []string{"1", "3", "5"}, ids(store.CurrentView().Entries))
}

func TestStore_EmptyStatesAreDistinguished(t *testing.T) {
	store := NewStore(nil)
	view := store.CurrentView()
	assert.True(t, view.EmptySource())
	assert.False(t, view.EmptyAfterFilter())

	store.SetList(sampleEntries())
	store.SetSearch("pistachio")
	view = store.CurrentView()
	assert.False(t, view.EmptySource())
	assert.True(t, view.EmptyAfterFilter())
}

func TestStore_SubscribersSeeEveryChange(t *testing.T) {
	store := NewStore(nil)

	var mu sync.Mutex
	var versions []uint64
	unsubscribe := store.Subscribe(func(v View) {
		mu.Lock()
		versions = append(versions, v.Version)
		mu.Unlock()
	})

	store.SetList(sampleEntries())
	store.SetCategory("nuts")
	store.SetSearch("almond")
	unsubscribe()
	store.SetSearch("")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, versions, 3)
	assert.Less(t, versions[0], versions[1])
	assert.Less(t, versions[1], versions[2])
}

func TestStore_ViewIsACopy(t *testing.T) {
	store := NewStore(nil)
	store.SetList(sampleEntries())

	view := store.CurrentView()
	view.Entries[0].Name = "mutated"
	assert.Equal(t, "Cashew W240", store.CurrentView().Entries[0].Name)

	snap := store.Snapshot()
	snap[0].Name = "mutated"
	found, ok := store.Find("1")
	require.True(t, ok)
	assert.Equal(t, "Cashew W240", found.Name)

	_, ok = store.Find("missing")
	assert.False(t, ok)
}

func TestStore_StaleFetchNeverOverwritesFresher(t *testing.T) {
	fetcher := newGatedFetcher()
	store := NewStore(fetcher)

	older := make(chan error, 1)
	go func() { older <- store.Refresh(context.Background()) }()
	olderResult := <-fetcher.started

	newer := make(chan error, 1)
	go func() { newer <- store.Refresh(context.Background()) }()
	newerResult := <-fetcher.started

	newerResult <- sampleEntries()[:1]
	require.NoError(t, <-newer)
	assert.Equal(t, []string{"1"}, ids(store.CurrentView().Entries))

	olderResult <- sampleEntries()
	require.NoError(t, <-older)
	assert.Equal(t, []string{"1"}, ids(store.CurrentView().Entries))
}

func TestStore_InOrderFetchesBothApply(t *testing.T) {
	fetcher := newGatedFetcher()
	store := NewStore(fetcher)

	first := make(chan error, 1)
	go func() { first <- store.Refresh(context.Background()) }()
	firstResult := <-fetcher.started

	second := make(chan error, 1)
	go func() { second <- store.Refresh(context.Background()) }()
	secondResult := <-fetcher.started

	firstResult <- sampleEntries()[:1]
	require.NoError(t, <-first)
	assert.Len(t, store.CurrentView().Entries, 1)

	secondResult <- sampleEntries()
	require.NoError(t, <-second)
	assert.Len(t, store.CurrentView().Entries, 5)
}

func TestStore_SetListSupersedesInFlightFetch(t *testing.T) {
	fetcher := newGatedFetcher()
	store := NewStore(fetcher)

	done := make(chan error, 1)
	go func() { done <- store.Refresh(context.Background()) }()
	result := <-fetcher.started

	store.SetList(sampleEntries()[:2])
	result <- sampleEntries()
	require.NoError(t, <-done)

	assert.Equal(t, []string{"1", "2"}, ids(store.CurrentView().Entries))
}

func TestStore_RefreshWithoutFetcher(t *testing.T) {
	err := NewStore(nil).Refresh(context.Background())
	assert.True(t, apperror.Is(err, apperror.KindFetch))
}

func TestStore_FollowMirrorsListWithOwnFilters(t *testing.T) {
	fetcher := &fakeFetcher{entries: sampleEntries()}
	shared := NewStore(fetcher)
	require.NoError(t, shared.Refresh(context.Background()))

	follower, stop := shared.Follow("nuts", "cash")
	assert.Equal(t, []string{"1", "3"}, ids(follower.CurrentView().Entries))

	views := make(chan View, 4)
	follower.Subscribe(func(v View) { views <- v })

	fetcher.entries = sampleEntries()[2:]
	require.NoError(t, shared.Refresh(context.Background()))
	assert.Equal(t, []string{"3"}, ids((<-views).Entries))

	fetcher.err = errors.New("timeout")
	require.Error(t, shared.Refresh(context.Background()))
	stale := <-views
	assert.True(t, stale.Stale())
	assert.Equal(t, []string{"3"}, ids(stale.Entries))

	// the follower's filters are independent of the shared store
	assert.Equal(t, AllCategories, shared.CurrentView().Category)

	stop()
	fetcher.err = nil
	require.NoError(t, shared.Refresh(context.Background()))
	assert.Len(t, views, 0)
}

func TestStore_ViewForLeavesStoreFiltersAlone(t *testing.T) {
	store := NewStore(nil)
	store.SetList(sampleEntries())
	store.SetCategory("dates")

	view := store.ViewFor("nuts", "cash")
	assert.Equal(t, []string{"1", "3"}, ids(view.Entries))
	assert.Equal(t, 5, view.SourceCount)

	assert.Equal(t, AllCategories, store.ViewFor("", "").Category)
	assert.Equal(t, []string{"2"}, ids(store.CurrentView().Entries))
}
