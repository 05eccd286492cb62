package catalog

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"prime-nature-nuts/apperror"
	"prime-nature-nuts/logger"
	"prime-nature-nuts/metrics"
	"prime-nature-nuts/models"
)

var errNoFetcher = errors.New("store has no fetcher")

// Fetcher loads the full catalog, newest first
type Fetcher interface {
	FetchAll(ctx context.Context) ([]models.CatalogEntry, error)
}

// View is the currently visible subset of the catalog
type View struct {
	Entries     []models.CatalogEntry `json:"products"`
	Category    string                `json:"category"`
	Search      string                `json:"search"`
	SourceCount int                   `json:"sourceTotal"`
	FetchErr    error                 `json:"-"`
	Version     uint64                `json:"version"`
}

// EmptySource reports that the catalog itself has no entries
func (v View) EmptySource() bool {
	return v.SourceCount == 0
}

// EmptyAfterFilter reports that entries exist but none match the filters
func (v View) EmptyAfterFilter() bool {
	return v.SourceCount > 0 && len(v.Entries) == 0
}

// Stale reports that the last fetch failed and the entries are from an earlier one
func (v View) Stale() bool {
	return v.FetchErr != nil
}

// Store owns the full catalog list and the active filter state. The list is
// only ever replaced wholesale. Every change recomputes the view and notifies
// subscribers. Safe for concurrent use.
type Store struct {
	fetcher Fetcher

	mu        sync.RWMutex
	list      []models.CatalogEntry
	category  string
	search    string
	fetchErr  error
	view      View
	version   uint64
	issued    uint64 // last list sequence handed out
	applied   uint64 // sequence of the list currently held
	nextSubID int
	subs      map[int]func(View)
}

// NewStore creates an empty store. fetcher may be nil for stores that are
// only fed through SetList.
func NewStore(fetcher Fetcher) *Store {
	s := &Store{
		fetcher:  fetcher,
		category: AllCategories,
		list:     []models.CatalogEntry{},
		subs:     make(map[int]func(View)),
	}
	s.recompute()
	return s
}

// SetList replaces the full list and clears any fetch error
func (s *Store) SetList(entries []models.CatalogEntry) {
	s.mu.Lock()
	s.issued++
	s.applied = s.issued
	s.replaceLocked(entries)
	s.fetchErr = nil
	view, subs := s.changedLocked()
	s.mu.Unlock()

	notify(subs, view)
}

// SetCategory sets the category filter; "all" disables it
func (s *Store) SetCategory(category string) {
	if category == "" {
		category = AllCategories
	}
	s.mu.Lock()
	s.category = category
	view, subs := s.changedLocked()
	s.mu.Unlock()

	notify(subs, view)
}

// SetSearch sets the name search text
func (s *Store) SetSearch(search string) {
	s.mu.Lock()
	s.search = search
	view, subs := s.changedLocked()
	s.mu.Unlock()

	notify(subs, view)
}

// SetFetchError records a failed fetch. The list is kept as it is.
func (s *Store) SetFetchError(err error) {
	s.mu.Lock()
	s.fetchErr = err
	view, subs := s.changedLocked()
	s.mu.Unlock()

	notify(subs, view)
}

// CurrentView returns the visible subset for the active filters
func (s *Store) CurrentView() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyView(s.view)
}

// ViewFor filters the current list with the given filters without touching
// the store's own filter state
func (s *Store) ViewFor(category, search string) View {
	if category == "" {
		category = AllCategories
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return View{
		Entries:     Filter(s.list, category, search),
		Category:    category,
		Search:      search,
		SourceCount: len(s.list),
		FetchErr:    s.fetchErr,
		Version:     s.version,
	}
}

// Snapshot returns a copy of the full list
func (s *Store) Snapshot() []models.CatalogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.CatalogEntry, len(s.list))
	copy(out, s.list)
	return out
}

// Find looks an entry up by id in the full list
func (s *Store) Find(id string) (models.CatalogEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.list {
		if e.ID == id {
			return e, true
		}
	}
	return models.CatalogEntry{}, false
}

// Subscribe registers fn to receive every recomputed view. The returned
// function removes the subscription.
func (s *Store) Subscribe(fn func(View)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Refresh fetches the whole catalog and replaces the list. On failure the
// previous list is kept, the view is marked stale and a fetch error is
// returned. A fetch that completes after a more recent one has been applied
// is discarded.
func (s *Store) Refresh(ctx context.Context) error {
	if s.fetcher == nil {
		return apperror.Fetch("catalog.Refresh", errNoFetcher)
	}

	s.mu.Lock()
	s.issued++
	seq := s.issued
	s.mu.Unlock()

	entries, err := s.fetcher.FetchAll(ctx)

	s.mu.Lock()
	if seq <= s.applied {
		s.mu.Unlock()
		metrics.RecordRefresh("stale")
		logger.Get().Info("⏭️  Discarding out-of-date catalog fetch", zap.Uint64("seq", seq))
		return nil
	}
	if err != nil {
		s.fetchErr = err
		view, subs := s.changedLocked()
		s.mu.Unlock()

		notify(subs, view)
		metrics.RecordRefresh("error")
		logger.Get().Error("❌ Catalog fetch failed, keeping previous list",
			zap.Int("kept", view.SourceCount), zap.Error(err))
		return apperror.Fetch("catalog.Refresh", err)
	}

	s.applied = seq
	s.replaceLocked(entries)
	s.fetchErr = nil
	view, subs := s.changedLocked()
	s.mu.Unlock()

	notify(subs, view)
	metrics.RecordRefresh("ok")
	metrics.CatalogEntries.Set(float64(view.SourceCount))
	logger.Get().Info("✓ Catalog refreshed", zap.Int("entries", view.SourceCount))
	return nil
}

// Follow returns a store with its own filters that mirrors this store's list
// and fetch error. Call stop to detach it.
func (s *Store) Follow(category, search string) (follower *Store, stop func()) {
	follower = NewStore(nil)
	follower.mu.Lock()
	if category != "" {
		follower.category = category
	}
	follower.search = search
	follower.mu.Unlock()

	mirror := func(v View) {
		follower.mirror(s.Snapshot(), v.FetchErr)
	}
	stop = s.Subscribe(mirror)
	mirror(s.CurrentView())
	return follower, stop
}

func (s *Store) mirror(entries []models.CatalogEntry, fetchErr error) {
	s.mu.Lock()
	s.issued++
	s.applied = s.issued
	s.replaceLocked(entries)
	s.fetchErr = fetchErr
	view, subs := s.changedLocked()
	s.mu.Unlock()

	notify(subs, view)
}

func (s *Store) replaceLocked(entries []models.CatalogEntry) {
	list := make([]models.CatalogEntry, len(entries))
	copy(list, entries)
	s.list = list
}

// changedLocked recomputes the view and returns it with a copy of the
// subscriber list so notification can happen without the lock.
func (s *Store) changedLocked() (View, []func(View)) {
	s.recompute()
	subs := make([]func(View), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	return copyView(s.view), subs
}

func (s *Store) recompute() {
	s.version++
	s.view = View{
		Entries:     Filter(s.list, s.category, s.search),
		Category:    s.category,
		Search:      s.search,
		SourceCount: len(s.list),
		FetchErr:    s.fetchErr,
		Version:     s.version,
	}
}

func copyView(v View) View {
	entries := make([]models.CatalogEntry, len(v.Entries))
	copy(entries, v.Entries)
	v.Entries = entries
	return v
}

func notify(subs []func(View), view View) {
	for _, fn := range subs {
		fn(copyView(view))
	}
}
