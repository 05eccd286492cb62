package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"prime-nature-nuts/apperror"
	"prime-nature-nuts/logger"
)

// StagedImage is a processed image waiting for upload
type StagedImage struct {
	LocalID     string `json:"localId"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
	Data        []byte `json:"-"`
}

// StagingSet is the ordered list of images attached to one product form.
// Entries are addressed by LocalID so removals don't depend on position.
// A set is owned by a single form and is not safe for concurrent use on its
// own; StagingRegistry serializes access.
type StagingSet struct {
	items []StagedImage
}

// Append stages an image and returns its local id
func (s *StagingSet) Append(name, contentType string, data []byte) string {
	id := uuid.NewString()
	s.items = append(s.items, StagedImage{
		LocalID:     id,
		Name:        name,
		ContentType: contentType,
		Size:        len(data),
		Data:        data,
	})
	return id
}

// Remove drops the image with the given local id
func (s *StagingSet) Remove(localID string) bool {
	for i, item := range s.items {
		if item.LocalID == localID {
			return s.RemoveAt(i)
		}
	}
	return false
}

// RemoveAt drops the image at position i, shifting later images down
func (s *StagingSet) RemoveAt(i int) bool {
	if i < 0 || i >= len(s.items) {
		return false
	}
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	return true
}

// Clear empties the set
func (s *StagingSet) Clear() {
	s.items = nil
}

// Len returns the number of staged images
func (s *StagingSet) Len() int {
	return len(s.items)
}

// Images returns a copy of the staged images in order
func (s *StagingSet) Images() []StagedImage {
	out := make([]StagedImage, len(s.items))
	copy(out, s.items)
	return out
}

type stagingEntry struct {
	set      *StagingSet
	lastUsed time.Time
}

// StagingRegistry keeps one StagingSet per open product form. Sets that stay
// idle longer than the TTL are dropped by the janitor.
type StagingRegistry struct {
	mu   sync.Mutex
	sets map[string]*stagingEntry
	ttl  time.Duration
	now  func() time.Time
}

// NewStagingRegistry creates a registry whose sets expire after ttl of inactivity
func NewStagingRegistry(ttl time.Duration) *StagingRegistry {
	return &StagingRegistry{
		sets: make(map[string]*stagingEntry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Create opens a new empty set and returns its id
func (r *StagingRegistry) Create() string {
	id := uuid.NewString()
	r.mu.Lock()
	r.sets[id] = &stagingEntry{set: &StagingSet{}, lastUsed: r.now()}
	r.mu.Unlock()
	return id
}

// Add stages an image in the set
func (r *StagingRegistry) Add(id, name, contentType string, data []byte) (string, error) {
	var localID string
	err := r.with(id, "staging.Add", func(s *StagingSet) {
		localID = s.Append(name, contentType, data)
	})
	return localID, err
}

// Remove drops one image from the set by local id
func (r *StagingRegistry) Remove(id, localID string) error {
	var removed bool
	if err := r.with(id, "staging.Remove", func(s *StagingSet) {
		removed = s.Remove(localID)
	}); err != nil {
		return err
	}
	if !removed {
		return apperror.NotFound("staging.Remove", "staged image not found")
	}
	return nil
}

// Clear empties the set without discarding it
func (r *StagingRegistry) Clear(id string) error {
	return r.with(id, "staging.Clear", func(s *StagingSet) { s.Clear() })
}

// Snapshot returns a copy of the staged images in order
func (r *StagingRegistry) Snapshot(id string) ([]StagedImage, error) {
	var images []StagedImage
	err := r.with(id, "staging.Snapshot", func(s *StagingSet) {
		images = s.Images()
	})
	return images, err
}

// Discard removes the set entirely. Discarding an unknown id is a no-op.
func (r *StagingRegistry) Discard(id string) {
	r.mu.Lock()
	delete(r.sets, id)
	r.mu.Unlock()
}

// Len returns the number of open sets
func (r *StagingRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sets)
}

// Sweep drops sets idle for longer than the TTL and returns how many went
func (r *StagingRegistry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, e := range r.sets {
		if e.lastUsed.Before(cutoff) {
			delete(r.sets, id)
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps expired sets periodically until ctx is done
func (r *StagingRegistry) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				logger.Get().Info("🧹 Dropped idle staging sets", zap.Int("count", n))
			}
		}
	}
}

func (r *StagingRegistry) with(id, op string, fn func(*StagingSet)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sets[id]
	if !ok {
		return apperror.NotFound(op, "staging set not found")
	}
	e.lastUsed = r.now()
	fn(e.set)
	return nil
}
