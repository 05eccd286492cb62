package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"prime-nature-nuts/apperror"
	"prime-nature-nuts/models"
)

// fakeRepo is an in-memory ProductRepositoryInterface that records calls
type fakeRepo struct {
	mu       sync.Mutex
	entries  map[string]models.CatalogEntry
	order    []string
	calls    []string
	fetchErr error
	nextID   int
}

func newFakeRepo(entries ...models.CatalogEntry) *fakeRepo {
	r := &fakeRepo{entries: map[string]models.CatalogEntry{}}
	for _, e := range entries {
		r.entries[e.ID] = e
		r.order = append(r.order, e.ID)
	}
	return r
}

func (r *fakeRepo) record(call string) {
	r.calls = append(r.calls, call)
}

func (r *fakeRepo) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *fakeRepo) FetchAll(ctx context.Context) ([]models.CatalogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("FetchAll")
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	out := []models.CatalogEntry{}
	for i := len(r.order) - 1; i >= 0; i-- {
		out = append(out, r.entries[r.order[i]])
	}
	return out, nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id string) (*models.CatalogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("GetByID")
	e, ok := r.entries[id]
	if !ok {
		return nil, apperror.NotFound("fake.GetByID", "not found")
	}
	return &e, nil
}

func (r *fakeRepo) Insert(ctx context.Context, input models.ProductInput, images models.ImageRef) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("Insert")
	r.nextID++
	id := fmt.Sprintf("new-%d", r.nextID)
	r.entries[id] = models.CatalogEntry{
		ID:          id,
		Name:        input.Name,
		Category:    input.Category,
		Weight:      input.Weight,
		Price:       input.Price,
		Description: input.Description,
		Status:      input.Status,
		Images:      images,
	}
	r.order = append(r.order, id)
	return id, nil
}

func (r *fakeRepo) Update(ctx context.Context, id string, patch models.ProductPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("Update")
	e, ok := r.entries[id]
	if !ok {
		return apperror.NotFound("fake.Update", "not found")
	}
	if patch.Name != nil {
		e.Name = *patch.Name
	}
	if patch.Category != nil {
		e.Category = *patch.Category
	}
	if patch.Weight != nil {
		e.Weight = *patch.Weight
	}
	if patch.Price != nil {
		e.Price = *patch.Price
	}
	if patch.Description != nil {
		e.Description = *patch.Description
	}
	if patch.Status != nil {
		e.Status = *patch.Status
	}
	if patch.Images != nil {
		e.Images = *patch.Images
	}
	r.entries[id] = e
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("Delete")
	if _, ok := r.entries[id]; !ok {
		return apperror.NotFound("fake.Delete", "not found")
	}
	delete(r.entries, id)
	for i, o := range r.order {
		if o == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *fakeRepo) ListImages(ctx context.Context, limit int) ([]models.UploadedImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("ListImages")
	out := []models.UploadedImage{}
	for _, id := range r.order {
		if len(out) == limit {
			break
		}
		e := r.entries[id]
		if !e.Images.IsEmpty() {
			out = append(out, models.UploadedImage{Name: e.Name, Thumbnail: e.Images.Primary()})
		}
	}
	return out, nil
}

// fakeBucket fails the uploads whose 0-based index is in failAt
type fakeBucket struct {
	mu      sync.Mutex
	failAt  map[int]bool
	failAll bool
	uploads []string
	calls   int
}

func (b *fakeBucket) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.calls
	b.calls++
	if b.failAll || b.failAt[i] {
		return "", errors.New("bucket rejected object")
	}
	b.uploads = append(b.uploads, path)
	return "https://cdn.example/" + path, nil
}

func (b *fakeBucket) Name() string { return "fake" }

func (b *fakeBucket) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}
