package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prime-nature-nuts/app/middleware"
	"prime-nature-nuts/apperror"
	"prime-nature-nuts/models"
	"prime-nature-nuts/service"
)

// fakeProducts records what the controller passes through
type fakeProducts struct {
	err error

	input     models.ProductInput
	patch     models.ProductPatch
	stagingID string
	deletedID string
	confirmed bool
}

var _ service.ProductServiceInterface = (*fakeProducts)(nil)

func (f *fakeProducts) AddProduct(ctx context.Context, input models.ProductInput, stagingID string) (*models.CatalogEntry, error) {
	f.input, f.stagingID = input, stagingID
	if f.err != nil {
		return nil, f.err
	}
	return &models.CatalogEntry{ID: "new-1", Name: input.Name, Price: input.Price}, nil
}

func (f *fakeProducts) EditProduct(ctx context.Context, id string, patch models.ProductPatch, stagingID string) (*models.CatalogEntry, error) {
	f.patch, f.stagingID = patch, stagingID
	if f.err != nil {
		return nil, f.err
	}
	return &models.CatalogEntry{ID: id}, nil
}

func (f *fakeProducts) DeleteProduct(ctx context.Context, id string, confirmed bool) error {
	f.deletedID, f.confirmed = id, confirmed
	if !confirmed {
		return apperror.Validation("service.DeleteProduct", "deletion must be confirmed")
	}
	return f.err
}

func (f *fakeProducts) GetProduct(ctx context.Context, id string) (*models.CatalogEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.CatalogEntry{ID: id, Name: "Dates"}, nil
}

func (f *fakeProducts) ListProducts(ctx context.Context) ([]models.CatalogEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []models.CatalogEntry{{ID: "p1"}, {ID: "p2"}}, nil
}

func (f *fakeProducts) StorageUsage(ctx context.Context) (models.StorageUsage, error) {
	return models.StorageUsage{UsedMB: 1.5, TotalMB: 100, Percent: 1.5}, f.err
}

func (f *fakeProducts) UploadedImages(ctx context.Context) ([]models.UploadedImage, error) {
	return []models.UploadedImage{{Name: "Dates", Thumbnail: "https://x/1.jpg"}}, f.err
}

func productMux(c *ProductController) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /admin/me", c.Me)
	mux.HandleFunc("GET /admin/products", c.List)
	mux.HandleFunc("POST /admin/products", c.Create)
	mux.HandleFunc("GET /admin/products/{id}", c.Get)
	mux.HandleFunc("PUT /admin/products/{id}", c.Update)
	mux.HandleFunc("DELETE /admin/products/{id}", c.Delete)
	mux.HandleFunc("GET /admin/storage", c.Storage)
	mux.HandleFunc("GET /admin/images", c.Images)
	return mux
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = req.WithContext(middleware.WithAdminEmail(req.Context(), "owner@primenature.in"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestProductController_Create(t *testing.T) {
	fake := &fakeProducts{}
	h := productMux(NewProductController(fake))

	rec := do(h, http.MethodPost, "/admin/products",
		`{"name":"Cashew","category":"nuts","weight":"500g","price":450,"stagingId":"s1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	assert.Equal(t, "Cashew", fake.input.Name)
	assert.Equal(t, "s1", fake.stagingID)
	assert.True(t, fake.input.Price.Valid)
	assert.True(t, decimal.NewFromInt(450).Equal(fake.input.Price.Decimal))

	var entry models.CatalogEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.Equal(t, "new-1", entry.ID)
}

func TestProductController_CreateNullPrice(t *testing.T) {
	fake := &fakeProducts{}
	h := productMux(NewProductController(fake))

	rec := do(h, http.MethodPost, "/admin/products", `{"name":"Dates","price":null,"stagingId":"s1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.False(t, fake.input.Price.Valid)
}

func TestProductController_ErrorKindsMapToStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"validation", apperror.Validation("op", "image required"), http.StatusBadRequest, "validation"},
		{"upload", apperror.Upload("op", assert.AnError), http.StatusBadGateway, "upload"},
		{"fetch", apperror.Fetch("op", assert.AnError), http.StatusServiceUnavailable, "fetch"},
		{"not found", apperror.NotFound("op", "product x not found"), http.StatusNotFound, "not_found"},
		{"internal", assert.AnError, http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := productMux(NewProductController(&fakeProducts{err: tt.err}))
			rec := do(h, http.MethodPost, "/admin/products", `{"name":"x","stagingId":"s"}`)

			assert.Equal(t, tt.status, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.kind, body.Kind)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestProductController_CreateInvalidJSON(t *testing.T) {
	fake := &fakeProducts{}
	h := productMux(NewProductController(fake))

	rec := do(h, http.MethodPost, "/admin/products", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, fake.input.Name)
}

func TestProductController_UpdatePatchAndClearPrice(t *testing.T) {
	fake := &fakeProducts{}
	h := productMux(NewProductController(fake))

	rec := do(h, http.MethodPut, "/admin/products/p1", `{"name":"Medjool","clearPrice":true,"stagingId":"s2"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, fake.patch.Name)
	assert.Equal(t, "Medjool", *fake.patch.Name)
	require.NotNil(t, fake.patch.Price)
	assert.False(t, fake.patch.Price.Valid)
	assert.Nil(t, fake.patch.Category)
	assert.Equal(t, "s2", fake.stagingID)
}

func TestProductController_DeleteNeedsConfirm(t *testing.T) {
	fake := &fakeProducts{}
	h := productMux(NewProductController(fake))

	rec := do(h, http.MethodDelete, "/admin/products/p1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, fake.confirmed)

	rec = do(h, http.MethodDelete, "/admin/products/p1?confirm=true", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "p1", fake.deletedID)
}

func TestProductController_ReadEndpoints(t *testing.T) {
	h := productMux(NewProductController(&fakeProducts{}))

	me := do(h, http.MethodGet, "/admin/me", "")
	assert.JSONEq(t, `{"email":"owner@primenature.in"}`, me.Body.String())

	list := do(h, http.MethodGet, "/admin/products", "")
	var entries []models.CatalogEntry
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &entries))
	assert.Len(t, entries, 2)

	storage := do(h, http.MethodGet, "/admin/storage", "")
	assert.JSONEq(t, `{"usedMb":1.5,"totalMb":100,"percent":1.5}`, storage.Body.String())

	images := do(h, http.MethodGet, "/admin/images", "")
	assert.JSONEq(t, `[{"name":"Dates","thumbnail":"https://x/1.jpg"}]`, images.Body.String())
}
