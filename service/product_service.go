package service

import (
	"context"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"prime-nature-nuts/apperror"
	"prime-nature-nuts/catalog"
	"prime-nature-nuts/logger"
	"prime-nature-nuts/metrics"
	"prime-nature-nuts/models"
	"prime-nature-nuts/repository"
)

// UploadedImagesLimit caps the admin "uploaded images" grid
const UploadedImagesLimit = 20

// ProductService orchestrates the admin product actions: staged images are
// uploaded to the bucket, the products table is written, the staging set is
// discarded and the in-memory catalog is refreshed.
// Implements ProductServiceInterface
type ProductService struct {
	repo           repository.ProductRepositoryInterface
	bucket         ImageBucket
	staging        *StagingRegistry
	store          *catalog.Store
	storageLimitMB float64
	now            func() time.Time
}

// NewProductService creates a new ProductService. store may be nil.
func NewProductService(
	repo repository.ProductRepositoryInterface,
	bucket ImageBucket,
	staging *StagingRegistry,
	store *catalog.Store,
	storageLimitMB float64,
) *ProductService {
	return &ProductService{
		repo:           repo,
		bucket:         bucket,
		staging:        staging,
		store:          store,
		storageLimitMB: storageLimitMB,
		now:            time.Now,
	}
}

// Ensure ProductService implements ProductServiceInterface
var _ ProductServiceInterface = (*ProductService)(nil)

// AddProduct creates a product from the form fields and the images staged
// under stagingID. Nothing is sent anywhere unless the input is valid and at
// least one image is staged. If every upload fails the staging set is left
// intact so the admin can retry.
func (s *ProductService) AddProduct(ctx context.Context, input models.ProductInput, stagingID string) (*models.CatalogEntry, error) {
	const op = "service.AddProduct"

	input.Name = strings.TrimSpace(input.Name)
	input.Weight = strings.TrimSpace(input.Weight)
	if input.Status == "" {
		input.Status = models.StatusActive
	}
	if err := validateInput(op, input); err != nil {
		return nil, err
	}

	staged, err := s.staging.Snapshot(stagingID)
	if err != nil {
		return nil, apperror.Validation(op, "image required")
	}
	if len(staged) == 0 {
		return nil, apperror.Validation(op, "image required")
	}

	logger.Get().Info("📤 Uploading product", zap.String("name", input.Name), zap.Int("images", len(staged)))
	urls, err := s.uploadStaged(ctx, op, staged)
	if err != nil {
		return nil, err
	}

	id, err := s.repo.Insert(ctx, input, models.ImageRefFromURLs(urls))
	if err != nil {
		return nil, err
	}

	s.staging.Discard(stagingID)
	s.refreshStore(ctx)

	return s.repo.GetByID(ctx, id)
}

// EditProduct applies patch to the product. When images are staged under
// stagingID they are uploaded and fully replace the stored images; if every
// upload fails nothing is updated.
func (s *ProductService) EditProduct(ctx context.Context, id string, patch models.ProductPatch, stagingID string) (*models.CatalogEntry, error) {
	const op = "service.EditProduct"

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperror.Validation(op, "name is required")
		}
		patch.Name = &name
	}
	if patch.Status != nil && !patch.Status.IsValid() {
		return nil, apperror.Validation(op, "status must be active or inactive")
	}
	if patch.Price != nil && patch.Price.Valid && patch.Price.Decimal.IsNegative() {
		return nil, apperror.Validation(op, "price cannot be negative")
	}

	var staged []StagedImage
	if stagingID != "" {
		var err error
		if staged, err = s.staging.Snapshot(stagingID); err != nil {
			return nil, err
		}
	}

	if len(staged) > 0 {
		// the product may have been deleted in another session
		if _, err := s.repo.GetByID(ctx, id); err != nil {
			return nil, err
		}
		urls, err := s.uploadStaged(ctx, op, staged)
		if err != nil {
			return nil, err
		}
		images := models.ImageRefFromURLs(urls)
		patch.Images = &images
	}

	if patch.IsEmpty() {
		return nil, apperror.Validation(op, "nothing to update")
	}

	if err := s.repo.Update(ctx, id, patch); err != nil {
		return nil, err
	}

	if stagingID != "" {
		s.staging.Discard(stagingID)
	}
	s.refreshStore(ctx)

	logger.Get().Info("✓ Product updated", zap.String("id", id))
	return s.repo.GetByID(ctx, id)
}

// DeleteProduct removes a product permanently. The caller must have asked
// the admin to confirm.
func (s *ProductService) DeleteProduct(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return apperror.Validation("service.DeleteProduct", "delete must be confirmed")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.refreshStore(ctx)
	return nil
}

// GetProduct loads one product from the database
func (s *ProductService) GetProduct(ctx context.Context, id string) (*models.CatalogEntry, error) {
	return s.repo.GetByID(ctx, id)
}

// ListProducts loads every product, newest first
func (s *ProductService) ListProducts(ctx context.Context) ([]models.CatalogEntry, error) {
	entries, err := s.repo.FetchAll(ctx)
	if err != nil {
		return nil, apperror.Fetch("service.ListProducts", err)
	}
	return entries, nil
}

// StorageUsage estimates storage use from the size of the stored image
// references against the configured safety limit
func (s *ProductService) StorageUsage(ctx context.Context) (models.StorageUsage, error) {
	entries, err := s.repo.FetchAll(ctx)
	if err != nil {
		return models.StorageUsage{}, apperror.Fetch("service.StorageUsage", err)
	}
	return ComputeStorageUsage(entries, s.storageLimitMB), nil
}

// ComputeStorageUsage sums the encoded image reference lengths in MB
func ComputeStorageUsage(entries []models.CatalogEntry, limitMB float64) models.StorageUsage {
	totalBytes := 0
	for _, e := range entries {
		totalBytes += len(models.EncodeImageRef(e.Images))
	}

	usedMB := math.Round(float64(totalBytes)/(1024*1024)*100) / 100
	percent := 0.0
	if limitMB > 0 {
		percent = math.Min(usedMB/limitMB*100, 100)
	}
	return models.StorageUsage{UsedMB: usedMB, TotalMB: limitMB, Percent: percent}
}

// UploadedImages lists the primary images of up to UploadedImagesLimit products
func (s *ProductService) UploadedImages(ctx context.Context) ([]models.UploadedImage, error) {
	images, err := s.repo.ListImages(ctx, UploadedImagesLimit)
	if err != nil {
		return nil, apperror.Fetch("service.UploadedImages", err)
	}
	return images, nil
}

// uploadStaged uploads images in order and returns the URLs that succeeded.
// Zero successes is an upload error.
func (s *ProductService) uploadStaged(ctx context.Context, op string, staged []StagedImage) ([]string, error) {
	urls := make([]string, 0, len(staged))
	var lastErr error
	for _, img := range staged {
		path := ProductImagePath(s.now(), extensionFor(img.ContentType))
		url, err := s.bucket.Upload(ctx, path, img.Data, img.ContentType)
		metrics.RecordUpload(err)
		if err != nil {
			lastErr = err
			logger.Get().Error("❌ Image upload failed",
				zap.String("bucket", s.bucket.Name()), zap.String("file", img.Name), zap.Error(err))
			continue
		}
		urls = append(urls, url)
	}

	if len(urls) == 0 {
		return nil, apperror.Upload(op, lastErr)
	}
	if len(urls) < len(staged) {
		logger.Get().Warn("⚠️  Some images failed to upload",
			zap.Int("uploaded", len(urls)), zap.Int("staged", len(staged)))
	}
	return urls, nil
}

func (s *ProductService) refreshStore(ctx context.Context) {
	if s.store == nil {
		return
	}
	// the store logs and keeps its previous list on failure
	_ = s.store.Refresh(ctx)
}

func validateInput(op string, input models.ProductInput) error {
	if input.Name == "" {
		return apperror.Validation(op, "name is required")
	}
	if !input.Status.IsValid() {
		return apperror.Validation(op, "status must be active or inactive")
	}
	if input.Price.Valid && input.Price.Decimal.IsNegative() {
		return apperror.Validation(op, "price cannot be negative")
	}
	return nil
}

func extensionFor(contentType string) string {
	if contentType == "image/png" {
		return ".png"
	}
	return ".jpg"
}
