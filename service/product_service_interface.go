package service

import (
	"context"

	"prime-nature-nuts/models"
)

// ProductServiceInterface defines the contract for admin product operations
type ProductServiceInterface interface {
	AddProduct(ctx context.Context, input models.ProductInput, stagingID string) (*models.CatalogEntry, error)
	EditProduct(ctx context.Context, id string, patch models.ProductPatch, stagingID string) (*models.CatalogEntry, error)
	DeleteProduct(ctx context.Context, id string, confirmed bool) error
	GetProduct(ctx context.Context, id string) (*models.CatalogEntry, error)
	ListProducts(ctx context.Context) ([]models.CatalogEntry, error)
	StorageUsage(ctx context.Context) (models.StorageUsage, error)
	UploadedImages(ctx context.Context) ([]models.UploadedImage, error)
}
