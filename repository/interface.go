package repository

import (
	"context"

	"prime-nature-nuts/models"
)

// ProductRepositoryInterface defines the contract for product persistence
type ProductRepositoryInterface interface {
	FetchAll(ctx context.Context) ([]models.CatalogEntry, error)
	GetByID(ctx context.Context, id string) (*models.CatalogEntry, error)
	Insert(ctx context.Context, input models.ProductInput, images models.ImageRef) (string, error)
	Update(ctx context.Context, id string, patch models.ProductPatch) error
	Delete(ctx context.Context, id string) error
	ListImages(ctx context.Context, limit int) ([]models.UploadedImage, error)
}
