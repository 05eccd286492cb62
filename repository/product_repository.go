package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"prime-nature-nuts/apperror"
	"prime-nature-nuts/logger"
	"prime-nature-nuts/metrics"
	"prime-nature-nuts/models"
)

// DBTX is satisfied by *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const productColumns = `id, name, category, COALESCE(weight, ''), price, COALESCE(description, ''), status, image_url, created_at`

// ProductRepository handles database operations for the products table
type ProductRepository struct {
	db DBTX
}

// NewProductRepository creates a new ProductRepository
func NewProductRepository(db DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// Ensure ProductRepository implements ProductRepositoryInterface
var _ ProductRepositoryInterface = (*ProductRepository)(nil)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (models.CatalogEntry, error) {
	var e models.CatalogEntry
	var status string
	err := row.Scan(&e.ID, &e.Name, &e.Category, &e.Weight, &e.Price, &e.Description, &status, &e.Images, &e.CreatedAt)
	e.Status = models.EntryStatus(status)
	return e, err
}

// FetchAll retrieves every product, newest first
func (r *ProductRepository) FetchAll(ctx context.Context) ([]models.CatalogEntry, error) {
	defer metrics.TrackDBOperation("select")(time.Now())

	query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		logger.Get().Error("❌ Error querying products", zap.Error(err))
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	entries := []models.CatalogEntry{}
	for rows.Next() {
		e, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	logger.Get().Debug("📦 Products fetched", zap.Int("count", len(entries)))
	return entries, nil
}

// checkID rejects ids that cannot name a row; products.id is a uuid column
func checkID(op, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperror.NotFound(op, fmt.Sprintf("product %s not found", id))
	}
	return nil
}

// GetByID retrieves one product
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*models.CatalogEntry, error) {
	if err := checkID("repository.GetByID", id); err != nil {
		return nil, err
	}
	defer metrics.TrackDBOperation("select")(time.Now())

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	e, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("repository.GetByID", fmt.Sprintf("product %s not found", id))
		}
		return nil, fmt.Errorf("failed to get product %s: %w", id, err)
	}
	return &e, nil
}

// Insert stores a new product and returns its id
func (r *ProductRepository) Insert(ctx context.Context, input models.ProductInput, images models.ImageRef) (string, error) {
	defer metrics.TrackDBOperation("insert")(time.Now())

	query := `
		INSERT INTO products (name, category, weight, price, description, status, image_url)
		VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), $6, $7)
		RETURNING id
	`
	var id string
	err := r.db.QueryRowContext(ctx, query,
		input.Name,
		input.Category,
		input.Weight,
		input.Price,
		input.Description,
		string(input.Status),
		images,
	).Scan(&id)
	if err != nil {
		logger.Get().Error("❌ Error inserting product", zap.String("name", input.Name), zap.Error(err))
		return "", fmt.Errorf("failed to insert product: %w", err)
	}

	logger.Get().Info("✓ Product inserted", zap.String("id", id), zap.String("name", input.Name))
	return id, nil
}

// Update applies the non-nil fields of patch
func (r *ProductRepository) Update(ctx context.Context, id string, patch models.ProductPatch) error {
	if err := checkID("repository.Update", id); err != nil {
		return err
	}
	defer metrics.TrackDBOperation("update")(time.Now())

	var sets []string
	var args []interface{}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	addNullable := func(column string, value string) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = NULLIF($%d, '')", column, len(args)))
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Category != nil {
		add("category", *patch.Category)
	}
	if patch.Weight != nil {
		addNullable("weight", *patch.Weight)
	}
	if patch.Price != nil {
		add("price", *patch.Price)
	}
	if patch.Description != nil {
		addNullable("description", *patch.Description)
	}
	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	if patch.Images != nil {
		add("image_url", *patch.Images)
	}
	if len(sets) == 0 {
		return apperror.Validation("repository.Update", "nothing to update")
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE products SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		logger.Get().Error("❌ Error updating product", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to update product: %w", err)
	}
	return expectAffected(result, "repository.Update", id)
}

// Delete removes a product permanently
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	if err := checkID("repository.Delete", id); err != nil {
		return err
	}
	defer metrics.TrackDBOperation("delete")(time.Now())

	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		logger.Get().Error("❌ Error deleting product", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if err := expectAffected(result, "repository.Delete", id); err != nil {
		return err
	}

	logger.Get().Info("🗑️  Product deleted", zap.String("id", id))
	return nil
}

// ListImages returns up to limit products that have images, with their primary image
func (r *ProductRepository) ListImages(ctx context.Context, limit int) ([]models.UploadedImage, error) {
	defer metrics.TrackDBOperation("select")(time.Now())

	rows, err := r.db.QueryContext(ctx,
		`SELECT name, image_url FROM products WHERE image_url IS NOT NULL LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query product images: %w", err)
	}
	defer rows.Close()

	images := []models.UploadedImage{}
	for rows.Next() {
		var name string
		var ref models.ImageRef
		if err := rows.Scan(&name, &ref); err != nil {
			return nil, fmt.Errorf("failed to scan product image: %w", err)
		}
		if ref.IsEmpty() {
			continue
		}
		images = append(images, models.UploadedImage{Name: name, Thumbnail: ref.Primary()})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product images: %w", err)
	}
	return images, nil
}

func expectAffected(result sql.Result, op, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(op, fmt.Sprintf("product %s not found", id))
	}
	return nil
}
