package controller

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"prime-nature-nuts/app/middleware"
	"prime-nature-nuts/logger"
	"prime-nature-nuts/models"
	"prime-nature-nuts/service"
)

// ProductController handles admin product management
type ProductController struct {
	products service.ProductServiceInterface
}

// NewProductController creates a new ProductController
func NewProductController(products service.ProductServiceInterface) *ProductController {
	return &ProductController{products: products}
}

// CreateProductRequest is the add-product form. Images come from the staging set.
type CreateProductRequest struct {
	models.ProductInput
	StagingID string `json:"stagingId"`
}

// UpdateProductRequest is the edit-product form. A non-empty staging set
// replaces all images; ClearPrice switches the product to "price on request".
type UpdateProductRequest struct {
	models.ProductPatch
	ClearPrice bool   `json:"clearPrice"`
	StagingID  string `json:"stagingId"`
}

// Me handles GET /admin/me
func (c *ProductController) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"email": middleware.AdminEmail(r.Context())})
}

// List handles GET /admin/products
func (c *ProductController) List(w http.ResponseWriter, r *http.Request) {
	entries, err := c.products.ListProducts(r.Context())
	if err != nil {
		writeError(w, "ListProducts", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Get handles GET /admin/products/{id}
func (c *ProductController) Get(w http.ResponseWriter, r *http.Request) {
	entry, err := c.products.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, "GetProduct", err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Create handles POST /admin/products
func (c *ProductController) Create(w http.ResponseWriter, r *http.Request) {
	const op = "AddProduct"

	var req CreateProductRequest
	if err := decodeJSON(r, op, &req); err != nil {
		writeError(w, op, err)
		return
	}

	entry, err := c.products.AddProduct(r.Context(), req.ProductInput, req.StagingID)
	if err != nil {
		writeError(w, op, err)
		return
	}

	logger.Get().Info("✅ Product added",
		zap.String("id", entry.ID),
		zap.String("name", entry.Name),
		zap.String("by", middleware.AdminEmail(r.Context())),
	)
	writeJSON(w, http.StatusCreated, entry)
}

// Update handles PUT /admin/products/{id}
func (c *ProductController) Update(w http.ResponseWriter, r *http.Request) {
	const op = "EditProduct"

	var req UpdateProductRequest
	if err := decodeJSON(r, op, &req); err != nil {
		writeError(w, op, err)
		return
	}
	patch := req.ProductPatch
	if req.ClearPrice {
		patch.Price = &decimal.NullDecimal{}
	}

	entry, err := c.products.EditProduct(r.Context(), r.PathValue("id"), patch, req.StagingID)
	if err != nil {
		writeError(w, op, err)
		return
	}

	logger.Get().Info("✅ Product updated",
		zap.String("id", entry.ID),
		zap.String("by", middleware.AdminEmail(r.Context())),
	)
	writeJSON(w, http.StatusOK, entry)
}

// Delete handles DELETE /admin/products/{id}?confirm=true
func (c *ProductController) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))

	if err := c.products.DeleteProduct(r.Context(), id, confirmed); err != nil {
		writeError(w, "DeleteProduct", err)
		return
	}

	logger.Get().Info("🗑️  Product deleted", zap.String("id", id), zap.String("by", middleware.AdminEmail(r.Context())))
	w.WriteHeader(http.StatusNoContent)
}

// Storage handles GET /admin/storage
func (c *ProductController) Storage(w http.ResponseWriter, r *http.Request) {
	usage, err := c.products.StorageUsage(r.Context())
	if err != nil {
		writeError(w, "StorageUsage", err)
		return
	}
	writeJSON(w, http.StatusOK, usage)
}

// Images handles GET /admin/images
func (c *ProductController) Images(w http.ResponseWriter, r *http.Request) {
	images, err := c.products.UploadedImages(r.Context())
	if err != nil {
		writeError(w, "UploadedImages", err)
		return
	}
	writeJSON(w, http.StatusOK, images)
}
