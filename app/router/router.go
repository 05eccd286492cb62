package router

import (
	"net/http"

	servertiming "github.com/mitchellh/go-server-timing"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"prime-nature-nuts/app/controller"
	"prime-nature-nuts/app/middleware"
)

type Controllers struct {
	Catalog *controller.CatalogController
	Product *controller.ProductController
	Staging *controller.StagingController
}

// pingHandler handles GET /ping
func pingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// SetupRoutes builds the application handler. Admin routes require a valid
// admin token; public routes report Server-Timing.
func SetupRoutes(controllers *Controllers, auth *middleware.Auth) http.Handler {
	mux := http.NewServeMux()

	timed := func(h http.HandlerFunc) http.Handler {
		return servertiming.Middleware(h, nil)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return auth.Require(h)
	}

	mux.HandleFunc("GET /ping", pingHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Storefront
	mux.Handle("GET /products", timed(controllers.Catalog.ListProducts))
	mux.Handle("GET /products/{id}", timed(controllers.Catalog.GetProduct))
	mux.Handle("GET /products/{id}/price-options", timed(controllers.Catalog.PriceOptions))
	mux.Handle("GET /products/{id}/thumbnail", timed(controllers.Catalog.Thumbnail))
	mux.HandleFunc("GET /events", controllers.Catalog.Events)
	mux.HandleFunc("GET /catalog/price-list", controllers.Catalog.PriceList)

	// Admin
	mux.Handle("GET /admin/me", admin(controllers.Product.Me))
	mux.Handle("GET /admin/products", admin(controllers.Product.List))
	mux.Handle("POST /admin/products", admin(controllers.Product.Create))
	mux.Handle("GET /admin/products/{id}", admin(controllers.Product.Get))
	mux.Handle("PUT /admin/products/{id}", admin(controllers.Product.Update))
	mux.Handle("DELETE /admin/products/{id}", admin(controllers.Product.Delete))
	mux.Handle("GET /admin/storage", admin(controllers.Product.Storage))
	mux.Handle("GET /admin/images", admin(controllers.Product.Images))
	mux.Handle("GET /admin/catalog/export.pdf", admin(controllers.Catalog.ExportPDF))
	mux.Handle("GET /admin/catalog/export.png", admin(controllers.Catalog.ExportPNG))

	// Upload staging
	mux.Handle("POST /admin/staging", admin(controllers.Staging.Create))
	mux.Handle("GET /admin/staging/{id}", admin(controllers.Staging.Get))
	mux.Handle("DELETE /admin/staging/{id}", admin(controllers.Staging.Discard))
	mux.Handle("POST /admin/staging/{id}/images", admin(controllers.Staging.AddImages))
	mux.Handle("DELETE /admin/staging/{id}/images/{localId}", admin(controllers.Staging.RemoveImage))

	return middleware.Metrics(mux)
}
