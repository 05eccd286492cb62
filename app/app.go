package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"prime-nature-nuts/app/controller"
	"prime-nature-nuts/app/middleware"
	"prime-nature-nuts/app/router"
	"prime-nature-nuts/catalog"
	"prime-nature-nuts/config"
	"prime-nature-nuts/db"
	"prime-nature-nuts/logger"
	"prime-nature-nuts/pricing"
	"prime-nature-nuts/repository"
	"prime-nature-nuts/service"
)

const stagingSweepInterval = time.Minute

// App is the wired storefront service
type App struct {
	cfg     *config.Config
	handler http.Handler
	staging *service.StagingRegistry
	sync    *service.CatalogSync
}

// Initialize connects to the database, runs migrations and wires the
// repositories, services and controllers
func Initialize(ctx context.Context, cfg *config.Config) (*App, error) {
	// Initialize database connection
	if err := db.InitDB(ctx, cfg.DatabaseURL); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.RunMigrations(ctx, db.DB); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	bucket, err := newBucket(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize image bucket: %w", err)
	}
	logger.Get().Info("✅ Image bucket ready", zap.String("bucket", bucket.Name()))

	engine, err := pricing.LoadEngine(cfg.PricingConfigPath)
	if err != nil {
		return nil, err
	}

	cache := service.NewRenditionCache(cfg.CacheDir)
	if err := cache.EnsureDir(); err != nil {
		return nil, err
	}

	// Initialize repository and the shared catalog
	productRepo := repository.NewProductRepository(db.DB)
	store := catalog.NewStore(productRepo)
	staging := service.NewStagingRegistry(cfg.StagingTTL)

	productService := service.NewProductService(productRepo, bucket, staging, store, cfg.StorageLimitMB)
	thumbnailService := service.NewThumbnailService(store, service.NewHTTPImageFetcher(), cache)
	exportService := service.NewExportService(store, engine, cfg.BaseURL, cfg.ChromePath)

	// Create controllers
	controllers := &router.Controllers{
		Catalog: controller.NewCatalogController(store, engine, thumbnailService, exportService, cfg.WhatsAppPhone),
		Product: controller.NewProductController(productService),
		Staging: controller.NewStagingController(staging),
	}
	auth := middleware.NewAuth(cfg.AdminJWTSecret, cfg.AdminEmails)

	return &App{
		cfg:     cfg,
		handler: router.SetupRoutes(controllers, auth),
		staging: staging,
		sync:    service.NewCatalogSync(store, repository.NewChangeListener(cfg.DatabaseURL)),
	}, nil
}

func newBucket(ctx context.Context, cfg *config.Config) (service.ImageBucket, error) {
	switch cfg.StorageBackend {
	case config.StorageDrive:
		return service.NewDriveBucket(ctx, cfg.DriveCredentialsPath, cfg.DriveFolderID)
	default:
		return service.NewS3Bucket(ctx, cfg)
	}
}

// Handler returns the HTTP handler of the service
func (a *App) Handler() http.Handler {
	return a.handler
}

// RunBackground starts catalog sync and the staging janitor. They stop when
// ctx is done.
func (a *App) RunBackground(ctx context.Context) {
	go func() {
		if err := a.sync.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Get().Error("❌ Catalog sync stopped", zap.Error(err))
		}
	}()
	go a.staging.RunJanitor(ctx, stagingSweepInterval)
}

// Close releases the database connection
func (a *App) Close() error {
	return db.CloseDB()
}
