package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"prime-nature-nuts/catalog"
	"prime-nature-nuts/logger"
)

// ChangeSource reports remote catalog changes
type ChangeSource interface {
	Listen(ctx context.Context, onChange func(payload string)) error
}

// CatalogSync keeps the in-memory catalog in step with the database: any
// change notification triggers a full re-fetch. Bursts of notifications that
// arrive while a refresh is running collapse into a single follow-up refresh.
type CatalogSync struct {
	store         *catalog.Store
	source        ChangeSource
	retryDelay    time.Duration
	maxRetryDelay time.Duration
}

// NewCatalogSync creates a new CatalogSync
func NewCatalogSync(store *catalog.Store, source ChangeSource) *CatalogSync {
	return &CatalogSync{
		store:         store,
		source:        source,
		retryDelay:    5 * time.Second,
		maxRetryDelay: time.Minute,
	}
}

// Run loads the catalog and then refreshes it on every change until ctx is
// done. A failed refresh is retried with backoff until one succeeds or a new
// change arrives; the store keeps serving what it has meanwhile.
func (s *CatalogSync) Run(ctx context.Context) error {
	logger.Get().Info("🔄 Starting catalog sync")

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()

	pending := make(chan struct{}, 1)
	pending <- struct{}{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.refreshLoop(workerCtx, pending)
	}()

	err := s.source.Listen(ctx, func(payload string) {
		logger.Get().Debug("📣 Catalog change received", zap.String("op", payload))
		select {
		case pending <- struct{}{}:
		default:
		}
	})
	stopWorker()
	<-done
	return err
}

func (s *CatalogSync) refreshLoop(ctx context.Context, pending <-chan struct{}) {
	var retry <-chan time.Time
	delay := s.retryDelay
	for {
		select {
		case <-ctx.Done():
			return
		case <-pending:
		case <-retry:
		}

		if err := s.store.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Get().Warn("⚠️  Catalog refresh failed, retrying",
				zap.Duration("retry_in", delay), zap.Error(err))
			retry = time.After(delay)
			delay *= 2
			if delay > s.maxRetryDelay {
				delay = s.maxRetryDelay
			}
			continue
		}
		retry = nil
		delay = s.retryDelay
	}
}
