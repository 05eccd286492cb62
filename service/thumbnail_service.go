package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"prime-nature-nuts/apperror"
	"prime-nature-nuts/catalog"
	"prime-nature-nuts/logger"
)

// ImageFetcher downloads an image by URL
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPImageFetcher fetches public image URLs over HTTP
type HTTPImageFetcher struct {
	Client *http.Client
}

// NewHTTPImageFetcher creates a fetcher with a bounded timeout
func NewHTTPImageFetcher() *HTTPImageFetcher {
	return &HTTPImageFetcher{Client: &http.Client{Timeout: 20 * time.Second}}
}

// Fetch downloads url, refusing bodies over MaxUploadBytes
func (f *HTTPImageFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image endpoint returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return data, nil
}

// ThumbnailService serves downscaled renditions of each entry's primary image.
// Renditions are cached on disk keyed by the source URL, so replacing an
// entry's images produces fresh renditions.
type ThumbnailService struct {
	store   *catalog.Store
	fetcher ImageFetcher
	cache   *RenditionCache
}

// NewThumbnailService creates a new ThumbnailService
func NewThumbnailService(store *catalog.Store, fetcher ImageFetcher, cache *RenditionCache) *ThumbnailService {
	return &ThumbnailService{store: store, fetcher: fetcher, cache: cache}
}

// Thumbnail returns the JPEG rendition of the entry's primary image
func (s *ThumbnailService) Thumbnail(ctx context.Context, entryID, size string) ([]byte, error) {
	const op = "service.Thumbnail"

	entry, ok := s.store.Find(entryID)
	if !ok {
		return nil, apperror.NotFound(op, fmt.Sprintf("product %s not found", entryID))
	}
	source := entry.Images.Primary()
	if source == "" {
		return nil, apperror.NotFound(op, "product has no image")
	}
	if size != SizeThumb && size != SizeMedium {
		size = SizeMedium
	}

	key := strconv.FormatUint(xxhash.Sum64String(source), 16)
	path := s.cache.Path(entryID, key, size)
	if s.cache.Exists(path) {
		if data, err := s.cache.Read(path); err == nil {
			return data, nil
		}
	}

	raw, err := s.fetcher.Fetch(ctx, source)
	if err != nil {
		return nil, apperror.Fetch(op, err)
	}

	data, err := Downscale(ctx, raw, RenditionOptions(size))
	if err != nil {
		return nil, err
	}

	if err := s.cache.Save(path, data); err != nil {
		logger.Get().Warn("⚠️  Failed to cache rendition", zap.String("path", path), zap.Error(err))
	}
	return data, nil
}
