package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ImageBucket stores product images and returns their public URLs
type ImageBucket interface {
	// Upload writes data under path and returns the URL it is publicly served from
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
	// Name identifies the backend in logs
	Name() string
}

// ProductImagePath returns a fresh object path under products/
func ProductImagePath(now time.Time, ext string) string {
	if ext == "" {
		ext = ".jpg"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("products/%d-%s%s", now.UnixMilli(), uuid.NewString()[:8], ext)
}
