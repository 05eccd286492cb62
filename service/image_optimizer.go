package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"

	"prime-nature-nuts/apperror"
	"prime-nature-nuts/logger"
	"prime-nature-nuts/metrics"
)

// MaxUploadBytes is the largest raw image accepted for downscaling
const MaxUploadBytes = 20 << 20

// Rendition sizes served by the thumbnail endpoint
const (
	SizeThumb  = "thumb"
	SizeMedium = "medium"
)

// DownscaleOptions controls the output of Downscale. Quality is in 0..1 and
// only applies to JPEG.
type DownscaleOptions struct {
	MaxDimension int
	Quality      float64
	Format       imaging.Format
}

// UploadOptions is the preset applied to admin uploads before they are staged
var UploadOptions = DownscaleOptions{MaxDimension: 800, Quality: 0.8, Format: imaging.JPEG}

// RenditionOptions returns the preset for a thumbnail size. Unknown sizes get
// the medium preset.
func RenditionOptions(size string) DownscaleOptions {
	switch size {
	case SizeThumb:
		return DownscaleOptions{MaxDimension: 300, Quality: 0.6, Format: imaging.JPEG}
	case SizeMedium:
		return DownscaleOptions{MaxDimension: 800, Quality: 0.75, Format: imaging.JPEG}
	default:
		logger.Get().Warn("⚠️  Unknown rendition size, defaulting to medium", zap.String("size", size))
		return RenditionOptions(SizeMedium)
	}
}

// ContentType is the MIME type of images produced with these options
func (o DownscaleOptions) ContentType() string {
	if o.Format == imaging.PNG {
		return "image/png"
	}
	return "image/jpeg"
}

// Extension is the file extension matching ContentType
func (o DownscaleOptions) Extension() string {
	if o.Format == imaging.PNG {
		return ".png"
	}
	return ".jpg"
}

// TargetSize scales (width, height) so the longer side is at most maxDim.
// Sizes already within bounds are returned unchanged.
func TargetSize(width, height, maxDim int) (int, int) {
	if maxDim <= 0 {
		return width, height
	}
	if width > height {
		if width > maxDim {
			height = roundDim(float64(height) * float64(maxDim) / float64(width))
			width = maxDim
		}
	} else if height > maxDim {
		width = roundDim(float64(width) * float64(maxDim) / float64(height))
		height = maxDim
	}
	return width, height
}

func roundDim(v float64) int {
	n := int(math.Round(v))
	if n < 1 {
		return 1
	}
	return n
}

// Downscale decodes an image, bounds its longer side by opts.MaxDimension and
// re-encodes it. Images already within bounds are still re-encoded.
func Downscale(ctx context.Context, data []byte, opts DownscaleOptions) ([]byte, error) {
	const op = "service.Downscale"
	start := time.Now()

	if len(data) == 0 {
		return nil, apperror.Decode(op, fmt.Errorf("image is empty"))
	}
	if len(data) > MaxUploadBytes {
		return nil, apperror.Validation(op, fmt.Sprintf("image exceeds %d MB", MaxUploadBytes>>20))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, apperror.Decode(op, fmt.Errorf("failed to decode image: %w", err))
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	newWidth, newHeight := TargetSize(width, height, opts.MaxDimension)

	var out image.Image = img
	if newWidth != width || newHeight != height {
		logger.Get().Debug("🔄 Resizing image",
			zap.Int("width", width), zap.Int("height", height),
			zap.Int("newWidth", newWidth), zap.Int("newHeight", newHeight))
		out = imaging.Resize(img, newWidth, newHeight, imaging.Lanczos)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch opts.Format {
	case imaging.PNG:
		err = png.Encode(&buf, out)
	default:
		err = jpeg.Encode(&buf, flattenOnWhite(out), &jpeg.Options{Quality: jpegQuality(opts.Quality)})
	}
	if err != nil {
		return nil, apperror.Encode(op, fmt.Errorf("failed to encode image: %w", err))
	}
	if buf.Len() == 0 {
		return nil, apperror.Encode(op, fmt.Errorf("encoder produced no data"))
	}

	metrics.ImageDownscaleDuration.Observe(time.Since(start).Seconds())
	logger.Get().Info("✓ Image downscaled",
		zap.Int("inputBytes", len(data)), zap.Int("outputBytes", buf.Len()),
		zap.Int("width", newWidth), zap.Int("height", newHeight))
	return buf.Bytes(), nil
}

// BatchResult is the outcome of one file in DownscaleBatch
type BatchResult struct {
	Name string
	Data []byte
	Err  error
}

// NamedBlob is a raw file as selected by the user
type NamedBlob struct {
	Name string
	Data []byte
}

// DownscaleBatch processes files one at a time in the given order. A failed
// file is reported in its result and does not stop the rest.
func DownscaleBatch(ctx context.Context, files []NamedBlob, opts DownscaleOptions) []BatchResult {
	results := make([]BatchResult, 0, len(files))
	for _, f := range files {
		data, err := Downscale(ctx, f.Data, opts)
		if err != nil {
			logger.Get().Warn("⚠️  Failed to process image", zap.String("file", f.Name), zap.Error(err))
		}
		results = append(results, BatchResult{Name: f.Name, Data: data, Err: err})
	}
	return results
}

func jpegQuality(q float64) int {
	if q <= 0 || q > 1 {
		q = UploadOptions.Quality
	}
	quality := int(math.Round(q * 100))
	if quality < 1 {
		quality = 1
	}
	return quality
}

// flattenOnWhite composites images with transparency onto a white background
func flattenOnWhite(img image.Image) image.Image {
	if opaque, ok := img.(interface{ Opaque() bool }); ok && opaque.Opaque() {
		return img
	}
	bounds := img.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, bounds, img, bounds.Min, draw.Over)
	return dst
}

// RenditionCache stores downscaled renditions on disk
type RenditionCache struct {
	dir string
}

// NewRenditionCache creates a cache rooted at dir
func NewRenditionCache(dir string) *RenditionCache {
	return &RenditionCache{dir: dir}
}

// EnsureDir creates the cache directory if it doesn't exist
func (c *RenditionCache) EnsureDir() error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	return nil
}

// Path returns the cache file for an entry rendition. The key should change
// whenever the source image changes.
func (c *RenditionCache) Path(entryID, key, size string) string {
	return filepath.Join(c.dir, fmt.Sprintf("product_%s_%s_%s.jpg", entryID, key, size))
}

// Exists checks if a cached rendition exists
func (c *RenditionCache) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Read reads a cached rendition
func (c *RenditionCache) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read from cache: %w", err)
	}
	return data, nil
}

// Save writes a rendition to the cache
func (c *RenditionCache) Save(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write to cache: %w", err)
	}
	logger.Get().Info("✓ Image cached", zap.String("path", path))
	return nil
}
