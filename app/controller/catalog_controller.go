package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	servertiming "github.com/mitchellh/go-server-timing"
	"go.uber.org/zap"

	"prime-nature-nuts/apperror"
	"prime-nature-nuts/catalog"
	"prime-nature-nuts/logger"
	"prime-nature-nuts/models"
	"prime-nature-nuts/pricing"
	"prime-nature-nuts/service"
	"prime-nature-nuts/utils"
)

// CatalogController handles the public storefront endpoints
type CatalogController struct {
	store         *catalog.Store
	engine        *pricing.Engine
	thumbnails    *service.ThumbnailService
	exporter      *service.ExportService
	whatsappPhone string
	heartbeat     time.Duration
}

// NewCatalogController creates a new CatalogController
func NewCatalogController(
	store *catalog.Store,
	engine *pricing.Engine,
	thumbnails *service.ThumbnailService,
	exporter *service.ExportService,
	whatsappPhone string,
) *CatalogController {
	return &CatalogController{
		store:         store,
		engine:        engine,
		thumbnails:    thumbnails,
		exporter:      exporter,
		whatsappPhone: whatsappPhone,
		heartbeat:     25 * time.Second,
	}
}

// ListResponse is the filtered catalog as sent to the storefront
type ListResponse struct {
	Products         []models.CatalogEntry `json:"products"`
	Category         string                `json:"category"`
	Search           string                `json:"search"`
	SourceTotal      int                   `json:"sourceTotal"`
	EmptySource      bool                  `json:"emptySource"`
	EmptyAfterFilter bool                  `json:"emptyAfterFilter"`
	Stale            bool                  `json:"stale"`
	Categories       []string              `json:"categories,omitempty"`
}

func newListResponse(view catalog.View, categories []string) ListResponse {
	return ListResponse{
		Products:         view.Entries,
		Category:         view.Category,
		Search:           view.Search,
		SourceTotal:      view.SourceCount,
		EmptySource:      view.EmptySource(),
		EmptyAfterFilter: view.EmptyAfterFilter(),
		Stale:            view.Stale(),
		Categories:       categories,
	}
}

// ProductDetail is a single product page
type ProductDetail struct {
	models.CatalogEntry
	FormattedPrice string            `json:"formattedPrice"`
	OrderLink      string            `json:"orderLink"`
	Quote          models.PriceQuote `json:"quote"`
}

// filtersFrom reads the list filters; the category is matched exactly, so
// only the search text is trimmed
func filtersFrom(r *http.Request) (category, search string) {
	q := r.URL.Query()
	return q.Get("category"), strings.TrimSpace(q.Get("q"))
}

// startTiming adds a Server-Timing metric when the request carries a timing header
func startTiming(ctx context.Context, name string) func() {
	timing := servertiming.FromContext(ctx)
	if timing == nil {
		return func() {}
	}
	m := timing.NewMetric(name).Start()
	return func() { m.Stop() }
}

// ListProducts handles GET /products?category=&q=
func (c *CatalogController) ListProducts(w http.ResponseWriter, r *http.Request) {
	category, search := filtersFrom(r)

	stop := startTiming(r.Context(), "filter")
	view := c.store.ViewFor(category, search)
	resp := newListResponse(view, catalog.Categories(c.store.Snapshot()))
	stop()

	body, err := json.Marshal(resp)
	if err != nil {
		writeError(w, "ListProducts", err)
		return
	}

	etag := fmt.Sprintf(`"%016x"`, xxhash.Sum64(body))
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// GetProduct handles GET /products/{id}
func (c *CatalogController) GetProduct(w http.ResponseWriter, r *http.Request) {
	const op = "GetProduct"
	id := r.PathValue("id")

	entry, ok := c.store.Find(id)
	if !ok {
		writeError(w, op, apperror.NotFound(op, fmt.Sprintf("product %s not found", id)))
		return
	}

	stop := startTiming(r.Context(), "pricing")
	detail := ProductDetail{
		CatalogEntry:   entry,
		FormattedPrice: utils.PriceLabel(entry.Price),
		OrderLink:      utils.WhatsAppOrderLink(c.whatsappPhone, entry, utils.IsMobileUserAgent(r.UserAgent())),
		Quote:          c.engine.Quote(entry),
	}
	stop()

	writeJSON(w, http.StatusOK, detail)
}

// PriceOptions handles GET /products/{id}/price-options
func (c *CatalogController) PriceOptions(w http.ResponseWriter, r *http.Request) {
	const op = "PriceOptions"
	id := r.PathValue("id")

	entry, ok := c.store.Find(id)
	if !ok {
		writeError(w, op, apperror.NotFound(op, fmt.Sprintf("product %s not found", id)))
		return
	}
	writeJSON(w, http.StatusOK, c.engine.Quote(entry))
}

// Thumbnail handles GET /products/{id}/thumbnail?size=thumb|medium
func (c *CatalogController) Thumbnail(w http.ResponseWriter, r *http.Request) {
	size := r.URL.Query().Get("size")
	if size == "" {
		size = service.SizeMedium
	}

	stop := startTiming(r.Context(), "rendition")
	data, err := c.thumbnails.Thumbnail(r.Context(), r.PathValue("id"), size)
	stop()
	if err != nil {
		writeError(w, "Thumbnail", err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Events handles GET /events?category=&q= as a Server-Sent Events stream.
// Each connection follows the shared catalog with its own filters and gets
// a "catalog" event with the filtered view on every change.
func (c *CatalogController) Events(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	category, search := filtersFrom(r)

	follower, stopFollow := c.store.Follow(category, search)
	defer stopFollow()

	// holds only the newest view; a slow client skips intermediate ones
	views := make(chan catalog.View, 1)
	unsubscribe := follower.Subscribe(func(v catalog.View) {
		select {
		case <-views:
		default:
		}
		select {
		case views <- v:
		default:
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := c.writeViewEvent(w, rc, follower.CurrentView()); err != nil {
		return
	}

	heartbeat := time.NewTicker(c.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case v := <-views:
			if err := c.writeViewEvent(w, rc, v); err != nil {
				logger.Get().Debug("SSE client gone", zap.Error(err))
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func (c *CatalogController) writeViewEvent(w http.ResponseWriter, rc *http.ResponseController, view catalog.View) error {
	data, err := json.Marshal(newListResponse(view, nil))
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: catalog\ndata: %s\n\n", data); err != nil {
		return err
	}
	return rc.Flush()
}

// PriceList handles GET /catalog/price-list?category=&q=
func (c *CatalogController) PriceList(w http.ResponseWriter, r *http.Request) {
	category, search := filtersFrom(r)

	html, err := c.exporter.RenderPriceListHTML(category, search)
	if err != nil {
		writeError(w, "PriceList", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}

// ExportPDF handles GET /admin/catalog/export.pdf?category=&q=
func (c *CatalogController) ExportPDF(w http.ResponseWriter, r *http.Request) {
	c.export(w, r, "pdf", "application/pdf", c.exporter.GeneratePDF)
}

// ExportPNG handles GET /admin/catalog/export.png?category=&q=
func (c *CatalogController) ExportPNG(w http.ResponseWriter, r *http.Request) {
	c.export(w, r, "png", "image/png", c.exporter.GeneratePNG)
}

func (c *CatalogController) export(
	w http.ResponseWriter,
	r *http.Request,
	ext, contentType string,
	generate func(ctx context.Context, category, search string) ([]byte, error),
) {
	category, search := filtersFrom(r)

	data, err := generate(r.Context(), category, search)
	if err != nil {
		writeError(w, "Export"+strings.ToUpper(ext), err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename(category, ext)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.Get().Error("❌ Export: Error writing response", zap.String("format", ext), zap.Error(err))
	}
}

func exportFilename(category, ext string) string {
	if category == "" || category == catalog.AllCategories {
		return "price_list." + ext
	}
	return fmt.Sprintf("price_list_%s.%s", strings.ReplaceAll(category, " ", "_"), ext)
}
