package controller

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prime-nature-nuts/catalog"
	"prime-nature-nuts/models"
	"prime-nature-nuts/pricing"
	"prime-nature-nuts/service"
)

type staticFetcher struct {
	data []byte
}

func (f staticFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f.data, nil
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 150, B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func catalogEntries() []models.CatalogEntry {
	return []models.CatalogEntry{
		{
			ID: "p1", Name: "Cashew W240", Category: "nuts", Weight: "500g",
			Price:  decimal.NewNullDecimal(decimal.NewFromInt(450)),
			Images: models.SingleImage("https://cdn.example/p1.jpg"),
		},
		{ID: "p2", Name: "Medjool Dates", Category: "dates", Weight: "assorted"},
		{ID: "p3", Name: "Almond", Category: "nuts"},
	}
}

func newCatalogFixture(t *testing.T) (*catalog.Store, http.Handler) {
	t.Helper()
	store := catalog.NewStore(nil)
	store.SetList(catalogEntries())

	engine, err := pricing.NewEngine(pricing.DefaultConfig())
	require.NoError(t, err)
	thumbs := service.NewThumbnailService(store, staticFetcher{data: testPNG(t, 640, 480)}, service.NewRenditionCache(t.TempDir()))
	exporter := service.NewExportService(store, engine, "http://localhost:8080", "")

	c := NewCatalogController(store, engine, thumbs, exporter, "919000000000")
	c.heartbeat = 50 * time.Millisecond

	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", c.ListProducts)
	mux.HandleFunc("GET /products/{id}", c.GetProduct)
	mux.HandleFunc("GET /products/{id}/price-options", c.PriceOptions)
	mux.HandleFunc("GET /products/{id}/thumbnail", c.Thumbnail)
	mux.HandleFunc("GET /events", c.Events)
	mux.HandleFunc("GET /catalog/price-list", c.PriceList)
	return store, mux
}

func get(h http.Handler, target string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListProducts_FiltersAndReportsState(t *testing.T) {
	_, h := newCatalogFixture(t)

	rec := get(h, "/products?category=nuts&q=%20cash%20")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "p1", resp.Products[0].ID)
	assert.Equal(t, "cash", resp.Search)
	assert.Equal(t, 3, resp.SourceTotal)
	assert.False(t, resp.EmptyAfterFilter)
	assert.False(t, resp.Stale)
	assert.Equal(t, []string{"nuts", "dates"}, resp.Categories)

	rec = get(h, "/products?q=pistachio")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Products)
	assert.True(t, resp.EmptyAfterFilter)
	assert.False(t, resp.EmptySource)
}

func TestListProducts_CategoryIsNotTrimmed(t *testing.T) {
	_, h := newCatalogFixture(t)

	rec := get(h, "/products?category=%20nuts")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, " nuts", resp.Category)
	assert.Empty(t, resp.Products)
	assert.True(t, resp.EmptyAfterFilter)
}

func TestListProducts_ETag(t *testing.T) {
	store, h := newCatalogFixture(t)

	first := get(h, "/products")
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	notModified := get(h, "/products", "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, notModified.Code)
	assert.Empty(t, notModified.Body.Bytes())

	store.SetList(catalogEntries()[:1])
	changed := get(h, "/products", "If-None-Match", etag)
	assert.Equal(t, http.StatusOK, changed.Code)
	assert.NotEqual(t, etag, changed.Header().Get("ETag"))
}

func TestGetProduct(t *testing.T) {
	_, h := newCatalogFixture(t)

	rec := get(h, "/products/p1", "User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0)")
	require.Equal(t, http.StatusOK, rec.Code)

	var detail ProductDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "Cashew W240", detail.Name)
	assert.Equal(t, "₹450.00", detail.FormattedPrice)
	assert.True(t, strings.HasPrefix(detail.OrderLink, "https://wa.me/919000000000?text="))
	assert.True(t, detail.Quote.Derived)
	require.NotEmpty(t, detail.Quote.Options)
	assert.Equal(t, "100g", detail.Quote.Options[0].Label)
	assert.True(t, decimal.NewFromInt(90).Equal(detail.Quote.Options[0].Price))

	desktop := get(h, "/products/p2")
	require.NoError(t, json.Unmarshal(desktop.Body.Bytes(), &detail))
	assert.Equal(t, "Price on request", detail.FormattedPrice)
	assert.True(t, strings.HasPrefix(detail.OrderLink, "https://web.whatsapp.com/send?phone=919000000000"))
	assert.False(t, detail.Quote.Derived)
}

func TestGetProduct_NotFound(t *testing.T) {
	_, h := newCatalogFixture(t)

	rec := get(h, "/products/ghost")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"product ghost not found","kind":"not_found"}`, rec.Body.String())
}

func TestPriceOptions(t *testing.T) {
	_, h := newCatalogFixture(t)

	rec := get(h, "/products/p2/price-options")
	require.Equal(t, http.StatusOK, rec.Code)

	var quote models.PriceQuote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	assert.False(t, quote.Derived)
	assert.Equal(t, "assorted", quote.StatedWeight)
	assert.Equal(t, "INR", quote.Currency)
}

func TestThumbnail(t *testing.T) {
	_, h := newCatalogFixture(t)

	rec := get(h, "/products/p1/thumbnail?size=thumb")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))

	cfg, _, err := image.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.Width)
	assert.Equal(t, 225, cfg.Height)

	noImage := get(h, "/products/p2/thumbnail")
	assert.Equal(t, http.StatusNotFound, noImage.Code)
}

func TestPriceList(t *testing.T) {
	_, h := newCatalogFixture(t)

	rec := get(h, "/catalog/price-list?category=dates")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Medjool Dates")
	assert.NotContains(t, rec.Body.String(), "Cashew W240")
}

func readEvent(t *testing.T, r *bufio.Reader) (event string, data string) {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "" && event != "":
			return event, data
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestEvents_StreamsFilteredViews(t *testing.T) {
	store, h := newCatalogFixture(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events?category=nuts", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)

	event, data := readEvent(t, reader)
	assert.Equal(t, "catalog", event)
	var view ListResponse
	require.NoError(t, json.Unmarshal([]byte(data), &view))
	assert.Len(t, view.Products, 2)
	assert.Equal(t, "nuts", view.Category)

	store.SetList(append(catalogEntries(), models.CatalogEntry{ID: "p4", Name: "Pistachio", Category: "nuts"}))

	_, data = readEvent(t, reader)
	require.NoError(t, json.Unmarshal([]byte(data), &view))
	assert.Len(t, view.Products, 3)
	assert.Equal(t, 4, view.SourceTotal)
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "price_list.pdf", exportFilename("", "pdf"))
	assert.Equal(t, "price_list.png", exportFilename(catalog.AllCategories, "png"))
	assert.Equal(t, "price_list_dry_fruits.pdf", exportFilename("dry fruits", "pdf"))
}
