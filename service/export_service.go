package service

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"os"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"prime-nature-nuts/catalog"
	"prime-nature-nuts/logger"
	"prime-nature-nuts/pricing"
	"prime-nature-nuts/utils"
)

//go:embed templates/price_list.html
var templatesFS embed.FS

var priceListTemplate = template.Must(template.ParseFS(templatesFS, "templates/price_list.html"))

// PriceListRow is one product line of the price list
type PriceListRow struct {
	Name     string
	Category string
	Weight   string
	Price    string
	Options  []string
}

// PriceListData feeds the price list template
type PriceListData struct {
	Category    string
	Search      string
	GeneratedAt string
	EmptySource bool
	Rows        []PriceListRow
}

// ExportService renders the catalog as a printable price list and prints it
// to PDF through a headless Chrome
type ExportService struct {
	store      *catalog.Store
	engine     *pricing.Engine
	baseURL    string // where the headless browser reaches this server
	chromePath string
	now        func() time.Time
}

// NewExportService creates a new ExportService
func NewExportService(store *catalog.Store, engine *pricing.Engine, baseURL, chromePath string) *ExportService {
	return &ExportService{
		store:      store,
		engine:     engine,
		baseURL:    baseURL,
		chromePath: chromePath,
		now:        time.Now,
	}
}

// BuildPriceList turns the filtered catalog into template rows
func (s *ExportService) BuildPriceList(category, search string) PriceListData {
	view := s.store.ViewFor(category, search)

	data := PriceListData{
		Category:    view.Category,
		Search:      view.Search,
		GeneratedAt: s.now().Format("02 Jan 2006"),
		EmptySource: view.EmptySource(),
		Rows:        make([]PriceListRow, 0, len(view.Entries)),
	}
	for _, e := range view.Entries {
		row := PriceListRow{
			Name:     e.Name,
			Category: e.Category,
			Weight:   e.Weight,
			Price:    utils.PriceLabel(e.Price),
		}
		if options, ok := s.engine.OptionsFor(e); ok {
			for _, o := range options {
				row.Options = append(row.Options, fmt.Sprintf("%s %s", o.Label, utils.FormatINR(o.Price)))
			}
		}
		data.Rows = append(data.Rows, row)
	}
	return data
}

// RenderPriceListHTML renders the price list for the given filters
func (s *ExportService) RenderPriceListHTML(category, search string) (string, error) {
	var buf bytes.Buffer
	if err := priceListTemplate.Execute(&buf, s.BuildPriceList(category, search)); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// detectChromePath returns the configured Chrome binary or the first common
// installation path that exists
func detectChromePath(configured string) string {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured
		}
	}

	paths := []string{
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/snap/bin/chromium",
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// PriceListURL is the page the headless browser prints
func (s *ExportService) PriceListURL(category, search string) string {
	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}
	if search != "" {
		q.Set("q", search)
	}
	u := s.baseURL + "/catalog/price-list"
	if encoded := q.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

// GeneratePDF prints the price list page to an A4 PDF
func (s *ExportService) GeneratePDF(ctx context.Context, category, search string) ([]byte, error) {
	var pdfBuf []byte
	err := s.capture(ctx, category, search, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		pdfBuf, _, err = page.PrintToPDF().
			WithPrintBackground(true).
			WithPreferCSSPageSize(true).
			WithPaperWidth(8.27).   // 210mm in inches
			WithPaperHeight(11.69). // 297mm in inches
			Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	logger.Get().Info("✓ Price list PDF generated", zap.Int("bytes", len(pdfBuf)))
	return pdfBuf, nil
}

// GeneratePNG captures the whole price list page as a single PNG, for
// sharing in chats where a PDF is awkward
func (s *ExportService) GeneratePNG(ctx context.Context, category, search string) ([]byte, error) {
	var pngBuf []byte
	// quality 100 makes chromedp capture PNG instead of JPEG
	if err := s.capture(ctx, category, search, chromedp.FullScreenshot(&pngBuf, 100)); err != nil {
		return nil, fmt.Errorf("failed to generate PNG: %w", err)
	}

	logger.Get().Info("✓ Price list PNG generated", zap.Int("bytes", len(pngBuf)))
	return pngBuf, nil
}

// capture opens the price list in a headless browser and runs action on it
func (s *ExportService) capture(ctx context.Context, category, search string, action chromedp.Action) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox, // Required for running in Docker/containers
		chromedp.Flag("enable-print-preview", true),
	)
	if chromePath := detectChromePath(s.chromePath); chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	chromedpCtx, chromedpCancel := chromedp.NewContext(allocCtx)
	defer chromedpCancel()

	renderURL := s.PriceListURL(category, search)
	logger.Get().Info("🖨️  Rendering price list", zap.String("url", renderURL))

	return chromedp.Run(chromedpCtx,
		chromedp.EmulateViewport(794, 1123), // A4 at 96 DPI
		chromedp.Navigate(renderURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(500*time.Millisecond), // fonts
		action,
	)
}
