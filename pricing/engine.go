package pricing

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"prime-nature-nuts/logger"
	"prime-nature-nuts/models"
)

// PricingConfig represents the pricing configuration structure
type PricingConfig struct {
	Currency        string           `json:"currency"`
	DefaultTargets  []int            `json:"defaultTargets"`  // Grams offered for every category
	CategoryTargets map[string][]int `json:"categoryTargets"` // Per-category override, exact label match
}

// DefaultConfig is used when no pricing config file is configured
func DefaultConfig() PricingConfig {
	return PricingConfig{
		Currency:       "INR",
		DefaultTargets: []int{100, 250, 500, 1000},
	}
}

// Engine derives quantity price options for catalog entries
type Engine struct {
	config PricingConfig
}

// NewEngine creates an engine from an already-built config
func NewEngine(config PricingConfig) (*Engine, error) {
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid pricing config: %w", err)
	}
	config.DefaultTargets = normalizeTargets(config.DefaultTargets)
	for category, targets := range config.CategoryTargets {
		config.CategoryTargets[category] = normalizeTargets(targets)
	}
	return &Engine{config: config}, nil
}

// LoadEngine reads a JSON pricing config. An empty path yields the default config.
func LoadEngine(configPath string) (*Engine, error) {
	if configPath == "" {
		return NewEngine(DefaultConfig())
	}

	if !filepath.IsAbs(configPath) {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		configPath = filepath.Join(wd, configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing config: %w", err)
	}

	var config PricingConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse pricing config: %w", err)
	}

	engine, err := NewEngine(config)
	if err != nil {
		return nil, err
	}
	logger.Get().Info("✅ PricingEngine: loaded pricing config", zap.String("path", configPath))
	return engine, nil
}

func validateConfig(config *PricingConfig) error {
	if config.Currency == "" {
		return fmt.Errorf("currency is required")
	}
	if len(config.DefaultTargets) == 0 {
		return fmt.Errorf("defaultTargets are required")
	}
	for _, g := range config.DefaultTargets {
		if g <= 0 {
			return fmt.Errorf("target grams must be positive, got %d", g)
		}
	}
	for category, targets := range config.CategoryTargets {
		for _, g := range targets {
			if g <= 0 {
				return fmt.Errorf("category %q: target grams must be positive, got %d", category, g)
			}
		}
	}
	return nil
}

// normalizeTargets sorts ascending and drops duplicates
func normalizeTargets(targets []int) []int {
	out := make([]int, 0, len(targets))
	seen := make(map[int]bool, len(targets))
	for _, g := range targets {
		if seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, g)
	}
	sort.Ints(out)
	return out
}

// Currency returns the configured currency code
func (e *Engine) Currency() string {
	return e.config.Currency
}

// TargetsFor returns the gram quantities offered for a category
func (e *Engine) TargetsFor(category string) []int {
	if targets, ok := e.config.CategoryTargets[category]; ok && len(targets) > 0 {
		return targets
	}
	return e.config.DefaultTargets
}

// OptionsFor returns the derived price options of an entry. ok is false when
// the entry has no price or its weight label cannot be parsed; callers then
// show the entry's own price and weight unmodified.
func (e *Engine) OptionsFor(entry models.CatalogEntry) (options []models.PriceOption, ok bool) {
	if !entry.Price.Valid {
		return nil, false
	}
	baseGrams, parsed := ParseWeightToGrams(entry.Weight)
	if !parsed {
		return nil, false
	}
	return DerivePriceOptions(entry.Price.Decimal, baseGrams, e.TargetsFor(entry.Category)), true
}

// Quote builds the price block of a product page
func (e *Engine) Quote(entry models.CatalogEntry) models.PriceQuote {
	quote := models.PriceQuote{
		StatedPrice:  entry.Price,
		StatedWeight: entry.Weight,
		Currency:     e.config.Currency,
	}
	if options, ok := e.OptionsFor(entry); ok {
		quote.Derived = true
		quote.Options = options
	}
	return quote
}

// DerivePriceOptions scales basePrice (for baseGrams) to each target weight.
// Prices are rounded up to a whole unit so a derived price is never under-quoted.
func DerivePriceOptions(basePrice decimal.Decimal, baseGrams float64, targets []int) []models.PriceOption {
	if baseGrams <= 0 {
		return nil
	}
	grams := decimal.NewFromFloat(baseGrams)

	options := make([]models.PriceOption, 0, len(targets))
	for _, target := range targets {
		options = append(options, models.PriceOption{
			Grams: target,
			Price: ceilDiv(basePrice.Mul(decimal.NewFromInt(int64(target))), grams),
			Label: WeightLabel(target),
		})
	}
	return options
}

// ceilDiv returns ceil(num/den) without going through a rounded quotient,
// so exact multiples never pick up an extra unit.
func ceilDiv(num, den decimal.Decimal) decimal.Decimal {
	q, r := num.QuoRem(den, 0)
	if r.Sign() > 0 {
		q = q.Add(decimal.NewFromInt(1))
	}
	return q
}

// WeightLabel formats grams as "{g}g" below a kilogram and "{g/1000}kg" above
func WeightLabel(grams int) string {
	if grams < 1000 {
		return strconv.Itoa(grams) + "g"
	}
	return strconv.FormatFloat(float64(grams)/1000, 'f', -1, 64) + "kg"
}
