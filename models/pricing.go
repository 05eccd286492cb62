package models

import "github.com/shopspring/decimal"

// PriceOption is a price derived by scaling the base price to another weight
type PriceOption struct {
	Grams int             `json:"grams"`
	Price decimal.Decimal `json:"price"` // Always rounded up to a whole currency unit
	Label string          `json:"label"` // "250g", "1kg", "1.5kg"
}

// PriceQuote is what a product page shows: either derived options, or the
// entry's own stated price and weight when nothing can be derived
type PriceQuote struct {
	Derived      bool                `json:"derived"`
	Options      []PriceOption       `json:"options,omitempty"`
	StatedPrice  decimal.NullDecimal `json:"statedPrice"`
	StatedWeight string              `json:"statedWeight"`
	Currency     string              `json:"currency"`
}
