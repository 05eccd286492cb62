package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryStatus is the publication status of a catalog entry
type EntryStatus string

const (
	StatusActive   EntryStatus = "active"
	StatusInactive EntryStatus = "inactive"
)

// IsValid returns true if the status is a recognized value
func (s EntryStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusInactive:
		return true
	}
	return false
}

// CatalogEntry represents one sellable product as stored in the products table
type CatalogEntry struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Category    string              `json:"category"`
	Weight      string              `json:"weight"`                // Free text, e.g. "500g", "1 kg"
	Price       decimal.NullDecimal `json:"price"`                 // null means "price on request"
	Description string              `json:"description"`
	Status      EntryStatus         `json:"status"`
	Images      ImageRef            `json:"images"`
	CreatedAt   time.Time           `json:"createdAt"`
}

// ProductInput represents the fields an admin fills in when adding a product
type ProductInput struct {
	Name        string              `json:"name"`
	Category    string              `json:"category"`
	Weight      string              `json:"weight"`
	Price       decimal.NullDecimal `json:"price"`
	Description string              `json:"description"`
	Status      EntryStatus         `json:"status"`
}

// ProductPatch represents a partial update. Nil fields are left untouched.
// Images, when set, fully replaces the stored image reference.
type ProductPatch struct {
	Name        *string              `json:"name,omitempty"`
	Category    *string              `json:"category,omitempty"`
	Weight      *string              `json:"weight,omitempty"`
	Price       *decimal.NullDecimal `json:"price,omitempty"`
	Description *string              `json:"description,omitempty"`
	Status      *EntryStatus         `json:"status,omitempty"`
	Images      *ImageRef            `json:"-"`
}

// IsEmpty reports whether the patch changes nothing
func (p ProductPatch) IsEmpty() bool {
	return p.Name == nil && p.Category == nil && p.Weight == nil && p.Price == nil &&
		p.Description == nil && p.Status == nil && p.Images == nil
}

// UploadedImage is one tile of the admin "uploaded images" grid
type UploadedImage struct {
	Name      string `json:"name"`
	Thumbnail string `json:"thumbnail"`
}

// StorageUsage summarizes how much of the storage safety limit is used
type StorageUsage struct {
	UsedMB  float64 `json:"usedMb"`
	TotalMB float64 `json:"totalMb"`
	Percent float64 `json:"percent"`
}
