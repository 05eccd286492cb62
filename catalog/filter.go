// Package catalog holds the in-memory product list and the filtering applied
// to it before rendering.
package catalog

import (
	"strings"

	"prime-nature-nuts/models"
)

// AllCategories is the category filter value that matches every entry
const AllCategories = "all"

// Filter selects the entries whose category equals category exactly and whose
// name contains search, ignoring case. category "all" (or empty) and an empty
// search match everything. Input order is preserved and the result is never nil.
func Filter(entries []models.CatalogEntry, category, search string) []models.CatalogEntry {
	search = strings.ToLower(strings.TrimSpace(search))
	matchAll := category == "" || category == AllCategories

	out := make([]models.CatalogEntry, 0, len(entries))
	for _, e := range entries {
		if !matchAll && e.Category != category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(e.Name), search) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Categories lists the distinct non-empty categories in first-seen order
func Categories(entries []models.CatalogEntry) []string {
	seen := make(map[string]bool)
	categories := []string{}
	for _, e := range entries {
		if e.Category == "" || seen[e.Category] {
			continue
		}
		seen[e.Category] = true
		categories = append(categories, e.Category)
	}
	return categories
}
