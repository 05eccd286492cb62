package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"prime-nature-nuts/models"
)

var mobileUA = regexp.MustCompile(`(?i)Android|iPhone|iPad|iPod`)

// IsMobileUserAgent reports whether the user agent belongs to a phone or tablet
func IsMobileUserAgent(userAgent string) bool {
	return mobileUA.MatchString(userAgent)
}

// OrderMessage is the prefilled WhatsApp text for ordering an entry
func OrderMessage(entry models.CatalogEntry) string {
	name := entry.Name
	if name == "" {
		name = "Product"
	}
	category := entry.Category
	if category == "" {
		category = "N/A"
	}
	return fmt.Sprintf("Hello Prime Nature 👋\n\nProduct: %s\nCategory: %s\nPrice: %s",
		name, category, PriceLabel(entry.Price))
}

// WhatsAppOrderLink builds the order link for an entry. Mobile clients get a
// wa.me link that opens the app; desktop clients get WhatsApp Web.
func WhatsAppOrderLink(phone string, entry models.CatalogEntry, mobile bool) string {
	text := encodeComponent(OrderMessage(entry))
	if mobile {
		return fmt.Sprintf("https://wa.me/%s?text=%s", phone, text)
	}
	return fmt.Sprintf("https://web.whatsapp.com/send?phone=%s&text=%s", phone, text)
}

// encodeComponent percent-encodes s for use as a query value, spaces as %20
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
