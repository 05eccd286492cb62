package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PriceOnRequest is shown instead of a price when none is set
const PriceOnRequest = "Price on request"

// FormatINR formats an amount in rupees with two decimals and Indian digit
// grouping, like "₹1,23,456.50": the last three integer digits form one
// group and the rest are grouped in pairs.
func FormatINR(amount decimal.Decimal) string {
	neg := amount.IsNegative()
	if neg {
		amount = amount.Neg()
	}

	fixed := amount.StringFixed(2)
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	b.Grow(len(fixed) + len(intPart)/2 + 4)
	if neg {
		b.WriteString("-")
	}
	b.WriteString("₹")

	if len(intPart) <= 3 {
		b.WriteString(intPart)
	} else {
		head, tail := intPart[:len(intPart)-3], intPart[len(intPart)-3:]
		// Insert separators from the left, pairs after the leading group.
		rem := len(head) % 2
		if rem == 0 {
			rem = 2
		}
		b.WriteString(head[:rem])
		for i := rem; i < len(head); i += 2 {
			b.WriteByte(',')
			b.WriteString(head[i : i+2])
		}
		b.WriteByte(',')
		b.WriteString(tail)
	}

	b.WriteByte('.')
	b.WriteString(fracPart)
	return b.String()
}

// PriceLabel formats a stated price, or PriceOnRequest when it is absent or zero
func PriceLabel(price decimal.NullDecimal) string {
	if !price.Valid || price.Decimal.IsZero() {
		return PriceOnRequest
	}
	return FormatINR(price.Decimal)
}
