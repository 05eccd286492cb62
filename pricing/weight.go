package pricing

import (
	"regexp"
	"strconv"
	"strings"
)

var leadingNumber = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)`)

// ParseWeightToGrams turns a free-text weight label ("500g", "1 kg", "500G")
// into grams. It is a best-effort heuristic: everything except digits, '.',
// 'k' and 'g' is dropped, "kg" means kilograms, a bare "g" means grams.
// Labels without a recognizable unit or number return ok=false, and so do
// non-positive amounts.
func ParseWeightToGrams(label string) (grams float64, ok bool) {
	cleaned := cleanWeightLabel(label)

	var multiplier float64
	switch {
	case strings.Contains(cleaned, "kg"):
		multiplier = 1000
	case strings.Contains(cleaned, "g"):
		multiplier = 1
	default:
		return 0, false
	}

	numText := leadingNumber.FindString(cleaned)
	if numText == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(numText, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n * multiplier, true
}

func cleanWeightLabel(label string) string {
	var b strings.Builder
	b.Grow(len(label))
	for _, r := range strings.ToLower(label) {
		if (r >= '0' && r <= '9') || r == '.' || r == 'k' || r == 'g' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
