package importer

import (
	"math"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ParseDecimal reads a locale-formatted amount such as "R$ 1.234,56",
// "1,234.56", "20,00" or "10.5". Anything unreadable is zero.
//
// When both separators appear the right-most one is the decimal separator. A
// lone comma is decimal. A lone dot is decimal unless it groups thousands:
// repeated ("1.234.567") or followed by exactly three digits after a non-zero
// integer part ("1.234").
func ParseDecimal(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero
	}

	if strings.ContainsAny(s, "eE") {
		if d, err := decimal.NewFromString(s); err == nil {
			return d
		}
	}

	var (
		b   strings.Builder
		neg bool
	)
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			neg = true
		}
	}

	num := canonicalSeparators(b.String())
	if num == "" {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Zero
	}
	if neg {
		d = d.Neg()
	}
	return d
}

func canonicalSeparators(s string) string {
	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			return strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")

	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)

	case lastDot >= 0:
		if strings.Count(s, ".") > 1 {
			return strings.ReplaceAll(s, ".", "")
		}
		intPart, frac := s[:lastDot], s[lastDot+1:]
		if len(frac) == 3 && strings.TrimLeft(intPart, "0") != "" {
			return intPart + frac
		}
		return s

	default:
		return s
	}
}

// Column limits of the products table: NUMERIC(12,2) prices and INTEGER
// stock and year.
var (
	priceLimit = decimal.New(1, 10)
	minInt32   = decimal.NewFromInt(math.MinInt32)
	maxInt32   = decimal.NewFromInt(math.MaxInt32)
)

// ParsePrice is ParseDecimal limited to amounts a price column can hold.
// Larger amounts are zero.
func ParsePrice(raw string) decimal.Decimal {
	return fitPrice(ParseDecimal(raw))
}

func fitPrice(d decimal.Decimal) decimal.Decimal {
	if d.Abs().Round(2).GreaterThanOrEqual(priceLimit) {
		return decimal.Zero
	}
	return d
}

// ParseInt reads a whole quantity with the same rules as ParseDecimal,
// truncating any fraction. Unreadable input, or input outside the 32-bit
// range, is zero.
func ParseInt(raw string) int {
	return fitInt(ParseDecimal(raw))
}

func fitInt(d decimal.Decimal) int {
	d = d.Truncate(0)
	if d.LessThan(minInt32) || d.GreaterThan(maxInt32) {
		return 0
	}
	return int(d.IntPart())
}

// ParseYear reads a year. Empty, unreadable or input outside 1-9999 is nil.
func ParseYear(raw string) *int {
	if !strings.ContainsFunc(raw, unicode.IsDigit) {
		return nil
	}
	return fitYear(ParseDecimal(raw))
}

func fitYear(d decimal.Decimal) *int {
	year := fitInt(d)
	if year < 1 || year > 9999 {
		return nil
	}
	return &year
}

// FoldHeader lower-cases a column header, strips accents, turns separators
// into single spaces and drops a trailing required-marker "*".
func FoldHeader(header string) string {
	// Chains hold buffers, so one is built per call.
	accentFolder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(accentFolder, header)
	if err != nil {
		folded = header
	}

	folded = strings.ToLower(folded)
	folded = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(folded), "*"))
	folded = strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', '.', '/':
			return ' '
		}
		return r
	}, folded)

	return strings.Join(strings.Fields(folded), " ")
}
