package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aluiziolira/tire-quoter/models"
)

// DefaultTitle is used when a product page has no h1.
const DefaultTitle = "Producto sin nombre"

var (
	// Only the bank-transfer price is trusted; list and installment prices are ignored.
	transferPrice = regexp.MustCompile(`(?i)(\$\s?(?:\d{1,3}(?:\.\d{3})+|\d+),\d{2})\s*con\s+transferencia`)

	outOfStock = regexp.MustCompile(`\b(?:agotado|sin stock|no disponible|stock:\s*0)\b`)

	stockCounts = []*regexp.Regexp{
		regexp.MustCompile(`\b(\d+)\s+unidad(?:es)?\s+disponibles?\b`),
		regexp.MustCompile(`\bstock:\s*(\d+)\b`),
		regexp.MustCompile(`\bdisponibles?:\s*(\d+)\b`),
	}
)

// Extraction is what a product page yields before pricing rules are applied.
type Extraction struct {
	Title    string
	RawPrice decimal.Decimal
	Stock    int
}

// ExtractProduct finds the transfer price and title on a product page.
// The boolean is false when the page carries no transfer price; that is an
// expected outcome, not an error. Stock is models.StockUnknown unless
// detectStock is set and the page states it.
func ExtractProduct(page *Page, detectStock bool) (Extraction, bool) {
	if page == nil {
		return Extraction{}, false
	}

	match := transferPrice.FindStringSubmatch(page.Text)
	if match == nil {
		return Extraction{}, false
	}
	price, err := ParseAmount(match[1])
	if err != nil {
		return Extraction{}, false
	}

	title := strings.TrimSpace(page.Heading)
	if title == "" {
		title = DefaultTitle
	}

	stock := models.StockUnknown
	if detectStock {
		stock = DetectStock(page.Text)
	}

	return Extraction{Title: title, RawPrice: price, Stock: stock}, true
}

// ParseAmount parses an amount written with "." for thousands and "," for
// decimals, e.g. "$1.234,56".
func ParseAmount(raw string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.Join(strings.Fields(cleaned), "")
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty amount %q", raw)
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	return amount, nil
}

// DetectStock reads the stock state out of page text: 0 for explicit
// out-of-stock phrases, a unit count when one is stated, and
// models.StockUnknown otherwise.
func DetectStock(text string) int {
	lower := strings.ToLower(text)
	if outOfStock.MatchString(lower) {
		return 0
	}
	for _, re := range stockCounts {
		match := re.FindStringSubmatch(lower)
		if match == nil {
			continue
		}
		units, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		return units
	}
	return models.StockUnknown
}
