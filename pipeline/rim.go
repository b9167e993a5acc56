package pipeline

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/aluiziolira/tire-quoter/models"
)

var (
	// A one or two digit number closing the query, optionally marked with R.
	queryRim = regexp.MustCompile(`(?i)(?:^|\D)r?(\d{1,2})$`)
	titleRim = regexp.MustCompile(`(?i)r(\d{2})`)
)

// ParseRimSize reads the rim size from the end of a size query. A query
// ending in anything else, e.g. a letter suffix, is unparseable.
func ParseRimSize(query string) (int, bool) {
	match := queryRim.FindStringSubmatch(strings.TrimSpace(query))
	if match == nil {
		return 0, false
	}
	size, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return size, true
}

// TitleRimSize returns the first R-marked two digit rim size in a title.
func TitleRimSize(title string) (int, bool) {
	match := titleRim.FindStringSubmatch(title)
	if match == nil {
		return 0, false
	}
	size, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return size, true
}

// FilterByRimSize drops products whose title names a rim size different
// from the one in query. Titles without a rim marker are kept, and so is
// everything when the query has no parseable rim size.
func FilterByRimSize(query string, products []models.Product) []models.Product {
	target, ok := ParseRimSize(query)
	if !ok {
		return products
	}

	kept := make([]models.Product, 0, len(products))
	for _, p := range products {
		if size, found := TitleRimSize(p.Title); found && size != target {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}
