// Package models defines data structures shared by the quote pipeline.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockUnknown marks a product whose page gave no usable stock signal.
const StockUnknown = -1

// Product is one priced catalog entry. Derived fields are set once at
// extraction time and never changed afterwards.
type Product struct {
	Title    string          `json:"title"`
	URL      string          `json:"url"`
	RawPrice decimal.Decimal `json:"raw_price"`
	Cost     decimal.Decimal `json:"cost"`
	Sale     decimal.Decimal `json:"sale"`
	VIP      bool            `json:"vip"`
	Stock    int             `json:"stock"`
}

// Profit is the margin earned on the product.
func (p Product) Profit() decimal.Decimal {
	return p.Sale.Sub(p.Cost)
}

// StockKnown reports whether the page exposed an explicit stock count.
func (p Product) StockKnown() bool {
	return p.Stock >= 0
}

// OutOfStock is true only when stock is explicitly known to be zero.
func (p Product) OutOfStock() bool {
	return p.Stock == 0
}

// CandidateLink is a product link found on a search results page.
type CandidateLink struct {
	URL  string
	Text string
}

// SearchResult holds the outcome of one catalog search.
type SearchResult struct {
	Query      string
	Products   []Product
	StartTime  time.Time
	EndTime    time.Time
	Candidates int
	Fetched    int
	Misses     int
	Failures   int
	CacheHits  int
}
