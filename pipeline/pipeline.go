// Package pipeline orchestrates one quote: catalog search, rim filtering,
// ordering by sale price and report rendering.
package pipeline

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aluiziolira/tire-quoter/models"
	"github.com/aluiziolira/tire-quoter/report"
	"github.com/aluiziolira/tire-quoter/scraper"
)

// Quote outcome labels used for metrics and logs.
const (
	OutcomeOK           = "ok"
	OutcomeNoStock      = "no_stock"
	OutcomeNoResults    = "no_results"
	OutcomeSearchFailed = "search_failed"
)

// Searcher finds priced products for a size query.
type Searcher interface {
	Search(ctx context.Context, query string) (*models.SearchResult, error)
}

// Quote is the finished answer to one size query.
type Quote struct {
	ID       string
	Query    string
	Products []models.Product // sorted by sale price, ascending
	Internal string
	Customer string
	NoStock  bool
	Duration time.Duration
}

// Quoter runs quotes. Each call owns its working set, so one Quoter serves
// any number of concurrent chats.
type Quoter struct {
	searcher  Searcher
	formatter *report.Formatter
	metrics   *scraper.Metrics
}

// NewQuoter wires a quoter. metrics may be nil.
func NewQuoter(searcher Searcher, formatter *report.Formatter, metrics *scraper.Metrics) *Quoter {
	return &Quoter{
		searcher:  searcher,
		formatter: formatter,
		metrics:   metrics,
	}
}

// Quote searches the catalog for query and renders both reports. It returns
// ErrNoResults when nothing qualifies and a *SearchError when the catalog
// could not be searched. NoStock is a successful quote whose customer report
// is report.NoStockMessage.
func (q *Quoter) Quote(ctx context.Context, query string) (*Quote, error) {
	start := time.Now()
	query = strings.TrimSpace(query)
	id := uuid.NewString()
	logger := slog.With(slog.String("quote_id", id), slog.String("query", query))

	result, err := q.searcher.Search(ctx, query)
	if err != nil {
		q.record(logger, OutcomeSearchFailed, start)
		logger.Warn("catalog search failed", slog.Any("error", err))
		return nil, &SearchError{Query: query, Err: err}
	}

	products := FilterByRimSize(query, result.Products)
	if dropped := len(result.Products) - len(products); dropped > 0 {
		logger.Debug("rim size filter dropped products", slog.Int("dropped", dropped))
	}
	if len(products) == 0 {
		q.record(logger, OutcomeNoResults, start)
		return nil, ErrNoResults
	}

	SortBySale(products)
	internal, customer := q.formatter.Format(query, products)

	quote := &Quote{
		ID:       id,
		Query:    query,
		Products: products,
		Internal: internal,
		Customer: customer,
		NoStock:  customer == report.NoStockMessage,
	}

	outcome := OutcomeOK
	if quote.NoStock {
		outcome = OutcomeNoStock
	}
	quote.Duration = q.record(logger, outcome, start)
	logger.Info("quote ready",
		slog.Int("products", len(products)),
		slog.Int("candidates", result.Candidates),
		slog.Int("misses", result.Misses),
		slog.Int("failures", result.Failures),
		slog.Int("cache_hits", result.CacheHits),
	)
	return quote, nil
}

func (q *Quoter) record(logger *slog.Logger, outcome string, start time.Time) time.Duration {
	elapsed := time.Since(start)
	q.metrics.ObserveQuote(outcome, elapsed)
	logger.Debug("quote finished", slog.String("outcome", outcome), slog.Duration("elapsed", elapsed))
	return elapsed
}

// SortBySale orders products by ascending sale price, keeping discovery
// order for equal prices.
func SortBySale(products []models.Product) {
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].Sale.LessThan(products[j].Sale)
	})
}
