package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/aluiziolira/tire-quoter/config"
	"github.com/aluiziolira/tire-quoter/models"
	"github.com/aluiziolira/tire-quoter/parser"
	"github.com/aluiziolira/tire-quoter/pricing"
)

// Outcome classifies what happened to one product candidate.
type Outcome int

const (
	// OutcomeFound means the page had a transfer price.
	OutcomeFound Outcome = iota
	// OutcomeMiss means the page was fetched but carried no transfer price.
	OutcomeMiss
	// OutcomeFetchFailed means the page could not be fetched or parsed.
	OutcomeFetchFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeMiss:
		return "miss"
	case OutcomeFetchFailed:
		return "fetch_failed"
	default:
		return "unknown"
	}
}

// ProductResult is the result of visiting one product page.
type ProductResult struct {
	Outcome Outcome
	Product models.Product
	Err     error
	Cached  bool
}

// Scraper discovers product links for a size query and prices each one.
// It holds only read-only state, so one instance serves concurrent searches.
type Scraper struct {
	cfg         config.CatalogConfig
	detectStock bool
	base        *url.URL
	hosts       []string
	fetcher     *Fetcher
	engine      *pricing.Engine
	cache       *resultCache
	Metrics     *Metrics
}

// NewScraper builds a scraper for the configured catalog.
func NewScraper(cfg *config.Config, engine *pricing.Engine, metrics *Metrics) (*Scraper, error) {
	base, err := url.Parse(cfg.Catalog.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	fetcher, err := NewFetcher(cfg.Catalog, metrics)
	if err != nil {
		return nil, err
	}

	return &Scraper{
		cfg:         cfg.Catalog,
		detectStock: cfg.Report.DetectStock,
		base:        base,
		hosts:       allowedDomains(base.Hostname()),
		fetcher:     fetcher,
		engine:      engine,
		cache:       newResultCache(cfg.Catalog.CacheSize, cfg.Catalog.CacheTTL),
		Metrics:     metrics,
	}, nil
}

// Search fetches the catalog search page for query and prices the first
// qualifying candidates in document order, up to the configured cap.
// Only a failure on the search page itself is returned as an error; every
// per-product fault is absorbed. The returned products are unsorted.
func (s *Scraper) Search(ctx context.Context, query string) (*models.SearchResult, error) {
	result := &models.SearchResult{Query: query, StartTime: time.Now()}

	searchURL := s.cfg.SearchURL(escapeQuery(strings.TrimSpace(query)))
	body, err := s.fetcher.FetchSearch(ctx, searchURL)
	if err != nil {
		return nil, err
	}
	page, err := parser.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse search page: %w", err)
	}

	candidates := s.Candidates(page, query)
	result.Candidates = len(candidates)
	slog.Debug("search candidates",
		slog.String("query", query),
		slog.Int("links", len(page.Links)),
		slog.Int("candidates", len(candidates)),
	)

	for _, candidate := range candidates {
		if len(result.Products) >= s.cfg.MaxResults {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res := s.ExtractProduct(ctx, candidate.URL)
		if res.Cached {
			result.CacheHits++
		} else {
			result.Fetched++
		}

		switch res.Outcome {
		case OutcomeFound:
			result.Products = append(result.Products, res.Product)
		case OutcomeMiss:
			result.Misses++
		case OutcomeFetchFailed:
			result.Failures++
			slog.Warn("product page skipped",
				slog.String("url", candidate.URL),
				slog.Any("error", res.Err),
			)
		}
	}

	result.EndTime = time.Now()
	return result, nil
}

// ExtractProduct fetches one product page and prices it.
func (s *Scraper) ExtractProduct(ctx context.Context, productURL string) ProductResult {
	if cached, ok := s.cache.get(productURL); ok {
		s.Metrics.IncCacheHits()
		cached.Cached = true
		return cached
	}

	res := s.extract(ctx, productURL)
	switch res.Outcome {
	case OutcomeFound:
		s.Metrics.IncProducts()
	case OutcomeMiss:
		s.Metrics.IncMisses()
		slog.Debug("no transfer price on product page", slog.String("url", productURL))
	}
	s.cache.add(productURL, res)
	return res
}

func (s *Scraper) extract(ctx context.Context, productURL string) ProductResult {
	body, err := s.fetcher.FetchProduct(ctx, productURL)
	if err != nil {
		return ProductResult{Outcome: OutcomeFetchFailed, Err: err}
	}
	page, err := parser.Parse(body)
	if err != nil {
		return ProductResult{Outcome: OutcomeFetchFailed, Err: err}
	}

	extraction, found := parser.ExtractProduct(page, s.detectStock)
	if !found {
		return ProductResult{Outcome: OutcomeMiss}
	}

	quote := s.engine.Price(extraction.Title, extraction.RawPrice)
	return ProductResult{
		Outcome: OutcomeFound,
		Product: models.Product{
			Title:    extraction.Title,
			URL:      productURL,
			RawPrice: extraction.RawPrice,
			Cost:     quote.Cost,
			Sale:     quote.Sale,
			VIP:      quote.VIP,
			Stock:    extraction.Stock,
		},
	}
}

// Candidates returns the product links on a search page that match every
// numeric token of query, resolved to absolute URLs and deduplicated, in
// document order.
func (s *Scraper) Candidates(page *parser.Page, query string) []models.CandidateLink {
	tokens := MatchTokens(query)
	seen := make(map[string]struct{})
	var out []models.CandidateLink

	for _, link := range page.Links {
		ref, err := url.Parse(link.Href)
		if err != nil {
			continue
		}
		resolved := s.base.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			continue
		}
		resolved.Fragment = ""
		// The fetcher only visits the catalog host, so off-host links would always fail.
		if !s.isCatalogHost(resolved.Hostname()) {
			continue
		}

		if !s.isProductPath(resolved.Path) {
			continue
		}
		text := strings.ToLower(link.Text)
		if !containsAll(text, tokens) {
			continue
		}

		abs := resolved.String()
		if _, dup := seen[abs]; dup {
			continue
		}
		seen[abs] = struct{}{}
		out = append(out, models.CandidateLink{URL: abs, Text: text})
	}
	return out
}

func (s *Scraper) isCatalogHost(host string) bool {
	for _, allowed := range s.hosts {
		if strings.EqualFold(host, allowed) {
			return true
		}
	}
	return false
}

func (s *Scraper) isProductPath(path string) bool {
	for _, segment := range s.cfg.ProductPaths {
		if strings.Contains(path, segment) {
			return true
		}
	}
	return false
}

// escapeQuery encodes a query-string value, writing spaces as %20.
func escapeQuery(query string) string {
	return strings.ReplaceAll(url.QueryEscape(query), "+", "%20")
}

// MatchTokens returns the whitespace-separated tokens of query that are made
// only of digits.
func MatchTokens(query string) []string {
	var tokens []string
	for _, field := range strings.Fields(query) {
		if isDigits(field) {
			tokens = append(tokens, field)
		}
	}
	return tokens
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func containsAll(text string, tokens []string) bool {
	for _, token := range tokens {
		if !strings.Contains(text, token) {
			return false
		}
	}
	return true
}
