package scraper

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/tire-quoter/config"
)

const (
	phaseSearch  = "search"
	phaseProduct = "product"
)

// Fetcher retrieves catalog pages with a browser-like identity. Search and
// product pages use separate collectors so each keeps its own timeout.
type Fetcher struct {
	search  *colly.Collector
	product *colly.Collector
	metrics *Metrics
}

// NewFetcher builds the synchronous collectors for the catalog host.
func NewFetcher(cfg config.CatalogConfig, metrics *Metrics) (*Fetcher, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	domains := allowedDomains(parsed.Hostname())
	return &Fetcher{
		search:  newCollector(domains, cfg.UserAgent, cfg.SearchTimeout),
		product: newCollector(domains, cfg.UserAgent, cfg.ProductTimeout),
		metrics: metrics,
	}, nil
}

func newCollector(domains []string, userAgent string, timeout time.Duration) *colly.Collector {
	collector := colly.NewCollector(
		colly.AllowedDomains(domains...),
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(timeout)
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: timeout,
	})
	return collector
}

// allowedDomains accepts the catalog host with and without the www prefix.
func allowedDomains(host string) []string {
	bare := strings.TrimPrefix(host, "www.")
	if bare == host {
		return []string{host, "www." + host}
	}
	return []string{host, bare}
}

// WithTransport swaps the HTTP transport of both collectors.
func (f *Fetcher) WithTransport(rt http.RoundTripper) {
	f.search.WithTransport(rt)
	f.product.WithTransport(rt)
}

// FetchSearch retrieves a search results page.
func (f *Fetcher) FetchSearch(ctx context.Context, target string) ([]byte, error) {
	return f.fetch(ctx, f.search, phaseSearch, target)
}

// FetchProduct retrieves a product detail page.
func (f *Fetcher) FetchProduct(ctx context.Context, target string) ([]byte, error) {
	return f.fetch(ctx, f.product, phaseProduct, target)
}

// fetch visits target on a clone of base so concurrent callers never share
// callbacks or response state.
func (f *Fetcher) fetch(ctx context.Context, base *colly.Collector, phase, target string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Phase: phase, URL: target, Err: classifyError(err, 0)}
	}

	c := base.Clone()
	var (
		body     []byte
		status   int
		visitErr error
	)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "es-AR,es;q=0.9,en;q=0.5")
	})
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		visitErr = err
	})

	start := time.Now()
	err := c.Visit(target)
	f.metrics.ObserveRequest(phase, time.Since(start))
	if err == nil {
		err = visitErr
	}
	if err != nil {
		classified := classifyError(err, status)
		f.metrics.IncError(phase, errorTypeLabel(classified))
		return nil, &FetchError{Phase: phase, URL: target, Status: status, Err: classified}
	}
	return body, nil
}
