package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/shopspring/decimal"

	"github.com/aluiziolira/tire-quoter/config"
	"github.com/aluiziolira/tire-quoter/models"
	"github.com/aluiziolira/tire-quoter/parser"
	"github.com/aluiziolira/tire-quoter/pricing"
)

const testBaseURL = "http://example.test"

var searchRoute = regexp.MustCompile(`/search/`)

func newTestScraper(t *testing.T, mutate func(*config.Config)) (*Scraper, *httpmock.MockTransport) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Catalog.BaseURL = testBaseURL
	if mutate != nil {
		mutate(cfg)
	}

	s, err := NewScraper(cfg, pricing.NewEngine(cfg.Pricing), NewMetrics())
	if err != nil {
		t.Fatalf("new scraper: %v", err)
	}
	transport := httpmock.NewMockTransport()
	s.fetcher.WithTransport(transport)
	return s, transport
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   string
	}{
		{name: "nil", err: nil, statusCode: 0, expected: "unknown"},
		{name: "context timeout", err: context.DeadlineExceeded, statusCode: 0, expected: "timeout"},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, statusCode: 0, expected: "timeout"},
		{name: "connection", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, statusCode: 0, expected: "connection"},
		{name: "forbidden", err: nil, statusCode: http.StatusForbidden, expected: "forbidden"},
		{name: "not found", err: nil, statusCode: http.StatusNotFound, expected: "not_found"},
		{name: "rate limited", err: nil, statusCode: http.StatusTooManyRequests, expected: "rate_limited"},
		{name: "server error", err: errors.New("Internal Server Error"), statusCode: http.StatusInternalServerError, expected: "http_status"},
		{name: "other", err: errors.New("some other error"), statusCode: 0, expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorTypeLabel(classifyError(tt.err, tt.statusCode)); got != tt.expected {
				t.Fatalf("classifyError(%v, %d) = %q, want %q", tt.err, tt.statusCode, got, tt.expected)
			}
		})
	}
}

func TestMatchTokens(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{query: "175 65 14", want: []string{"175", "65", "14"}},
		{query: "  205   55  r16 ", want: []string{"205", "55"}},
		{query: "175/65/14", want: nil},
		{query: "cubierta fate", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := MatchTokens(tt.query)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Fatalf("MatchTokens(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestCandidatesFiltersAndDedupes(t *testing.T) {
	s, _ := newTestScraper(t, nil)
	page := &parser.Page{Links: []parser.Link{
		{Href: "/productos/fate-175-65-r14", Text: "Fate 175/65 R14"},
		{Href: "/productos/fate-175-65-r14#reviews", Text: "Fate 175/65 R14 opiniones"},
		{Href: "http://example.test/productos/fate-175-65-r14", Text: "Fate 175/65 R14"},
		{Href: "/neumaticos/pirelli-175-65-r14", Text: "PIRELLI 175/65 R14"},
		{Href: "/productos/fate-185-65-r15", Text: "Fate 185/65 R15"},
		{Href: "/blog/como-elegir-175-65-14", Text: "Cómo elegir 175 65 14"},
		{Href: "mailto:ventas@example.test", Text: "175 65 14"},
	}}

	got := s.Candidates(page, "175 65 14")
	want := []string{
		"http://example.test/productos/fate-175-65-r14",
		"http://example.test/neumaticos/pirelli-175-65-r14",
	}
	if len(got) != len(want) {
		t.Fatalf("candidates = %+v, want %v", got, want)
	}
	for i, c := range got {
		if c.URL != want[i] {
			t.Fatalf("candidate[%d] = %q, want %q", i, c.URL, want[i])
		}
	}
	if got[1].Text != "pirelli 175/65 r14" {
		t.Fatalf("candidate text = %q, want lowercased link text", got[1].Text)
	}
}

func TestCandidatesWithoutNumericTokensKeepsProductLinks(t *testing.T) {
	s, _ := newTestScraper(t, nil)
	page := &parser.Page{Links: []parser.Link{
		{Href: "/productos/a", Text: "Fate"},
		{Href: "/contacto", Text: "Contacto"},
	}}

	got := s.Candidates(page, "fate")
	if len(got) != 1 || got[0].URL != testBaseURL+"/productos/a" {
		t.Fatalf("candidates = %+v, want only the product link", got)
	}
}

func TestScraperSearchCapsProducts(t *testing.T) {
	s, transport := newTestScraper(t, nil)

	transport.RegisterRegexpResponder("GET", searchRoute, htmlResponder(buildSearchPage(10)))
	for i := 1; i <= 10; i++ {
		transport.RegisterResponder("GET", productURL(i), htmlResponder(buildProductPage(i, "$100.000,00")))
	}

	result, err := s.Search(context.Background(), "175 65 14")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if got := len(result.Products); got != 5 {
		t.Fatalf("products = %d, want 5", got)
	}
	if result.Candidates != 10 {
		t.Fatalf("candidates = %d, want 10", result.Candidates)
	}

	calls := transport.GetCallCountInfo()
	for i := 1; i <= 10; i++ {
		key := "GET " + productURL(i)
		want := 0
		if i <= 5 {
			want = 1
		}
		if calls[key] != want {
			t.Fatalf("calls[%s] = %d, want %d", key, calls[key], want)
		}
	}

	first := result.Products[0]
	if first.URL != productURL(1) || first.Title != "Neumático Fate 175/65 R14 #1" {
		t.Fatalf("first product = %+v", first)
	}
	if !first.RawPrice.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("raw price = %s, want 100000", first.RawPrice)
	}
	if !first.VIP || !first.Cost.Equal(decimal.NewFromInt(95000)) || !first.Sale.Equal(decimal.NewFromInt(114000)) {
		t.Fatalf("pricing = vip:%v cost:%s sale:%s", first.VIP, first.Cost, first.Sale)
	}
}

func TestScraperSearchSkipsMissesAndFailures(t *testing.T) {
	s, transport := newTestScraper(t, nil)

	transport.RegisterRegexpResponder("GET", searchRoute, htmlResponder(buildSearchPage(4)))
	transport.RegisterResponder("GET", productURL(1), htmlResponder(buildProductPage(1, "")))
	transport.RegisterResponder("GET", productURL(2), httpmock.NewStringResponder(http.StatusNotFound, ""))
	transport.RegisterResponder("GET", productURL(3), httpmock.NewErrorResponder(&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}))
	transport.RegisterResponder("GET", productURL(4), htmlResponder(buildProductPage(4, "$90.500,50")))

	result, err := s.Search(context.Background(), "175 65 14")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(result.Products) != 1 || result.Products[0].URL != productURL(4) {
		t.Fatalf("products = %+v, want only product 4", result.Products)
	}
	if result.Misses != 1 || result.Failures != 2 || result.Fetched != 4 {
		t.Fatalf("misses=%d failures=%d fetched=%d, want 1/2/4", result.Misses, result.Failures, result.Fetched)
	}
}

func TestScraperSearchPageFailure(t *testing.T) {
	tests := []struct {
		status   int
		sentinel error
	}{
		{status: http.StatusForbidden, sentinel: ErrForbidden},
		{status: http.StatusTooManyRequests, sentinel: ErrRateLimited},
		{status: http.StatusBadGateway, sentinel: ErrHTTPStatus},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			s, transport := newTestScraper(t, nil)
			transport.RegisterRegexpResponder("GET", searchRoute, httpmock.NewStringResponder(tt.status, ""))

			result, err := s.Search(context.Background(), "175 65 14")
			if err == nil {
				t.Fatalf("expected error, got result %+v", result)
			}
			var fetchErr *FetchError
			if !errors.As(err, &fetchErr) || fetchErr.Phase != phaseSearch {
				t.Fatalf("error = %v, want search *FetchError", err)
			}
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("error = %v, want %v", err, tt.sentinel)
			}
		})
	}
}

func TestScraperSearchSendsTrimmedQuery(t *testing.T) {
	s, transport := newTestScraper(t, nil)

	var gotQuery string
	transport.RegisterRegexpResponder("GET", searchRoute, func(req *http.Request) (*http.Response, error) {
		gotQuery = req.URL.Query().Get("q")
		resp := httpmock.NewStringResponse(http.StatusOK, "<html><body></body></html>")
		resp.Header.Set("Content-Type", "text/html")
		return resp, nil
	})

	result, err := s.Search(context.Background(), " 175 65 14 ")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if gotQuery != "175 65 14" {
		t.Fatalf("q = %q, want trimmed size", gotQuery)
	}
	if len(result.Products) != 0 {
		t.Fatalf("products = %d, want 0", len(result.Products))
	}
}

func TestScraperSearchCanceledContext(t *testing.T) {
	s, transport := newTestScraper(t, nil)
	transport.RegisterRegexpResponder("GET", searchRoute, htmlResponder(buildSearchPage(1)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Search(ctx, "175 65 14"); !errors.Is(err, ErrTimeout) && !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want canceled", err)
	}
	if got := transport.GetTotalCallCount(); got != 0 {
		t.Fatalf("calls = %d, want none after cancel", got)
	}
}

func TestScraperCachesProductOutcomes(t *testing.T) {
	s, transport := newTestScraper(t, func(cfg *config.Config) {
		cfg.Catalog.CacheSize = 16
	})

	transport.RegisterRegexpResponder("GET", searchRoute, htmlResponder(buildSearchPage(3)))
	transport.RegisterResponder("GET", productURL(1), htmlResponder(buildProductPage(1, "$100.000,00")))
	transport.RegisterResponder("GET", productURL(2), htmlResponder(buildProductPage(2, "")))
	transport.RegisterResponder("GET", productURL(3), httpmock.NewStringResponder(http.StatusInternalServerError, ""))

	for round := 0; round < 2; round++ {
		if _, err := s.Search(context.Background(), "175 65 14"); err != nil {
			t.Fatalf("search round %d: %v", round, err)
		}
	}

	calls := transport.GetCallCountInfo()
	if calls["GET "+productURL(1)] != 1 || calls["GET "+productURL(2)] != 1 {
		t.Fatalf("found and miss pages should be fetched once, calls=%v", calls)
	}
	if calls["GET "+productURL(3)] != 2 {
		t.Fatalf("failed page should be refetched, calls=%d", calls["GET "+productURL(3)])
	}
	if got := s.cache.len(); got != 2 {
		t.Fatalf("cache len = %d, want 2", got)
	}
}

func TestScraperStockDetectionToggle(t *testing.T) {
	body := `<html><body><h1>Fate 175/65 R14</h1><p>$100.000,00 con transferencia</p><p>Stock: 3</p></body></html>`

	for _, detect := range []bool{true, false} {
		t.Run(fmt.Sprintf("detect_%v", detect), func(t *testing.T) {
			s, transport := newTestScraper(t, func(cfg *config.Config) {
				cfg.Report.DetectStock = detect
			})
			transport.RegisterResponder("GET", productURL(1), htmlResponder(body))

			res := s.ExtractProduct(context.Background(), productURL(1))
			if res.Outcome != OutcomeFound {
				t.Fatalf("outcome = %v, want found", res.Outcome)
			}
			want := models.StockUnknown
			if detect {
				want = 3
			}
			if res.Product.Stock != want {
				t.Fatalf("stock = %d, want %d", res.Product.Stock, want)
			}
		})
	}
}

func htmlResponder(body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(200, body)
	resp.Header.Set("Content-Type", "text/html")
	return httpmock.ResponderFromResponse(resp)
}

func productURL(id int) string {
	return fmt.Sprintf("%s/productos/fate-175-65-r14-%d", testBaseURL, id)
}

func buildSearchPage(count int) string {
	var builder strings.Builder
	builder.WriteString("<html><body><nav><a href=\"/\">Inicio</a><a href=\"/contacto\">Contacto</a></nav><section>")
	for i := 1; i <= count; i++ {
		fmt.Fprintf(&builder, "<div class=\"item\"><a href=\"/productos/fate-175-65-r14-%d\">Neumático Fate 175/65 R14 #%d</a>", i, i)
		fmt.Fprintf(&builder, "<a href=\"/productos/fate-175-65-r14-%d#comprar\">Comprar</a></div>", i)
	}
	builder.WriteString("</section></body></html>")
	return builder.String()
}

func buildProductPage(id int, transfer string) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "<html><body><h1>Neumático Fate 175/65 R14 #%d</h1>", id)
	builder.WriteString("<p class=\"list\">$150.000,00 precio de lista</p>")
	if transfer != "" {
		fmt.Fprintf(&builder, "<p class=\"transfer\">%s con transferencia</p>", transfer)
	}
	builder.WriteString("</body></html>")
	return builder.String()
}

func TestScraperDefaultConfigRefetchesPrices(t *testing.T) {
	s, transport := newTestScraper(t, nil)

	transport.RegisterRegexpResponder("GET", searchRoute, htmlResponder(buildSearchPage(1)))
	transport.RegisterResponder("GET", productURL(1), htmlResponder(buildProductPage(1, "$100.000,00")))

	first, err := s.Search(context.Background(), "175 65 14")
	if err != nil {
		t.Fatalf("first search: %v", err)
	}

	transport.RegisterResponder("GET", productURL(1), htmlResponder(buildProductPage(1, "$200.000,00")))
	second, err := s.Search(context.Background(), "175 65 14")
	if err != nil {
		t.Fatalf("second search: %v", err)
	}

	if len(first.Products) != 1 || len(second.Products) != 1 {
		t.Fatalf("products = %d/%d, want 1/1", len(first.Products), len(second.Products))
	}
	if !first.Products[0].RawPrice.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("first raw = %s, want 100000", first.Products[0].RawPrice)
	}
	if !second.Products[0].RawPrice.Equal(decimal.NewFromInt(200000)) {
		t.Fatalf("second raw = %s, want 200000 from a fresh fetch", second.Products[0].RawPrice)
	}
	if second.CacheHits != 0 || second.Fetched != 1 {
		t.Fatalf("cache_hits=%d fetched=%d, want 0/1", second.CacheHits, second.Fetched)
	}
	if got := transport.GetCallCountInfo()["GET "+productURL(1)]; got != 2 {
		t.Fatalf("product calls = %d, want 2", got)
	}
}

func TestScraperSearchPreservesQueryCharacters(t *testing.T) {
	s, transport := newTestScraper(t, nil)

	var got []string
	transport.RegisterRegexpResponder("GET", searchRoute, func(req *http.Request) (*http.Response, error) {
		got = req.URL.Query()["q"]
		resp := httpmock.NewStringResponse(http.StatusOK, "<html><body></body></html>")
		resp.Header.Set("Content-Type", "text/html")
		return resp, nil
	})

	if _, err := s.Search(context.Background(), "175+65 14&x=1"); err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0] != "175+65 14&x=1" {
		t.Fatalf("q = %q, want the query verbatim", got)
	}
}

func TestEscapeQuery(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{query: "175 65 14", want: "175%2065%2014"},
		{query: "175+65&x=1", want: "175%2B65%26x%3D1"},
		{query: "175/65R14", want: "175%2F65R14"},
	}
	for _, tt := range tests {
		if got := escapeQuery(tt.query); got != tt.want {
			t.Fatalf("escapeQuery(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}

func TestCandidatesSkipsOffHostLinks(t *testing.T) {
	s, _ := newTestScraper(t, nil)
	page := &parser.Page{Links: []parser.Link{
		{Href: "http://other.test/productos/fate-175-65-r14", Text: "Fate 175/65 R14"},
		{Href: "https://cdn.example.net/neumaticos/fate-175-65-r14", Text: "Fate 175/65 R14"},
		{Href: "http://www.example.test/productos/pirelli-175-65-r14", Text: "Pirelli 175/65 R14"},
	}}

	got := s.Candidates(page, "175 65 14")
	if len(got) != 1 || got[0].URL != "http://www.example.test/productos/pirelli-175-65-r14" {
		t.Fatalf("candidates = %+v, want only the catalog host link", got)
	}
}

func TestScraperSearchOffHostLinksAreNotFailures(t *testing.T) {
	s, transport := newTestScraper(t, nil)

	page := `<html><body><a href="http://other.test/productos/fate-175-65-r14">Fate 175/65 R14</a></body></html>`
	transport.RegisterRegexpResponder("GET", searchRoute, htmlResponder(page))

	result, err := s.Search(context.Background(), "175 65 14")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if result.Candidates != 0 || result.Failures != 0 {
		t.Fatalf("candidates=%d failures=%d, want 0/0", result.Candidates, result.Failures)
	}
}
