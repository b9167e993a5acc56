package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ErrMissingToken is returned by ValidateBot when no chat token is configured.
var ErrMissingToken = errors.New("telegram token is required (set TELEGRAM_TOKEN)")

// Config holds the quoter configuration. It is built once at startup and
// treated as read-only afterwards.
type Config struct {
	Catalog CatalogConfig `yaml:"catalog"`
	Pricing PricingConfig `yaml:"pricing"`
	Report  ReportConfig  `yaml:"report"`
	Bot     BotConfig     `yaml:"bot"`
	Server  ServerConfig  `yaml:"server"`

	LogLevel string `yaml:"log_level"`
	Verbose  bool   `yaml:"-"`
}

// CatalogConfig describes the scraped catalog site.
type CatalogConfig struct {
	BaseURL        string        `yaml:"base_url"`
	SearchPath     string        `yaml:"search_path"`
	ProductPaths   []string      `yaml:"product_paths"`
	UserAgent      string        `yaml:"user_agent"`
	SearchTimeout  time.Duration `yaml:"search_timeout"`
	ProductTimeout time.Duration `yaml:"product_timeout"`
	MaxResults     int           `yaml:"max_results"`
	CacheSize      int           `yaml:"cache_size"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
}

// PricingConfig holds the business rules applied to every listed price.
type PricingConfig struct {
	VIPBrands       []string `yaml:"vip_brands"`
	VIPDiscount     float64  `yaml:"vip_discount"`
	GeneralDiscount float64  `yaml:"general_discount"`
	ProfitMargin    float64  `yaml:"profit_margin"`
}

// ReportConfig controls how quotes are rendered.
type ReportConfig struct {
	CurrencyFormat    string `yaml:"currency_format"` // ar or legacy
	DetectStock       bool   `yaml:"detect_stock"`
	LowStockThreshold int    `yaml:"low_stock_threshold"`
	MaxTitleWidth     int    `yaml:"max_title_width"`
}

// BotConfig configures the chat front end.
type BotConfig struct {
	Token           string        `yaml:"-"`
	PollTimeout     time.Duration `yaml:"poll_timeout"`
	QuotesPerMinute float64       `yaml:"quotes_per_minute"`
	QuoteBurst      int           `yaml:"quote_burst"`
	TrackedChats    int           `yaml:"tracked_chats"`
	QuoteTimeout    time.Duration `yaml:"quote_timeout"`
}

// ServerConfig configures the liveness endpoint.
type ServerConfig struct {
	Addr    string `yaml:"addr"`
	Metrics bool   `yaml:"metrics"`
}

// DefaultConfig returns the production defaults for the catalog the shop quotes from.
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			BaseURL:        "https://www.gomeriacentral.com",
			SearchPath:     "/search/",
			ProductPaths:   []string{"/productos/", "/neumaticos/"},
			UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
			SearchTimeout:  10 * time.Second,
			ProductTimeout: 5 * time.Second,
			MaxResults:     5,
			CacheSize:      0, // opt-in; each quote fetches fresh prices by default
			CacheTTL:       10 * time.Minute,
		},
		Pricing: PricingConfig{
			VIPBrands:       []string{"dunlop", "fate", "corven"},
			VIPDiscount:     0.05,
			GeneralDiscount: 0.10,
			ProfitMargin:    1.20,
		},
		Report: ReportConfig{
			CurrencyFormat:    "ar",
			DetectStock:       true,
			LowStockThreshold: 4,
		},
		Bot: BotConfig{
			PollTimeout:     60 * time.Second,
			QuotesPerMinute: 6,
			QuoteBurst:      2,
			TrackedChats:    1024,
			QuoteTimeout:    90 * time.Second,
		},
		Server: ServerConfig{
			Addr:    ":10000",
			Metrics: true,
		},
		LogLevel: "info",
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	parsedURL, err := url.Parse(c.Catalog.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}
	if !strings.HasPrefix(c.Catalog.SearchPath, "/") {
		return fmt.Errorf("search path must start with /")
	}
	if len(c.Catalog.ProductPaths) == 0 {
		return fmt.Errorf("at least one product path is required")
	}
	if c.Catalog.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.Catalog.SearchTimeout <= 0 || c.Catalog.ProductTimeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Catalog.MaxResults <= 0 {
		return fmt.Errorf("max results must be positive")
	}
	if c.Catalog.CacheSize < 0 || c.Catalog.CacheTTL < 0 {
		return fmt.Errorf("cache size and ttl cannot be negative")
	}

	p := c.Pricing
	if p.VIPDiscount < 0 || p.VIPDiscount >= 1 {
		return fmt.Errorf("vip discount must be in [0, 1)")
	}
	if p.GeneralDiscount < 0 || p.GeneralDiscount >= 1 {
		return fmt.Errorf("general discount must be in [0, 1)")
	}
	if p.VIPDiscount >= p.GeneralDiscount {
		return fmt.Errorf("vip discount (%v) must be lower than general discount (%v)", p.VIPDiscount, p.GeneralDiscount)
	}
	if p.ProfitMargin <= 0 {
		return fmt.Errorf("profit margin must be positive")
	}

	switch c.Report.CurrencyFormat {
	case "ar", "legacy":
	default:
		return fmt.Errorf("currency format must be ar or legacy, got %q", c.Report.CurrencyFormat)
	}
	if c.Report.LowStockThreshold < 0 {
		return fmt.Errorf("low stock threshold cannot be negative")
	}
	if c.Report.MaxTitleWidth < 0 {
		return fmt.Errorf("max title width cannot be negative")
	}

	if c.Bot.QuotesPerMinute < 0 || c.Bot.QuoteBurst < 0 || c.Bot.TrackedChats < 0 {
		return fmt.Errorf("bot rate limit values cannot be negative")
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be one of: debug, info, warn, error")
	}

	return nil
}

// ValidateBot checks the settings only the chat front end needs.
func (c *Config) ValidateBot() error {
	if strings.TrimSpace(c.Bot.Token) == "" {
		return ErrMissingToken
	}
	if c.Bot.PollTimeout <= 0 {
		return fmt.Errorf("poll timeout must be positive")
	}
	return nil
}

// SearchURL returns the catalog search endpoint for a query already escaped
// as a query-string value.
func (c *CatalogConfig) SearchURL(escapedQuery string) string {
	return strings.TrimSuffix(c.BaseURL, "/") + c.SearchPath + "?q=" + escapedQuery
}
