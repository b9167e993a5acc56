// Package pricing applies the shop's discount and margin rules to listed prices.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aluiziolira/tire-quoter/config"
)

var one = decimal.NewFromInt(1)

// Quote is the priced view of one listed price.
type Quote struct {
	Cost decimal.Decimal
	Sale decimal.Decimal
	VIP  bool
}

// Engine is immutable once built and safe for concurrent use.
type Engine struct {
	vipBrands       []string
	vipDiscount     decimal.Decimal
	generalDiscount decimal.Decimal
	margin          decimal.Decimal
}

// NewEngine builds an engine from the pricing section of the config.
func NewEngine(cfg config.PricingConfig) *Engine {
	brands := make([]string, 0, len(cfg.VIPBrands))
	for _, brand := range cfg.VIPBrands {
		if brand = strings.ToLower(strings.TrimSpace(brand)); brand != "" {
			brands = append(brands, brand)
		}
	}
	return &Engine{
		vipBrands:       brands,
		vipDiscount:     decimal.NewFromFloat(cfg.VIPDiscount),
		generalDiscount: decimal.NewFromFloat(cfg.GeneralDiscount),
		margin:          decimal.NewFromFloat(cfg.ProfitMargin),
	}
}

// IsVIP reports whether any VIP brand appears in the title, ignoring case.
func (e *Engine) IsVIP(title string) bool {
	lower := strings.ToLower(title)
	for _, brand := range e.vipBrands {
		if strings.Contains(lower, brand) {
			return true
		}
	}
	return false
}

// Price returns cost = raw × (1 − discount) and sale = cost × margin, where
// the discount depends on the VIP flag.
func (e *Engine) Price(title string, raw decimal.Decimal) Quote {
	vip := e.IsVIP(title)
	discount := e.generalDiscount
	if vip {
		discount = e.vipDiscount
	}
	cost := raw.Mul(one.Sub(discount))
	return Quote{
		Cost: cost,
		Sale: cost.Mul(e.margin),
		VIP:  vip,
	}
}

// MarginPercent is the markup expressed as a percentage, e.g. 20 for 1.20.
func (e *Engine) MarginPercent() decimal.Decimal {
	return e.margin.Sub(one).Mul(decimal.NewFromInt(100))
}
