package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyFormat describes how an amount is rendered.
type CurrencyFormat struct {
	Name      string
	Symbol    string
	Thousands string
	Decimal   string
	Places    int32
}

var (
	// CurrencyAR is the Argentine convention: $1.234,56.
	CurrencyAR = CurrencyFormat{Name: "ar", Symbol: "$", Thousands: ".", Decimal: ",", Places: 2}
	// CurrencyLegacy is the whole-peso convention with comma grouping: $1,235.
	CurrencyLegacy = CurrencyFormat{Name: "legacy", Symbol: "$", Thousands: ",", Decimal: ".", Places: 0}
)

// CurrencyFormatByName returns the preset registered under name.
func CurrencyFormatByName(name string) (CurrencyFormat, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", CurrencyAR.Name:
		return CurrencyAR, nil
	case CurrencyLegacy.Name:
		return CurrencyLegacy, nil
	default:
		return CurrencyFormat{}, fmt.Errorf("unknown currency format %q", name)
	}
}

// Format rounds amount half away from zero to the configured places and
// renders it with grouping.
func (f CurrencyFormat) Format(amount decimal.Decimal) string {
	fixed := amount.Round(f.Places).StringFixed(f.Places)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}

	whole, frac, _ := strings.Cut(fixed, ".")
	var b strings.Builder
	b.WriteString(sign)
	b.WriteString(f.Symbol)
	b.WriteString(group(whole, f.Thousands))
	if f.Places > 0 {
		b.WriteString(f.Decimal)
		b.WriteString(frac)
	}
	return b.String()
}

func group(digits, sep string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
