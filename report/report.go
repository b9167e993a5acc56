// Package report renders priced products into the internal and customer
// quote messages.
package report

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/shopspring/decimal"

	"github.com/aluiziolira/tire-quoter/config"
	"github.com/aluiziolira/tire-quoter/models"
)

// NoStockMessage replaces the customer report when every product is out of stock.
const NoStockMessage = "😔 Por el momento no tenemos stock disponible para esa medida."

const (
	vipIcon     = "⭐"
	generalIcon = "🔹"
	ellipsis    = "…"
)

// Options configures a Formatter.
type Options struct {
	Currency          CurrencyFormat
	DetectStock       bool
	LowStockThreshold int
	MaxTitleWidth     int // 0 keeps titles whole
	MarginPercent     decimal.Decimal
}

// OptionsFromConfig resolves the report section of the config.
func OptionsFromConfig(cfg config.ReportConfig, marginPercent decimal.Decimal) (Options, error) {
	currency, err := CurrencyFormatByName(cfg.CurrencyFormat)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Currency:          currency,
		DetectStock:       cfg.DetectStock,
		LowStockThreshold: cfg.LowStockThreshold,
		MaxTitleWidth:     cfg.MaxTitleWidth,
		MarginPercent:     marginPercent,
	}, nil
}

// Formatter is a pure function of its options and input; it holds no state
// between calls.
type Formatter struct {
	opts Options
}

// NewFormatter creates a formatter.
func NewFormatter(opts Options) *Formatter {
	return &Formatter{opts: opts}
}

// Format renders the internal report (cost, profit, sale, stock) and the
// customer report (title and sale only, out-of-stock items omitted).
// Products are rendered in the order given.
func (f *Formatter) Format(query string, products []models.Product) (internal, customer string) {
	return f.Internal(query, products), f.Customer(query, products)
}

// Internal renders the staff view of a quote.
func (f *Formatter) Internal(query string, products []models.Product) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 *MENÚ DE OPCIONES:* %s\n\n", EscapeMarkdown(query))

	for i, p := range products {
		icon := generalIcon
		if p.VIP {
			icon = vipIcon
		}
		fmt.Fprintf(&b, "%d. %s %s\n", i+1, icon, f.title(p.Title))
		fmt.Fprintf(&b, "   Costo: %s | Ganancia: %s | *Venta: %s*\n",
			f.opts.Currency.Format(p.Cost),
			f.opts.Currency.Format(p.Profit()),
			f.opts.Currency.Format(p.Sale),
		)
		if f.opts.DetectStock {
			fmt.Fprintf(&b, "   %s\n", f.stockLine(p))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "💡 *Precios con +%s%% ganancia.*", f.opts.MarginPercent.String())
	return b.String()
}

// Customer renders the client view of a quote, or NoStockMessage when no
// product is known to be available.
func (f *Formatter) Customer(query string, products []models.Product) string {
	var b strings.Builder
	n := 0
	for _, p := range products {
		if p.OutOfStock() {
			continue
		}
		n++
		if n == 1 {
			fmt.Fprintf(&b, "🛞 *Opciones para* %s\n\n", EscapeMarkdown(query))
		}
		fmt.Fprintf(&b, "%d. %s: *%s*\n", n, f.title(p.Title), f.opts.Currency.Format(p.Sale))
	}
	if n == 0 {
		return NoStockMessage
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (f *Formatter) stockLine(p models.Product) string {
	switch {
	case !p.StockKnown():
		return "❓ Stock sin confirmar, verificar a mano"
	case p.OutOfStock():
		return "⛔ SIN STOCK (oculto al cliente)"
	case p.Stock < f.opts.LowStockThreshold:
		return fmt.Sprintf("⚠️ Stock crítico: %d u.", p.Stock)
	default:
		return fmt.Sprintf("📦 Stock: %d u.", p.Stock)
	}
}

func (f *Formatter) title(title string) string {
	if f.opts.MaxTitleWidth > 0 {
		title = runewidth.Truncate(title, f.opts.MaxTitleWidth, ellipsis)
	}
	return EscapeMarkdown(title)
}

var markdownEscaper = strings.NewReplacer(
	`_`, `\_`,
	`*`, `\*`,
	"`", "\\`",
	`[`, `\[`,
)

// EscapeMarkdown escapes the characters Telegram's legacy Markdown treats
// as entity markers. Legacy Markdown has no escapes inside an entity, so
// escaped text must never be wrapped in one.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
