package report

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/aluiziolira/tire-quoter/models"
)

// ProductWriter streams priced products in a machine-readable form.
type ProductWriter interface {
	Write(products []models.Product) error
	Flush() error
}

// NewProductWriter returns the writer for format ("csv" or "json").
func NewProductWriter(format string, w io.Writer) (ProductWriter, error) {
	switch format {
	case "csv":
		return NewCSVWriter(w)
	case "json", "jsonl":
		return NewJSONWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

var csvHeader = []string{"title", "url", "vip", "raw_price", "cost", "sale", "profit", "stock"}

// CSVWriter writes products as CSV rows.
type CSVWriter struct {
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter initialises a CSV writer and writes the header row.
func NewCSVWriter(w io.Writer) (*CSVWriter, error) {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	return &CSVWriter{writer: writer}, nil
}

// Write appends products to the CSV output. Money columns are plain
// decimals with two places so the file stays locale neutral.
func (cw *CSVWriter) Write(products []models.Product) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, p := range products {
		stock := ""
		if p.StockKnown() {
			stock = strconv.Itoa(p.Stock)
		}
		record := []string{
			p.Title,
			p.URL,
			strconv.FormatBool(p.VIP),
			p.RawPrice.StringFixed(2),
			p.Cost.StringFixed(2),
			p.Sale.StringFixed(2),
			p.Profit().StringFixed(2),
			stock,
		}
		if err := cw.writer.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	return nil
}

// Flush writes buffered rows to the underlying writer.
func (cw *CSVWriter) Flush() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return nil
}

// JSONWriter writes newline-delimited JSON records.
type JSONWriter struct {
	writer  *bufio.Writer
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewJSONWriter initialises the JSON writer.
func NewJSONWriter(w io.Writer) *JSONWriter {
	buffer := bufio.NewWriter(w)
	return &JSONWriter{
		writer:  buffer,
		encoder: json.NewEncoder(buffer),
	}
}

// Write appends products in JSONL format.
func (jw *JSONWriter) Write(products []models.Product) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	for _, p := range products {
		if err := jw.encoder.Encode(p); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
	}
	return nil
}

// Flush writes buffered records to the underlying writer.
func (jw *JSONWriter) Flush() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return nil
}
