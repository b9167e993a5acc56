package pipeline

import (
	"errors"
	"fmt"
)

// Messages shown to the end user. No other error text ever reaches a chat.
const (
	NoResultsMessage    = "❌ No encontré precios visibles para esa medida. Probá con otra medida."
	SearchFailedMessage = "⚠️ No pude consultar el catálogo en este momento. Intentá de nuevo en unos minutos."
)

// ErrNoResults means the search worked but no product survived extraction
// and rim filtering.
var ErrNoResults = errors.New("pipeline: no results")

// SearchError wraps a failure on the catalog search page.
type SearchError struct {
	Query string
	Err   error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search %q: %v", e.Query, e.Err)
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

// UserMessage maps a quote error to its prepared user-facing text.
func UserMessage(err error) string {
	if errors.Is(err, ErrNoResults) {
		return NoResultsMessage
	}
	return SearchFailedMessage
}
