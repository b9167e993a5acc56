package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Fetch failure categories. A *FetchError wraps exactly one of them when the
// cause could be classified.
var (
	ErrTimeout     = errors.New("timeout")
	ErrConnection  = errors.New("connection")
	ErrForbidden   = errors.New("forbidden")
	ErrNotFound    = errors.New("not_found")
	ErrRateLimited = errors.New("rate_limited")
	ErrHTTPStatus  = errors.New("http_status")
)

// FetchError reports a page that could not be retrieved.
type FetchError struct {
	Phase  string // search or product
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s page %s: status %d: %v", e.Phase, e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s page %s: %v", e.Phase, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func errorTypeLabel(err error) string {
	switch {
	case err == nil:
		return "unknown"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrConnection):
		return "connection"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrHTTPStatus):
		return "http_status"
	default:
		return "other"
	}
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = errors.New(http.StatusText(statusCode))
		}
		switch {
		case statusCode == http.StatusForbidden:
			return fmt.Errorf("%w: %w", ErrForbidden, wrapped)
		case statusCode == http.StatusNotFound:
			return fmt.Errorf("%w: %w", ErrNotFound, wrapped)
		case statusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %w", ErrRateLimited, wrapped)
		case statusCode >= http.StatusBadRequest:
			return fmt.Errorf("%w: %w", ErrHTTPStatus, wrapped)
		}
	}

	if err == nil {
		return nil
	}
	return err
}
