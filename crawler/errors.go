package crawler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// CrawlError marks a fatal crawl failure. Any transport error or
// non-success status aborts the whole crawl; a partially built tree is
// not usable downstream.
type CrawlError struct {
	Stage string
	URL   string
	Err   error
}

func (e *CrawlError) Error() string {
	return fmt.Sprintf("crawl %s: %s: %v", e.Stage, e.URL, e.Err)
}

func (e *CrawlError) Unwrap() error {
	return e.Err
}

// errorLabel buckets an error for the errors_total metric.
func errorLabel(err error, statusCode int) string {
	if err == nil && statusCode == 0 {
		return "unknown"
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return "connection"
	}

	switch statusCode {
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusTooManyRequests:
		return "rate_limited"
	}
	return "other"
}
