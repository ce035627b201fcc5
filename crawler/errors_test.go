package crawler

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
)

func TestErrorLabel(t *testing.T) {
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
		{name: "forbidden", err: errors.New("Forbidden"), statusCode: http.StatusForbidden, expected: "forbidden"},
		{name: "not found", err: errors.New("Not Found"), statusCode: http.StatusNotFound, expected: "not_found"},
		{name: "rate limited", err: errors.New("Too Many Requests"), statusCode: http.StatusTooManyRequests, expected: "rate_limited"},
		{name: "other", err: errors.New("boom"), statusCode: 0, expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorLabel(tt.err, tt.statusCode); got != tt.expected {
				t.Fatalf("errorLabel(%v, %d) = %q, want %q", tt.err, tt.statusCode, got, tt.expected)
			}
		})
	}
}

func TestCrawlErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &CrawlError{Stage: "tree", URL: "http://example.test", Err: inner}
	if !errors.Is(err, inner) {
		t.Fatalf("CrawlError must unwrap to the inner error")
	}
	if err.Error() == "" {
		t.Fatalf("CrawlError message must not be empty")
	}
}
