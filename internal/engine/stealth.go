package engine

import (
	"context"
	"net/http"

	stealth "github.com/anatolykoptev/go-stealth"
)

// Re-export stealth types and functions for engine consumers.
type BrowserClient = stealth.BrowserClient

var DefaultRetryConfig = stealth.DefaultRetryConfig

func ChromeHeaders() map[string]string { return stealth.ChromeHeaders() }
func RandomUserAgent() string          { return stealth.RandomUserAgent() }
func IsRetryableStatus(code int) bool  { return stealth.IsRetryableStatus(code) }

// RetryHTTP retries fn on transport errors and retryable statuses (429, 5xx).
func RetryHTTP(ctx context.Context, fn func() (*http.Response, error)) (*http.Response, error) {
	return stealth.RetryHTTP(ctx, DefaultRetryConfig, fn)
}

// BrowserHeaders returns Chrome-like request headers with a randomized User-Agent.
func BrowserHeaders() map[string]string {
	h := ChromeHeaders()
	if ua := RandomUserAgent(); ua != "" {
		h["user-agent"] = ua
	} else if h["user-agent"] == "" {
		h["user-agent"] = UserAgentChrome
	}
	h["accept-language"] = "en-US,en;q=0.9"
	return h
}
