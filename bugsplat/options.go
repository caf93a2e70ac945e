package bugsplat

import (
	"net/http"
	"time"
)

// Option configures a Client.
type Option func(*clientOptions)

// clientOptions holds configuration options for the Client.
type clientOptions struct {
	timeout      time.Duration
	httpClient   *http.Client
	maxRetries   int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
	rateLimit    float64
	userAgent    string
}

func defaultOptions() clientOptions {
	return clientOptions{
		timeout:      30 * time.Second,
		maxRetries:   3,
		retryWaitMin: time.Second,
		retryWaitMax: 30 * time.Second,
		userAgent:    "splatctl",
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client. Its timeout is left untouched.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = client
	}
}

// WithRetry sets the retry budget and backoff bounds for 5xx and 429 responses.
func WithRetry(maxRetries int, waitMin, waitMax time.Duration) Option {
	return func(o *clientOptions) {
		if maxRetries >= 0 {
			o.maxRetries = maxRetries
		}
		if waitMin > 0 {
			o.retryWaitMin = waitMin
		}
		if waitMax > 0 {
			o.retryWaitMax = waitMax
		}
	}
}

// WithRateLimit caps requests per second. Zero disables pacing.
func WithRateLimit(perSecond float64) Option {
	return func(o *clientOptions) {
		if perSecond >= 0 {
			o.rateLimit = perSecond
		}
	}
}

// WithUserAgent sets a custom user agent string.
func WithUserAgent(userAgent string) Option {
	return func(o *clientOptions) {
		if userAgent != "" {
			o.userAgent = userAgent
		}
	}
}
