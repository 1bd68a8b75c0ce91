package client

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/khamaileon/routingpy/pkg/cache"
	"github.com/khamaileon/routingpy/pkg/metrics"
)

// Option configures the shared client.
type Option func(*Client)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeout sets the combined connect and read timeout per request.
// Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        httpMaxIdleConns,
				MaxIdleConnsPerHost: httpMaxIdleConns,
				IdleConnTimeout:     httpIdleConnTimeout,
			},
			Timeout: d,
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client entirely.
// Overrides WithTimeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRetryTimeout bounds the total time spent retrying rate-limited
// requests.
func WithRetryTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.retryTimeout = d
	}
}

// WithRetryOverQueryLimit makes the client back off and retry on HTTP 429
// instead of returning an error, until the retry timeout elapses.
func WithRetryOverQueryLimit(retry bool) Option {
	return func(c *Client) {
		c.retryOverQueryLimit = retry
	}
}

// WithSkipAPIError makes the client swallow API-level (4xx) errors so batch
// callers can continue; the operation then yields an empty result.
func WithSkipAPIError(skip bool) Option {
	return func(c *Client) {
		c.skipAPIError = skip
	}
}

// WithHeader adds a header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithHeaders adds a set of headers sent on every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRateLimiter throttles outgoing requests client-side, useful against
// public instances with strict usage policies.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithCache stores successful responses in the given cache. A ttl of zero
// uses the backend default.
func WithCache(store cache.Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = store
		c.cacheTTL = ttl
	}
}

// WithMetrics records request counts and latencies with the collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) {
		c.metrics = m
	}
}
