package router

import (
	"github.com/khamaileon/routingpy/pkg/client"
)

// ClientOptions translates the shared configuration into options for the
// underlying HTTP client. Adapters append their own options (auth headers,
// default base URLs) on top.
func (c Config) ClientOptions() []client.Option {
	opts := []client.Option{
		client.WithRetryOverQueryLimit(c.RetryOverQueryLimit),
		client.WithSkipAPIError(c.SkipAPIError),
	}
	if c.UserAgent != "" {
		opts = append(opts, client.WithUserAgent(c.UserAgent))
	}
	if c.Timeout > 0 {
		opts = append(opts, client.WithTimeout(c.Timeout))
	}
	if c.RetryTimeout > 0 {
		opts = append(opts, client.WithRetryTimeout(c.RetryTimeout))
	}
	if len(c.Headers) > 0 {
		opts = append(opts, client.WithHeaders(c.Headers))
	}
	if c.HTTPClient != nil {
		opts = append(opts, client.WithHTTPClient(c.HTTPClient))
	}
	if c.Logger != nil {
		opts = append(opts, client.WithLogger(c.Logger))
	}
	if c.RateLimiter != nil {
		opts = append(opts, client.WithRateLimiter(c.RateLimiter))
	}
	if c.Cache != nil {
		opts = append(opts, client.WithCache(c.Cache, c.CacheTTL))
	}
	if c.Metrics != nil {
		opts = append(opts, client.WithMetrics(c.Metrics))
	}
	return opts
}
