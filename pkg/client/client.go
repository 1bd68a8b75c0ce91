// Package client implements the HTTP client shared by all router adapters.
// It owns retries, rate limiting, dry runs, response caching and error
// mapping, so the adapters only build parameters and parse payloads.
package client

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/khamaileon/routingpy/pkg/cache"
	"github.com/khamaileon/routingpy/pkg/errors"
	"github.com/khamaileon/routingpy/pkg/metrics"
	"golang.org/x/time/rate"
)

const (
	// DefaultUserAgent identifies the library to routing services.
	DefaultUserAgent = "routingpy-go"

	// DefaultTimeout is the combined connect and read timeout per request.
	DefaultTimeout = 60 * time.Second

	// DefaultRetryTimeout bounds the total time spent retrying a
	// rate-limited request.
	DefaultRetryTimeout = 60 * time.Second

	// retryBaseBackoff is the first retry delay; it doubles per attempt.
	retryBaseBackoff = time.Second

	// maxServerErrorAttempts bounds how often a request hitting HTTP 5xx
	// is tried in total. 4xx responses are never retried.
	maxServerErrorAttempts = 3

	httpMaxIdleConns    = 10
	httpIdleConnTimeout = 30 * time.Second
)

// Client issues requests to a single routing service.
//
// Client is safe for concurrent use by multiple goroutines.
type Client struct {
	router  string
	baseURL string

	httpClient *http.Client
	userAgent  string
	headers    map[string]string

	retryTimeout        time.Duration
	retryOverQueryLimit bool
	skipAPIError        bool

	logger   *slog.Logger
	limiter  *rate.Limiter
	cache    cache.Cache
	cacheTTL time.Duration
	metrics  *metrics.Collector
}

// New creates a client for the named router rooted at baseURL.
// baseURL must not have a trailing slash.
func New(router, baseURL string, opts ...Option) *Client {
	c := &Client{
		router:       router,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		userAgent:    DefaultUserAgent,
		headers:      make(map[string]string),
		retryTimeout: DefaultRetryTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        httpMaxIdleConns,
				MaxIdleConnsPerHost: httpMaxIdleConns,
				IdleConnTimeout:     httpIdleConnTimeout,
			},
			Timeout: DefaultTimeout,
		}
	}
	return c
}

// RequestOptions describes a single request to the routing service.
type RequestOptions struct {
	// GetParams are appended to the URL as a query string.
	GetParams url.Values

	// JSONBody, when non-nil, is marshalled and POSTed as application/json.
	JSONBody any

	// Body is a raw POST body for non-JSON payloads; ContentType must be
	// set alongside it. Mutually exclusive with JSONBody.
	Body        []byte
	ContentType string

	// DryRun logs the request instead of sending it; Request then returns
	// (nil, nil).
	DryRun bool
}

// Request performs one call against the service and returns the raw response
// body. A nil body with a nil error means the request was skipped (dry run)
// or its API error was swallowed (skip-API-error mode); parse layers must
// treat that as an empty result.
func (c *Client) Request(ctx context.Context, path string, opts RequestOptions) ([]byte, error) {
	method := http.MethodGet
	var body []byte
	contentType := opts.ContentType

	switch {
	case opts.JSONBody != nil:
		b, err := json.Marshal(opts.JSONBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		method = http.MethodPost
		body = b
		if contentType == "" {
			contentType = "application/json"
		}
	case opts.Body != nil:
		method = http.MethodPost
		body = opts.Body
	}

	reqURL := c.baseURL + path
	if len(opts.GetParams) > 0 {
		reqURL += "?" + opts.GetParams.Encode()
	}

	if opts.DryRun {
		c.logger.Info("dry run, request not sent",
			"router", c.router,
			"method", method,
			"url", reqURL,
			"body", string(body),
		)
		return nil, nil
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	cacheKey := ""
	if c.cache != nil {
		cacheKey = requestKey(method, reqURL, body)
		if cached, err := c.cache.Get(ctx, cacheKey); err == nil && cached != nil {
			c.logger.Debug("cache hit", "router", c.router, "url", reqURL)
			return cached, nil
		}
	}

	requestID := uuid.NewString()
	start := time.Now()

	for attempt := 0; ; attempt++ {
		attemptStart := time.Now()
		respBody, statusCode, err := c.do(ctx, method, reqURL, body, contentType)
		c.metrics.Observe(c.router, statusCode, time.Since(attemptStart))

		if err != nil {
			if isTimeout(err) {
				return nil, errors.NewTimeoutError(c.router, err.Error())
			}
			return nil, fmt.Errorf("execute request: %w", err)
		}

		switch {
		case statusCode == http.StatusTooManyRequests:
			if c.retryOverQueryLimit && time.Since(start) < c.retryTimeout {
				backoff := jitteredBackoff(attempt)
				c.logger.Warn("query limit reached, retrying",
					"router", c.router,
					"request_id", requestID,
					"attempt", attempt+1,
					"backoff", backoff,
				)
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(backoff):
				}
				continue
			}
			return nil, errors.NewOverQueryLimitError(c.router, string(respBody))

		case statusCode >= 500:
			if attempt+1 < maxServerErrorAttempts {
				backoff := jitteredBackoff(attempt)
				c.logger.Warn("server error, retrying",
					"router", c.router,
					"request_id", requestID,
					"status", statusCode,
					"attempt", attempt+1,
					"backoff", backoff,
				)
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(backoff):
				}
				continue
			}
			return nil, errors.NewServerError(c.router, statusCode, string(respBody))

		case statusCode >= 400:
			apiErr := errors.NewAPIError(c.router, statusCode, string(respBody))
			if c.skipAPIError {
				c.logger.Warn("skipping API error",
					"router", c.router,
					"request_id", requestID,
					"error", apiErr,
				)
				return nil, nil
			}
			return nil, apiErr
		}

		if c.cache != nil && cacheKey != "" {
			if err := c.cache.Set(ctx, cacheKey, respBody, c.cacheTTL); err != nil {
				c.logger.Warn("cache store failed", "router", c.router, "error", err)
			}
		}

		c.logger.Debug("request completed",
			"router", c.router,
			"request_id", requestID,
			"method", method,
			"url", reqURL,
			"status", statusCode,
			"elapsed", time.Since(start),
		)
		return respBody, nil
	}
}

func (c *Client) do(ctx context.Context, method, reqURL string, body []byte, contentType string) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return respBody, resp.StatusCode, nil
}

// Close releases idle connections held by the client.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	if c.cache != nil {
		return c.cache.Close()
	}
	return nil
}

// Router returns the router name the client was built for.
func (c *Client) Router() string { return c.router }

func requestKey(method, reqURL string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(reqURL))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// jitteredBackoff doubles per attempt with half the delay randomized to
// avoid synchronized retries against rate-limited services.
func jitteredBackoff(attempt int) time.Duration {
	if attempt > 6 {
		attempt = 6
	}
	backoff := retryBaseBackoff * time.Duration(1<<attempt)
	return backoff/2 + rand.N(backoff/2)
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return stderrors.As(err, &t) && t.Timeout()
}
