// Package router defines the public interface for routing service adapters.
// Each service (OSRM, Valhalla, Google, ...) implements this interface to
// handle request building and response parsing against its own API.
package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/khamaileon/routingpy/pkg/cache"
	"github.com/khamaileon/routingpy/pkg/metrics"
	"github.com/khamaileon/routingpy/pkg/types"
)

// Router is the uniform surface every adapter exposes. All routers implement
// all three operations; services without a native endpoint return an error
// wrapping errors.ErrNotSupported.
type Router interface {
	// Name returns the router identifier (e.g. "osrm", "valhalla").
	Name() string

	// Directions computes one or more routes through the given locations.
	Directions(ctx context.Context, req *types.DirectionsRequest) (*types.Directions, error)

	// Matrix computes duration/distance tables between locations.
	Matrix(ctx context.Context, req *types.MatrixRequest) (*types.Matrix, error)

	// Isochrones computes reachability contours around a location.
	Isochrones(ctx context.Context, req *types.IsochronesRequest) (*types.Isochrones, error)
}

// RasterRouter is implemented by adapters that can render travel time
// surfaces (currently OpenTripPlanner).
type RasterRouter interface {
	Router
	Raster(ctx context.Context, req *types.RasterRequest) (*types.Raster, error)
}

// Config contains adapter-independent configuration, resolved by each
// adapter's NewFromConfig.
type Config struct {
	// BaseURL overrides the adapter's default endpoint. No trailing slash.
	BaseURL string

	// APIKey authenticates against hosted services; ignored by
	// self-hosted ones.
	APIKey string

	// AppID and AppCode are the legacy HERE credential pair, used only
	// when APIKey is empty.
	AppID   string
	AppCode string

	UserAgent string
	Timeout   time.Duration

	// RetryTimeout bounds retries over rate limits; RetryOverQueryLimit
	// enables them.
	RetryTimeout        time.Duration
	RetryOverQueryLimit bool

	// SkipAPIError swallows API-level errors so batch callers can
	// continue; operations then yield empty results.
	SkipAPIError bool

	Headers    map[string]string
	HTTPClient *http.Client
	Logger     *slog.Logger

	RateLimiter *rate.Limiter
	Cache       cache.Cache
	CacheTTL    time.Duration
	Metrics     *metrics.Collector
}

// Factory creates router instances from configuration.
type Factory func(cfg Config) (Router, error)
