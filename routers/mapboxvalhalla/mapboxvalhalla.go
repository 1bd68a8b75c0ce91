// Package mapboxvalhalla provides the Valhalla flavor hosted by Mapbox.
// It shares the Valhalla codec and differs only in endpoint and token auth.
package mapboxvalhalla

import (
	"net/url"

	"github.com/khamaileon/routingpy/pkg/router"
	"github.com/khamaileon/routingpy/routers/valhalla"
)

const (
	// RouterName is the identifier for this router.
	RouterName = "mapbox_valhalla"

	// DefaultBaseURL is the Mapbox-hosted Valhalla endpoint.
	DefaultBaseURL = "https://api.mapbox.com/valhalla/v1"
)

// New creates a Mapbox-hosted Valhalla router. cfg.APIKey is the Mapbox
// access token, sent as a query parameter on every request.
func New(cfg router.Config) *valhalla.Router {
	query := url.Values{}
	if cfg.APIKey != "" {
		query.Set("access_token", cfg.APIKey)
	}
	return valhalla.NewHosted(RouterName, DefaultBaseURL, query, cfg)
}

// NewFromConfig adapts New to the registry factory signature.
func NewFromConfig(cfg router.Config) (router.Router, error) {
	return New(cfg), nil
}
