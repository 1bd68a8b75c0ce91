// Package routers wires every built-in router adapter into a single
// registry keyed by name. Names are case-insensitive and common aliases
// resolve to the same factory.
package routers

import (
	"sort"
	"strings"
	"sync"

	"github.com/khamaileon/routingpy/pkg/errors"
	"github.com/khamaileon/routingpy/pkg/router"
	"github.com/khamaileon/routingpy/routers/google"
	"github.com/khamaileon/routingpy/routers/graphhopper"
	"github.com/khamaileon/routingpy/routers/heremaps"
	"github.com/khamaileon/routingpy/routers/mapboxosrm"
	"github.com/khamaileon/routingpy/routers/mapboxvalhalla"
	"github.com/khamaileon/routingpy/routers/ors"
	"github.com/khamaileon/routingpy/routers/osrm"
	"github.com/khamaileon/routingpy/routers/otp"
	"github.com/khamaileon/routingpy/routers/valhalla"
)

var (
	mu        sync.RWMutex
	factories = map[string]router.Factory{}
	aliases   = map[string]string{}

	builtinsOnce sync.Once
)

// Register adds a factory under a canonical name with optional aliases.
// Later registrations replace earlier ones.
func Register(name string, factory router.Factory, aliasNames ...string) {
	mu.Lock()
	defer mu.Unlock()

	name = strings.ToLower(name)
	factories[name] = factory
	for _, alias := range aliasNames {
		aliases[strings.ToLower(alias)] = name
	}
}

// Get resolves a name or alias to its registered factory.
func Get(name string) (router.Factory, error) {
	RegisterBuiltins()

	mu.RLock()
	defer mu.RUnlock()

	key := strings.ToLower(name)
	if canonical, ok := aliases[key]; ok {
		key = canonical
	}
	factory, ok := factories[key]
	if !ok {
		return nil, &errors.RouterNotFoundError{Name: name, Available: listLocked()}
	}
	return factory, nil
}

// New creates a router by name or alias.
func New(name string, cfg router.Config) (router.Router, error) {
	factory, err := Get(name)
	if err != nil {
		return nil, err
	}
	return factory(cfg)
}

// List returns the canonical names of all registered routers, sorted.
func List() []string {
	RegisterBuiltins()

	mu.RLock()
	defer mu.RUnlock()
	return listLocked()
}

func listLocked() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterBuiltins registers every adapter shipped with this module. It
// is called implicitly by Get and List and is safe to call repeatedly.
func RegisterBuiltins() {
	builtinsOnce.Do(func() {
		Register(osrm.RouterName, osrm.NewFromConfig)
		Register(valhalla.RouterName, valhalla.NewFromConfig)
		Register(mapboxvalhalla.RouterName, mapboxvalhalla.NewFromConfig,
			"mapbox-valhalla", "mapboxvalhalla")
		Register(mapboxosrm.RouterName, mapboxosrm.NewFromConfig,
			"mapbox-osrm", "mapboxosrm", "mapbox")
		Register(graphhopper.RouterName, graphhopper.NewFromConfig)
		Register(google.RouterName, google.NewFromConfig)
		Register(heremaps.RouterName, heremaps.NewFromConfig, "here")
		Register(ors.RouterName, ors.NewFromConfig, "openrouteservice")
		Register(otp.RouterName, otp.NewFromConfig, "opentripplanner")
	})
}
