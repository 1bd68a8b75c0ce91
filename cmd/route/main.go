// Package main is a small CLI around the routingpy router registry. It
// reads credentials from an optional YAML file, dispatches one operation
// against the chosen service and prints the result as JSON.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/khamaileon/routingpy/pkg/router"
	"github.com/khamaileon/routingpy/pkg/types"
	"github.com/khamaileon/routingpy/routers"
)

type fileConfig struct {
	APIKey  string `yaml:"api_key"`
	AppID   string `yaml:"app_id"`
	AppCode string `yaml:"app_code"`
	BaseURL string `yaml:"base_url"`

	UserAgent  string `yaml:"user_agent"`
	TimeoutSec int    `yaml:"timeout_sec"`

	RetryTimeoutSec     int  `yaml:"retry_timeout_sec"`
	RetryOverQueryLimit bool `yaml:"retry_over_query_limit"`
}

func main() {
	var (
		configPath   = flag.String("config", "", "path to YAML credentials file")
		routerName   = flag.String("router", "osrm", "routing service to use")
		operation    = flag.String("op", "directions", "operation: directions, matrix, isochrones, raster")
		profile      = flag.String("profile", "driving", "routing profile")
		locations    = flag.String("locations", "", "semicolon-separated lon,lat pairs")
		intervals    = flag.String("intervals", "", "comma-separated isochrone intervals in seconds")
		intervalType = flag.String("interval-type", types.IntervalTime, "isochrone interval type: time or distance")
		cutoff       = flag.Int("cutoff", 0, "raster cutoff in seconds")
		dryRun       = flag.Bool("dry-run", false, "print the request instead of sending it")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "path", *configPath, "error", err)
		os.Exit(1)
	}
	cfg.Logger = logger

	coords, err := parseLocations(*locations)
	if err != nil {
		logger.Error("invalid locations", "error", err)
		os.Exit(1)
	}

	r, err := routers.New(*routerName, cfg)
	if err != nil {
		logger.Error("failed to create router", "router", *routerName, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	var result any

	switch *operation {
	case "directions":
		result, err = r.Directions(ctx, &types.DirectionsRequest{
			Locations: coords,
			Profile:   *profile,
			DryRun:    *dryRun,
		})
	case "matrix":
		result, err = r.Matrix(ctx, &types.MatrixRequest{
			Locations: coords,
			Profile:   *profile,
			DryRun:    *dryRun,
		})
	case "isochrones":
		var ranges []int
		ranges, err = parseIntervals(*intervals)
		if err == nil {
			if len(coords) != 1 {
				err = fmt.Errorf("isochrones needs exactly one location")
			} else {
				result, err = r.Isochrones(ctx, &types.IsochronesRequest{
					Location:     coords[0],
					Profile:      *profile,
					Intervals:    ranges,
					IntervalType: *intervalType,
					DryRun:       *dryRun,
				})
			}
		}
	case "raster":
		rr, ok := r.(router.RasterRouter)
		if !ok {
			err = fmt.Errorf("%s does not support rasters", r.Name())
			break
		}
		if len(coords) != 1 {
			err = fmt.Errorf("raster needs exactly one location")
			break
		}
		result, err = rr.Raster(ctx, &types.RasterRequest{
			Location: coords[0],
			Profile:  *profile,
			Cutoff:   *cutoff,
			DryRun:   *dryRun,
		})
	default:
		err = fmt.Errorf("unknown operation %q", *operation)
	}

	if err != nil {
		logger.Error("request failed", "router", r.Name(), "op", *operation, "error", err)
		os.Exit(1)
	}
	if result == nil {
		return
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Error("failed to encode result", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func loadConfig(path string) (router.Config, error) {
	cfg := router.Config{}
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return cfg, err
	}

	cfg.APIKey = fc.APIKey
	cfg.AppID = fc.AppID
	cfg.AppCode = fc.AppCode
	cfg.BaseURL = fc.BaseURL
	cfg.UserAgent = fc.UserAgent
	cfg.Timeout = time.Duration(fc.TimeoutSec) * time.Second
	cfg.RetryTimeout = time.Duration(fc.RetryTimeoutSec) * time.Second
	cfg.RetryOverQueryLimit = fc.RetryOverQueryLimit
	return cfg, nil
}

func parseLocations(s string) ([]types.Coordinate, error) {
	if s == "" {
		return nil, fmt.Errorf("at least one lon,lat pair is required")
	}

	pairs := strings.Split(s, ";")
	coords := make([]types.Coordinate, 0, len(pairs))
	for _, pair := range pairs {
		parts := strings.Split(pair, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed pair %q", pair)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, err
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, err
		}
		coords = append(coords, types.Coordinate{Lon: lon, Lat: lat})
	}
	return coords, nil
}

func parseIntervals(s string) ([]int, error) {
	if s == "" {
		return nil, fmt.Errorf("at least one interval is required")
	}

	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
