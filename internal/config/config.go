// Package config holds the pipeline configuration: the ordered DBSCAN scale
// table, the ordered port size-category table, geographic and behavioral
// filter thresholds, and the global area plausibility bounds.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/harborsight/portscan/internal/ports"
)

// Config is the root configuration. The JSON schema uses arrays for the scale
// and category tables because their declaration order is semantically
// significant: scale order defines suppression priority and category order
// defines the bucket scan order.
type Config struct {
	// Scales is the ordered multi-scale DBSCAN table, highest priority first.
	Scales []ports.ScaleConfig `json:"scales"`

	// Categories is the ordered size-category table, scanned first to last.
	Categories []ports.SizeCategory `json:"categories"`

	// Geographic bounds for input filtering (degrees).
	LatMin float64 `json:"lat_min"`
	LatMax float64 `json:"lat_max"`
	LonMin float64 `json:"lon_min"`
	LonMax float64 `json:"lon_max"`

	// MaxSOG is the stationary-vessel speed threshold in knots.
	MaxSOG float64 `json:"max_sog"`

	// COGVarianceThreshold separates maneuvering vessels (high variance,
	// typical in ports) from steady transit, in degrees squared.
	COGVarianceThreshold float64 `json:"cog_variance_threshold"`

	// ExcludeStatuses lists navigational statuses that are definitely not
	// port activity.
	ExcludeStatuses []string `json:"exclude_statuses"`

	// MinPartitionPoints is the minimum filtered row count for a partition
	// to be worth clustering at all.
	MinPartitionPoints int `json:"min_partition_points"`

	// ChunkSize is the number of raw CSV rows read per partition.
	ChunkSize int `json:"chunk_size"`

	// Global port area plausibility bounds in km².
	MinPortAreaKm2 float64 `json:"min_port_area_km2"`
	MaxPortAreaKm2 float64 `json:"max_port_area_km2"`

	// Workers bounds the clustering worker pool; 0 selects CPU parallelism.
	Workers int `json:"workers"`
}

// Default returns the built-in configuration: Danish waters, the four
// standard detection scales, and the matching size categories.
func Default() *Config {
	return &Config{
		Scales: []ports.ScaleConfig{
			{Key: "major_ports", EpsKm: 1.0, MinSamples: 150, Label: "Major Commercial"},
			{Key: "regional_ports", EpsKm: 0.6, MinSamples: 80, Label: "Regional"},
			{Key: "local_ports", EpsKm: 0.3, MinSamples: 30, Label: "Local/Industrial"},
			{Key: "small_harbors", EpsKm: 0.1, MinSamples: 20, Label: "Small Harbor"},
		},
		Categories: []ports.SizeCategory{
			{Name: "Major Commercial", MinKm2: 2.0, MaxKm2: 15.0, Color: "red"},
			{Name: "Regional", MinKm2: 0.5, MaxKm2: 2.0, Color: "orange"},
			{Name: "Local/Industrial", MinKm2: 0.1, MaxKm2: 0.5, Color: "blue"},
			{Name: "Small Harbor", MinKm2: 0.01, MaxKm2: 0.1, Color: "green"},
			{Name: ports.UncategorizedName, MinKm2: 0, MaxKm2: 0, Color: "gray"},
		},
		LatMin:               54.5,
		LatMax:               58.0,
		LonMin:               8.0,
		LonMax:               15.5,
		MaxSOG:               0.5,
		COGVarianceThreshold: 35.0,
		ExcludeStatuses: []string{
			"Engaged in fishing",
			"Under way sailing",
			"Restricted maneuverability",
		},
		MinPartitionPoints: 25,
		ChunkSize:          200_000,
		MinPortAreaKm2:     0.01,
		MaxPortAreaKm2:     20.0,
	}
}

// Load reads a Config from a JSON file. Fields omitted from the file retain
// their defaults, so partial configs are safe.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks internal consistency of the configuration.
func (c *Config) Validate() error {
	if len(c.Scales) == 0 {
		return fmt.Errorf("at least one detection scale is required")
	}
	seen := make(map[string]bool, len(c.Scales))
	for i, s := range c.Scales {
		if s.Key == "" {
			return fmt.Errorf("scale %d: key must not be empty", i)
		}
		if seen[s.Key] {
			return fmt.Errorf("scale %d: duplicate key %q", i, s.Key)
		}
		seen[s.Key] = true
		if s.EpsKm <= 0 {
			return fmt.Errorf("scale %q: eps_km must be positive, got %f", s.Key, s.EpsKm)
		}
		if s.MinSamples <= 0 {
			return fmt.Errorf("scale %q: min_samples must be positive, got %d", s.Key, s.MinSamples)
		}
	}

	for i, cat := range c.Categories {
		if cat.Name == "" {
			return fmt.Errorf("category %d: name must not be empty", i)
		}
		if cat.MinKm2 > cat.MaxKm2 {
			return fmt.Errorf("category %q: min_km2 %f exceeds max_km2 %f", cat.Name, cat.MinKm2, cat.MaxKm2)
		}
	}

	if c.LatMin >= c.LatMax {
		return fmt.Errorf("lat bounds inverted: [%f, %f]", c.LatMin, c.LatMax)
	}
	if c.LonMin >= c.LonMax {
		return fmt.Errorf("lon bounds inverted: [%f, %f]", c.LonMin, c.LonMax)
	}
	if c.MaxSOG < 0 {
		return fmt.Errorf("max_sog must not be negative, got %f", c.MaxSOG)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.MinPortAreaKm2 < 0 || c.MinPortAreaKm2 > c.MaxPortAreaKm2 {
		return fmt.Errorf("port area bounds inverted: [%f, %f]", c.MinPortAreaKm2, c.MaxPortAreaKm2)
	}

	return nil
}

// DetectorConfig maps the configuration onto the detection core's inputs.
func (c *Config) DetectorConfig() ports.DetectorConfig {
	return ports.DetectorConfig{
		Scales:         c.Scales,
		Categories:     c.Categories,
		MinPortAreaKm2: c.MinPortAreaKm2,
		MaxPortAreaKm2: c.MaxPortAreaKm2,
		Workers:        c.Workers,
	}
}

// ScaleByKey returns the scale config for key, if present.
func (c *Config) ScaleByKey(key string) (ports.ScaleConfig, bool) {
	for _, s := range c.Scales {
		if s.Key == key {
			return s, true
		}
	}
	return ports.ScaleConfig{}, false
}
