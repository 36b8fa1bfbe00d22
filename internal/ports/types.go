// Package ports implements the multi-scale port detection core: haversine
// DBSCAN over pre-filtered partitions of stationary vessel reports, greedy
// priority-ordered suppression of the resulting overlapping candidates, and
// convex-hull geometry analysis of the survivors.
package ports

import "github.com/harborsight/portscan/internal/geo"

// UnknownScalePriority is the rank assigned to candidates whose scale key is
// not present in the configured scale table. It sorts after every configured
// scale, so unknown-scale candidates never win a suppression conflict against
// a configured one.
const UnknownScalePriority = 99

// ScaleConfig describes one DBSCAN resolution scale. Scales are supplied as
// an ordered table; table order defines suppression priority (first = highest)
// and the order scales are reported in.
type ScaleConfig struct {
	Key        string  `json:"key"`
	EpsKm      float64 `json:"eps_km"`
	MinSamples int     `json:"min_samples"`
	Label      string  `json:"label"`
}

// SizeCategory is one bucket of the ordered port size-category table. A port
// is assigned the first category whose inclusive [MinKm2, MaxKm2] bounds
// contain its area. The reserved "Uncategorized" bucket carries [0, 0] bounds
// and is only ever reached as the fallback.
type SizeCategory struct {
	Name   string  `json:"name"`
	MinKm2 float64 `json:"min_km2"`
	MaxKm2 float64 `json:"max_km2"`
	Color  string  `json:"color"`
}

// Partition is one pre-filtered chunk of stationary vessel positions, the
// unit of work for per-scale clustering. Points are in degrees.
type Partition struct {
	ID     int
	Points []geo.Point
}

// RawCluster is one DBSCAN cluster detected in a single partition at a single
// scale. Centroid is the arithmetic mean of the member points in degrees.
type RawCluster struct {
	PartitionID    int
	ScaleKey       string
	Points         []geo.Point
	Centroid       geo.Point
	PointCount     int
	EpsKm          float64
	MinSamplesUsed int
}

// MergedPort aggregates one or more raw clusters whose centroids fell within
// each other's suppression radius. DetectedScale is the scale key of the
// highest-priority absorbed cluster (largest point count on ties).
type MergedPort struct {
	Centroid      geo.Point
	Points        []geo.Point
	PointCount    int
	DetectedScale string
	AbsorbedCount int
}

// FinalPort is a merged port that survived geometry analysis and the global
// area bounds. The final output list is sorted by AreaKm2 descending.
type FinalPort struct {
	Centroid      geo.Point
	Points        []geo.Point
	PointCount    int
	DetectedScale string
	AbsorbedCount int
	AreaKm2       float64
	MaxDistanceKm float64
	VesselDensity float64
	Category      string
	Color         string
}

// PriorityRank returns the suppression priority of scaleKey given the ordered
// scale table: its position in the table, or UnknownScalePriority when the
// key is absent. Lower rank wins.
func PriorityRank(scales []ScaleConfig, scaleKey string) int {
	for i, s := range scales {
		if s.Key == scaleKey {
			return i
		}
	}
	return UnknownScalePriority
}
