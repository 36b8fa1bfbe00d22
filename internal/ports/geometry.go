package ports

import (
	"math"
	"sort"

	"github.com/paulmach/orb"

	"github.com/harborsight/portscan/internal/geo"
	"github.com/harborsight/portscan/internal/monitoring"
)

// UncategorizedName is the reserved fallback size category. Its own bounds
// are [0, 0] so the ordered category scan never matches it; it is only ever
// assigned as the default.
const UncategorizedName = "Uncategorized"

// GeometryAnalyzer computes convex-hull geometry for merged ports and assigns
// each a size category, applying the global plausibility bounds.
type GeometryAnalyzer struct {
	categories []SizeCategory
	minAreaKm2 float64
	maxAreaKm2 float64
}

// NewGeometryAnalyzer creates an analyzer for the given ordered category
// table and global area bounds (km², inclusive).
func NewGeometryAnalyzer(categories []SizeCategory, minAreaKm2, maxAreaKm2 float64) *GeometryAnalyzer {
	return &GeometryAnalyzer{
		categories: categories,
		minAreaKm2: minAreaKm2,
		maxAreaKm2: maxAreaKm2,
	}
}

// Analyze computes geometry for every merged port and returns the survivors
// sorted by area descending. Ports with fewer than three member points, ports
// whose hull computation fails, and ports outside the global area bounds are
// dropped (logged), never fatal to the batch.
func (a *GeometryAnalyzer) Analyze(ports []MergedPort) []FinalPort {
	final := make([]FinalPort, 0, len(ports))
	for _, p := range ports {
		if fp, ok := a.analyzeOne(p); ok {
			final = append(final, fp)
		}
	}

	sort.Slice(final, func(i, j int) bool {
		return final[i].AreaKm2 > final[j].AreaKm2
	})
	return final
}

func (a *GeometryAnalyzer) analyzeOne(p MergedPort) (fp FinalPort, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			monitoring.Logf("[GeometryAnalyzer] Dropping port at (%.4f, %.4f): hull computation failed: %v",
				p.Centroid.Lat, p.Centroid.Lon, r)
			ok = false
		}
	}()

	if len(p.Points) < 3 {
		monitoring.Logf("[GeometryAnalyzer] Skipping port at (%.4f, %.4f): %d points cannot form a polygon",
			p.Centroid.Lat, p.Centroid.Lon, len(p.Points))
		return FinalPort{}, false
	}

	// Hull over (lon, lat) treated as planar coordinates.
	pts := make([]orb.Point, len(p.Points))
	for i, mp := range p.Points {
		pts[i] = orb.Point{mp.Lon, mp.Lat}
	}
	hull := convexHull(pts)
	if len(hull) < 3 {
		monitoring.Logf("[GeometryAnalyzer] Skipping port at (%.4f, %.4f): degenerate hull (%d vertices)",
			p.Centroid.Lat, p.Centroid.Lon, len(hull))
		return FinalPort{}, false
	}

	var latMin, latMax, lonMin, lonMax, latSum float64
	latMin, latMax = math.Inf(1), math.Inf(-1)
	lonMin, lonMax = math.Inf(1), math.Inf(-1)
	for _, h := range hull {
		latMin = math.Min(latMin, h.Lat())
		latMax = math.Max(latMax, h.Lat())
		lonMin = math.Min(lonMin, h.Lon())
		lonMax = math.Max(lonMax, h.Lon())
		latSum += h.Lat()
	}
	avgLat := latSum / float64(len(hull))
	correction := math.Cos(geo.DegToRad(avgLat))

	// Local planar approximation (111 km/degree), valid for port-scale
	// extents; not a geodesic polygon area.
	latRange := latMax - latMin
	lonRange := lonMax - lonMin
	areaKm2 := latRange * (lonRange * correction) * geo.KMPerDegree * geo.KMPerDegree

	maxDistKm := hullDiameterKm(hull, correction)

	density := 0.0
	if areaKm2 > 0 {
		density = float64(p.PointCount) / areaKm2
	}

	category, color := a.categorize(areaKm2)

	if areaKm2 < a.minAreaKm2 || areaKm2 > a.maxAreaKm2 {
		monitoring.Logf("[GeometryAnalyzer] Filtered port at (%.4f, %.4f): area %.4f km2 outside [%.3f, %.3f]",
			p.Centroid.Lat, p.Centroid.Lon, areaKm2, a.minAreaKm2, a.maxAreaKm2)
		return FinalPort{}, false
	}

	return FinalPort{
		Centroid:      p.Centroid,
		Points:        p.Points,
		PointCount:    p.PointCount,
		DetectedScale: p.DetectedScale,
		AbsorbedCount: p.AbsorbedCount,
		AreaKm2:       areaKm2,
		MaxDistanceKm: maxDistKm,
		VesselDensity: density,
		Category:      category,
		Color:         color,
	}, true
}

// categorize scans the ordered category table and returns the first bucket
// whose inclusive bounds contain areaKm2, or the Uncategorized fallback.
func (a *GeometryAnalyzer) categorize(areaKm2 float64) (string, string) {
	fallbackColor := "gray"
	for _, cat := range a.categories {
		if cat.Name == UncategorizedName {
			fallbackColor = cat.Color
			continue
		}
		if areaKm2 >= cat.MinKm2 && areaKm2 <= cat.MaxKm2 {
			return cat.Name, cat.Color
		}
	}
	return UncategorizedName, fallbackColor
}

// hullDiameterKm returns the maximum pairwise planar distance among hull
// vertices, with longitude scaled by the hull's latitude correction.
func hullDiameterKm(hull []orb.Point, correction float64) float64 {
	maxD := 0.0
	for i := 0; i < len(hull); i++ {
		for j := i + 1; j < len(hull); j++ {
			dLat := (hull[i].Lat() - hull[j].Lat()) * geo.KMPerDegree
			dLon := (hull[i].Lon() - hull[j].Lon()) * geo.KMPerDegree * correction
			if d := math.Hypot(dLat, dLon); d > maxD {
				maxD = d
			}
		}
	}
	return maxD
}

// convexHull computes the 2-D convex hull of the points using Andrew's
// monotone chain algorithm. Returns hull vertices in counter-clockwise order
// without the closing duplicate. Collinear input collapses to its two
// extreme points.
func convexHull(points []orb.Point) []orb.Point {
	if len(points) < 3 {
		result := make([]orb.Point, len(points))
		copy(result, points)
		return result
	}

	sorted := make([]orb.Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i][0] != sorted[j][0] {
			return sorted[i][0] < sorted[j][0]
		}
		return sorted[i][1] < sorted[j][1]
	})

	cross := func(o, a, b orb.Point) float64 {
		return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
	}

	n := len(sorted)
	hull := make([]orb.Point, 0, 2*n)

	// Lower hull
	for _, p := range sorted {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	// Upper hull
	lower := len(hull) + 1
	for i := n - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	return hull[:len(hull)-1]
}
