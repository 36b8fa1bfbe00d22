package ports

import (
	"math"
	"sort"

	"github.com/harborsight/portscan/internal/geo"
)

// SuppressionRadiusFactor scales a cluster's eps into its suppression radius:
// a winning cluster consumes every candidate centroid within 1.5x its own eps.
const SuppressionRadiusFactor = 1.5

// CentroidIndex answers radius queries over candidate centroids during
// suppression. It is an injected capability so alternate index structures can
// replace the default grid without touching the suppression walk.
type CentroidIndex interface {
	// Build indexes the given centroids (degrees). Any previous contents are
	// discarded.
	Build(centroids []geo.Point)

	// WithinRadius returns the indices of all indexed centroids whose
	// great-circle distance from center is at most radiusRad (radians),
	// including the query centroid itself when indexed.
	WithinRadius(center geo.Point, radiusRad float64) []int
}

// CentroidGrid is the default CentroidIndex: a regular degree grid with cells
// sized to the largest query radius, so every radius query is answered from
// the 3x3 cell neighborhood with an exact haversine filter on top.
type CentroidGrid struct {
	cellLatDeg float64
	cellLonDeg float64
	centroids  []geo.Point
	cells      map[int64][]int
}

// NewCentroidGrid creates a grid index able to answer radius queries up to
// maxRadiusRad (radians).
func NewCentroidGrid(maxRadiusRad float64) *CentroidGrid {
	cellDeg := maxRadiusRad * 180.0 / math.Pi
	if cellDeg <= 0 {
		cellDeg = 1e-6
	}
	return &CentroidGrid{cellLatDeg: cellDeg}
}

// Build indexes the centroids. Longitude cells are widened by the inverse
// cosine of the extreme latitude so a 3x3 neighborhood always covers the full
// query radius.
func (g *CentroidGrid) Build(centroids []geo.Point) {
	g.centroids = centroids
	g.cells = make(map[int64][]int, len(centroids))

	maxCosInv := 1.0
	for _, c := range centroids {
		if cos := math.Cos(geo.DegToRad(c.Lat)); cos > 0.01 && 1/cos > maxCosInv {
			maxCosInv = 1 / cos
		}
	}
	g.cellLonDeg = g.cellLatDeg * maxCosInv

	for i, c := range centroids {
		g.cells[g.key(c)] = append(g.cells[g.key(c)], i)
	}
}

func (g *CentroidGrid) key(p geo.Point) int64 {
	return cellID(
		int64(math.Floor(p.Lat/g.cellLatDeg)),
		int64(math.Floor(p.Lon/g.cellLonDeg)),
	)
}

// WithinRadius returns indexed centroids within radiusRad of center.
func (g *CentroidGrid) WithinRadius(center geo.Point, radiusRad float64) []int {
	latCell := int64(math.Floor(center.Lat / g.cellLatDeg))
	lonCell := int64(math.Floor(center.Lon / g.cellLonDeg))

	centerLatRad := geo.DegToRad(center.Lat)
	centerLonRad := geo.DegToRad(center.Lon)

	var hits []int
	for dLat := int64(-1); dLat <= 1; dLat++ {
		for dLon := int64(-1); dLon <= 1; dLon++ {
			for _, idx := range g.cells[cellID(latCell+dLat, lonCell+dLon)] {
				c := g.centroids[idx]
				d := geo.HaversineRad(centerLatRad, centerLonRad,
					geo.DegToRad(c.Lat), geo.DegToRad(c.Lon))
				if d <= radiusRad {
					hits = append(hits, idx)
				}
			}
		}
	}
	return hits
}

// Verify at compile time that *CentroidGrid implements CentroidIndex.
var _ CentroidIndex = (*CentroidGrid)(nil)

// Suppressor resolves an overlapping candidate set with one greedy,
// priority-ordered spatial non-maximum-suppression walk. The same procedure
// backs both consolidation passes: Dedup discards consumed neighbors, Merge
// absorbs them into a single aggregate, so the priority, tie-break, and
// radius rules cannot drift between the two.
type Suppressor struct {
	scales []ScaleConfig
	index  CentroidIndex
}

// NewSuppressor creates a Suppressor using the ordered scale table for
// priority ranking. index may be nil, in which case a CentroidGrid sized to
// the candidates of each call is used.
func NewSuppressor(scales []ScaleConfig, index CentroidIndex) *Suppressor {
	return &Suppressor{scales: scales, index: index}
}

// suppressionGroup records one emission of the suppression walk: the winning
// candidate and every candidate it consumed (winner included).
type suppressionGroup struct {
	winner  int
	members []int
}

// walk runs the shared suppression procedure and returns the consumed groups
// in emission (priority) order.
//
// Candidates are ranked by (priority of scale key, -point count) with ties
// broken by insertion order. Each unconsumed candidate, in rank order,
// consumes everything within 1.5x its own eps. The radius is evaluated only
// from the winner's eps: this greedy resolution is deliberate, since larger
// scales are processed first and dominate.
func (s *Suppressor) walk(clusters []RawCluster) []suppressionGroup {
	if len(clusters) == 0 {
		return nil
	}

	n := len(clusters)
	centroids := make([]geo.Point, n)
	ranks := make([]int, n)
	maxEps := 0.0
	for i, c := range clusters {
		centroids[i] = c.Centroid
		ranks[i] = PriorityRank(s.scales, c.ScaleKey)
		if c.EpsKm > maxEps {
			maxEps = c.EpsKm
		}
	}

	index := s.index
	if index == nil {
		index = NewCentroidGrid(geo.KmToRad(SuppressionRadiusFactor * maxEps))
	}
	index.Build(centroids)

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if ranks[ia] != ranks[ib] {
			return ranks[ia] < ranks[ib]
		}
		return clusters[ia].PointCount > clusters[ib].PointCount
	})

	// Consumed state is local to this walk; each call is independent.
	consumed := make([]bool, n)
	var groups []suppressionGroup

	for _, idx := range order {
		if consumed[idx] {
			continue
		}

		radiusRad := geo.KmToRad(SuppressionRadiusFactor * clusters[idx].EpsKm)
		neighbors := index.WithinRadius(centroids[idx], radiusRad)

		members := make([]int, 0, len(neighbors))
		for _, nb := range neighbors {
			if !consumed[nb] {
				consumed[nb] = true
				members = append(members, nb)
			}
		}

		groups = append(groups, suppressionGroup{winner: idx, members: members})
	}

	return groups
}

// Dedup consolidates raw clusters from all scales into a non-overlapping
// candidate set: each suppression winner survives unchanged and everything it
// consumed is discarded. Output order is priority (emission) order.
func (s *Suppressor) Dedup(clusters []RawCluster) []RawCluster {
	groups := s.walk(clusters)
	if groups == nil {
		return nil
	}

	survivors := make([]RawCluster, len(groups))
	for i, g := range groups {
		survivors[i] = clusters[g.winner]
	}
	return survivors
}

// Merge absorbs each suppression group into a single MergedPort: member
// points are unioned in absorption order, point counts summed, and the
// detected scale taken from the best-ranked absorbed cluster (largest point
// count on ties). Output order is priority (emission) order.
func (s *Suppressor) Merge(clusters []RawCluster) []MergedPort {
	groups := s.walk(clusters)
	if groups == nil {
		return nil
	}

	merged := make([]MergedPort, len(groups))
	for i, g := range groups {
		var points []geo.Point
		total := 0
		best := g.members[0]
		for _, m := range g.members {
			points = append(points, clusters[m].Points...)
			total += clusters[m].PointCount
			if better(s.scales, clusters[m], clusters[best]) {
				best = m
			}
		}

		merged[i] = MergedPort{
			Centroid:      geo.Centroid(points),
			Points:        points,
			PointCount:    total,
			DetectedScale: clusters[best].ScaleKey,
			AbsorbedCount: len(g.members),
		}
	}
	return merged
}

// better reports whether cluster a outranks cluster b under the suppression
// ranking key (lower priority rank first, larger point count on ties).
func better(scales []ScaleConfig, a, b RawCluster) bool {
	ra, rb := PriorityRank(scales, a.ScaleKey), PriorityRank(scales, b.ScaleKey)
	if ra != rb {
		return ra < rb
	}
	return a.PointCount > b.PointCount
}
