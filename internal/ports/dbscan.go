package ports

import (
	"math"

	"github.com/harborsight/portscan/internal/geo"
)

// estimatedPointsPerCell sizes the initial spatial index allocation.
const estimatedPointsPerCell = 4

// gridSafetyFactor widens index cells slightly beyond the worst-case
// projection stretch so the 3x3 cell neighborhood always covers the full
// haversine eps ball.
const gridSafetyFactor = 1.05

// dbscanPoint carries one input position in the two coordinate systems the
// clusterer needs: radians for the exact haversine membership test, and a
// local equirectangular projection in kilometres for spatial index cells.
type dbscanPoint struct {
	latRad, lonRad float64
	x, y           float64 // local planar km
}

// projectPoints converts degree positions to dbscanPoints. The planar frame
// is an equirectangular projection anchored at the mean latitude of the
// input. For a point pair at latitude lat the projection stretches east-west
// separation by cos(lat0)/cos(lat), so the returned stretch factor is that
// ratio at the input's extreme latitude (at least 1); index cells must be
// widened by it or an in-eps pair can land more than one cell apart.
func projectPoints(points []geo.Point) ([]dbscanPoint, float64) {
	var sumLat float64
	for _, p := range points {
		sumLat += p.Lat
	}
	cosLat0 := math.Cos(geo.DegToRad(sumLat / float64(len(points))))

	minCos := 1.0
	out := make([]dbscanPoint, len(points))
	for i, p := range points {
		latRad := geo.DegToRad(p.Lat)
		lonRad := geo.DegToRad(p.Lon)
		out[i] = dbscanPoint{
			latRad: latRad,
			lonRad: lonRad,
			x:      geo.EarthRadiusKM * lonRad * cosLat0,
			y:      geo.EarthRadiusKM * latRad,
		}
		if cos := math.Cos(latRad); cos > 0.01 && cos < minCos {
			minCos = cos
		}
	}

	stretch := cosLat0 / minCos
	if stretch < 1 {
		stretch = 1
	}
	return out, stretch
}

// pointGrid is a regular-grid spatial index over projected points. Cell size
// should approximately match the DBSCAN eps parameter.
type pointGrid struct {
	cellSize float64
	grid     map[int64][]int // cell ID -> point indices
}

func newPointGrid(cellSize float64) *pointGrid {
	return &pointGrid{
		cellSize: cellSize,
		grid:     make(map[int64][]int),
	}
}

func (g *pointGrid) build(points []dbscanPoint) {
	g.grid = make(map[int64][]int, len(points)/estimatedPointsPerCell+1)
	for i, p := range points {
		id := cellID(int64(math.Floor(p.x/g.cellSize)), int64(math.Floor(p.y/g.cellSize)))
		g.grid[id] = append(g.grid[id], i)
	}
}

// cellID maps a signed cell coordinate pair to a unique int64 using zigzag
// encoding followed by Szudzik's pairing function.
func cellID(cellX, cellY int64) int64 {
	var a, b int64
	if cellX >= 0 {
		a = 2 * cellX
	} else {
		a = -2*cellX - 1
	}
	if cellY >= 0 {
		b = 2 * cellY
	} else {
		b = -2*cellY - 1
	}

	if a >= b {
		return a*a + a + b
	}
	return a + b*b
}

// regionQuery returns indices of all points within epsRad (haversine, in
// radians) of points[idx]. Candidates are gathered from the 3x3 cell
// neighborhood; the exact great-circle distance is the final filter.
func (g *pointGrid) regionQuery(points []dbscanPoint, idx int, epsRad float64) []int {
	p := points[idx]
	cellX := int64(math.Floor(p.x / g.cellSize))
	cellY := int64(math.Floor(p.y / g.cellSize))

	var neighbors []int
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for _, cand := range g.grid[cellID(cellX+dx, cellY+dy)] {
				c := points[cand]
				if geo.HaversineRad(p.latRad, p.lonRad, c.latRad, c.lonRad) <= epsRad {
					neighbors = append(neighbors, cand)
				}
			}
		}
	}
	return neighbors
}

// dbscan performs density-based clustering over geographic points using the
// haversine metric. epsKm is the neighborhood radius in kilometres and
// minSamples the minimum neighborhood size (including the point itself) for a
// core point. Returns per-cluster point index lists; noise points appear in
// no cluster.
//
// Border points reachable from multiple clusters are claimed by the first
// core point to reach them during the in-order scan, so the labelling is
// deterministic for a fixed input ordering.
func dbscan(points []geo.Point, epsKm float64, minSamples int) [][]int {
	if len(points) == 0 {
		return nil
	}

	projected, stretch := projectPoints(points)
	epsRad := geo.KmToRad(epsKm)

	grid := newPointGrid(epsKm * stretch * gridSafetyFactor)
	grid.build(projected)

	n := len(points)
	labels := make([]int, n) // 0=unvisited, -1=noise, >0=cluster ID
	clusterID := 0

	for i := 0; i < n; i++ {
		if labels[i] != 0 {
			continue
		}

		neighbors := grid.regionQuery(projected, i, epsRad)
		if len(neighbors) < minSamples {
			labels[i] = -1
			continue
		}

		clusterID++
		expandCluster(projected, grid, labels, i, neighbors, clusterID, epsRad, minSamples)
	}

	return groupByLabel(labels, clusterID)
}

// expandCluster grows a cluster outward from a core point using a queue of
// reachable neighbors.
func expandCluster(points []dbscanPoint, grid *pointGrid, labels []int,
	seedIdx int, neighbors []int, clusterID int, epsRad float64, minSamples int) {

	labels[seedIdx] = clusterID

	for j := 0; j < len(neighbors); j++ {
		idx := neighbors[j]

		if labels[idx] == -1 {
			labels[idx] = clusterID // noise becomes a border point
		}
		if labels[idx] != 0 {
			continue
		}

		labels[idx] = clusterID
		next := grid.regionQuery(points, idx, epsRad)
		if len(next) >= minSamples {
			// Core point: its neighborhood joins the expansion queue.
			neighbors = append(neighbors, next...)
		}
	}
}

// groupByLabel collects point indices per cluster label, preserving input
// order within each cluster.
func groupByLabel(labels []int, maxClusterID int) [][]int {
	if maxClusterID == 0 {
		return nil
	}

	clusters := make([][]int, maxClusterID)
	for i, label := range labels {
		if label > 0 {
			clusters[label-1] = append(clusters[label-1], i)
		}
	}
	return clusters
}
