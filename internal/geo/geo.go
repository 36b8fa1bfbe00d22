// Package geo provides shared geographic constants and distance math for the
// port detection pipeline. All clustering distances are great-circle
// (haversine); geometry post-processing uses a local planar approximation.
package geo

import "math"

const (
	// EarthRadiusKM is the mean Earth radius used for all angular/kilometre
	// conversions in the pipeline.
	EarthRadiusKM = 6371.0

	// KMPerDegree is the approximate north-south kilometres per degree of
	// latitude, used by the planar area approximation.
	KMPerDegree = 111.0
)

// Point is a geographic position in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// KmToRad converts a kilometre distance on the Earth's surface to the
// equivalent central angle in radians.
func KmToRad(km float64) float64 {
	return km / EarthRadiusKM
}

// RadToKm converts a central angle in radians to a kilometre distance on the
// Earth's surface.
func RadToKm(rad float64) float64 {
	return rad * EarthRadiusKM
}

// HaversineRad returns the central angle in radians between two points given
// in radians.
func HaversineRad(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := lat2 - lat1
	dLon := lon2 - lon1

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)

	a := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	return 2 * math.Asin(math.Min(1, math.Sqrt(a)))
}

// HaversineKm returns the great-circle distance in kilometres between two
// points given in degrees.
func HaversineKm(p1, p2 Point) float64 {
	rad := HaversineRad(DegToRad(p1.Lat), DegToRad(p1.Lon), DegToRad(p2.Lat), DegToRad(p2.Lon))
	return RadToKm(rad)
}

// Centroid returns the arithmetic mean of a point set in degrees. This is a
// planar approximation, not a spherical centroid, matching how cluster
// centres are reported downstream.
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}

	var sumLat, sumLon float64
	for _, p := range points {
		sumLat += p.Lat
		sumLon += p.Lon
	}

	n := float64(len(points))
	return Point{Lat: sumLat / n, Lon: sumLon / n}
}
