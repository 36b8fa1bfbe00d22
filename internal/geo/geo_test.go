package geo

import (
	"math"
	"testing"
)

func TestKmRadRoundTrip(t *testing.T) {
	for _, km := range []float64{0, 0.1, 1.5, 100} {
		got := RadToKm(KmToRad(km))
		if math.Abs(got-km) > 1e-12 {
			t.Errorf("round trip for %f km: got %f", km, got)
		}
	}
}

func TestHaversineKm_ZeroDistance(t *testing.T) {
	p := Point{Lat: 56.0, Lon: 10.0}
	if d := HaversineKm(p, p); d != 0 {
		t.Errorf("expected 0 distance, got %f", d)
	}
}

func TestHaversineKm_KnownDistance(t *testing.T) {
	// Aarhus to Copenhagen is roughly 157 km great-circle.
	aarhus := Point{Lat: 56.1629, Lon: 10.2039}
	copenhagen := Point{Lat: 55.6761, Lon: 12.5683}

	d := HaversineKm(aarhus, copenhagen)
	if d < 150 || d > 165 {
		t.Errorf("Aarhus-Copenhagen distance out of range: %f km", d)
	}
}

func TestHaversineKm_OneDegreeLatitude(t *testing.T) {
	// One degree of latitude is ~111.2 km regardless of longitude.
	d := HaversineKm(Point{Lat: 55.0, Lon: 10.0}, Point{Lat: 56.0, Lon: 10.0})
	if math.Abs(d-111.19) > 0.5 {
		t.Errorf("one degree latitude: got %f km", d)
	}
}

func TestCentroid(t *testing.T) {
	points := []Point{
		{Lat: 56.0, Lon: 10.0},
		{Lat: 56.2, Lon: 10.4},
		{Lat: 56.1, Lon: 10.2},
	}

	c := Centroid(points)
	if math.Abs(c.Lat-56.1) > 1e-9 || math.Abs(c.Lon-10.2) > 1e-9 {
		t.Errorf("unexpected centroid: %+v", c)
	}
}

func TestCentroid_Empty(t *testing.T) {
	c := Centroid(nil)
	if c.Lat != 0 || c.Lon != 0 {
		t.Errorf("expected zero point for empty input, got %+v", c)
	}
}
