package ports

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDetector(workers int) *Detector {
	return NewDetector(DetectorConfig{
		Scales:         testScales,
		Categories:     testCategories,
		MinPortAreaKm2: 0.01,
		MaxPortAreaKm2: 20.0,
		Workers:        workers,
	})
}

func TestDetector_EndToEnd(t *testing.T) {
	// Two stationary-vessel concentrations ~33 km apart, split across
	// partitions the way the preprocessor chunks a day of AIS data.
	partitions := []Partition{
		{ID: 0, Points: blob(56.0, 10.0, 0.2, 120)},
		{ID: 1, Points: blob(56.0, 10.0, 0.25, 100)}, // same port, next chunk
		{ID: 2, Points: blob(56.3, 10.2, 0.2, 90)},
	}

	final := newTestDetector(2).Detect(partitions)
	require.Len(t, final, 2)

	// Sorted by area descending.
	assert.GreaterOrEqual(t, final[0].AreaKm2, final[1].AreaKm2)

	for _, p := range final {
		assert.Positive(t, p.AreaKm2)
		assert.Positive(t, p.PointCount)
		assert.GreaterOrEqual(t, p.AbsorbedCount, 1)
		assert.Positive(t, p.VesselDensity)
		assert.NotEmpty(t, p.Category)
		assert.NotEmpty(t, p.DetectedScale)
		assert.InDelta(t, float64(p.PointCount)/p.AreaKm2, p.VesselDensity, 1e-9)
	}

	// The dedup pass discards partition 1's duplicate detection of the first
	// port outright, so only the winning clusters' points remain.
	total := final[0].PointCount + final[1].PointCount
	assert.Equal(t, 120+90, total)
	assert.Equal(t, "regional_ports", final[0].DetectedScale)
	assert.Equal(t, "regional_ports", final[1].DetectedScale)
}

func TestDetector_NoCandidates(t *testing.T) {
	// Partitions too small for any scale's min_samples.
	partitions := []Partition{
		{ID: 0, Points: blob(56.0, 10.0, 0.05, 5)},
		{ID: 1, Points: blob(56.3, 10.2, 0.05, 3)},
	}

	assert.Nil(t, newTestDetector(2).Detect(partitions))
}

func TestDetector_EmptyInput(t *testing.T) {
	assert.Nil(t, newTestDetector(1).Detect(nil))
}
