package ports

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborsight/portscan/internal/geo"
)

// stubClusterer returns canned clusters per (partition, scale) and optionally
// panics for chosen partitions to exercise task failure isolation.
type stubClusterer struct {
	panicOn map[int]bool
}

func (s *stubClusterer) Cluster(part Partition, scale ScaleConfig) []RawCluster {
	if s.panicOn[part.ID] {
		panic("injected task failure")
	}
	if len(part.Points) < scale.MinSamples {
		return nil
	}
	return []RawCluster{{
		PartitionID: part.ID,
		ScaleKey:    scale.Key,
		Points:      part.Points,
		Centroid:    geo.Centroid(part.Points),
		PointCount:  len(part.Points),
		EpsKm:       scale.EpsKm,
	}}
}

func newOrchestrator(c Clusterer, workers int) *MultiScaleOrchestrator {
	return NewMultiScaleOrchestrator(testScales, c, NewSuppressor(testScales, nil), workers)
}

func TestMultiScale_EmptyPartitions(t *testing.T) {
	o := newOrchestrator(&stubClusterer{}, 2)
	assert.Nil(t, o.Run(nil))
}

func TestMultiScale_DeterministicFlattening(t *testing.T) {
	// Well-separated partitions so dedup keeps everything; result order must
	// be identical across runs regardless of worker interleaving.
	partitions := []Partition{
		{ID: 0, Points: blob(55.0, 9.0, 0.05, 200)},
		{ID: 1, Points: blob(55.5, 10.0, 0.05, 200)},
		{ID: 2, Points: blob(56.0, 11.0, 0.05, 200)},
		{ID: 3, Points: blob(56.5, 12.0, 0.05, 200)},
	}

	first := newOrchestrator(&stubClusterer{}, 4).Run(partitions)
	require.NotEmpty(t, first)

	for run := 0; run < 5; run++ {
		again := newOrchestrator(&stubClusterer{}, 3).Run(partitions)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("orchestrator output not deterministic (-first +again):\n%s", diff)
		}
	}
}

func TestMultiScale_TaskFailureIsolated(t *testing.T) {
	partitions := []Partition{
		{ID: 0, Points: blob(55.0, 9.0, 0.05, 200)},
		{ID: 1, Points: blob(56.0, 11.0, 0.05, 200)},
	}

	o := newOrchestrator(&stubClusterer{panicOn: map[int]bool{0: true}}, 2)
	got := o.Run(partitions)

	require.NotEmpty(t, got)
	for _, c := range got {
		assert.Equal(t, 1, c.PartitionID, "failed partition leaked into results")
	}
}

func TestMultiScale_DedupAppliedToPool(t *testing.T) {
	// One dense location detected at every scale: the pool holds one cluster
	// per scale, all overlapping, and dedup keeps only the highest priority.
	partitions := []Partition{{ID: 0, Points: blob(56.0, 10.0, 0.05, 200)}}

	got := newOrchestrator(&stubClusterer{}, 2).Run(partitions)
	require.Len(t, got, 1)
	assert.Equal(t, "major_ports", got[0].ScaleKey)
}

func TestMultiScale_RealClusterer(t *testing.T) {
	// End-to-end over the real DBSCAN: two dense areas ~30 km apart.
	partitions := []Partition{
		{ID: 0, Points: blob(56.0, 10.0, 0.2, 200)},
		{ID: 1, Points: blob(56.3, 10.2, 0.2, 180)},
	}

	o := NewMultiScaleOrchestrator(testScales, NewChunkClusterer(),
		NewSuppressor(testScales, nil), 2)
	got := o.Run(partitions)

	require.Len(t, got, 2)
	assert.Equal(t, "major_ports", got[0].ScaleKey)
	assert.Equal(t, "major_ports", got[1].ScaleKey)
}

func TestMultiScale_SingleWorkerMatchesMany(t *testing.T) {
	partitions := []Partition{
		{ID: 0, Points: blob(55.2, 9.4, 0.1, 160)},
		{ID: 1, Points: blob(56.1, 10.8, 0.1, 190)},
	}

	serial := newOrchestrator(&stubClusterer{}, 1).Run(partitions)
	parallel := newOrchestrator(&stubClusterer{}, 8).Run(partitions)

	if diff := cmp.Diff(serial, parallel); diff != "" {
		t.Errorf("worker count changed results (-serial +parallel):\n%s", diff)
	}
}
