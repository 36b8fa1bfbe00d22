package ports

import (
	"github.com/harborsight/portscan/internal/geo"
	"github.com/harborsight/portscan/internal/monitoring"
)

// Clusterer produces raw clusters for one partition at one scale. The
// orchestrator fans a Clusterer out over partitions x scales; tests can
// substitute a stub implementation.
type Clusterer interface {
	Cluster(part Partition, scale ScaleConfig) []RawCluster
}

// ChunkClusterer runs one haversine DBSCAN pass over one partition at one
// scale. It is a pure function of (partition, scale): no state is kept
// between invocations, so a single instance is safe to share across workers.
type ChunkClusterer struct{}

// NewChunkClusterer creates a ChunkClusterer.
func NewChunkClusterer() *ChunkClusterer {
	return &ChunkClusterer{}
}

// Cluster clusters one partition at one scale. A partition with fewer rows
// than the scale's MinSamples yields no clusters: it cannot contain one at
// this resolution, and that is not an error. Any panic while clustering is
// recovered, logged with the partition and scale identifiers, and treated as
// an empty result so one bad partition never aborts the run.
func (c *ChunkClusterer) Cluster(part Partition, scale ScaleConfig) (clusters []RawCluster) {
	defer func() {
		if r := recover(); r != nil {
			monitoring.Logf("[ChunkClusterer] Recovered clustering partition %d at scale %s: %v",
				part.ID, scale.Key, r)
			clusters = nil
		}
	}()

	if len(part.Points) < scale.MinSamples {
		monitoring.Debugf("[ChunkClusterer] Partition %d: %d points below min_samples %d at scale %s",
			part.ID, len(part.Points), scale.MinSamples, scale.Key)
		return nil
	}

	for _, idxs := range dbscan(part.Points, scale.EpsKm, scale.MinSamples) {
		if len(idxs) == 0 {
			continue
		}

		members := make([]geo.Point, len(idxs))
		for i, idx := range idxs {
			members[i] = part.Points[idx]
		}

		clusters = append(clusters, RawCluster{
			PartitionID:    part.ID,
			ScaleKey:       scale.Key,
			Points:         members,
			Centroid:       geo.Centroid(members),
			PointCount:     len(members),
			EpsKm:          scale.EpsKm,
			MinSamplesUsed: scale.MinSamples,
		})
	}

	monitoring.Debugf("[ChunkClusterer] Partition %d at scale %s: %d clusters",
		part.ID, scale.Key, len(clusters))
	return clusters
}

// Verify at compile time that *ChunkClusterer implements Clusterer.
var _ Clusterer = (*ChunkClusterer)(nil)
