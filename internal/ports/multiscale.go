package ports

import (
	"runtime"
	"sync"
	"time"

	"github.com/harborsight/portscan/internal/monitoring"
)

// MultiScaleOrchestrator fans clustering out over the cross-product of
// partitions x scales on a bounded worker pool and consolidates the flattened
// candidate pool with one dedup suppression pass.
type MultiScaleOrchestrator struct {
	scales     []ScaleConfig
	clusterer  Clusterer
	suppressor *Suppressor
	workers    int
}

// NewMultiScaleOrchestrator creates an orchestrator. workers <= 0 selects the
// available CPU parallelism.
func NewMultiScaleOrchestrator(scales []ScaleConfig, clusterer Clusterer, suppressor *Suppressor, workers int) *MultiScaleOrchestrator {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &MultiScaleOrchestrator{
		scales:     scales,
		clusterer:  clusterer,
		suppressor: suppressor,
		workers:    workers,
	}
}

// Run clusters every partition at every scale (scales in table order) and
// returns the deduplicated candidate list. The pool is flattened in (scale
// table order, partition order) so downstream priority tie-breaks are
// reproducible. Returns nil when no clusters were found at any scale.
func (o *MultiScaleOrchestrator) Run(partitions []Partition) []RawCluster {
	monitoring.Logf("[MultiScale] Starting hierarchical clustering: %d partitions, %d scales, %d workers",
		len(partitions), len(o.scales), o.workers)

	var pool []RawCluster
	for _, scale := range o.scales {
		start := time.Now()
		monitoring.Logf("[MultiScale] Scale %s (%s): eps_km=%.2f min_samples=%d",
			scale.Key, scale.Label, scale.EpsKm, scale.MinSamples)

		found := o.runScale(partitions, scale)
		pool = append(pool, found...)

		monitoring.Logf("[MultiScale] Scale %s: %d clusters in %.1fs",
			scale.Key, len(found), time.Since(start).Seconds())
	}

	monitoring.Logf("[MultiScale] Total raw clusters (all scales): %d", len(pool))
	if len(pool) == 0 {
		return nil
	}

	deduped := o.suppressor.Dedup(pool)
	monitoring.Logf("[MultiScale] After deduplication: %d clusters", len(deduped))
	return deduped
}

// runScale clusters all partitions at one scale in parallel and flattens the
// results in partition order. Tasks are independent: each worker writes only
// its own result slot, so the join is the only synchronization point.
func (o *MultiScaleOrchestrator) runScale(partitions []Partition, scale ScaleConfig) []RawCluster {
	results := make([][]RawCluster, len(partitions))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < o.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = o.clusterOne(partitions[i], scale)
			}
		}()
	}

	for i := range partitions {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var flat []RawCluster
	for _, r := range results {
		flat = append(flat, r...)
	}
	return flat
}

// clusterOne runs one clustering task with panic isolation: a failing task is
// logged and contributes an empty result, never aborting its siblings.
func (o *MultiScaleOrchestrator) clusterOne(part Partition, scale ScaleConfig) (out []RawCluster) {
	defer func() {
		if r := recover(); r != nil {
			monitoring.Logf("[MultiScale] Task failed for partition %d at scale %s: %v",
				part.ID, scale.Key, r)
			out = nil
		}
	}()
	return o.clusterer.Cluster(part, scale)
}
