package ports

import "github.com/harborsight/portscan/internal/monitoring"

// DetectorConfig carries everything the detection core needs; the caller
// (normally internal/config) supplies the ordered tables and bounds.
type DetectorConfig struct {
	Scales         []ScaleConfig
	Categories     []SizeCategory
	MinPortAreaKm2 float64
	MaxPortAreaKm2 float64
	Workers        int

	// Index optionally substitutes the spatial index used during
	// suppression; nil selects the default CentroidGrid.
	Index CentroidIndex
}

// Detector wires the full detection flow: multi-scale clustering, dedup
// suppression, merge suppression, geometry analysis.
type Detector struct {
	orchestrator *MultiScaleOrchestrator
	suppressor   *Suppressor
	analyzer     *GeometryAnalyzer
}

// NewDetector assembles a Detector from the given configuration.
func NewDetector(cfg DetectorConfig) *Detector {
	suppressor := NewSuppressor(cfg.Scales, cfg.Index)
	return &Detector{
		orchestrator: NewMultiScaleOrchestrator(cfg.Scales, NewChunkClusterer(), suppressor, cfg.Workers),
		suppressor:   suppressor,
		analyzer:     NewGeometryAnalyzer(cfg.Categories, cfg.MinPortAreaKm2, cfg.MaxPortAreaKm2),
	}
}

// Detect runs the whole pipeline over the partitions and returns the final
// port list sorted by area descending. An empty result means no candidates
// survived; it is a normal terminal state, not a failure.
func (d *Detector) Detect(partitions []Partition) []FinalPort {
	candidates := d.orchestrator.Run(partitions)
	if len(candidates) == 0 {
		monitoring.Logf("[Detector] No candidate clusters found")
		return nil
	}

	merged := d.suppressor.Merge(candidates)
	monitoring.Logf("[Detector] Merged %d candidates into %d ports", len(candidates), len(merged))

	final := d.analyzer.Analyze(merged)
	monitoring.Logf("[Detector] %d ports survived geometry analysis and area bounds", len(final))
	return final
}
