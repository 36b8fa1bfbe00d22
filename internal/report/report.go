// Package report renders a plain-text summary of one detection run:
// configuration, preprocessing statistics, detection results, categorization,
// and per-port details.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/harborsight/portscan/internal/ais"
	"github.com/harborsight/portscan/internal/config"
	"github.com/harborsight/portscan/internal/monitoring"
	"github.com/harborsight/portscan/internal/ports"
)

// Generator builds the detection report for one run.
type Generator struct {
	cfg   *config.Config
	now   func() time.Time
	final []ports.FinalPort
	stats ais.Stats
}

// NewGenerator creates a report generator for the given run results.
func NewGenerator(cfg *config.Config, final []ports.FinalPort, stats ais.Stats) *Generator {
	return &Generator{cfg: cfg, now: time.Now, final: final, stats: stats}
}

// WriteTo renders the report to w.
func (g *Generator) WriteTo(w io.Writer) error {
	_, err := io.WriteString(w, g.Render())
	return err
}

// WriteFile renders the report into dir/port_detection_report.txt, creating
// the directory if needed, and returns the written path.
func (g *Generator) WriteFile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(dir, "port_detection_report.txt")
	if err := os.WriteFile(path, []byte(g.Render()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	monitoring.Logf("[Report] Saved report: %s", path)
	return path, nil
}

// Render builds the full report text.
func (g *Generator) Render() string {
	var b strings.Builder

	line := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line("MULTI-SCALE PORT DETECTION REPORT")
	line("=================================")
	line("")
	line("CORE ALGORITHM: density-based spatial clustering (haversine metric)")
	line("")

	line("HIERARCHICAL CONFIGURATION:")
	for _, s := range g.cfg.Scales {
		count := 0
		for _, p := range g.final {
			if p.DetectedScale == s.Key {
				count++
			}
		}
		line("- %s: eps_km=%.2f, min_samples=%d -> %d ports",
			s.Label, s.EpsKm, s.MinSamples, count)
	}
	line("")

	line("PREPROCESSING:")
	line("- Stationary vessel filter: SOG <= %.1f knots", g.cfg.MaxSOG)
	line("- Geographic bounds: lat [%.1f, %.1f], lon [%.1f, %.1f]",
		g.cfg.LatMin, g.cfg.LatMax, g.cfg.LonMin, g.cfg.LonMax)
	clustered := 0
	for _, p := range g.final {
		clustered += p.PointCount
	}
	stationary := g.stats.Final
	if stationary == 0 {
		stationary = 1
	}
	line("- Filtering efficiency: %d / %d stationary reports clustered (%.1f%%)",
		clustered, g.stats.Final, float64(clustered)/float64(stationary)*100)
	line("")

	line("PORT DETECTION RESULTS:")
	line("- Total ports detected: %d", len(g.final))
	if len(g.final) > 0 {
		areas := make([]float64, len(g.final))
		for i, p := range g.final {
			areas[i] = p.AreaKm2
		}
		// Final list is sorted by area descending.
		line("- Area range: %.3f - %.3f km2", areas[len(areas)-1], areas[0])
		line("- Average area: %.3f km2", stat.Mean(areas, nil))
	}
	line("")

	line("PORT CATEGORIZATION:")
	counts := make(map[string]int)
	for _, p := range g.final {
		counts[p.Category]++
	}
	for _, cat := range g.cfg.Categories {
		if n := counts[cat.Name]; n > 0 {
			line("- %s (%.2f-%.2f km2): %d ports", cat.Name, cat.MinKm2, cat.MaxKm2, n)
		}
	}
	line("")

	line("PER-PORT DETAILS:")
	for i, p := range g.final {
		label := p.DetectedScale
		if s, ok := g.cfg.ScaleByKey(p.DetectedScale); ok {
			label = s.Label
		}
		line("%2d. %s (Scale: %s)", i+1, p.Category, label)
		line("    - Location: %.4f, %.4f", p.Centroid.Lat, p.Centroid.Lon)
		line("    - Area: %.3f km2, Vessels: %d, Density: %.0f/km2",
			p.AreaKm2, p.PointCount, p.VesselDensity)
		line("    - Clusters merged: %d, Max distance: %.2f km",
			p.AbsorbedCount, p.MaxDistanceKm)
		line("")
	}

	line("Generated on: %s", g.now().Format("2006-01-02 15:04:05"))
	return b.String()
}
