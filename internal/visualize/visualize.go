// Package visualize renders detection output as an interactive HTML map
// (go-echarts) and static summary plots (gonum/plot).
package visualize

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/harborsight/portscan/internal/config"
	"github.com/harborsight/portscan/internal/monitoring"
	"github.com/harborsight/portscan/internal/ports"
)

// viridis-like ramp for the density visual map.
var densityColors = []string{
	"#440154", "#3e4989", "#26828e", "#35b779", "#b5de2b", "#fde725",
}

// RenderMap writes an HTML scatter map of detected ports to w. Each point is
// (lon, lat, area) so the visual map colors ports by footprint.
func RenderMap(w io.Writer, final []ports.FinalPort) error {
	data := make([]opts.ScatterData, 0, len(final))
	minLat, maxLat := 90.0, -90.0
	minLon, maxLon := 180.0, -180.0
	maxArea := 0.0
	for _, p := range final {
		data = append(data, opts.ScatterData{
			Name:  fmt.Sprintf("%s (%.2f km2, %d vessels)", p.Category, p.AreaKm2, p.PointCount),
			Value: []interface{}{p.Centroid.Lon, p.Centroid.Lat, p.AreaKm2},
		})
		minLat = min(minLat, p.Centroid.Lat)
		maxLat = max(maxLat, p.Centroid.Lat)
		minLon = min(minLon, p.Centroid.Lon)
		maxLon = max(maxLon, p.Centroid.Lon)
		maxArea = max(maxArea, p.AreaKm2)
	}
	if len(final) == 0 {
		minLat, maxLat, minLon, maxLon = 54, 58, 7, 13
	}
	latPad := (maxLat-minLat)*0.1 + 0.05
	lonPad := (maxLon-minLon)*0.1 + 0.05

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Detected Ports", Width: "1000px", Height: "800px"}),
		charts.WithTitleOpts(opts.Title{Title: "Detected Ports", Subtitle: fmt.Sprintf("ports=%d", len(final))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: minLon - lonPad, Max: maxLon + lonPad, Name: "Longitude", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: minLat - latPad, Max: maxLat + latPad, Name: "Latitude", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxArea),
			Text:       []string{"km2", ""},
			InRange:    &opts.VisualMapInRange{Color: densityColors},
		}),
	)
	scatter.AddSeries("ports", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}))

	return scatter.Render(w)
}

// WriteMap renders the HTML map into dir/port_map.html.
func WriteMap(dir string, final []ports.FinalPort) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, "port_map.html")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create map file: %w", err)
	}
	defer f.Close()
	if err := RenderMap(f, final); err != nil {
		return "", fmt.Errorf("failed to render map: %w", err)
	}
	monitoring.Logf("[Visualize] Saved map: %s", path)
	return path, nil
}

// WritePlots saves static PNG summaries into dir: an area-vs-density scatter
// and a per-category count bar chart. It returns the written paths.
func WritePlots(dir string, cfg *config.Config, final []ports.FinalPort) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	areaFile := filepath.Join(dir, "port_area_density.png")
	if err := savePortAreaPlot(areaFile, final); err != nil {
		return nil, err
	}

	catFile := filepath.Join(dir, "port_categories.png")
	if err := saveCategoryPlot(catFile, cfg, final); err != nil {
		return nil, err
	}

	monitoring.Logf("[Visualize] Saved plots: %s, %s", areaFile, catFile)
	return []string{areaFile, catFile}, nil
}

func savePortAreaPlot(path string, final []ports.FinalPort) error {
	p := plot.New()
	p.Title.Text = "Port Area vs Vessel Density"
	p.X.Label.Text = "Area (km2)"
	p.Y.Label.Text = "Density (vessels/km2)"

	pts := make(plotter.XYs, 0, len(final))
	for _, port := range final {
		pts = append(pts, plotter.XY{X: port.AreaKm2, Y: port.VesselDensity})
	}

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("failed to build area scatter: %w", err)
	}
	scatter.GlyphStyle.Radius = vg.Points(3)
	p.Add(scatter)

	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save area plot: %w", err)
	}
	return nil
}

func saveCategoryPlot(path string, cfg *config.Config, final []ports.FinalPort) error {
	counts := make(map[string]int)
	for _, port := range final {
		counts[port.Category]++
	}

	// Category table order keeps bars stable run to run.
	labels := make([]string, 0, len(cfg.Categories))
	values := make(plotter.Values, 0, len(cfg.Categories))
	for _, cat := range cfg.Categories {
		labels = append(labels, cat.Name)
		values = append(values, float64(counts[cat.Name]))
	}

	p := plot.New()
	p.Title.Text = "Ports per Category"
	p.Y.Label.Text = "Ports"

	bars, err := plotter.NewBarChart(values, vg.Points(30))
	if err != nil {
		return fmt.Errorf("failed to build category bars: %w", err)
	}
	p.Add(bars)
	p.NominalX(labels...)

	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save category plot: %w", err)
	}
	return nil
}
