package ais

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/stat"

	"github.com/harborsight/portscan/internal/config"
	"github.com/harborsight/portscan/internal/geo"
	"github.com/harborsight/portscan/internal/monitoring"
	"github.com/harborsight/portscan/internal/ports"
)

// Stats tracks how many records each filter stage retained over a whole run.
type Stats struct {
	Original       int
	AfterBasic     int
	AfterExclusion int
	AfterCOG       int
	AfterCoastline int
	Final          int
	Partitions     int
}

// Preprocessor applies the behavioral filtering pipeline to chunks of AIS
// records and turns each sufficiently dense chunk into one clustering
// partition:
//
//  1. geographic bounds + SOG threshold (stationary vessels)
//  2. exclusion of obvious non-port activity (fishing, sailing, restricted)
//  3. per-vessel COG variance (keep maneuvering or truly stationary vessels)
//  4. coastal-zone mask (drop offshore anchorages)
type Preprocessor struct {
	cfg *config.Config
}

// NewPreprocessor creates a Preprocessor for the given configuration.
func NewPreprocessor(cfg *config.Config) *Preprocessor {
	return &Preprocessor{cfg: cfg}
}

// Run streams the CSV input in ChunkSize chunks, filters each chunk, and
// emits a partition for every chunk that retains at least MinPartitionPoints
// rows. Partition IDs are assigned in read order.
func (p *Preprocessor) Run(r io.Reader) ([]ports.Partition, Stats, error) {
	reader, err := NewReader(r)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("preprocessing failed: %w", err)
	}

	var (
		stats      Stats
		partitions []ports.Partition
	)

	for {
		records, rawCount, readErr := reader.ReadChunk(p.cfg.ChunkSize)
		stats.Original += rawCount

		if part, ok := p.filterChunk(records, &stats, len(partitions)); ok {
			partitions = append(partitions, part)
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, stats, fmt.Errorf("preprocessing failed: %w", readErr)
		}
	}

	stats.Partitions = len(partitions)
	p.logStats(stats)
	return partitions, stats, nil
}

func (p *Preprocessor) filterChunk(records []Record, stats *Stats, nextID int) (ports.Partition, bool) {
	kept, ok := p.filterChunkRecords(records, stats)
	if !ok {
		return ports.Partition{}, false
	}

	points := make([]geo.Point, len(kept))
	for i, rec := range kept {
		points[i] = geo.Point{Lat: rec.Lat, Lon: rec.Lon}
	}
	stats.Final += len(points)

	return ports.Partition{ID: nextID, Points: points}, true
}

func (p *Preprocessor) filterChunkRecords(records []Record, stats *Stats) ([]Record, bool) {
	records = p.basicFilter(records)
	stats.AfterBasic += len(records)
	if len(records) == 0 {
		return nil, false
	}

	records = p.exclusionFilter(records)
	stats.AfterExclusion += len(records)
	if len(records) == 0 {
		return nil, false
	}

	records = p.cogBehavioralFilter(records)
	stats.AfterCOG += len(records)
	if len(records) == 0 {
		return nil, false
	}

	records = coastalFilter(records)
	stats.AfterCoastline += len(records)

	if len(records) < p.cfg.MinPartitionPoints {
		return nil, false
	}
	return records, true
}

// basicFilter keeps records inside the geographic bounds moving at or below
// the stationary SOG threshold.
func (p *Preprocessor) basicFilter(records []Record) []Record {
	kept := records[:0:0]
	for _, rec := range records {
		if rec.Lat < p.cfg.LatMin || rec.Lat > p.cfg.LatMax {
			continue
		}
		if rec.Lon < p.cfg.LonMin || rec.Lon > p.cfg.LonMax {
			continue
		}
		if rec.SOG > p.cfg.MaxSOG {
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}

// exclusionFilter drops records whose navigational status marks obvious
// non-port activity, keeping everything else (including unknown statuses).
func (p *Preprocessor) exclusionFilter(records []Record) []Record {
	if len(p.cfg.ExcludeStatuses) == 0 {
		return records
	}

	excluded := make(map[string]bool, len(p.cfg.ExcludeStatuses))
	for _, s := range p.cfg.ExcludeStatuses {
		excluded[s] = true
	}

	kept := records[:0:0]
	for _, rec := range records {
		if excluded[rec.Status] {
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}

// cogBehavioralFilter keeps vessels whose course-over-ground behavior is
// consistent with port activity: missing COG (truly stationary), a single
// report (variance undefined), or high COG variance (maneuvering). Vessels on
// a steady course in transit are dropped.
func (p *Preprocessor) cogBehavioralFilter(records []Record) []Record {
	cogs := make(map[string][]float64)
	for _, rec := range records {
		if rec.HasCOG {
			cogs[rec.MMSI] = append(cogs[rec.MMSI], rec.COG)
		}
	}

	// Sample variance per vessel; vessels with fewer than two COG readings
	// have no defined variance and are kept.
	variance := make(map[string]float64, len(cogs))
	for mmsi, values := range cogs {
		if len(values) > 1 {
			variance[mmsi] = stat.Variance(values, nil)
		}
	}

	kept := records[:0:0]
	for _, rec := range records {
		if !rec.HasCOG {
			kept = append(kept, rec)
			continue
		}
		v, defined := variance[rec.MMSI]
		if !defined || v >= p.cfg.COGVarianceThreshold {
			kept = append(kept, rec)
		}
	}
	return kept
}

// coastalZones approximates coastal proximity for Danish waters: a record is
// kept when it falls inside any zone. Bounds are inclusive.
type coastalZone struct {
	latMin, latMax float64
	lonMin, lonMax float64
}

var coastalZones = []coastalZone{
	// Kattegat shallow areas (between Jutland and Sweden)
	{latMin: 55.5, latMax: 57.5, lonMin: 10.5, lonMax: 12.5},
	// Belt Sea areas (between Danish islands)
	{latMin: 54.8, latMax: 56.2, lonMin: 9.5, lonMax: 11.5},
	// Coastal fjords and harbors in northern Jutland
	{latMin: 56.8, latMax: 90.0, lonMin: 9.0, lonMax: 11.0},
	// Copenhagen / Oresund area
	{latMin: 55.4, latMax: 56.2, lonMin: 12.2, lonMax: 13.0},
	// Bornholm
	{latMin: 55.0, latMax: 55.4, lonMin: 14.5, lonMax: 15.2},
}

// coastalFilter removes deep-water records while keeping coastal vessels:
// the west coast of Jutland, the eastern straits, or any approximate coastal
// zone.
func coastalFilter(records []Record) []Record {
	kept := records[:0:0]
	for _, rec := range records {
		if isCoastal(rec.Lat, rec.Lon) {
			kept = append(kept, rec)
		}
	}
	return kept
}

func isCoastal(lat, lon float64) bool {
	// West coast of Jutland and the eastern straits are close to shore for
	// the full latitude range.
	if lon <= 8.8 || lon >= 11.8 {
		return true
	}
	for _, z := range coastalZones {
		if lat >= z.latMin && lat <= z.latMax && lon >= z.lonMin && lon <= z.lonMax {
			return true
		}
	}
	return false
}

func (p *Preprocessor) logStats(stats Stats) {
	monitoring.Logf("[Preprocessor] Behavioral filtering results:")
	monitoring.Logf("[Preprocessor]   original records: %d", stats.Original)
	monitoring.Logf("[Preprocessor]   after geo bounds + SOG <= %.1f: %d", p.cfg.MaxSOG, stats.AfterBasic)
	monitoring.Logf("[Preprocessor]   after status exclusions: %d", stats.AfterExclusion)
	monitoring.Logf("[Preprocessor]   after COG behavior: %d", stats.AfterCOG)
	monitoring.Logf("[Preprocessor]   after coastline filter: %d", stats.AfterCoastline)
	monitoring.Logf("[Preprocessor]   final retained: %d in %d partitions", stats.Final, stats.Partitions)
}
