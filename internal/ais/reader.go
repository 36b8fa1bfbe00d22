// Package ais ingests raw AIS position reports and filters them into clean
// spatial partitions of stationary, port-adjacent vessel activity, ready for
// multi-scale clustering.
package ais

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Record is one parsed AIS position report. COG is optional in the source
// data; HasCOG distinguishes a missing course from a zero course.
type Record struct {
	MMSI   string
	Lat    float64
	Lon    float64
	SOG    float64
	COG    float64
	HasCOG bool
	Status string
}

// Column names as they appear in AIS CSV exports.
const (
	colLatitude  = "Latitude"
	colLongitude = "Longitude"
	colSOG       = "SOG"
	colMMSI      = "MMSI"
	colCOG       = "COG"
	colStatus    = "Navigational status"
)

// Reader streams Records from an AIS CSV export in fixed-size chunks. Rows
// missing any of the required Latitude/Longitude/SOG/MMSI fields are dropped,
// matching the upstream guarantee that partitions only contain usable rows.
type Reader struct {
	csv       *csv.Reader
	latIdx    int
	lonIdx    int
	sogIdx    int
	mmsiIdx   int
	cogIdx    int // -1 when absent
	statusIdx int // -1 when absent
}

// NewReader wraps r and parses the CSV header. Returns an error if any
// required column is missing.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	idx := func(name string) int {
		for i, h := range header {
			if strings.TrimSpace(h) == name {
				return i
			}
		}
		return -1
	}

	reader := &Reader{
		csv:       cr,
		latIdx:    idx(colLatitude),
		lonIdx:    idx(colLongitude),
		sogIdx:    idx(colSOG),
		mmsiIdx:   idx(colMMSI),
		cogIdx:    idx(colCOG),
		statusIdx: idx(colStatus),
	}

	for _, req := range []struct {
		name string
		idx  int
	}{
		{colLatitude, reader.latIdx},
		{colLongitude, reader.lonIdx},
		{colSOG, reader.sogIdx},
		{colMMSI, reader.mmsiIdx},
	} {
		if req.idx < 0 {
			return nil, fmt.Errorf("required column %q not found in CSV header", req.name)
		}
	}

	return reader, nil
}

// ReadChunk reads up to max raw rows and returns the parseable ones. A short
// or empty result with io.EOF means the input is exhausted. rawCount reports
// how many rows were consumed, including dropped ones. Malformed rows are
// dropped; errors from the underlying reader are not row-shaped and would
// repeat forever, so they are returned instead.
func (r *Reader) ReadChunk(max int) (records []Record, rawCount int, err error) {
	records = make([]Record, 0, max)

	for rawCount < max {
		row, readErr := r.csv.Read()
		if readErr == io.EOF {
			return records, rawCount, io.EOF
		}
		if readErr != nil {
			var parseErr *csv.ParseError
			if errors.As(readErr, &parseErr) {
				// Malformed row: count it, drop it, keep going.
				rawCount++
				continue
			}
			return records, rawCount, fmt.Errorf("failed to read CSV row: %w", readErr)
		}
		rawCount++

		rec, ok := r.parseRow(row)
		if !ok {
			continue
		}
		records = append(records, rec)
	}

	return records, rawCount, nil
}

func (r *Reader) parseRow(row []string) (Record, bool) {
	get := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	lat, err := strconv.ParseFloat(get(r.latIdx), 64)
	if err != nil {
		return Record{}, false
	}
	lon, err := strconv.ParseFloat(get(r.lonIdx), 64)
	if err != nil {
		return Record{}, false
	}
	sog, err := strconv.ParseFloat(get(r.sogIdx), 64)
	if err != nil {
		return Record{}, false
	}
	mmsi := get(r.mmsiIdx)
	if mmsi == "" {
		return Record{}, false
	}

	rec := Record{
		MMSI:   mmsi,
		Lat:    lat,
		Lon:    lon,
		SOG:    sog,
		Status: get(r.statusIdx),
	}

	if cogStr := get(r.cogIdx); cogStr != "" {
		if cog, err := strconv.ParseFloat(cogStr, 64); err == nil {
			rec.COG = cog
			rec.HasCOG = true
		}
	}

	return rec, true
}
