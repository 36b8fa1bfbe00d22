package ais

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborsight/portscan/internal/config"
)

// testConfig returns defaults with a small partition gate so unit tests can
// work with handfuls of records.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.MinPartitionPoints = 2
	cfg.ChunkSize = 1000
	return cfg
}

// moored builds a stationary record inside the Kattegat coastal zone.
func moored(mmsi string, lat, lon float64) Record {
	return Record{MMSI: mmsi, Lat: lat, Lon: lon, SOG: 0.1, Status: "Moored"}
}

func TestBasicFilter(t *testing.T) {
	p := NewPreprocessor(testConfig())

	records := []Record{
		moored("a", 56.0, 11.0),                                      // kept
		{MMSI: "b", Lat: 60.0, Lon: 11.0, SOG: 0.1},                  // lat out of bounds
		{MMSI: "c", Lat: 56.0, Lon: 20.0, SOG: 0.1},                  // lon out of bounds
		{MMSI: "d", Lat: 56.0, Lon: 11.0, SOG: 12.0},                 // moving
		{MMSI: "e", Lat: 56.0, Lon: 11.0, SOG: 0.5, Status: "Moored"}, // SOG at threshold: kept
	}

	kept := p.basicFilter(records)
	require.Len(t, kept, 2)
	assert.Equal(t, "a", kept[0].MMSI)
	assert.Equal(t, "e", kept[1].MMSI)
}

func TestExclusionFilter(t *testing.T) {
	p := NewPreprocessor(testConfig())

	records := []Record{
		{MMSI: "a", Status: "Moored"},
		{MMSI: "b", Status: "Engaged in fishing"},
		{MMSI: "c", Status: "Under way sailing"},
		{MMSI: "d", Status: "Restricted maneuverability"},
		{MMSI: "e", Status: ""}, // unknown status is kept
	}

	kept := p.exclusionFilter(records)
	require.Len(t, kept, 2)
	assert.Equal(t, "a", kept[0].MMSI)
	assert.Equal(t, "e", kept[1].MMSI)
}

func TestCOGBehavioralFilter(t *testing.T) {
	p := NewPreprocessor(testConfig())

	records := []Record{
		// Vessel "steady": two near-identical courses, low variance: dropped.
		{MMSI: "steady", COG: 180.0, HasCOG: true},
		{MMSI: "steady", COG: 180.5, HasCOG: true},
		// Vessel "maneuver": swinging course, high variance: kept.
		{MMSI: "maneuver", COG: 10.0, HasCOG: true},
		{MMSI: "maneuver", COG: 95.0, HasCOG: true},
		{MMSI: "maneuver", COG: 200.0, HasCOG: true},
		// Vessel "silent": no COG at all: kept.
		{MMSI: "silent"},
		// Vessel "single": one reading, variance undefined: kept.
		{MMSI: "single", COG: 45.0, HasCOG: true},
	}

	kept := p.cogBehavioralFilter(records)

	var mmsis []string
	for _, rec := range kept {
		mmsis = append(mmsis, rec.MMSI)
	}
	assert.ElementsMatch(t,
		[]string{"maneuver", "maneuver", "maneuver", "silent", "single"}, mmsis)
}

func TestIsCoastal(t *testing.T) {
	cases := []struct {
		name     string
		lat, lon float64
		want     bool
	}{
		{"west coast of Jutland", 56.0, 8.5, true},
		{"eastern straits", 55.0, 12.5, true},
		{"Kattegat zone", 56.5, 11.0, true},
		{"Belt Sea zone", 55.0, 10.0, true},
		{"Copenhagen area", 55.7, 12.6, true},
		{"Bornholm", 55.2, 14.9, true},
		{"central deep water", 57.8, 9.8, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isCoastal(tc.lat, tc.lon))
		})
	}
}

func TestPreprocessor_Run(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(sampleHeader)
	// 30 moored vessels clustered in the Kattegat coastal zone.
	for i := 0; i < 30; i++ {
		sb.WriteString("21900000,56.1500,11.2200,0.1,,Moored\n")
	}
	// A few fast movers and one fishing vessel that must be filtered out.
	sb.WriteString("300000001,56.15,11.22,14.0,,Under way using engine\n")
	sb.WriteString("300000002,56.15,11.22,0.1,,Engaged in fishing\n")

	cfg := testConfig()
	cfg.MinPartitionPoints = 25

	partitions, stats, err := NewPreprocessor(cfg).Run(strings.NewReader(sb.String()))
	require.NoError(t, err)

	require.Len(t, partitions, 1)
	assert.Equal(t, 0, partitions[0].ID)
	assert.Len(t, partitions[0].Points, 30)

	assert.Equal(t, 32, stats.Original)
	assert.Equal(t, 31, stats.AfterBasic)
	assert.Equal(t, 30, stats.AfterExclusion)
	assert.Equal(t, 30, stats.Final)
	assert.Equal(t, 1, stats.Partitions)
}

func TestPreprocessor_Run_TooFewPointsNoPartition(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(sampleHeader)
	for i := 0; i < 5; i++ {
		sb.WriteString("21900000,56.1500,11.2200,0.1,,Moored\n")
	}

	cfg := testConfig()
	cfg.MinPartitionPoints = 25

	partitions, stats, err := NewPreprocessor(cfg).Run(strings.NewReader(sb.String()))
	require.NoError(t, err)
	assert.Empty(t, partitions)
	assert.Equal(t, 0, stats.Final)
}

func TestPreprocessor_Run_MultiplePartitions(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(sampleHeader)
	for i := 0; i < 20; i++ {
		sb.WriteString("21900000,56.1500,11.2200,0.1,,Moored\n")
	}

	cfg := testConfig()
	cfg.ChunkSize = 10
	cfg.MinPartitionPoints = 5

	partitions, _, err := NewPreprocessor(cfg).Run(strings.NewReader(sb.String()))
	require.NoError(t, err)
	require.Len(t, partitions, 2)
	assert.Equal(t, 0, partitions[0].ID)
	assert.Equal(t, 1, partitions[1].ID)
	assert.Len(t, partitions[0].Points, 10)
	assert.Len(t, partitions[1].Points, 10)
}

func TestPreprocessor_Run_BadHeader(t *testing.T) {
	_, _, err := NewPreprocessor(testConfig()).Run(strings.NewReader("nope\n"))
	assert.Error(t, err)
}

func TestPreprocessor_Run_TransportError(t *testing.T) {
	// A persistent I/O failure mid-stream must terminate the chunk loop
	// with an error rather than being skipped as malformed rows forever.
	diskErr := errors.New("disk read error")
	input := sampleHeader + "219000001,56.0,11.0,0.1,180,Moored\n"

	_, _, err := NewPreprocessor(testConfig()).Run(
		&failingReader{prefix: strings.NewReader(input), err: diskErr})
	require.ErrorIs(t, err, diskErr)
}
