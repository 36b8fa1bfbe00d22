package ais

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHeader = "MMSI,Latitude,Longitude,SOG,COG,Navigational status\n"

// failingReader yields its prefix, then fails every subsequent Read with err.
type failingReader struct {
	prefix io.Reader
	err    error
}

func (f *failingReader) Read(p []byte) (int, error) {
	n, readErr := f.prefix.Read(p)
	if n > 0 {
		return n, nil
	}
	if readErr == io.EOF {
		return 0, f.err
	}
	return n, readErr
}

func TestNewReader_MissingRequiredColumn(t *testing.T) {
	_, err := NewReader(strings.NewReader("MMSI,Latitude,Longitude\nx,1,2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SOG")
}

func TestReader_ParsesRows(t *testing.T) {
	input := sampleHeader +
		"219000001,56.15,10.22,0.1,182.4,Moored\n" +
		"219000002,56.16,10.23,0.0,,At anchor\n"

	r, err := NewReader(strings.NewReader(input))
	require.NoError(t, err)

	records, raw, readErr := r.ReadChunk(10)
	assert.Equal(t, io.EOF, readErr)
	assert.Equal(t, 2, raw)
	require.Len(t, records, 2)

	assert.Equal(t, "219000001", records[0].MMSI)
	assert.Equal(t, 56.15, records[0].Lat)
	assert.Equal(t, 10.22, records[0].Lon)
	assert.Equal(t, 0.1, records[0].SOG)
	assert.True(t, records[0].HasCOG)
	assert.Equal(t, 182.4, records[0].COG)
	assert.Equal(t, "Moored", records[0].Status)

	assert.False(t, records[1].HasCOG, "empty COG should parse as missing")
}

func TestReader_DropsUnparseableRows(t *testing.T) {
	input := sampleHeader +
		"219000001,not-a-number,10.22,0.1,180,Moored\n" +
		"219000002,56.16,10.23,0.0,90,Moored\n" +
		",56.17,10.24,0.0,90,Moored\n"

	r, err := NewReader(strings.NewReader(input))
	require.NoError(t, err)

	records, raw, _ := r.ReadChunk(10)
	assert.Equal(t, 3, raw, "dropped rows still count as consumed")
	require.Len(t, records, 1)
	assert.Equal(t, "219000002", records[0].MMSI)
}

func TestReader_PropagatesTransportError(t *testing.T) {
	// A malformed row is dropped, but an error from the underlying reader
	// repeats on every csv.Read and must surface instead of being counted
	// as an endless stream of bad rows.
	diskErr := errors.New("disk read error")
	input := sampleHeader + "219000001,56.15,10.22,0.1,180,Moored\n"
	r, err := NewReader(&failingReader{prefix: strings.NewReader(input), err: diskErr})
	require.NoError(t, err)

	records, raw, readErr := r.ReadChunk(10)
	require.ErrorIs(t, readErr, diskErr)
	assert.Equal(t, 1, raw)
	assert.Len(t, records, 1, "rows read before the failure are returned")
}

func TestReader_ChunkBoundary(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(sampleHeader)
	for i := 0; i < 5; i++ {
		sb.WriteString("219000001,56.15,10.22,0.1,180,Moored\n")
	}

	r, err := NewReader(strings.NewReader(sb.String()))
	require.NoError(t, err)

	records, raw, readErr := r.ReadChunk(3)
	assert.NoError(t, readErr)
	assert.Equal(t, 3, raw)
	assert.Len(t, records, 3)

	records, raw, readErr = r.ReadChunk(3)
	assert.Equal(t, io.EOF, readErr)
	assert.Equal(t, 2, raw)
	assert.Len(t, records, 2)
}
