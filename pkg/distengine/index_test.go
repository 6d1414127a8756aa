package distengine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hdistill/hclust/pkg/coordinate"
)

func TestBuildIndexComputesBlockRowAndOffset(t *testing.T) {
	coords := make([]coordinate.Coord, 5)
	for i := range coords {
		coords[i] = coordinate.Coord{X: int16(i)}
	}
	entries := BuildIndex(coords, 2)
	require.Len(t, entries, 5)

	assert.Equal(t, 0, entries[0].BlockRow)
	assert.Equal(t, 0, entries[0].RowOffset)
	assert.Equal(t, 0, entries[1].BlockRow)
	assert.Equal(t, 1, entries[1].RowOffset)
	assert.Equal(t, 1, entries[2].BlockRow)
	assert.Equal(t, 0, entries[2].RowOffset)
	assert.Equal(t, 2, entries[4].BlockRow)
	assert.Equal(t, 0, entries[4].RowOffset)
}

func TestWriteAndReadIndexRoundTrips(t *testing.T) {
	entries := []IndexEntry{
		{Coord: coordinate.Coord{X: 1, Y: 2, Z: 3}, BlockRow: 0, RowOffset: 0},
		{Coord: coordinate.Coord{X: 4, Y: 5, Z: 6}, BlockRow: 0, RowOffset: 1},
	}
	path := filepath.Join(t.TempDir(), "index.txt")
	require.NoError(t, WriteIndex(path, entries))

	got, err := ReadIndex(path)
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestReadIndexRejectsMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.txt")
	content := "#distindex\n1 2 3 x 0 i 0\n#enddistindex\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := ReadIndex(path)
	assert.Error(t, err)
}
