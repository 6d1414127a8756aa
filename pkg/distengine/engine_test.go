package distengine

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hdistill/hclust/pkg/coordinate"
	"github.com/hdistill/hclust/pkg/tractstore"
)

func TestEngineRunWritesCorrectDiagonalAndOffDiagonalBlocks(t *testing.T) {
	tractDir := t.TempDir()
	blockDir := t.TempDir()

	tracts := [][]byte{{255}, {0}, {128}, {64}}
	for i, b := range tracts {
		require.NoError(t, os.WriteFile(filepath.Join(tractDir, "tract_"+strconv.Itoa(i)+".dat"), b, 0o644))
	}

	store := &tractstore.Store{Dir: tractDir, Format: tractstore.FormatNifti, TractBytes: 1}
	coords := make([]coordinate.Coord, 4)
	trackIDs := []int{0, 1, 2, 3}

	norms, err := PrecomputeNorms(context.Background(), store, coords, trackIDs, 0, 2)
	require.NoError(t, err)

	writer := tractstore.NewBlockWriter(blockDir, false)
	eng := &Engine{
		Store: store, Writer: writer, Coords: coords, TrackIDs: trackIDs, Norms: norms,
		Cfg: Config{N: 4, BlockSize: 2, SubBlock: 2, Threads: 2},
	}

	require.NoError(t, eng.Run(context.Background(), BlockRange{}, ""))

	assert.True(t, writer.BlockExists(0, 0))
	assert.True(t, writer.BlockExists(0, 1))
	assert.True(t, writer.BlockExists(1, 1))
	assert.False(t, writer.BlockExists(1, 0)) // only upper triangle (r<=c) is written

	got01, err := writer.ReadBlock(0, 1, 2, 2)
	require.NoError(t, err)
	rowTracts := [][]byte{tracts[0], tracts[1]}
	colTracts := [][]byte{tracts[2], tracts[3]}
	want01 := ComputeBlock(rowTracts, colTracts, norms[0:2], norms[2:4], 0)
	assert.InDeltaSlice(t, want01, got01, 1e-12)

	got00, err := writer.ReadBlock(0, 0, 2, 2)
	require.NoError(t, err)
	want00 := ComputeBlock(rowTracts, rowTracts, norms[0:2], norms[0:2], 0)
	assert.InDeltaSlice(t, want00, got00, 1e-12)

	// re-running skips every already-written block without erroring.
	require.NoError(t, eng.Run(context.Background(), BlockRange{}, ""))
}

func TestEngineRunRejectsMismatchedLengths(t *testing.T) {
	eng := &Engine{Cfg: Config{N: 4}, Coords: make([]coordinate.Coord, 2), TrackIDs: make([]int, 4), Norms: make([]float64, 4)}
	err := eng.Run(context.Background(), BlockRange{}, "")
	assert.Error(t, err)
}

func TestBeforeOrdersByRowThenColumn(t *testing.T) {
	assert.True(t, before(0, 1, 1, 0))
	assert.True(t, before(0, 0, 0, 1))
	assert.False(t, before(1, 0, 0, 5))
}
