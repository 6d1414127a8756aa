package tractstore

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hdistill/hclust/pkg/coordinate"
)

func TestNewComputesLogFactorFromStreams(t *testing.T) {
	s := New("/tmp", FormatNifti, 100, 1000)
	assert.InDelta(t, 3.0, s.LogFactor, 1e-9)

	s0 := New("/tmp", FormatNifti, 100, 0)
	assert.Equal(t, 0.0, s0.LogFactor)
}

func TestPathForVistaVsNifti(t *testing.T) {
	c := coordinate.Coord{X: 1, Y: 2, Z: 3}

	sv := &Store{Dir: "/data", Format: FormatVista}
	assert.Equal(t, filepath.Join("/data", "1 2 3.tract"), sv.pathFor(42, c))

	sn := &Store{Dir: "/data", Format: FormatNifti}
	assert.Equal(t, filepath.Join("/data", "tract_42.dat"), sn.pathFor(42, c))
}

func TestReadLeafTractRoundTrips(t *testing.T) {
	dir := t.TempDir()
	s := &Store{Dir: dir, Format: FormatNifti, TractBytes: 4}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tract_7.dat"), []byte{1, 2, 3, 4}, 0o644))

	got, err := s.ReadLeafTract(7, coordinate.Coord{})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, got)
}

func TestReadLeafTractRejectsWrongLength(t *testing.T) {
	dir := t.TempDir()
	s := &Store{Dir: dir, Format: FormatNifti, TractBytes: 8}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tract_1.dat"), []byte{1, 2, 3}, 0o644))

	_, err := s.ReadLeafTract(1, coordinate.Coord{})
	assert.Error(t, err)
}

func TestThresholdZeroesBelowCutoff(t *testing.T) {
	tract := []byte{0, 50, 100, 200, 255}
	Threshold(tract, 0.5) // cut = floor(0.5*255) = 127
	assert.Equal(t, []byte{0, 0, 0, 200, 255}, tract)
}

func TestThresholdNoOpWhenTauNonPositive(t *testing.T) {
	tract := []byte{1, 2, 3}
	Threshold(tract, 0)
	assert.Equal(t, []byte{1, 2, 3}, tract)
}

func TestComputeNormMatchesEuclideanNorm(t *testing.T) {
	tract := []byte{255, 0, 0}
	assert.InDelta(t, 1.0, ComputeNorm(tract), 1e-9)

	tract2 := []byte{0, 0, 0}
	assert.Equal(t, 0.0, ComputeNorm(tract2))
}

func TestBlockWriterRoundTripsPlainAndGzip(t *testing.T) {
	matrix := []float64{1.5, 2.5, 3.5, 4.5}

	for _, zip := range []bool{false, true} {
		dir := t.TempDir()
		w := NewBlockWriter(dir, zip)
		require.NoError(t, w.WriteBlock(0, 1, 2, 2, matrix))

		assert.True(t, w.BlockExists(0, 1))
		assert.False(t, w.BlockExists(0, 2))

		got, err := w.ReadBlock(0, 1, 2, 2)
		require.NoError(t, err)
		assert.Equal(t, matrix, got)
	}
}

func TestBlockWriterBlockPathReflectsZip(t *testing.T) {
	w := NewBlockWriter("/out", false)
	assert.Equal(t, filepath.Join("/out", "dist_block_0_1.bin"), w.BlockPath(0, 1))

	wz := NewBlockWriter("/out", true)
	assert.Equal(t, filepath.Join("/out", "dist_block_0_1.bin.gz"), wz.BlockPath(0, 1))
}

func TestWriteBlockRejectsLengthMismatch(t *testing.T) {
	dir := t.TempDir()
	w := NewBlockWriter(dir, false)
	err := w.WriteBlock(0, 0, 2, 2, []float64{1, 2, 3})
	assert.Error(t, err)
}

func TestWriteBlockLeavesNoTempFileOnSuccess(t *testing.T) {
	dir := t.TempDir()
	w := NewBlockWriter(dir, false)
	require.NoError(t, w.WriteBlock(0, 0, 1, 1, []float64{math.Pi}))

	_, err := os.Stat(w.BlockPath(0, 0) + ".tmp")
	assert.True(t, os.IsNotExist(err))
}
