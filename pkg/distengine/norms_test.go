package distengine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hdistill/hclust/pkg/coordinate"
	"github.com/hdistill/hclust/pkg/tractstore"
)

func TestPrecomputeNormsAppliesThresholdPerSeed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tract_0.dat"), []byte{255, 0, 0}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tract_1.dat"), []byte{100, 100, 100}, 0o644))

	store := &tractstore.Store{Dir: dir, Format: tractstore.FormatNifti, TractBytes: 3}
	coords := []coordinate.Coord{{}, {}}
	trackIDs := []int{0, 1}

	norms, err := PrecomputeNorms(context.Background(), store, coords, trackIDs, 0.5, 2)
	require.NoError(t, err)
	require.Len(t, norms, 2)

	assert.InDelta(t, 1.0, norms[0], 1e-9) // only byte 255 survives threshold 0.5 (cut=127)
	assert.Equal(t, 0.0, norms[1])         // all bytes (100) fall below cut=127
}

func TestPrecomputeNormsRejectsLengthMismatch(t *testing.T) {
	store := &tractstore.Store{Dir: t.TempDir(), Format: tractstore.FormatNifti, TractBytes: 1}
	_, err := PrecomputeNorms(context.Background(), store, []coordinate.Coord{{}}, nil, 0, 1)
	assert.Error(t, err)
}

func TestPrecomputeNormsPropagatesReadError(t *testing.T) {
	store := &tractstore.Store{Dir: t.TempDir(), Format: tractstore.FormatNifti, TractBytes: 1}
	_, err := PrecomputeNorms(context.Background(), store, []coordinate.Coord{{}}, []int{0}, 0, 1)
	assert.Error(t, err)
}
