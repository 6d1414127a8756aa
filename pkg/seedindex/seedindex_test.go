package seedindex

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hdistill/hclust/pkg/coordinate"
)

const sampleROI = `#roi
10 10 10 nifti 5000
1 2 3
4 5 6 99
#endroi
`

func TestLoadParsesHeaderAndSeeds(t *testing.T) {
	idx, err := Load(strings.NewReader(sampleROI))
	require.NoError(t, err)

	assert.Equal(t, coordinate.GridNifti, idx.Grid)
	assert.Equal(t, coordinate.Extent{SX: 10, SY: 10, SZ: 10}, idx.Extent)
	assert.Equal(t, 5000, idx.Streams)
	require.Len(t, idx.Coords, 2)
	assert.Equal(t, coordinate.Coord{X: 1, Y: 2, Z: 3}, idx.Coords[0])
	assert.Equal(t, 0, idx.TrackIDs[0], "track id defaults to row position when omitted")
	assert.Equal(t, coordinate.Coord{X: 4, Y: 5, Z: 6}, idx.Coords[1])
	assert.Equal(t, 99, idx.TrackIDs[1], "explicit track id overrides row position")
}

func TestLoadRejectsMissingSection(t *testing.T) {
	_, err := Load(strings.NewReader("1 2 3\n"))
	assert.Error(t, err)
}

func TestLoadRejectsMalformedHeader(t *testing.T) {
	_, err := Load(strings.NewReader("#roi\n10 10 vista 5000\n1 2 3\n#endroi\n"))
	assert.Error(t, err)
}

func TestLoadRejectsNoSeeds(t *testing.T) {
	_, err := Load(strings.NewReader("#roi\n10 10 10 nifti 5000\n#endroi\n"))
	assert.Error(t, err)
}

func TestToNiftiIsNoOpWhenAlreadyNifti(t *testing.T) {
	idx, err := Load(strings.NewReader(sampleROI))
	require.NoError(t, err)

	out := idx.ToNifti()
	assert.Same(t, idx, out)
}

func TestToVistaConvertsCoordsAndPreservesTrackIDs(t *testing.T) {
	idx, err := Load(strings.NewReader(sampleROI))
	require.NoError(t, err)

	out := idx.ToVista()
	assert.Equal(t, coordinate.GridVista, out.Grid)
	assert.Equal(t, idx.TrackIDs, out.TrackIDs)
	assert.Equal(t, coordinate.NiftiToVista(idx.Coords[0], idx.Extent), out.Coords[0])
	assert.NotSame(t, idx, out)
}
