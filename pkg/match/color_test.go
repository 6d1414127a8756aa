package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hdistill/hclust/pkg/tree"
)

func TestTransferColorsInheritsOneToOneAndWhitesUnmatchedExclusive(t *testing.T) {
	result := OverlapResult{
		MatchA:  []int{0, 1},
		MatchB:  []int{0, 1, NoMatch},
		Overlap: [][]int{{1, 0, 0}, {0, 1, 0}},
	}
	colorsA := []tree.Color{{255, 0, 0}, {0, 255, 0}}

	colorsB, colorsAOut, aAltered := TransferColors(result, colorsA, true)

	require.Len(t, colorsB, 3)
	assert.Equal(t, colorsA[0], colorsB[0])
	assert.Equal(t, colorsA[1], colorsB[1])
	assert.Equal(t, white, colorsB[2])
	assert.False(t, aAltered)
	assert.Equal(t, colorsA, colorsAOut)
}

func TestTransferColorsShiftsDuplicateBMatches(t *testing.T) {
	// Both B clusters 0 and 1 matched to A cluster 0; B1 has the larger
	// overlap and keeps the pure color, B0 gets shifted.
	result := OverlapResult{
		MatchA:  []int{1, NoMatch},
		MatchB:  []int{0, 0},
		Overlap: [][]int{{3, 5}},
	}
	colorsA := []tree.Color{{10, 20, 30}}

	colorsB, _, _ := TransferColors(result, colorsA, false)
	require.Len(t, colorsB, 2)
	assert.NotEqual(t, colorsB[0], colorsB[1], "the lower-overlap duplicate must be shifted away from the pure color")
	assert.Contains(t, colorsB, colorsA[0])
}

func TestShiftColorIsIdentityAtZero(t *testing.T) {
	c := tree.Color{10, 20, 30}
	assert.Equal(t, c, shiftColor(c, 0))
}

func TestShiftColorStaysInRange(t *testing.T) {
	c := tree.Color{250, 250, 250}
	out := shiftColor(c, 4)
	for _, v := range out {
		assert.LessOrEqual(t, int(v), 255)
		assert.GreaterOrEqual(t, int(v), 0)
	}
	assert.NotEqual(t, c, out)
}

func TestShiftChannelPrefersUpThenDownThenUnchanged(t *testing.T) {
	assert.Equal(t, uint8(130), shiftChannel(100, 30))
	assert.Equal(t, uint8(170), shiftChannel(230, 60)) // up overflows, down fits
	assert.Equal(t, uint8(128), shiftChannel(128, 200)) // both directions overflow
}
