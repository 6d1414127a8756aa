package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hdistill/hclust/pkg/tree"
)

func TestOverlapMatchFreezesOneToOneBestMatches(t *testing.T) {
	a := flatTree(2, 2)
	b := flatTree(3, 2)
	prep, err := Prepare(a, b, []int{0, 1})
	require.NoError(t, err)

	pa := []tree.FullID{{Kind: tree.Inner, Index: 0}, {Kind: tree.Inner, Index: 1}}
	pb := []tree.FullID{{Kind: tree.Inner, Index: 0}, {Kind: tree.Inner, Index: 1}, {Kind: tree.Inner, Index: 2}}

	result, err := OverlapMatch(prep, pa, pb)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, result.MatchA)
	assert.Equal(t, []int{0, 1, NoMatch}, result.MatchB)
	assert.Equal(t, 1.0, result.Score)
}

func TestRowBestSkipsZeroAndExcluded(t *testing.T) {
	best, val := rowBest([]int{0, 3, 5, 2}, map[int]bool{2: true})
	assert.Equal(t, 1, best)
	assert.Equal(t, 3, val)

	best, val = rowBest([]int{0, 0, 0}, nil)
	assert.Equal(t, -1, best)
	assert.Equal(t, 0, val)
}

func TestTransposePreservesValues(t *testing.T) {
	m := [][]int{{1, 2, 3}, {4, 5, 6}}
	out := transpose(m, 3)
	require.Len(t, out, 3)
	assert.Equal(t, []int{1, 4}, out[0])
	assert.Equal(t, []int{2, 5}, out[1])
	assert.Equal(t, []int{3, 6}, out[2])
}
