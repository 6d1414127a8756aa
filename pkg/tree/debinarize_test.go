package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hdistill/hclust/pkg/coordinate"
)

// chainedBinaryTree builds a 4-leaf tree with a two-level binary chain at
// the same distance level: ((l0,l1)@0.5, l2)@0.5 joined with l3 @1.0. After
// Debinarize the 0.5-level chain should flatten into one 3-ary parent.
func chainedBinaryTree() *Tree {
	leaves := []Node{
		{ID: FullID{Leaf, 0}, Parent: FullID{Inner, 0}, Size: 1},
		{ID: FullID{Leaf, 1}, Parent: FullID{Inner, 0}, Size: 1},
		{ID: FullID{Leaf, 2}, Parent: FullID{Inner, 1}, Size: 1},
		{ID: FullID{Leaf, 3}, Parent: FullID{Inner, 2}, Size: 1},
	}
	inner := []Node{
		{ID: FullID{Inner, 0}, Parent: FullID{Inner, 1}, Children: []FullID{{Leaf, 0}, {Leaf, 1}}, Size: 2, Dist: 0.5, H: 1},
		{ID: FullID{Inner, 1}, Parent: FullID{Inner, 2}, Children: []FullID{{Inner, 0}, {Leaf, 2}}, Size: 3, Dist: 0.5, H: 2},
		{ID: FullID{Inner, 2}, Parent: RootParentSentinel, Children: []FullID{{Inner, 1}, {Leaf, 3}}, Size: 4, Dist: 1.0, H: 3},
	}
	coords := make([]coordinate.Coord, 4)
	trackIDs := make([]int, 4)
	for i := range coords {
		coords[i] = coordinate.Coord{X: int16(i)}
		trackIDs[i] = i
	}
	return New(leaves, inner, coords, trackIDs, nil, coordinate.GridNifti, coordinate.Extent{SX: 4, SY: 4, SZ: 4}, 0, 0, nil)
}

func TestDebinarizeMergesSameLevelChain(t *testing.T) {
	tr := chainedBinaryTree()
	ok, err := tr.Debinarize(false)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, tr.Check())

	assert.Equal(t, 2, tr.InnerCount())
	root := tr.Root()
	assert.Len(t, root.Children, 2)

	meta, err := tr.Node(root.Children[0])
	require.NoError(t, err)
	assert.Len(t, meta.Children, 3)
	assert.Equal(t, 0.5, meta.Dist)
}

func TestDebinarizeKeepBaseNodesFallsBackWhenNotClean(t *testing.T) {
	tr := chainedBinaryTree() // not meta-leaf-clean: inner1's children are (inner0, leaf2)
	ok, err := tr.Debinarize(true)
	require.NoError(t, err)
	assert.False(t, ok, "caller should see the fallback-to-normal-mode warning")
	assert.NoError(t, tr.Check())
}
