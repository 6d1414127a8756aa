package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hdistill/hclust/pkg/coordinate"
	"github.com/hdistill/hclust/pkg/tree"
)

// flatTree builds a meta-leaf-clean tree with numBases base nodes, each
// with leavesPerBase leaves, joined directly under the root.
func flatTree(numBases, leavesPerBase int) *tree.Tree {
	n := numBases * leavesPerBase
	leaves := make([]tree.Node, n)
	for i := range leaves {
		leaves[i] = tree.Node{ID: tree.FullID{Kind: tree.Leaf, Index: i}, Size: 1}
	}
	rootIdx := numBases
	inner := make([]tree.Node, numBases+1)
	var rootChildren []tree.FullID
	for b := 0; b < numBases; b++ {
		var children []tree.FullID
		for k := 0; k < leavesPerBase; k++ {
			li := b*leavesPerBase + k
			leaves[li].Parent = tree.FullID{Kind: tree.Inner, Index: b}
			children = append(children, tree.FullID{Kind: tree.Leaf, Index: li})
		}
		inner[b] = tree.Node{
			ID: tree.FullID{Kind: tree.Inner, Index: b}, Parent: tree.FullID{Kind: tree.Inner, Index: rootIdx},
			Children: children, Size: leavesPerBase, Dist: 0.1, H: 1,
		}
		rootChildren = append(rootChildren, tree.FullID{Kind: tree.Inner, Index: b})
	}
	inner[rootIdx] = tree.Node{
		ID: tree.FullID{Kind: tree.Inner, Index: rootIdx}, Parent: tree.RootParentSentinel,
		Children: rootChildren, Size: n, Dist: 1.0, H: 2,
	}

	coords := make([]coordinate.Coord, n)
	trackIDs := make([]int, n)
	for i := range coords {
		coords[i] = coordinate.Coord{X: int16(i)}
		trackIDs[i] = i
	}
	return tree.New(leaves, inner, coords, trackIDs, nil, coordinate.GridNifti, coordinate.Extent{SX: n, SY: n, SZ: n}, 0, 0, nil)
}

func TestPrepareMatchesAndIndexesMetaLeaves(t *testing.T) {
	a := flatTree(2, 2)
	b := flatTree(3, 2)

	prep, err := Prepare(a, b, []int{0, 1})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, prep.MatchedA)
	assert.Equal(t, []int{0, 1}, prep.MatchedB)

	rootA := a.RootID()
	assert.ElementsMatch(t, []int{0, 1}, prep.containedA[rootA])

	rootB := b.RootID()
	assert.ElementsMatch(t, []int{0, 1}, prep.containedB[rootB])
}

func TestPrepareRejectsWrongTableLength(t *testing.T) {
	a := flatTree(2, 2)
	b := flatTree(3, 2)
	_, err := Prepare(a, b, []int{0})
	assert.Error(t, err)
}

func TestPrepareRejectsOutOfRangeMatch(t *testing.T) {
	a := flatTree(2, 2)
	b := flatTree(3, 2)
	_, err := Prepare(a, b, []int{0, 99})
	assert.Error(t, err)
}
