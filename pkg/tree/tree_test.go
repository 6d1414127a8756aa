package tree

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hdistill/hclust/pkg/coordinate"
	"github.com/hdistill/hclust/pkg/hcerr"
)

// fiveLeafTree builds a small cleanup scenario tree: ((l0,l1),l2) joined
// with (l3,l4) at the root.
func fiveLeafTree() *Tree {
	leaves := []Node{
		{ID: FullID{Leaf, 0}, Parent: FullID{Inner, 0}, Size: 1, H: 0},
		{ID: FullID{Leaf, 1}, Parent: FullID{Inner, 0}, Size: 1, H: 0},
		{ID: FullID{Leaf, 2}, Parent: FullID{Inner, 1}, Size: 1, H: 0},
		{ID: FullID{Leaf, 3}, Parent: FullID{Inner, 2}, Size: 1, H: 0},
		{ID: FullID{Leaf, 4}, Parent: FullID{Inner, 2}, Size: 1, H: 0},
	}
	inner := []Node{
		{ID: FullID{Inner, 0}, Parent: FullID{Inner, 1}, Children: []FullID{{Leaf, 0}, {Leaf, 1}}, Size: 2, Dist: 0.1, H: 1},
		{ID: FullID{Inner, 1}, Parent: FullID{Inner, 3}, Children: []FullID{{Inner, 0}, {Leaf, 2}}, Size: 3, Dist: 0.3, H: 2},
		{ID: FullID{Inner, 2}, Parent: FullID{Inner, 3}, Children: []FullID{{Leaf, 3}, {Leaf, 4}}, Size: 2, Dist: 0.2, H: 1},
		{ID: FullID{Inner, 3}, Parent: RootParentSentinel, Children: []FullID{{Inner, 1}, {Inner, 2}}, Size: 5, Dist: 1.0, H: 3},
	}
	coords := make([]coordinate.Coord, 5)
	trackIDs := make([]int, 5)
	for i := range coords {
		coords[i] = coordinate.Coord{X: int16(i), Y: int16(i), Z: int16(i)}
		trackIDs[i] = i
	}
	return New(leaves, inner, coords, trackIDs, nil, coordinate.GridNifti, coordinate.Extent{SX: 8, SY: 8, SZ: 8}, 0, 0, nil)
}

func TestCheckValidTree(t *testing.T) {
	tr := fiveLeafTree()
	assert.NoError(t, tr.Check())
}

func TestCheckRejectsBadSize(t *testing.T) {
	tr := fiveLeafTree()
	tr.inner[0].Size = 99
	assert.Error(t, tr.Check())
}

func TestRootBaseNodes(t *testing.T) {
	tr := fiveLeafTree()
	bases, err := tr.RootBaseNodes()
	require.NoError(t, err)
	// inner0 ({l0,l1}) and inner2 ({l3,l4}) are meta-leaves; inner1 is not
	// (one child is inner0).
	assert.ElementsMatch(t, []FullID{{Inner, 0}, {Inner, 2}}, bases)

	clean, err := tr.TestRootBaseNodes()
	require.NoError(t, err)
	assert.True(t, clean)
}

func TestCleanupScenario(t *testing.T) {
	tr := fiveLeafTree()
	tr.leaves[0].Flag = true
	tr.leaves[1].Flag = true

	removedLeaves, removedInner, err := tr.Cleanup()
	require.NoError(t, err)
	assert.Equal(t, 2, removedLeaves)
	assert.Equal(t, 2, removedInner) // inner0 (both children gone) and inner1 (one effective child)

	assert.Equal(t, 3, tr.LeafCount())
	assert.Len(t, tr.Discarded(), 2)
	assert.NoError(t, tr.Check())
}

func TestCleanupNoOpIsIdempotent(t *testing.T) {
	tr := fiveLeafTree()
	removedLeaves, removedInner, err := tr.Cleanup()
	require.NoError(t, err)
	assert.Equal(t, 0, removedLeaves)
	assert.Equal(t, 0, removedInner)
	assert.NoError(t, tr.Check())
}

func TestCommonAncestorAndTripletOrder(t *testing.T) {
	tr := fiveLeafTree()
	anc, err := tr.CommonAncestor(FullID{Leaf, 0}, FullID{Leaf, 1})
	require.NoError(t, err)
	assert.Equal(t, FullID{Inner, 0}, anc)

	order, err := tr.TripletOrder(FullID{Leaf, 0}, FullID{Leaf, 1}, FullID{Leaf, 2})
	require.NoError(t, err)
	assert.Equal(t, 1, order) // leaf0,leaf1 join (at inner0) before leaf2 attaches (at inner1)
}

func TestNodeOutOfRangeIsNotFound(t *testing.T) {
	tr := fiveLeafTree()
	_, err := tr.Node(FullID{Inner, 99})
	assert.ErrorIs(t, err, hcerr.ErrNotFound)
}

func TestWriteToParseRoundTrip(t *testing.T) {
	tr := fiveLeafTree()
	var buf bytes.Buffer
	require.NoError(t, tr.WriteTo(&buf))

	parsed, err := Parse(&buf)
	require.NoError(t, err)

	assert.Equal(t, tr.LeafCount(), parsed.LeafCount())
	assert.Equal(t, tr.InnerCount(), parsed.InnerCount())
	assert.NoError(t, parsed.Check())

	var buf2 bytes.Buffer
	require.NoError(t, parsed.WriteTo(&buf2))
	assert.Equal(t, buf.String(), buf2.String())
}

func TestAppendInnerAndFinalizeBuild(t *testing.T) {
	coords := []coordinate.Coord{{X: 0}, {X: 1}, {X: 2}, {X: 3}}
	trackIDs := []int{0, 1, 2, 3}
	dst := NewLeafOnly(coords, trackIDs, coordinate.GridNifti, coordinate.Extent{SX: 4, SY: 4, SZ: 4})

	left := dst.AppendInner(0.1, []FullID{{Leaf, 0}, {Leaf, 1}})
	right := dst.AppendInner(0.1, []FullID{{Leaf, 2}, {Leaf, 3}})
	dst.AppendInner(1.0, []FullID{left, right})

	require.NoError(t, dst.FinalizeBuild())
	assert.NoError(t, dst.Check())
	assert.Equal(t, dst.RootID(), FullID{Inner, 2})
}
