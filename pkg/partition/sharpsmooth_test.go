package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hdistill/hclust/pkg/tree"
)

func TestSharpSmoothCutSharpStopsAtFirstLongBranch(t *testing.T) {
	tr := balancedBinaryTree()
	root := tr.RootID()

	out, err := SharpSmoothCut(tr, root, Sharp, 0.3, false, false)
	require.NoError(t, err)

	assert.ElementsMatch(t, []tree.FullID{
		{Kind: tree.Inner, Index: 4},
		{Kind: tree.Inner, Index: 5},
	}, out)
}

func TestSharpSmoothCutSmoothDescendsPastLongBranches(t *testing.T) {
	tr := balancedBinaryTree()
	root := tr.RootID()

	out, err := SharpSmoothCut(tr, root, Smooth, 0.5, false, false)
	require.NoError(t, err)

	assert.ElementsMatch(t, []tree.FullID{
		{Kind: tree.Inner, Index: 0},
		{Kind: tree.Inner, Index: 1},
		{Kind: tree.Inner, Index: 2},
		{Kind: tree.Inner, Index: 3},
	}, out)
}
