package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// violatingTree is fiveLeafTree with inner0's distance raised above its
// parent inner1's, a single monotonicity violation.
func violatingTree() *Tree {
	tr := fiveLeafTree()
	tr.inner[0].Dist = 0.9 // parent inner1.Dist is 0.3
	return tr
}

func TestForceMonotonicityUp(t *testing.T) {
	tr := violatingTree()
	require.NoError(t, tr.ForceMonotonicity(Up, 0))
	assert.GreaterOrEqual(t, tr.inner[1].Dist, tr.inner[0].Dist)
	assertChildDistLEParent(t, tr)
}

func TestForceMonotonicityDown(t *testing.T) {
	tr := violatingTree()
	require.NoError(t, tr.ForceMonotonicity(Down, 0))
	assertChildDistLEParent(t, tr)
}

func TestForceMonotonicityWeighted(t *testing.T) {
	tr := violatingTree()
	require.NoError(t, tr.ForceMonotonicity(Weighted, DefaultMonotonicityEpsilon))
	assertChildDistLEParent(t, tr)
}

func TestForceMonotonicityIdempotentOnCleanTree(t *testing.T) {
	tr := fiveLeafTree()
	before := make([]float64, len(tr.inner))
	for i, n := range tr.inner {
		before[i] = n.Dist
	}
	require.NoError(t, tr.ForceMonotonicity(Weighted, DefaultMonotonicityEpsilon))
	for i, n := range tr.inner {
		assert.InDelta(t, before[i], n.Dist, DefaultMonotonicityEpsilon*10)
	}
}

func assertChildDistLEParent(t *testing.T, tr *Tree) {
	t.Helper()
	const eps = MaxMonotonicityEpsilon
	for i, n := range tr.inner {
		for _, c := range n.Children {
			if c.Kind != Inner {
				continue
			}
			assert.LessOrEqual(t, tr.inner[c.Index].Dist, n.Dist+eps,
				"child inner %d distance must not exceed parent %d's", c.Index, i)
		}
	}
}
