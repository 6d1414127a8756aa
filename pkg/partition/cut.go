// Package partition implements deriving a disjoint leaf cover
// ("partition") from a tree under several policies — classic cuts,
// sharp/smooth branch-length cuts, and the spread-separation search — plus
// granularity filtering. It operates purely through pkg/tree's exported
// query surface: no access to the tree's internal arrays is required,
// every operation here reads Node/Children/Size/Dist via tree.Tree's
// public methods and returns partitions as []tree.FullID; nothing in this
// package records them on the tree.
package partition

import (
	"sort"

	"github.com/hdistill/hclust/pkg/hcerr"
	"github.com/hdistill/hclust/pkg/tree"
)

// Condition selects when ClassicCut stops popping and expanding nodes.
type Condition int

const (
	// ByValue stops once the highest remaining mode-value is <= target.
	ByValue Condition = iota
	// ByClusterCount stops once the partition reaches target members.
	ByClusterCount
)

// Mode selects the per-node value ClassicCut pops by.
type Mode int

const (
	// Horizontal pops by distance level (a flat horizontal cut).
	Horizontal Mode = iota
	// BySize pops by subtree size.
	BySize
	// ByHLevel pops by h-level.
	ByHLevel
)

func isBaseNode(t *tree.Tree, id tree.FullID) bool {
	n, err := t.Node(id)
	if err != nil || n.IsLeaf() {
		return false
	}
	for _, c := range n.Children {
		if c.Kind != tree.Leaf {
			return false
		}
	}
	return true
}

func modeValue(t *tree.Tree, id tree.FullID, mode Mode) float64 {
	n, _ := t.Node(id)
	switch mode {
	case BySize:
		return float64(n.Size)
	case ByHLevel:
		return float64(n.H)
	default:
		return n.Dist
	}
}

// expandable reports whether id may still be replaced by its children: it
// must be an inner node, and, when excludeLeaves is set, not a base node
// (meta-leaf).
func expandable(t *tree.Tree, id tree.FullID, excludeLeaves bool) bool {
	n, err := t.Node(id)
	if err != nil || n.IsLeaf() {
		return false
	}
	if excludeLeaves && isBaseNode(t, id) {
		return false
	}
	return true
}

// ClassicCut repeatedly pops the highest mode-value cluster from a working
// set seeded with {subroot} and replaces it with its children until the
// condition triggers. It returns the resulting partition and the
// effective cut value.
func ClassicCut(t *tree.Tree, subroot tree.FullID, cond Condition, mode Mode, target float64, excludeLeaves bool) ([]tree.FullID, float64, error) {
	if _, err := t.Node(subroot); err != nil {
		return nil, 0, err
	}

	var active, frozen []tree.FullID
	if expandable(t, subroot, excludeLeaves) {
		active = []tree.FullID{subroot}
	} else {
		frozen = []tree.FullID{subroot}
	}

	effective := modeValue(t, subroot, mode)

	for {
		if cond == ByClusterCount && len(active)+len(frozen) >= int(target) {
			break
		}
		if len(active) == 0 {
			break
		}

		best := 0
		bestV := modeValue(t, active[0], mode)
		for i := 1; i < len(active); i++ {
			if v := modeValue(t, active[i], mode); v > bestV {
				best, bestV = i, v
			}
		}

		if cond == ByValue && bestV <= target {
			effective = target
			break
		}
		effective = bestV

		cand := active[best]
		active = append(active[:best], active[best+1:]...)
		n, err := t.Node(cand)
		if err != nil {
			return nil, 0, err
		}
		for _, c := range n.Children {
			if expandable(t, c, excludeLeaves) {
				active = append(active, c)
			} else {
				frozen = append(frozen, c)
			}
		}
	}

	if cond == ByClusterCount {
		effective = float64(len(active) + len(frozen))
	}

	out := append(active, frozen...)
	sortByIndex(out)
	return out, effective, nil
}

func sortByIndex(ids []tree.FullID) {
	sort.SliceStable(ids, func(i, j int) bool {
		if ids[i].Kind != ids[j].Kind {
			return ids[i].Kind < ids[j].Kind
		}
		return ids[i].Index < ids[j].Index
	})
}

// SharpSmoothMode selects whether SharpSmoothCut keeps long or short
// parent branches.
type SharpSmoothMode int

const (
	// Sharp keeps clusters whose branch length to their parent exceeds the
	// threshold.
	Sharp SharpSmoothMode = iota
	// Smooth keeps clusters whose branch length stays below the threshold.
	Smooth
)

// SharpSmoothCut descends from subroot, stopping at the first node along
// each path whose branch length to its parent satisfies the sharp/smooth
// condition (or at a leaf / protected base node). The subroot itself has no
// parent inside the cut and is never selected by the branch test.
func SharpSmoothCut(t *tree.Tree, subroot tree.FullID, mode SharpSmoothMode, threshold float64, normalized, excludeLeaves bool) ([]tree.FullID, error) {
	root, err := t.Node(subroot)
	if err != nil {
		return nil, err
	}

	var out []tree.FullID
	var walk func(id tree.FullID, parentDist float64) error
	walk = func(id tree.FullID, parentDist float64) error {
		n, err := t.Node(id)
		if err != nil {
			return err
		}
		if n.IsLeaf() {
			out = append(out, id)
			return nil
		}
		if excludeLeaves && isBaseNode(t, id) {
			out = append(out, id)
			return nil
		}

		branch := parentDist - n.Dist
		if normalized && n.Dist != 0 {
			branch /= n.Dist
		}
		qualifies := branch > threshold
		if mode == Smooth {
			qualifies = branch < threshold
		}
		if qualifies && id != subroot {
			out = append(out, id)
			return nil
		}
		for _, c := range n.Children {
			if err := walk(c, n.Dist); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(subroot, root.Dist); err != nil {
		return nil, err
	}
	sortByIndex(out)
	return out, nil
}

// MaxGranularityPartition returns the whole tree's root base nodes
// (meta-leaves), requiring the tree to be meta-leaf-clean.
func MaxGranularityPartition(t *tree.Tree) ([]tree.FullID, error) {
	clean, err := t.TestRootBaseNodes()
	if err != nil {
		return nil, err
	}
	if !clean {
		return nil, hcerr.Invariant("tree is not meta-leaf-clean")
	}
	out, err := t.RootBaseNodes()
	if err != nil {
		return nil, err
	}
	sortByIndex(out)
	return out, nil
}
