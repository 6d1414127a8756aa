package tree

import (
	"github.com/hdistill/hclust/pkg/coordinate"
	"github.com/hdistill/hclust/pkg/hcerr"
)

// Cleanup removes every node whose Flag bit is set (plus any non-root inner
// node that collapses to a single effective child once its flagged
// descendants are gone), migrating flagged leaves' coordinates to the
// discarded set and dropping saved partitions. Every surviving node is
// spliced into its nearest surviving ancestor's children list, so a node
// promoted past several collapsed intermediates still lands somewhere.
// It returns the number of leaves and inner nodes removed. Calling it with
// no flagged nodes is a no-op on a tree whose non-root inner nodes all
// have at least two children; an unflagged single-child node still
// collapses.
func (t *Tree) Cleanup() (removedLeaves, removedInner int, err error) {
	nl, nn := len(t.leaves), len(t.inner)

	// Single bottom-up pass (child inner index always < parent inner index)
	// that determines effective children and propagates the derived
	// collapse flags (size<2, effective-children<=1) upward as it goes, so
	// a node whose only surviving child collapses higher up the chain
	// counts that collapse toward its own effective size and children.
	effectiveChildren := make([][]FullID, nn)
	sizeArr := make([]int, nn)
	flagged := make([]bool, nn)
	for i := range t.inner {
		flagged[i] = t.inner[i].Flag
	}
	for i, n := range t.inner {
		for _, c := range n.Children {
			if c.Kind == Leaf {
				if t.leaves[c.Index].Flag {
					continue
				}
			} else if flagged[c.Index] {
				continue
			}
			effectiveChildren[i] = append(effectiveChildren[i], c)
		}

		total := 0
		for _, c := range effectiveChildren[i] {
			if c.Kind == Leaf {
				total++
			} else {
				total += sizeArr[c.Index]
			}
		}
		sizeArr[i] = total

		if flagged[i] {
			continue
		}
		// A non-root node left with at most one effective child is a
		// useless pass-through: it collapses so that one child splices
		// straight into its own surviving ancestor. The root has no
		// ancestor to splice into and a single remaining child is a
		// perfectly good (if degenerate) root, so it only collapses when
		// its effective size itself drops below 2.
		isRoot := i == nn-1
		if total < 2 || (!isRoot && len(effectiveChildren[i]) <= 1) {
			flagged[i] = true
		}
	}

	if flagged[nn-1] {
		return 0, 0, hcerr.Invariant("cleanup would leave fewer than 2 leaves under the root")
	}

	rootID := t.RootID()
	newLeafID := make([]int, nl)
	leafSurvives := make([]bool, nl)
	for i := range t.leaves {
		leafSurvives[i] = !t.leaves[i].Flag
	}
	nextLeaf := 0
	for i := range t.leaves {
		if leafSurvives[i] {
			newLeafID[i] = nextLeaf
			nextLeaf++
		}
	}

	newInnerID := make([]int, nn)
	innerSurvives := make([]bool, nn)
	for i := range t.inner {
		innerSurvives[i] = !flagged[i]
	}
	nextInner := 0
	for i := range t.inner {
		if innerSurvives[i] {
			newInnerID[i] = nextInner
			nextInner++
		}
	}

	// nearestSurvivingAncestor walks up from an old parent pointer until it
	// finds a surviving inner node, so a leaf or inner node that lost its
	// immediate parent attaches to the nearest unflagged ancestor. The root
	// is guaranteed to survive (checked above), so the walk always
	// terminates there at the latest.
	nearestSurvivingAncestor := func(oldParent FullID) FullID {
		cur := oldParent
		for !innerSurvives[cur.Index] {
			cur = t.inner[cur.Index].Parent
		}
		return cur
	}

	// newChildrenOf is built by splicing every surviving node directly
	// into its resolved ancestor's children list, rather than from each
	// surviving node's own effectiveChildren: a node's effectiveChildren
	// only reflects its immediate (one level down) survivors, so a
	// grandchild promoted past a flagged intermediate would otherwise
	// never be re-attached anywhere.
	newChildrenOf := make(map[int][]FullID, nextInner)
	for i := range t.leaves {
		if !leafSurvives[i] {
			continue
		}
		anc := nearestSurvivingAncestor(t.leaves[i].Parent)
		ancID := newInnerID[anc.Index]
		newChildrenOf[ancID] = append(newChildrenOf[ancID], FullID{Kind: Leaf, Index: newLeafID[i]})
	}
	for i := range t.inner {
		if !innerSurvives[i] || (FullID{Kind: Inner, Index: i} == rootID) {
			continue
		}
		anc := nearestSurvivingAncestor(t.inner[i].Parent)
		ancID := newInnerID[anc.Index]
		newChildrenOf[ancID] = append(newChildrenOf[ancID], FullID{Kind: Inner, Index: newInnerID[i]})
	}

	newLeaves := make([]Node, nextLeaf)
	for i := range t.leaves {
		if !leafSurvives[i] {
			continue
		}
		anc := nearestSurvivingAncestor(t.leaves[i].Parent)
		newLeaves[newLeafID[i]] = Node{
			ID:     FullID{Kind: Leaf, Index: newLeafID[i]},
			Parent: FullID{Kind: Inner, Index: newInnerID[anc.Index]},
			Size:   1,
		}
	}

	newInner := make([]Node, nextInner)
	for i := range t.inner {
		if !innerSurvives[i] {
			continue
		}
		newID := newInnerID[i]
		var parent FullID
		if (FullID{Kind: Inner, Index: i}) == rootID {
			parent = RootParentSentinel
		} else {
			anc := nearestSurvivingAncestor(t.inner[i].Parent)
			parent = FullID{Kind: Inner, Index: newInnerID[anc.Index]}
		}
		newInner[newID] = Node{
			ID:       FullID{Kind: Inner, Index: newID},
			Parent:   parent,
			Children: newChildrenOf[newID],
			Dist:     t.inner[i].Dist,
		}
	}

	var discardedNew []int
	for i := range t.leaves {
		if t.leaves[i].Flag {
			discardedNew = append(discardedNew, i)
		}
	}
	for _, i := range discardedNew {
		t.discarded = append(t.discarded, t.coords[i])
	}

	newCoords := make([]coordinate.Coord, nextLeaf)
	newTrackIDs := make([]int, nextLeaf)
	for i := range t.leaves {
		if leafSurvives[i] {
			newCoords[newLeafID[i]] = t.coords[i]
			newTrackIDs[newLeafID[i]] = t.trackIDs[i]
		}
	}

	t.leaves = newLeaves
	t.inner = newInner
	t.coords = newCoords
	t.trackIDs = newTrackIDs
	t.partitions = nil
	t.InvalidateCache()

	for i := range t.inner {
		t.inner[i].Size = sizeOfNew(t, FullID{Kind: Inner, Index: i})
	}
	for i := range t.inner {
		t.inner[i].H = hOfNew(t, FullID{Kind: Inner, Index: i})
	}

	return nl - nextLeaf, nn - nextInner, nil
}

func sizeOfNew(t *Tree, id FullID) int {
	if id.Kind == Leaf {
		return 1
	}
	total := 0
	for _, c := range t.inner[id.Index].Children {
		total += sizeOfNew(t, c)
	}
	return total
}

func hOfNew(t *Tree, id FullID) int {
	if id.Kind == Leaf {
		return 0
	}
	max := -1
	for _, c := range t.inner[id.Index].Children {
		if h := hOfNew(t, c); h > max {
			max = h
		}
	}
	return max + 1
}
