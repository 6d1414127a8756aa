package tree

import "github.com/hdistill/hclust/pkg/hcerr"

// Check validates every structural invariant of the tree model and
// returns the first violation found, wrapped as hcerr.ErrInvariant, or
// nil if the tree is sound. It never mutates the tree.
func (t *Tree) Check() error {
	if len(t.leaves) < 2 {
		return hcerr.Invariant("leaf count must be >= 2")
	}
	if len(t.inner) >= len(t.leaves) {
		return hcerr.Invariant("inner count must be < leaf count")
	}

	rootID := t.RootID()
	root := t.inner[len(t.inner)-1]
	if root.Parent != RootParentSentinel {
		return hcerr.Invariant("root must have the sentinel parent")
	}

	childOccurrences := make(map[FullID]int)

	for i, n := range t.leaves {
		id := FullID{Kind: Leaf, Index: i}
		if n.ID != id {
			return hcerr.Invariant("leaf id field does not match its array position")
		}
		if n.Parent.Kind != Inner {
			return hcerr.Invariant("every leaf's parent must be an inner node")
		}
		if n.Parent.Index < 0 || n.Parent.Index >= len(t.inner) {
			return hcerr.Invariant("leaf parent index out of range")
		}
		if n.Size != 1 || n.H != 0 {
			return hcerr.Invariant("leaf size/h must be 1/0")
		}
	}

	for i, n := range t.inner {
		id := FullID{Kind: Inner, Index: i}
		if n.ID != id {
			return hcerr.Invariant("inner id field does not match its array position")
		}
		if id == rootID {
			continue
		}
		if n.Parent == RootParentSentinel {
			return hcerr.Invariant("only the root may carry the sentinel parent")
		}
		if n.Parent.Kind != Inner {
			return hcerr.Invariant("every non-root inner node must have an inner parent")
		}
		if n.Parent.Index < 0 || n.Parent.Index >= len(t.inner) {
			return hcerr.Invariant("inner parent index out of range")
		}
	}

	sizeCache := make(map[FullID]int, len(t.inner))
	hCache := make(map[FullID]int, len(t.inner))
	var sizeOf, hOf func(id FullID) int
	sizeOf = func(id FullID) int {
		if id.Kind == Leaf {
			return 1
		}
		if v, ok := sizeCache[id]; ok {
			return v
		}
		n := t.inner[id.Index]
		total := 0
		for _, c := range n.Children {
			total += sizeOf(c)
		}
		sizeCache[id] = total
		return total
	}
	hOf = func(id FullID) int {
		if id.Kind == Leaf {
			return 0
		}
		if v, ok := hCache[id]; ok {
			return v
		}
		n := t.inner[id.Index]
		maxChild := -1
		for _, c := range n.Children {
			if h := hOf(c); h > maxChild {
				maxChild = h
			}
		}
		v := maxChild + 1
		hCache[id] = v
		return v
	}

	for i, n := range t.inner {
		id := FullID{Kind: Inner, Index: i}
		for _, c := range n.Children {
			childOccurrences[c]++
		}
		if got := sizeOf(id); got != n.Size {
			return hcerr.Invariant("node size must equal the sum of its children's sizes")
		}
		if got := hOf(id); got != n.H {
			return hcerr.Invariant("node h must equal 1 + max(child.h)")
		}
	}

	for i := range t.leaves {
		id := FullID{Kind: Leaf, Index: i}
		if childOccurrences[id] != 1 {
			return hcerr.Invariant("every leaf must appear exactly once in its parent's children list")
		}
	}
	for i := range t.inner {
		id := FullID{Kind: Inner, Index: i}
		if id == rootID {
			continue
		}
		if childOccurrences[id] != 1 {
			return hcerr.Invariant("every non-root inner node must appear exactly once in its parent's children list")
		}
	}

	return nil
}
