package tree

// Debinarize merges chains of binary joins at identical distance levels
// into n-ary parents. keepBaseNodes forbids merging meta-leaves (base
// nodes): if requested on a tree that is not meta-leaf-clean, normal mode
// is used instead and ok reports false so the caller can surface a
// warning.
func (t *Tree) Debinarize(keepBaseNodes bool) (ok bool, err error) {
	if keepBaseNodes {
		clean, err := t.TestRootBaseNodes()
		if err != nil {
			return false, err
		}
		if !clean {
			keepBaseNodes = false
			ok = false
		} else {
			ok = true
		}
	} else {
		ok = true
	}

	isBaseNode := make(map[int]bool)
	if keepBaseNodes {
		bases, err := t.RootBaseNodes()
		if err != nil {
			return false, err
		}
		for _, b := range bases {
			isBaseNode[b.Index] = true
		}
	}

	// merge(id) returns the flattened child list for id: children at id's
	// own distance level are spliced in directly (their own children take
	// their place), skipped for protected base nodes.
	var merge func(id FullID) []FullID
	merge = func(id FullID) []FullID {
		if id.Kind == Leaf {
			return nil
		}
		n := t.inner[id.Index]
		var out []FullID
		for _, c := range n.Children {
			if c.Kind == Inner && !isBaseNode[c.Index] && t.inner[c.Index].Dist == n.Dist {
				out = append(out, merge(c)...)
			} else {
				out = append(out, c)
			}
		}
		return out
	}

	merged := make([][]FullID, len(t.inner))
	absorbed := make([]bool, len(t.inner))
	for i, n := range t.inner {
		merged[i] = merge(FullID{Kind: Inner, Index: i})
		for _, c := range n.Children {
			if c.Kind == Inner && !isBaseNode[c.Index] && t.inner[c.Index].Dist == n.Dist {
				absorbed[c.Index] = true
			}
		}
	}

	newInnerID := make([]int, len(t.inner))
	next := 0
	for i := range t.inner {
		if !absorbed[i] {
			newInnerID[i] = next
			next++
		}
	}

	newInner := make([]Node, next)
	for i := range t.inner {
		if absorbed[i] {
			continue
		}
		newID := newInnerID[i]
		var children []FullID
		for _, c := range merged[i] {
			if c.Kind == Leaf {
				children = append(children, c)
			} else {
				children = append(children, FullID{Kind: Inner, Index: newInnerID[c.Index]})
			}
		}
		newInner[newID] = Node{
			ID:       FullID{Kind: Inner, Index: newID},
			Dist:     t.inner[i].Dist,
			Children: children,
		}
	}

	for i := range t.leaves {
		t.leaves[i].Parent = FullID{}
	}
	for i := range newInner {
		id := FullID{Kind: Inner, Index: i}
		for _, c := range newInner[i].Children {
			if c.Kind == Leaf {
				t.leaves[c.Index].Parent = id
			} else {
				newInner[c.Index].Parent = id
			}
		}
	}
	rootID := FullID{Kind: Inner, Index: len(newInner) - 1}
	newInner[rootID.Index].Parent = RootParentSentinel

	t.inner = newInner
	t.partitions = nil
	t.InvalidateCache()

	for i := range t.inner {
		t.inner[i].Size = sizeOfNew(t, FullID{Kind: Inner, Index: i})
	}
	for i := range t.inner {
		t.inner[i].H = hOfNew(t, FullID{Kind: Inner, Index: i})
	}

	return ok, nil
}
