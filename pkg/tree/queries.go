package tree

import (
	"sort"

	"github.com/hdistill/hclust/pkg/coordinate"
	"github.com/hdistill/hclust/pkg/hcerr"
)

// Node returns the node addressed by id, or ErrNotFound if id is out of
// range, uniformly across build modes rather than panicking in debug
// builds and returning a sentinel coordinate in release ones.
func (t *Tree) Node(id FullID) (Node, error) {
	if id.Kind == Leaf {
		return t.Leaf(id.Index)
	}
	if id.Index < 0 || id.Index >= len(t.inner) {
		return Node{}, hcerr.NotFound("inner node index out of range")
	}
	return t.inner[id.Index], nil
}

// Leaf returns the leaf at index i, or ErrNotFound if out of range.
func (t *Tree) Leaf(i int) (Node, error) {
	if i < 0 || i >= len(t.leaves) {
		return Node{}, hcerr.NotFound("leaf index out of range")
	}
	return t.leaves[i], nil
}

// Root returns the tree's root node: the last element of the inner array.
func (t *Tree) Root() Node {
	return t.inner[len(t.inner)-1]
}

// RootID returns the root's full id.
func (t *Tree) RootID() FullID {
	return FullID{Kind: Inner, Index: len(t.inner) - 1}
}

// Coordinate4Leaf returns the seed coordinate of leaf i.
func (t *Tree) Coordinate4Leaf(i int) (coordinate.Coord, error) {
	if i < 0 || i >= len(t.coords) {
		return coordinate.Coord{}, hcerr.NotFound("leaf index out of range")
	}
	return t.coords[i], nil
}

// TrackID returns the tract-storage id of leaf i.
func (t *Tree) TrackID(i int) (int, error) {
	if i < 0 || i >= len(t.trackIDs) {
		return 0, hcerr.NotFound("leaf index out of range")
	}
	return t.trackIDs[i], nil
}

// mutNode returns a pointer to the node addressed by id, for use within
// this package.
func (t *Tree) mutNode(id FullID) *Node {
	if id.Kind == Leaf {
		return &t.leaves[id.Index]
	}
	return &t.inner[id.Index]
}

// LeavesUnder returns the sorted leaf indices in node's subtree, using and
// populating the per-tree memo cache.
func (t *Tree) LeavesUnder(id FullID) ([]int, error) {
	if _, err := t.Node(id); err != nil {
		return nil, err
	}
	if id.Kind == Leaf {
		return []int{id.Index}, nil
	}
	if t.containedLeaves == nil {
		t.buildContainedLeaves()
	}
	return t.containedLeaves[id], nil
}

func (t *Tree) buildContainedLeaves() {
	cache := make(map[FullID][]int, len(t.inner))
	var walk func(id FullID) []int
	walk = func(id FullID) []int {
		if id.Kind == Leaf {
			return []int{id.Index}
		}
		if leaves, ok := cache[id]; ok {
			return leaves
		}
		n := t.inner[id.Index]
		var leaves []int
		for _, c := range n.Children {
			leaves = append(leaves, walk(c)...)
		}
		sort.Ints(leaves)
		cache[id] = leaves
		return leaves
	}
	for i := range t.inner {
		walk(FullID{Kind: Inner, Index: i})
	}
	t.containedLeaves = cache
}

// CommonAncestor builds both nodes' routes to the root and returns the
// first node on a's route that also lies on b's. For a == b it returns a
// itself when a is inner, or a's parent when a is a leaf.
func (t *Tree) CommonAncestor(a, b FullID) (FullID, error) {
	if _, err := t.Node(a); err != nil {
		return FullID{}, err
	}
	if _, err := t.Node(b); err != nil {
		return FullID{}, err
	}
	if a == b {
		if a.Kind == Leaf {
			n, _ := t.Leaf(a.Index)
			return n.Parent, nil
		}
		return a, nil
	}

	ra, _ := t.routeIDs(a)
	rb, _ := t.routeIDs(b)
	inB := make(map[FullID]bool, len(rb))
	for _, id := range rb {
		inB[id] = true
	}
	for _, id := range ra {
		if inB[id] {
			return id, nil
		}
	}
	return t.RootID(), nil
}

// routeIDs returns [id, parent(id), grandparent(id), ..., root].
func (t *Tree) routeIDs(id FullID) ([]FullID, error) {
	route := []FullID{id}
	cur := id
	for cur != t.RootID() {
		n, err := t.Node(cur)
		if err != nil {
			return nil, err
		}
		if n.Parent == RootParentSentinel && cur != t.RootID() {
			// only the root carries the sentinel; anything else reaching
			// it indicates a malformed tree, stop to avoid looping.
			break
		}
		cur = n.Parent
		route = append(route, cur)
		if cur == t.RootID() {
			break
		}
	}
	return route, nil
}

// RouteToRoot returns the sequence of ancestors from node up to and
// including the root.
func (t *Tree) RouteToRoot(id FullID) ([]FullID, error) {
	route, err := t.routeIDs(id)
	if err != nil {
		return nil, err
	}
	return route[1:], nil
}

// TripletOrder reports the joining order of three nodes: 0 if they share
// one immediate ancestor ("unresolved"), 1 if a,b join before c, 2 if a,c
// join before b, 3 if b,c join before a.
func (t *Tree) TripletOrder(a, b, c FullID) (int, error) {
	ab, err := t.CommonAncestor(a, b)
	if err != nil {
		return 0, err
	}
	ac, err := t.CommonAncestor(a, c)
	if err != nil {
		return 0, err
	}
	bc, err := t.CommonAncestor(b, c)
	if err != nil {
		return 0, err
	}

	if ab == ac && ac == bc {
		return 0, nil
	}

	// Whichever pair joins first has a common ancestor strictly below the
	// point where the third node attaches; the other two pairs then share
	// that same, higher, attachment point.
	switch {
	case ac == bc && ab != ac:
		return 1, nil // a,b join before c
	case ab == bc && ac != ab:
		return 2, nil // a,c join before b
	case ab == ac && bc != ab:
		return 3, nil // b,c join before a
	default:
		return 0, nil
	}
}

// BaseNodes returns the inner nodes, reachable from subroot, all of whose
// children are leaves ("meta-leaves").
func (t *Tree) BaseNodes(subroot FullID) ([]FullID, error) {
	if _, err := t.Node(subroot); err != nil {
		return nil, err
	}
	var out []FullID
	var walk func(id FullID)
	walk = func(id FullID) {
		if id.Kind == Leaf {
			return
		}
		n := t.inner[id.Index]
		allLeaves := true
		for _, c := range n.Children {
			if c.Kind != Leaf {
				allLeaves = false
				break
			}
		}
		if allLeaves {
			out = append(out, id)
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(subroot)
	return out, nil
}

// RootBaseNodes is BaseNodes for the whole tree.
func (t *Tree) RootBaseNodes() ([]FullID, error) {
	return t.BaseNodes(t.RootID())
}

// TestRootBaseNodes reports whether every base node has H==1, i.e. the
// tree is "meta-leaf-clean".
func (t *Tree) TestRootBaseNodes() (bool, error) {
	bases, err := t.RootBaseNodes()
	if err != nil {
		return false, err
	}
	for _, id := range bases {
		n := t.inner[id.Index]
		if n.H != 1 {
			return false, nil
		}
	}
	return true, nil
}

// Distance returns the distance level at which a and b were joined: the
// distance level of their common ancestor.
func (t *Tree) Distance(a, b FullID) (float64, error) {
	anc, err := t.CommonAncestor(a, b)
	if err != nil {
		return 0, err
	}
	n, err := t.Node(anc)
	if err != nil {
		return 0, err
	}
	return n.Dist, nil
}

// SortBySize sorts ids ascending by the size of the node they address.
func (t *Tree) SortBySize(ids []FullID) {
	sort.SliceStable(ids, func(i, j int) bool {
		ni, _ := t.Node(ids[i])
		nj, _ := t.Node(ids[j])
		return ni.Size < nj.Size
	})
}

// SortByHLevel sorts ids ascending by (H, Index).
func (t *Tree) SortByHLevel(ids []FullID) {
	sort.SliceStable(ids, func(i, j int) bool {
		ni, _ := t.Node(ids[i])
		nj, _ := t.Node(ids[j])
		if ni.H != nj.H {
			return ni.H < nj.H
		}
		return ids[i].Index < ids[j].Index
	})
}
