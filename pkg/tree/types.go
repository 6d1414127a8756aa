// Package tree implements the hierarchical dendrogram model: two
// contiguous node arrays (leaves, inner), full-id addressing, the
// structural invariants, the read-only queries over them, and the tree
// surgery methods (cleanup, debinarize, monotonicity repair). Partitioning
// and matching live in sibling packages that operate on a *Tree through
// its exported methods; the node arrays themselves are unexported,
// following a two-vectors-of-integer-indexed-nodes, no-pointers design.
package tree

import (
	"github.com/hdistill/hclust/pkg/coordinate"
	"github.com/hdistill/hclust/pkg/hcerr"
)

// Kind distinguishes a leaf node from an inner node in a FullID.
type Kind uint8

const (
	// Leaf identifies a node in the leaf array.
	Leaf Kind = iota
	// Inner identifies a node in the inner array.
	Inner
)

func (k Kind) String() string {
	if k == Leaf {
		return "leaf"
	}
	return "node"
}

// FullID addresses any node in the tree: a kind tag plus an index into the
// matching array. The root's parent is the sentinel FullID{Leaf, 0}.
type FullID struct {
	Kind  Kind
	Index int
}

// RootParentSentinel is the parent FullID stored on the root node; no
// other node may carry this value.
var RootParentSentinel = FullID{Kind: Leaf, Index: 0}

// Node is one element of either contiguous array. Leaves always have
// Size==1, H==0, and no children.
type Node struct {
	ID       FullID
	Parent   FullID
	Children []FullID
	Size     int
	Dist     float64
	H        int
	Flag     bool
}

// IsLeaf reports whether the node is a leaf.
func (n Node) IsLeaf() bool { return n.ID.Kind == Leaf }

// SavedPartition is one of a tree's K aligned (value, clusters, colors)
// triples.
type SavedPartition struct {
	Value    float64
	Clusters []int // inner-node indices
	Colors   [][3]uint8 // empty if this tree carries no colors
}

// Color is an RGB triple, exported separately from SavedPartition.Colors'
// element type for callers (pkg/match) that build up colors incrementally.
type Color = [3]uint8

// Tree is a hierarchical dendrogram over a fixed seed set. The zero value
// is not valid; use New or Parse.
type Tree struct {
	leaves []Node
	inner  []Node

	coords    []coordinate.Coord // leaf index -> coordinate
	trackIDs  []int              // leaf index -> tract storage id
	discarded []coordinate.Coord

	grid      coordinate.Grid
	extent    coordinate.Extent
	streams   int
	logFactor float64
	cpcc      *float64

	partitions []SavedPartition

	containedLeaves map[FullID][]int // memoized leaves_under, nil until built
}

// NewLeafOnly constructs a tree skeleton from coordinates and track ids
// with no inner nodes yet; used by builders (image2tree) that then append
// inner nodes with AppendInner.
func NewLeafOnly(coords []coordinate.Coord, trackIDs []int, grid coordinate.Grid, ext coordinate.Extent) *Tree {
	leaves := make([]Node, len(coords))
	for i := range coords {
		leaves[i] = Node{ID: FullID{Kind: Leaf, Index: i}, Parent: RootParentSentinel, Size: 1, H: 0}
	}
	return &Tree{
		leaves:   leaves,
		coords:   append([]coordinate.Coord(nil), coords...),
		trackIDs: append([]int(nil), trackIDs...),
		grid:     grid,
		extent:   ext,
	}
}

// AppendInner appends a new inner node over children with the given
// distance level, returning its FullID. Size, H, and children's Parent
// pointers are left unset until FinalizeBuild runs; callers append inner
// nodes bottom-up so that every child already exists.
func (t *Tree) AppendInner(dist float64, children []FullID) FullID {
	id := FullID{Kind: Inner, Index: len(t.inner)}
	t.inner = append(t.inner, Node{ID: id, Dist: dist, Children: children})
	return id
}

// FinalizeBuild completes a tree assembled via NewLeafOnly + AppendInner:
// it wires every node's Parent pointer from its children lists, marks the
// last-appended inner node as root (giving it RootParentSentinel), and
// recomputes Size and H bottom-up. Callers should run Check afterward.
func (t *Tree) FinalizeBuild() error {
	if len(t.inner) == 0 {
		return hcerr.Invariant("cannot finalize a tree with no inner nodes")
	}
	for i := range t.inner {
		id := FullID{Kind: Inner, Index: i}
		for _, c := range t.inner[i].Children {
			if c.Kind == Leaf {
				t.leaves[c.Index].Parent = id
			} else {
				t.inner[c.Index].Parent = id
			}
		}
	}
	root := FullID{Kind: Inner, Index: len(t.inner) - 1}
	t.inner[root.Index].Parent = RootParentSentinel

	for i := range t.leaves {
		t.leaves[i].Size = 1
		t.leaves[i].H = 0
	}
	for i := range t.inner {
		id := FullID{Kind: Inner, Index: i}
		t.inner[i].Size = sizeOfNew(t, id)
		t.inner[i].H = hOfNew(t, id)
	}
	t.InvalidateCache()
	return nil
}

// New constructs a tree from pre-built leaf and inner node slices, as
// produced by the text-format parser. Callers are responsible for internal
// consistency; use Check to validate.
func New(leaves, inner []Node, coords []coordinate.Coord, trackIDs []int, discarded []coordinate.Coord, grid coordinate.Grid, ext coordinate.Extent, streams int, logFactor float64, cpcc *float64) *Tree {
	return &Tree{
		leaves:    leaves,
		inner:     inner,
		coords:    coords,
		trackIDs:  trackIDs,
		discarded: discarded,
		grid:      grid,
		extent:    ext,
		streams:   streams,
		logFactor: logFactor,
		cpcc:      cpcc,
	}
}

// LeafCount returns the number of leaves (NL).
func (t *Tree) LeafCount() int { return len(t.leaves) }

// InnerCount returns the number of inner nodes (NN).
func (t *Tree) InnerCount() int { return len(t.inner) }

// Grid returns the dataset's coordinate-frame tag.
func (t *Tree) Grid() coordinate.Grid { return t.grid }

// Extent returns the dataset's voxel-grid extent.
func (t *Tree) Extent() coordinate.Extent { return t.extent }

// Streams returns the streamline budget S.
func (t *Tree) Streams() int { return t.streams }

// LogFactor returns the cached log10(S) decoding parameter.
func (t *Tree) LogFactor() float64 { return t.logFactor }

// CPCC returns the optional cophenetic-correlation quality indicator.
func (t *Tree) CPCC() (float64, bool) {
	if t.cpcc == nil {
		return 0, false
	}
	return *t.cpcc, true
}

// SetCPCC sets or clears the cophenetic-correlation indicator.
func (t *Tree) SetCPCC(v float64) { t.cpcc = &v }

// Discarded returns the set of coordinates excluded from the tree.
func (t *Tree) Discarded() []coordinate.Coord { return t.discarded }

// Partitions returns the tree's saved partitions.
func (t *Tree) Partitions() []SavedPartition { return t.partitions }

// SetPartitions replaces the saved partitions wholesale.
func (t *Tree) SetPartitions(p []SavedPartition) { t.partitions = p }

// AddPartition appends one saved partition, validating the colors and
// clusters slices are the same length when colors are given.
func (t *Tree) AddPartition(p SavedPartition) error {
	if len(p.Colors) != 0 && len(p.Colors) != len(p.Clusters) {
		return errLenMismatch
	}
	t.partitions = append(t.partitions, p)
	return nil
}

// DropPartitions clears all saved partitions (used by tree-surgery
// operations that invalidate previously computed cuts).
func (t *Tree) DropPartitions() { t.partitions = nil }

// SetPartitionColors replaces partition k's color assignment, for the
// color-transfer step of C7. k must address an existing saved partition
// and colors must align with its Clusters slice.
func (t *Tree) SetPartitionColors(k int, colors [][3]uint8) error {
	if k < 0 || k >= len(t.partitions) {
		return hcerr.NotFound("saved partition index out of range")
	}
	if len(colors) != len(t.partitions[k].Clusters) {
		return errLenMismatch
	}
	t.partitions[k].Colors = colors
	return nil
}

// InvalidateCache drops the memoized contained-leaves cache. Every public
// mutator must call this.
func (t *Tree) InvalidateCache() { t.containedLeaves = nil }
