package match

import (
	"sort"

	"github.com/hdistill/hclust/pkg/coordinate"
	"github.com/hdistill/hclust/pkg/hcerr"
	"github.com/hdistill/hclust/pkg/tree"
)

// LabelVolume is an external 3-D label volume, one int per voxel of the
// dataset's (SX,SY,SZ) grid, flat in x-major order ((x*SY+y)*SZ+z).
type LabelVolume struct {
	Extent coordinate.Extent
	Labels []int
}

func (v LabelVolume) at(c coordinate.Coord) int {
	idx := (int(c.X)*v.Extent.SY+int(c.Y))*v.Extent.SZ + int(c.Z)
	return v.Labels[idx]
}

// ImageToTree relabels src's meta-leaves from an external label volume and
// rebuilds it into a 3-level tree. It requires the volume's non-zero
// voxel count to equal src's leaf count and its dimensions to match
// src's extent, fails if any seed voxel carries label
// 0, tallies each meta-leaf's contained-leaf labels (ignoring label 1 when
// another label is also present) to assign it its majority label, then
// builds meta-leaves at d=0.1, one per-label parent per distinct label at
// d=0.5, and a single root at d=1.0. src itself is left untouched.
func ImageToTree(src *tree.Tree, vol LabelVolume) (*tree.Tree, error) {
	ext := src.Extent()
	if vol.Extent != ext {
		return nil, hcerr.DimensionMismatch("label volume extent does not match dataset extent")
	}
	if len(vol.Labels) != ext.SX*ext.SY*ext.SZ {
		return nil, hcerr.DimensionMismatch("label volume size does not match dataset extent")
	}

	nonZero := 0
	for _, l := range vol.Labels {
		if l != 0 {
			nonZero++
		}
	}
	if nonZero != src.LeafCount() {
		return nil, hcerr.DimensionMismatch("label volume non-zero voxel count does not match leaf count")
	}

	leafLabel := make([]int, src.LeafCount())
	for i := 0; i < src.LeafCount(); i++ {
		c, err := src.Coordinate4Leaf(i)
		if err != nil {
			return nil, err
		}
		l := vol.at(c)
		if l == 0 {
			return nil, hcerr.Invariant("seed voxel has label 0")
		}
		leafLabel[i] = l
	}

	bases, err := src.RootBaseNodes()
	if err != nil {
		return nil, err
	}

	metaLabel := make([]int, len(bases))
	for bi, id := range bases {
		n, err := src.Node(id)
		if err != nil {
			return nil, err
		}
		tally := make(map[int]int)
		for _, c := range n.Children {
			tally[leafLabel[c.Index]]++
		}
		if len(tally) > 1 {
			delete(tally, 1)
		}
		best, bestCount := 0, -1
		labels := make([]int, 0, len(tally))
		for l := range tally {
			labels = append(labels, l)
		}
		sort.Ints(labels)
		for _, l := range labels {
			if tally[l] > bestCount {
				best, bestCount = l, tally[l]
			}
		}
		metaLabel[bi] = best
	}

	coords := make([]coordinate.Coord, src.LeafCount())
	trackIDs := make([]int, src.LeafCount())
	for i := range coords {
		c, err := src.Coordinate4Leaf(i)
		if err != nil {
			return nil, err
		}
		coords[i] = c
		tid, err := src.TrackID(i)
		if err != nil {
			return nil, err
		}
		trackIDs[i] = tid
	}

	dst := tree.NewLeafOnly(coords, trackIDs, src.Grid(), ext)

	metaLeafID := make([]tree.FullID, len(bases))
	for bi, id := range bases {
		n, err := src.Node(id)
		if err != nil {
			return nil, err
		}
		metaLeafID[bi] = dst.AppendInner(0.1, append([]tree.FullID(nil), n.Children...))
	}

	byLabel := make(map[int][]tree.FullID)
	var order []int
	for bi, l := range metaLabel {
		if _, ok := byLabel[l]; !ok {
			order = append(order, l)
		}
		byLabel[l] = append(byLabel[l], metaLeafID[bi])
	}
	sort.Ints(order)

	var rootChildren []tree.FullID
	for _, l := range order {
		rootChildren = append(rootChildren, dst.AppendInner(0.5, byLabel[l]))
	}
	dst.AppendInner(1.0, rootChildren)

	if err := dst.FinalizeBuild(); err != nil {
		return nil, err
	}
	return dst, nil
}
