package partition

import (
	"sort"

	"github.com/hdistill/hclust/pkg/tree"
)

// HorizontalSweep produces one partition per distinct inner-node distance
// level reachable from subroot, each obtained via a horizontal ClassicCut
// at that level, for callers that want every natural granularity instead
// of the Spread-Separation-guided search of ScanOptimalPartitions.
func HorizontalSweep(t *tree.Tree, subroot tree.FullID, excludeLeaves bool) ([]Scored, error) {
	levels, err := distinctDistances(t, subroot)
	if err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(levels)))

	var out []Scored
	seen := make(map[string]bool)
	for _, v := range levels {
		p, effective, err := ClassicCut(t, subroot, ByValue, Horizontal, v, excludeLeaves)
		if err != nil {
			return nil, err
		}
		key := partitionKey(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, Scored{SS: effective, Partition: p})
	}
	return out, nil
}

func distinctDistances(t *tree.Tree, subroot tree.FullID) ([]float64, error) {
	seen := make(map[float64]bool)
	var out []float64
	var walk func(id tree.FullID) error
	walk = func(id tree.FullID) error {
		n, err := t.Node(id)
		if err != nil {
			return err
		}
		if n.IsLeaf() {
			return nil
		}
		if !seen[n.Dist] {
			seen[n.Dist] = true
			out = append(out, n.Dist)
		}
		for _, c := range n.Children {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(subroot); err != nil {
		return nil, err
	}
	return out, nil
}

func partitionKey(p []tree.FullID) string {
	ids := append([]tree.FullID(nil), p...)
	sortByIndex(ids)
	b := make([]byte, 0, len(ids)*8)
	for _, id := range ids {
		b = append(b, byte(id.Kind), byte(id.Index), byte(id.Index>>8), byte(id.Index>>16), byte(id.Index>>24))
	}
	return string(b)
}
