// Package match implements corresponding a reference tree's partitions
// onto a target tree's via a base-node correspondence table, by signature
// matching or overlap matching, transferring partition colors across the
// match, and building a tree from an external label volume (image2tree).
// It operates through pkg/tree's exported query and partition-mutation
// surface.
package match

import (
	"sort"

	"github.com/hdistill/hclust/pkg/hcerr"
	"github.com/hdistill/hclust/pkg/tree"
)

// NoMatch is the correspondence-table sentinel for "no match".
const NoMatch = -1

// Prep holds everything derived from a base-node correspondence table that
// signature and overlap matching both need.
type Prep struct {
	BasesA, BasesB []tree.FullID
	MatchedA       []int // positions into BasesA with a real match
	MatchedB       []int // corresponding positions into BasesB
	containedA     map[tree.FullID][]int
	containedB     map[tree.FullID][]int
}

// Prepare validates the inputs and derives the matched sequences and the
// per-subtree matched-meta-leaf lists.
func Prepare(a, b *tree.Tree, table []int) (*Prep, error) {
	cleanA, err := a.TestRootBaseNodes()
	if err != nil {
		return nil, err
	}
	cleanB, err := b.TestRootBaseNodes()
	if err != nil {
		return nil, err
	}
	if !cleanA || !cleanB {
		return nil, hcerr.Invariant("both trees must be meta-leaf-clean")
	}

	basesA, err := a.RootBaseNodes()
	if err != nil {
		return nil, err
	}
	basesB, err := b.RootBaseNodes()
	if err != nil {
		return nil, err
	}
	sortByIndex(basesA)
	sortByIndex(basesB)

	if len(table) != len(basesA) {
		return nil, hcerr.DimensionMismatch("correspondence table length must equal A's meta-leaf count")
	}

	var matchedA, matchedB []int
	for i, j := range table {
		if j == NoMatch {
			continue
		}
		if j < 0 || j >= len(basesB) {
			return nil, hcerr.DimensionMismatch("correspondence table entry out of range")
		}
		matchedA = append(matchedA, i)
		matchedB = append(matchedB, j)
	}

	baseIndexA := make(map[tree.FullID]int, len(basesA))
	for i, id := range basesA {
		baseIndexA[id] = i
	}
	baseIndexB := make(map[tree.FullID]int, len(basesB))
	for i, id := range basesB {
		baseIndexB[id] = i
	}
	matchPosA := make(map[int]int, len(matchedA))
	for p, i := range matchedA {
		matchPosA[i] = p
	}
	matchPosB := make(map[int]int, len(matchedB))
	for p, j := range matchedB {
		matchPosB[j] = p
	}

	containedA, err := buildContainedMatched(a, baseIndexA, matchPosA)
	if err != nil {
		return nil, err
	}
	containedB, err := buildContainedMatched(b, baseIndexB, matchPosB)
	if err != nil {
		return nil, err
	}

	return &Prep{
		BasesA: basesA, BasesB: basesB,
		MatchedA: matchedA, MatchedB: matchedB,
		containedA: containedA, containedB: containedB,
	}, nil
}

// buildContainedMatched returns, for every inner node of t, the sorted
// list of matched-sequence positions whose meta-leaf lies in that node's
// subtree, built bottom-up. baseIndex maps a meta-leaf's FullID to its
// position in the tree's base-node list; matchPos maps that base-list
// position to its position in the matched sequence (absent if that
// meta-leaf has no match).
func buildContainedMatched(t *tree.Tree, baseIndex map[tree.FullID]int, matchPos map[int]int) (map[tree.FullID][]int, error) {
	cache := make(map[tree.FullID][]int)
	var walk func(id tree.FullID) ([]int, error)
	walk = func(id tree.FullID) ([]int, error) {
		if id.Kind == tree.Leaf {
			return nil, nil
		}
		if v, ok := cache[id]; ok {
			return v, nil
		}
		if bi, ok := baseIndex[id]; ok {
			var out []int
			if p, ok := matchPos[bi]; ok {
				out = []int{p}
			}
			cache[id] = out
			return out, nil
		}
		n, err := t.Node(id)
		if err != nil {
			return nil, err
		}
		var out []int
		for _, c := range n.Children {
			sub, err := walk(c)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		sort.Ints(out)
		cache[id] = out
		return out, nil
	}

	if _, err := walk(t.RootID()); err != nil {
		return nil, err
	}
	return cache, nil
}

func sortByIndex(ids []tree.FullID) {
	sort.SliceStable(ids, func(i, j int) bool {
		if ids[i].Kind != ids[j].Kind {
			return ids[i].Kind < ids[j].Kind
		}
		return ids[i].Index < ids[j].Index
	})
}
