package match

import (
	"context"

	"github.com/hdistill/hclust/pkg/tree"
)

// OverlapResult is the outcome of matching partition pa (of tree A) against
// pb (of tree B) by shared-meta-leaf overlap.
type OverlapResult struct {
	// MatchA[i] is the index into pb that cluster i of pa was frozen to, or
	// NoMatch.
	MatchA []int
	// MatchB[j] is the index into pa that cluster j of pb was frozen to, or
	// NoMatch.
	MatchB []int
	Score  float64
	// Overlap is the |pa|x|pb| shared-matched-meta-leaf count matrix, kept
	// for downstream color transfer.
	Overlap [][]int
}

// OverlapMatch builds the |pa|x|pb| overlap matrix (shared matched meta-leaf
// counts), takes each row's non-zero best column as its initial pick, then
// iteratively freezes bidirectional best-matches and re-routes losers to
// their next-best pick while it stays >= half their original best.
func OverlapMatch(prep *Prep, pa, pb []tree.FullID) (OverlapResult, error) {
	overlap := make([][]int, len(pa))
	for i, ca := range pa {
		row := make([]int, len(pb))
		membersA := prep.containedA[ca]
		setA := make(map[int]bool, len(membersA))
		for _, m := range membersA {
			setA[m] = true
		}
		for j, cb := range pb {
			count := 0
			for _, m := range prep.containedB[cb] {
				if setA[m] {
					count++
				}
			}
			row[j] = count
		}
		overlap[i] = row
	}

	pickA := make([]int, len(pa))
	bestValA := make([]int, len(pa))
	for i := range pa {
		pickA[i], bestValA[i] = rowBest(overlap[i], nil)
	}

	overlapT := transpose(overlap, len(pb))
	pickB := make([]int, len(pb))
	bestValB := make([]int, len(pb))
	for j := range pb {
		pickB[j], bestValB[j] = rowBest(overlapT[j], nil)
	}

	frozenA := make([]bool, len(pa))
	frozenB := make([]bool, len(pb))
	matchA := make([]int, len(pa))
	matchB := make([]int, len(pb))
	for i := range matchA {
		matchA[i] = NoMatch
	}
	for j := range matchB {
		matchB[j] = NoMatch
	}

	for {
		changed := false
		for i := range pa {
			if frozenA[i] || pickA[i] < 0 {
				continue
			}
			j := pickA[i]
			if frozenB[j] {
				continue
			}
			if pickB[j] == i {
				frozenA[i] = true
				frozenB[j] = true
				matchA[i] = j
				matchB[j] = i
				changed = true
			}
		}
		if changed {
			continue
		}

		for i := range pa {
			if frozenA[i] || pickA[i] < 0 {
				continue
			}
			j := pickA[i]
			if !frozenB[j] {
				continue
			}
			excluded := map[int]bool{}
			for jj, fb := range frozenB {
				if fb {
					excluded[jj] = true
				}
			}
			next, val := rowBest(overlap[i], excluded)
			if next < 0 || val*2 < bestValA[i] {
				pickA[i] = -1
				continue
			}
			pickA[i] = next
			changed = true
		}
		for j := range pb {
			if frozenB[j] || pickB[j] < 0 {
				continue
			}
			i := pickB[j]
			if !frozenA[i] {
				continue
			}
			excluded := map[int]bool{}
			for ii, fa := range frozenA {
				if fa {
					excluded[ii] = true
				}
			}
			next, val := rowBest(overlapT[j], excluded)
			if next < 0 || val*2 < bestValB[j] {
				pickB[j] = -1
				continue
			}
			pickB[j] = next
			changed = true
		}
		if !changed {
			break
		}
	}

	total := 0
	for i := range pa {
		if frozenA[i] {
			total += overlap[i][matchA[i]]
		}
	}
	score := 0.0
	if len(prep.MatchedA) > 0 {
		score = float64(total) / float64(len(prep.MatchedA))
	}

	return OverlapResult{MatchA: matchA, MatchB: matchB, Score: score, Overlap: overlap}, nil
}

// rowBest returns the index and value of the largest non-zero, non-excluded
// entry in row, or (-1,0) if none qualifies.
func rowBest(row []int, excluded map[int]bool) (int, int) {
	best, bestV := -1, 0
	for j, v := range row {
		if v <= 0 || excluded[j] {
			continue
		}
		if v > bestV {
			best, bestV = j, v
		}
	}
	return best, bestV
}

func transpose(m [][]int, cols int) [][]int {
	out := make([][]int, cols)
	for j := 0; j < cols; j++ {
		out[j] = make([]int, len(m))
		for i := range m {
			out[j][i] = m[i][j]
		}
	}
	return out
}

// OverlapSearch drives the same greedy branching search as SignatureMatch
// but scores each candidate B partition by its overlap-match quality
// instead of signature correlation, for callers that want overlap-based
// rather than signature-based cross-tree matching.
func OverlapSearch(ctx context.Context, bTree *tree.Tree, prep *Prep, pa []tree.FullID, delta int, excludeLeaves bool) ([]tree.FullID, float64, error) {
	return greedySearch(ctx, bTree, delta, excludeLeaves, len(pa), func(pb []tree.FullID) float64 {
		result, err := OverlapMatch(prep, pa, pb)
		if err != nil {
			return 0
		}
		return result.Score
	})
}
