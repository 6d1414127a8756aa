package partition

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hdistill/hclust/pkg/tree"
)

// DefaultDepth is δ's default search depth.
const DefaultDepth = 3

// MaxGranularities caps the number of (SS,P) pairs ScanOptimalPartitions
// will record for a single sub-root before it stops early, regardless of
// whether further clusters remain expandable. It is a package-level
// variable so callers needing deeper scans can raise it instead of
// patching the source.
var MaxGranularities = 500

// AdaptiveDepth auto-scales δ down for coarse partitions.
func AdaptiveDepth(k int) int {
	switch {
	case k < 40:
		return 5
	case k < 90:
		return 4
	case k < 200:
		return 3
	case k < 350:
		return 2
	default:
		return 1
	}
}

// Scored pairs a partition with its spread-separation score.
type Scored struct {
	SS        float64
	Partition []tree.FullID
}

// SpreadSeparation computes SS(P) = (Σs_k/K) · (ΣD_k / Σ s_k·d_k) for
// partition p. When Σ s_k·d_k is zero (every cluster at distance 0) the
// division is skipped and the score is (Σs_k/K) · ΣD_k.
func SpreadSeparation(t *tree.Tree, p []tree.FullID) (float64, error) {
	if len(p) == 0 {
		return 0, nil
	}
	var totalSize, sumParentDist, sumSizeDist float64
	for _, id := range p {
		n, err := t.Node(id)
		if err != nil {
			return 0, err
		}
		totalSize += float64(n.Size)

		parentDist := n.Dist
		if par, err := t.Node(n.Parent); err == nil {
			parentDist = par.Dist
		}
		sumParentDist += parentDist
		sumSizeDist += float64(n.Size) * n.Dist
	}
	meanSize := totalSize / float64(len(p))
	if sumSizeDist == 0 {
		return meanSize * sumParentDist, nil
	}
	return meanSize * sumParentDist / sumSizeDist, nil
}

// branchOnce returns, for every expandable cluster in p, the partition
// obtained by replacing that one cluster with its children, alongside the
// index (into p) of the cluster that was replaced — the "first branch".
func branchOnce(t *tree.Tree, p []tree.FullID, excludeLeaves bool) ([][]tree.FullID, []int) {
	var out [][]tree.FullID
	var origin []int
	for i, id := range p {
		if !expandable(t, id, excludeLeaves) {
			continue
		}
		n, err := t.Node(id)
		if err != nil {
			continue
		}
		next := make([]tree.FullID, 0, len(p)-1+len(n.Children))
		next = append(next, p[:i]...)
		next = append(next, n.Children...)
		next = append(next, p[i+1:]...)
		out = append(out, next)
		origin = append(origin, i)
	}
	return out, origin
}

// branching enumerates every partition reachable from p by branching up to
// depth levels deep, tagging each with the first-branch cluster index (in
// p) that started its derivation.
func branching(t *tree.Tree, p []tree.FullID, depth int, excludeLeaves bool) ([][]tree.FullID, []int) {
	firstLevel, origins := branchOnce(t, p, excludeLeaves)
	if depth <= 1 {
		return firstLevel, origins
	}

	var all [][]tree.FullID
	var allOrigins []int
	for i, derived := range firstLevel {
		all = append(all, derived)
		allOrigins = append(allOrigins, origins[i])
		deeper, _ := branching(t, derived, depth-1, excludeLeaves)
		for _, d := range deeper {
			all = append(all, d)
			allOrigins = append(allOrigins, origins[i])
		}
	}
	return all, allOrigins
}

// ScanOptimalPartitions runs an iterative spread-separation search: at
// each step it looks ahead depth levels, picks the globally best-scoring
// derived partition, and adopts the first-branch (depth-1) partition that
// led to it as the next working partition. It
// records one (SS,P) pair per granularity until no cluster can expand
// further. depth<=0 selects AdaptiveDepth(len(root children)).
func ScanOptimalPartitions(ctx context.Context, t *tree.Tree, subroot tree.FullID, depth int, excludeLeaves bool) ([]Scored, error) {
	root, err := t.Node(subroot)
	if err != nil {
		return nil, err
	}
	p := append([]tree.FullID(nil), root.Children...)
	if depth <= 0 {
		depth = AdaptiveDepth(len(p))
	}
	if depth > 5 {
		depth = 5
	}
	if depth < 1 {
		depth = 1
	}

	ss0, err := SpreadSeparation(t, p)
	if err != nil {
		return nil, err
	}
	results := []Scored{{SS: ss0, Partition: p}}

	for len(results) < MaxGranularities {
		derived, origins := branching(t, p, depth, excludeLeaves)
		if len(derived) == 0 {
			break
		}

		scores := make([]float64, len(derived))
		g, gctx := errgroup.WithContext(ctx)
		for i := range derived {
			i := i
			g.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				s, err := SpreadSeparation(t, derived[i])
				if err != nil {
					return err
				}
				scores[i] = s
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		best := 0
		for i := 1; i < len(scores); i++ {
			if scores[i] > scores[best] {
				best = i
			}
		}

		firstLevel, firstOrigins := branchOnce(t, p, excludeLeaves)
		var adopted []tree.FullID
		for i, o := range firstOrigins {
			if o == origins[best] {
				adopted = firstLevel[i]
				break
			}
		}
		if adopted == nil {
			break
		}

		p = adopted
		ssP, err := SpreadSeparation(t, p)
		if err != nil {
			return nil, err
		}
		results = append(results, Scored{SS: ssP, Partition: p})
	}

	return results, nil
}

// FilterByGranularity keeps only the (SS,P) pairs whose SS is the local
// maximum within a sliding window of size 2r+1 centered on each entry.
func FilterByGranularity(scored []Scored, r int) []Scored {
	var out []Scored
	for i := range scored {
		lo := i - r
		if lo < 0 {
			lo = 0
		}
		hi := i + r
		if hi >= len(scored) {
			hi = len(scored) - 1
		}
		isMax := true
		for j := lo; j <= hi; j++ {
			if scored[j].SS > scored[i].SS {
				isMax = false
				break
			}
		}
		if isMax {
			out = append(out, scored[i])
		}
	}
	return out
}
