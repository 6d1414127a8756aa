package match

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/hdistill/hclust/pkg/partition"
	"github.com/hdistill/hclust/pkg/tree"
)

// Signature is the lower-triangular boolean co-clustering matrix σ(P) over
// the matched meta-leaves: Signature[i][j] (i>j) is true iff meta-leaves i
// and j fall in the same cluster of P.
type Signature [][]bool

func newSignature(n int) Signature {
	s := make(Signature, n)
	for i := range s {
		s[i] = make([]bool, i)
	}
	return s
}

// buildSignature computes σ(P) for a partition whose clusters index into
// contained, a node -> matched-position-list map from Prepare.
func buildSignature(contained map[tree.FullID][]int, p []tree.FullID, n int) Signature {
	sig := newSignature(n)
	for _, c := range p {
		members := contained[c]
		for a := 0; a < len(members); a++ {
			for b := 0; b < a; b++ {
				i, j := members[a], members[b]
				if i < j {
					i, j = j, i
				}
				sig[i][j] = true
			}
		}
	}
	return sig
}

// pearson computes Pearson correlation over two equal-shaped lower
// triangles, flattened.
func pearson(a, b Signature) float64 {
	var va, vb []float64
	for i := range a {
		for j := 0; j < i; j++ {
			va = append(va, boolTo1(a[i][j]))
			vb = append(vb, boolTo1(b[i][j]))
		}
	}
	n := len(va)
	if n == 0 {
		return 0
	}
	var meanA, meanB float64
	for i := range va {
		meanA += va[i]
		meanB += vb[i]
	}
	meanA /= float64(n)
	meanB /= float64(n)

	var cov, varA, varB float64
	for i := range va {
		da := va[i] - meanA
		db := vb[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

func boolTo1(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// SignatureScore returns corr(σ_A,σ_B) + λ·(min(|P_A|,|P_B|)/max(|P_A|,|P_B|)).
func SignatureScore(prep *Prep, pa, pb []tree.FullID, lambda float64) float64 {
	n := len(prep.MatchedA)
	sigA := buildSignature(prep.containedA, pa, n)
	sigB := buildSignature(prep.containedB, pb, n)
	corr := pearson(sigA, sigB)

	la, lb := float64(len(pa)), float64(len(pb))
	minL, maxL := la, lb
	if lb < la {
		minL, maxL = lb, la
	}
	return corr + lambda*(minL/maxL)
}

// SignatureMatch searches B's partition space (branching delta levels
// deep, AdaptiveDepth if delta<=0) for the partition whose signature best
// matches pa's, at each step scoring every delta-deep lookahead partition
// and adopting only the first branching step toward the best one found. It
// stops when no candidate improves the score or the target partition has
// grown past |pa|*1.1+10 members.
func SignatureMatch(ctx context.Context, bTree *tree.Tree, prep *Prep, pa []tree.FullID, delta int, excludeLeaves bool, lambda float64) ([]tree.FullID, float64, error) {
	return greedySearch(ctx, bTree, delta, excludeLeaves, len(pa), func(pb []tree.FullID) float64 {
		return SignatureScore(prep, pa, pb, lambda)
	})
}

// greedySearch is the shared branching-search loop behind SignatureMatch
// and OverlapSearch, mirroring partition.ScanOptimalPartitions: starting
// from B's root children, each step looks ahead delta levels, scores every
// derived partition, and adopts the first-branch (depth-1) step that led
// to the best-scoring one as the next working partition. It stops when no
// lookahead candidate improves on the current partition's score or the
// partition has grown past paSize*1.1+10 members.
func greedySearch(ctx context.Context, bTree *tree.Tree, delta int, excludeLeaves bool, paSize int, score func([]tree.FullID) float64) ([]tree.FullID, float64, error) {
	root := bTree.RootID()
	rootNode, err := bTree.Node(root)
	if err != nil {
		return nil, 0, err
	}
	pb := append([]tree.FullID(nil), rootNode.Children...)
	if delta <= 0 {
		delta = partition.AdaptiveDepth(len(pb))
	}

	best := score(pb)
	limit := paSize*11/10 + 10

	for {
		derived, origins := branchDeep(bTree, pb, delta, excludeLeaves)
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
				scores[i] = score(derived[i])
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, 0, err
		}

		bestIdx := -1
		bestScore := best
		for i, s := range scores {
			if s > bestScore {
				bestScore = s
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			break
		}

		firstLevel, firstOrigins := branchWithOrigin(bTree, pb, excludeLeaves)
		var adopted []tree.FullID
		for i, o := range firstOrigins {
			if o == origins[bestIdx] {
				adopted = firstLevel[i]
				break
			}
		}
		if adopted == nil {
			break
		}

		pb = adopted
		best = score(pb)
		if len(pb) > limit {
			break
		}
	}

	return pb, best, nil
}

// branchCandidates is depth-1 branching of p: one derived partition per
// expandable cluster, each replacing that cluster with its children.
func branchCandidates(t *tree.Tree, p []tree.FullID, excludeLeaves bool) [][]tree.FullID {
	out, _ := branchWithOrigin(t, p, excludeLeaves)
	return out
}

// branchWithOrigin is branchCandidates plus, for each derived partition,
// the index (into p) of the cluster that was replaced to produce it — the
// "first branch" a deeper lookahead step originated from.
func branchWithOrigin(t *tree.Tree, p []tree.FullID, excludeLeaves bool) ([][]tree.FullID, []int) {
	var out [][]tree.FullID
	var origin []int
	for i, id := range p {
		n, err := t.Node(id)
		if err != nil || n.IsLeaf() {
			continue
		}
		if excludeLeaves && isBaseNode(t, id) {
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

// branchDeep enumerates every partition reachable from p by branching up
// to depth levels deep, tagging each with the first-branch cluster index
// (in p) that started its derivation — the lookahead partition.branching
// uses to drive ScanOptimalPartitions.
func branchDeep(t *tree.Tree, p []tree.FullID, depth int, excludeLeaves bool) ([][]tree.FullID, []int) {
	firstLevel, origins := branchWithOrigin(t, p, excludeLeaves)
	if depth <= 1 {
		return firstLevel, origins
	}

	var all [][]tree.FullID
	var allOrigins []int
	for i, derived := range firstLevel {
		all = append(all, derived)
		allOrigins = append(allOrigins, origins[i])
		deeper, _ := branchDeep(t, derived, depth-1, excludeLeaves)
		for _, d := range deeper {
			all = append(all, d)
			allOrigins = append(allOrigins, origins[i])
		}
	}
	return all, allOrigins
}

func isBaseNode(t *tree.Tree, id tree.FullID) bool {
	n, err := t.Node(id)
	if err != nil || n.IsLeaf() {
		return false
	}
	for _, c := range n.Children {
		if c.Kind != tree.Leaf {
			return false
		}
	}
	return true
}
