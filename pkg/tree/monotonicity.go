package tree

// MonotonicityStrategy selects how ForceMonotonicity resolves a
// child.distance > parent.distance violation.
type MonotonicityStrategy int

const (
	// Weighted replaces a violating parent's distance with a size-weighted
	// average of itself and its children, then runs a final Down sweep.
	// This is the default strategy.
	Weighted MonotonicityStrategy = iota
	// Up raises each parent's distance to its max child's.
	Up
	// Down lowers each violating child's distance to its parent's.
	Down
)

// DefaultMonotonicityEpsilon is ε's default value.
const DefaultMonotonicityEpsilon = 1e-5

// MaxMonotonicityEpsilon is the largest ε the Weighted strategy accepts.
const MaxMonotonicityEpsilon = 1e-3

// ForceMonotonicity rewrites distances so child.distance <= parent.distance
// everywhere. eps is only consulted by Weighted; pass 0 to use
// DefaultMonotonicityEpsilon. Already-monotone trees are a no-op within
// eps.
func (t *Tree) ForceMonotonicity(strategy MonotonicityStrategy, eps float64) error {
	if eps <= 0 {
		eps = DefaultMonotonicityEpsilon
	}
	if eps > MaxMonotonicityEpsilon {
		eps = MaxMonotonicityEpsilon
	}

	switch strategy {
	case Up:
		t.monotonicityUp()
	case Down:
		t.monotonicityDown()
	default:
		t.monotonicityWeighted(eps)
		t.monotonicityDown()
	}
	return nil
}

// monotonicityUp raises each parent to its max child's distance, bottom-up
// (children always have a lower inner index than their parent).
func (t *Tree) monotonicityUp() {
	for i := range t.inner {
		for _, c := range t.inner[i].Children {
			if c.Kind != Inner {
				continue
			}
			if cd := t.inner[c.Index].Dist; cd > t.inner[i].Dist {
				t.inner[i].Dist = cd
			}
		}
	}
}

// monotonicityDown lowers each violating child to its parent's distance,
// top-down (processed in decreasing index order so a node's parent, whose
// index is always higher, is already finalized).
func (t *Tree) monotonicityDown() {
	for i := len(t.inner) - 1; i >= 0; i-- {
		for _, c := range t.inner[i].Children {
			if c.Kind != Inner {
				continue
			}
			if t.inner[c.Index].Dist > t.inner[i].Dist {
				t.inner[c.Index].Dist = t.inner[i].Dist
			}
		}
	}
}

// monotonicityWeighted iterates a bottom-up averaging pass to a fixed
// point: a parent whose distance is raised above its own parent's value
// causes that ancestor to be re-evaluated on the next iteration, which has
// the same convergent effect as restarting the walk from the grandparent
// without needing an explicit resumable walk. A small fixed iteration
// bound prevents oscillation from ever looping forever.
func (t *Tree) monotonicityWeighted(eps float64) {
	const maxPasses = 64
	for pass := 0; pass < maxPasses; pass++ {
		changed := false
		for i := range t.inner {
			n := &t.inner[i]
			violated := false
			for _, c := range n.Children {
				if c.Kind == Inner && t.inner[c.Index].Dist > n.Dist {
					violated = true
					break
				}
			}
			if !violated {
				continue
			}

			// The repaired value averages the violating children's own
			// distances (weighted by their sizes) against the parent's
			// current distance (weighted by the size of the children that
			// do NOT violate) — not the parent's full subtree size, and
			// never mixing in a non-violating child's own distance.
			var violWeighted, violSize, remainSize float64
			for _, c := range n.Children {
				if c.Kind != Inner {
					remainSize++
					continue
				}
				cs := float64(t.inner[c.Index].Size)
				if t.inner[c.Index].Dist > n.Dist {
					violWeighted += cs * t.inner[c.Index].Dist
					violSize += cs
				} else {
					remainSize += cs
				}
			}
			newDist := (violWeighted + remainSize*n.Dist) / (violSize + remainSize)

			if n.Parent.Kind == Inner {
				gp := t.inner[n.Parent.Index].Dist
				if newDist > gp*(1+eps) {
					newDist = gp
				}
			}

			if newDist != n.Dist {
				n.Dist = newDist
				changed = true
			}
		}
		if !changed {
			break
		}
	}
}
