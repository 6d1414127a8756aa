package distengine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hdistill/hclust/pkg/coordinate"
	"github.com/hdistill/hclust/pkg/hcerr"
	"github.com/hdistill/hclust/pkg/tractstore"
)

// PrecomputeNorms reads every seed's tractogram once, applies the
// threshold, and returns its Euclidean norm, fanning the reads out across
// threads workers via errgroup.
// A tract whose norm comes out zero (every byte below the threshold) is
// left in place: Distance treats it as maximally dissimilar from
// everything rather than failing the run.
func PrecomputeNorms(ctx context.Context, store *tractstore.Store, coords []coordinate.Coord, trackIDs []int, tau float64, threads int) ([]float64, error) {
	n := len(trackIDs)
	if len(coords) != n {
		return nil, hcerr.DimensionMismatch("coords and trackIDs must have the same length")
	}
	norms := make([]float64, n)

	if threads < 1 {
		threads = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, threads)

loop:
	for i := 0; i < n; i++ {
		i := i
		select {
		case <-gctx.Done():
			break loop
		case sem <- struct{}{}:
		}
		g.Go(func() error {
			defer func() { <-sem }()
			tract, err := store.ReadLeafTract(trackIDs[i], coords[i])
			if err != nil {
				return err
			}
			tractstore.Threshold(tract, tau)
			norms[i] = tractstore.ComputeNorm(tract)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return norms, nil
}
