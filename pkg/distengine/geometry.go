// Package distengine implements the tiled, checkpointed, parallel
// pairwise-dissimilarity engine that turns a tract store into block-wise
// distance matrices: block/sub-block tiling over seed pairs, with a
// byte-to-probability dot product for the per-pair dissimilarity score
// and a golang.org/x/sync/errgroup worker pool for the fan-out.
package distengine

import (
	"math"

	"github.com/hdistill/hclust/pkg/hcerr"
)

// Tunable geometry floors below which tiling overhead dominates the work.
const (
	MinBlock    = 500
	MinSubBlock = 10

	// DefaultBlockSize is B's value when the caller does not request one.
	DefaultBlockSize = 5000

	bytesPerFloat = 4 // models a float32 working set for the B x B block
)

// Config is a validated block/sub-block geometry plus the dataset sizes it
// was derived for.
type Config struct {
	N          int
	TractBytes int // L
	MemoryGiB  float64
	BlockSize  int // B
	SubBlock   int // b
	Threads    int
}

// Configure picks B then b and validates both against the memory budget,
// returning a ConfigError if no valid geometry exists. This is the path
// the CLI tools call; ComputeBlock and the Engine's internal kernel accept
// any B/b directly (including values below the floors above) so that small
// worked examples, far below MinBlock, can still drive the kernel without
// going through CLI-level validation.
func Configure(n, tractBytes int, memGiB float64, requestedBlock, threads int) (Config, error) {
	if n < 2 {
		return Config{}, hcerr.Config("seed count must be >= 2", nil)
	}
	if tractBytes < 1 {
		return Config{}, hcerr.Config("tract length must be >= 1", nil)
	}
	if memGiB < 0.1 || memGiB > 50 {
		return Config{}, hcerr.Config("memory budget must be in [0.1, 50] GiB", nil)
	}
	if threads < 1 {
		threads = 1
	}

	b := requestedBlock
	if b <= 0 {
		b = DefaultBlockSize
	}
	if b > n {
		b = n
	}
	budgetCap := math.Sqrt(memGiB * (1 << 30) / (2 * bytesPerFloat))
	if float64(b) > budgetCap {
		b = int(budgetCap)
	}
	if b < MinBlock {
		return Config{}, hcerr.Config("block size too small for the requested memory budget", nil)
	}

	sub, err := pickSubBlock(b, tractBytes, memGiB)
	if err != nil {
		return Config{}, err
	}

	return Config{N: n, TractBytes: tractBytes, MemoryGiB: memGiB, BlockSize: b, SubBlock: sub, Threads: threads}, nil
}

// pickSubBlock returns the largest divisor of blockSize such that
// 2*b*tractBytes fits within the memory remaining after the B²*4 outer
// block-matrix allocation, no smaller than MinSubBlock.
func pickSubBlock(blockSize, tractBytes int, memGiB float64) (int, error) {
	remaining := memGiB*(1<<30) - float64(blockSize)*float64(blockSize)*bytesPerFloat
	if remaining <= 0 {
		return 0, hcerr.Config("memory budget too small for the chosen block size", nil)
	}
	maxSub := int(remaining / (2 * float64(tractBytes)))
	if maxSub > blockSize {
		maxSub = blockSize
	}
	for b := maxSub; b >= MinSubBlock; b-- {
		if blockSize%b == 0 {
			return b, nil
		}
	}
	return 0, hcerr.Config("no sub-block size >= MinSubBlock divides the block size within budget", nil)
}
