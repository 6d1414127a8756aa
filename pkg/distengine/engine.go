package distengine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hdistill/hclust/pkg/coordinate"
	"github.com/hdistill/hclust/pkg/elog"
	"github.com/hdistill/hclust/pkg/hcerr"
	"github.com/hdistill/hclust/pkg/tractstore"
)

// BlockRange bounds a Run invocation to a contiguous span of outer blocks,
// letting a long computation be split across separate checkpointed
// invocations.
type BlockRange struct {
	HasStart  bool
	StartRow  int
	StartCol  int
	HasFinish bool
	FinishRow int
	FinishCol int
}

func before(r1, c1, r2, c2 int) bool {
	return r1 < r2 || (r1 == r2 && c1 < c2)
}

// Engine computes and persists the pairwise dissimilarity matrix for one
// dataset, one outer block at a time, skipping blocks a prior invocation
// already wrote.
type Engine struct {
	Store    *tractstore.Store
	Writer   *tractstore.BlockWriter
	Coords   []coordinate.Coord
	TrackIDs []int
	Norms    []float64
	Cfg      Config
	Tau      float64
	View     elog.View // optional; nil disables progress reporting
}

func (e *Engine) numBlocks() int {
	b := e.Cfg.BlockSize
	if b <= 0 {
		b = e.Cfg.N
	}
	return (e.Cfg.N + b - 1) / b
}

func (e *Engine) blockBounds(block int) (start, end int) {
	b := e.Cfg.BlockSize
	if b <= 0 {
		b = e.Cfg.N
	}
	start = block * b
	end = start + b
	if end > e.Cfg.N {
		end = e.Cfg.N
	}
	return
}

// Run computes every outer block (R,C) with R<=C within rng, skipping any
// block the writer reports as already present (checkpoint resume), and
// writes an index file alongside the blocks when indexPath is non-empty.
func (e *Engine) Run(ctx context.Context, rng BlockRange, indexPath string) error {
	if len(e.Norms) != e.Cfg.N || len(e.TrackIDs) != e.Cfg.N || len(e.Coords) != e.Cfg.N {
		return hcerr.DimensionMismatch("engine coords/trackIDs/norms must all have length N")
	}

	nBlocks := e.numBlocks()

	for r := 0; r < nBlocks; r++ {
		for c := r; c < nBlocks; c++ {
			if rng.HasStart && before(r, c, rng.StartRow, rng.StartCol) {
				continue
			}
			if rng.HasFinish && before(rng.FinishRow, rng.FinishCol, r, c) {
				continue
			}

			if e.Writer.BlockExists(r, c) {
				if e.View != nil {
					e.View.Infof("block (%d,%d) already on disk, skipping", r, c)
				}
				continue
			}

			rowStart, rowEnd := e.blockBounds(r)
			colStart, colEnd := e.blockBounds(c)

			matrix, err := e.computeBlock(ctx, rowStart, rowEnd, colStart, colEnd)
			if err != nil {
				return err
			}
			if err := e.Writer.WriteBlock(r, c, rowEnd-rowStart, colEnd-colStart, matrix); err != nil {
				return err
			}
			if e.View != nil {
				e.View.Infof("wrote block (%d,%d)", r, c)
			}
		}
	}

	if indexPath != "" {
		blockSize := e.Cfg.BlockSize
		if blockSize <= 0 {
			blockSize = e.Cfg.N
		}
		if err := WriteIndex(indexPath, BuildIndex(e.Coords, blockSize)); err != nil {
			return err
		}
	}
	return nil
}

// computeBlock computes one outer block's distances by tiling it into
// Cfg.SubBlock-sized row/column sub-blocks and reading each sub-block's
// tracts fresh, so at most one row sub-block and one column sub-block of
// decoded tracts (2*SubBlock tracts) are ever resident at once — the bound
// Configure's geometry math assumes. Cfg.Threads instead fans out across
// the rows of whichever sub-block tile is currently resident, mirroring
// how each tile's distance computation was parallelized upstream: threads
// split already-loaded work, they never trigger extra tract reads.
func (e *Engine) computeBlock(ctx context.Context, rowStart, rowEnd, colStart, colEnd int) ([]float64, error) {
	rows := rowEnd - rowStart
	cols := colEnd - colStart
	out := make([]float64, rows*cols)

	rowChunk := e.Cfg.SubBlock
	if rowChunk <= 0 || rowChunk > rows {
		rowChunk = rows
	}
	colChunk := e.Cfg.SubBlock
	if colChunk <= 0 || colChunk > cols {
		colChunk = cols
	}

	threads := e.Cfg.Threads
	if threads < 1 {
		threads = 1
	}

	sameBlock := rowStart == colStart && rowEnd == colEnd

	for rStart := 0; rStart < rows; rStart += rowChunk {
		rEnd := rStart + rowChunk
		if rEnd > rows {
			rEnd = rows
		}
		rowTracts, err := e.readTracts(rowStart+rStart, rowStart+rEnd)
		if err != nil {
			return nil, err
		}
		rowNorms := e.Norms[rowStart+rStart : rowStart+rEnd]

		for cStart := 0; cStart < cols; cStart += colChunk {
			cEnd := cStart + colChunk
			if cEnd > cols {
				cEnd = cols
			}

			var colTracts [][]byte
			var colNorms []float64
			if sameBlock && cStart == rStart && cEnd == rEnd {
				colTracts = rowTracts
				colNorms = rowNorms
			} else {
				colTracts, err = e.readTracts(colStart+cStart, colStart+cEnd)
				if err != nil {
					return nil, err
				}
				colNorms = e.Norms[colStart+cStart : colStart+cEnd]
			}

			if err := fillTile(ctx, out, cols, rStart, cStart, rowTracts, rowNorms, colTracts, colNorms, threads); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// fillTile computes distances for one resident row/column sub-block pair
// and writes them into out (a rows*outCols flat matrix) at (rStart,
// cStart), fanning the tile's rows out across threads workers that each
// fill a disjoint row-band via ComputeBlock.
func fillTile(ctx context.Context, out []float64, outCols, rStart, cStart int, rowTracts [][]byte, rowNorms []float64, colTracts [][]byte, colNorms []float64, threads int) error {
	rows := len(rowTracts)
	cols := len(colTracts)
	if threads < 1 {
		threads = 1
	}
	if threads > rows {
		threads = rows
	}
	band := (rows + threads - 1) / threads

	g, _ := errgroup.WithContext(ctx)
	for wStart := 0; wStart < rows; wStart += band {
		wStart := wStart
		wEnd := wStart + band
		if wEnd > rows {
			wEnd = rows
		}
		g.Go(func() error {
			sub := ComputeBlock(rowTracts[wStart:wEnd], colTracts, rowNorms[wStart:wEnd], colNorms, 0)
			for r := wStart; r < wEnd; r++ {
				dst := (rStart + r) * outCols
				copy(out[dst+cStart:dst+cStart+cols], sub[(r-wStart)*cols:(r-wStart+1)*cols])
			}
			return nil
		})
	}
	return g.Wait()
}

func (e *Engine) readTracts(start, end int) ([][]byte, error) {
	out := make([][]byte, end-start)
	for i := start; i < end; i++ {
		tract, err := e.Store.ReadLeafTract(e.TrackIDs[i], e.Coords[i])
		if err != nil {
			return nil, err
		}
		tractstore.Threshold(tract, e.Tau)
		out[i-start] = tract
	}
	return out, nil
}
