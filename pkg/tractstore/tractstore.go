// Package tractstore implements reading and writing compact per-seed
// tractograms, thresholding and norm computation, and writing
// distance-matrix blocks to disk (optionally gzip-compressed) via
// klauspost/compress/gzip, matching compress/gzip's API one-for-one.
package tractstore

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/klauspost/compress/gzip"

	"github.com/hdistill/hclust/pkg/coordinate"
	"github.com/hdistill/hclust/pkg/hcerr"
)

// Format names the on-disk tractogram representation a Store reads.
type Format int

const (
	// FormatVista stores one file per seed voxel named by the vista
	// coordinate-naming convention.
	FormatVista Format = iota
	// FormatNifti stores one file per seed, named by tract id.
	FormatNifti
)

// Store reads and writes compact tractograms for one dataset. It is
// format-agnostic: callers select Format once at startup.
type Store struct {
	Dir        string
	Format     Format
	TractBytes int // L, the fixed tractogram length
	LogFactor  float64
}

// New constructs a Store. logFactor is log10(S) when the streamline budget
// S>0, else 0 (tracts already in natural units).
func New(dir string, format Format, tractBytes int, streams int) *Store {
	lf := 0.0
	if streams > 0 {
		lf = math.Log10(float64(streams))
	}
	return &Store{Dir: dir, Format: format, TractBytes: tractBytes, LogFactor: lf}
}

func (s *Store) pathFor(trackID int, c coordinate.Coord) string {
	switch s.Format {
	case FormatVista:
		return filepath.Join(s.Dir, c.String()+".tract")
	default:
		return filepath.Join(s.Dir, "tract_"+itoa(trackID)+".dat")
	}
}

func itoa(v int) string {
	return strconv.Itoa(v)
}

// ReadLeafTract reads the compact tractogram for one seed: trackID
// selects the storage file (so permuting/filtering seeds never renames
// tract files), coord is used only for the vista naming convention.
func (s *Store) ReadLeafTract(trackID int, coord coordinate.Coord) ([]byte, error) {
	path := s.pathFor(trackID, coord)
	f, err := os.Open(path)
	if err != nil {
		return nil, hcerr.IO("opening tract "+path, err)
	}
	defer f.Close()

	buf := make([]byte, s.TractBytes)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, hcerr.Format("tract "+path+" has the wrong length", err)
	}
	return buf, nil
}

// Threshold zeroes every byte below floor(tau*255), in place.
func Threshold(tract []byte, tau float64) {
	if tau <= 0 {
		return
	}
	cut := byte(math.Floor(tau * 255))
	for i, b := range tract {
		if b < cut {
			tract[i] = 0
		}
	}
}

// ComputeNorm returns the Euclidean norm of the float vector t_i =
// byte_i/255.
func ComputeNorm(tract []byte) float64 {
	var sum float64
	for _, b := range tract {
		v := float64(b) / 255
		sum += v * v
	}
	return math.Sqrt(sum)
}

// BlockWriter writes one (row,col) distance-matrix block to disk as a
// flat row-major float64 payload, gzip-compressed when zip is set.
type BlockWriter struct {
	dir string
	zip bool
}

// NewBlockWriter constructs a BlockWriter rooted at dir.
func NewBlockWriter(dir string, zip bool) *BlockWriter {
	return &BlockWriter{dir: dir, zip: zip}
}

// BlockPath returns the file path a (row,col) block is written to, using
// the "dist_block_<row>_<col>.<ext>" naming convention.
func (w *BlockWriter) BlockPath(row, col int) string {
	ext := "bin"
	if w.zip {
		ext = "bin.gz"
	}
	return filepath.Join(w.dir, "dist_block_"+itoa(row)+"_"+itoa(col)+"."+ext)
}

// WriteBlock writes matrix (a flat, row-major slice of rows*cols float64s)
// atomically: it writes to a temporary file in the same directory and
// renames it into place, so a killed run never leaves a half-written
// block for the checkpoint scan to mistake as complete.
func (w *BlockWriter) WriteBlock(row, col, rows, cols int, matrix []float64) error {
	if len(matrix) != rows*cols {
		return hcerr.DimensionMismatch("block matrix length does not match rows*cols")
	}

	final := w.BlockPath(row, col)
	tmp := final + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return hcerr.IO("creating block file "+tmp, err)
	}

	var out io.Writer = f
	bw := bufio.NewWriter(out)
	out = bw

	var gz *gzip.Writer
	if w.zip {
		gz = gzip.NewWriter(bw)
		out = gz
	}

	buf := make([]byte, 8)
	for _, v := range matrix {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		if _, err := out.Write(buf); err != nil {
			f.Close()
			os.Remove(tmp)
			return hcerr.IO("writing block file "+tmp, err)
		}
	}

	if gz != nil {
		if err := gz.Close(); err != nil {
			f.Close()
			os.Remove(tmp)
			return hcerr.IO("closing gzip stream for "+tmp, err)
		}
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return hcerr.IO("flushing block file "+tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return hcerr.IO("syncing block file "+tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return hcerr.IO("closing block file "+tmp, err)
	}

	if err := os.Rename(tmp, final); err != nil {
		return hcerr.IO("renaming block file into place", err)
	}
	return nil
}

// BlockExists reports whether block (row,col) has already been written,
// for checkpoint resumption.
func (w *BlockWriter) BlockExists(row, col int) bool {
	_, err := os.Stat(w.BlockPath(row, col))
	return err == nil
}

// ReadBlock reads back a previously written block, for tests and for
// consumers that need random block access.
func (w *BlockWriter) ReadBlock(row, col, rows, cols int) ([]float64, error) {
	path := w.BlockPath(row, col)
	f, err := os.Open(path)
	if err != nil {
		return nil, hcerr.IO("opening block file "+path, err)
	}
	defer f.Close()

	var in io.Reader = f
	if w.zip {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, hcerr.Format("block file "+path+" is not valid gzip", err)
		}
		defer gz.Close()
		in = gz
	}

	out := make([]float64, rows*cols)
	buf := make([]byte, 8)
	for i := range out {
		if _, err := io.ReadFull(in, buf); err != nil {
			return nil, hcerr.Format("block file "+path+" is truncated", err)
		}
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf))
	}
	return out, nil
}
