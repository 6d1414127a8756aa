// Package seedindex implements loading a seed ROI text file into an
// ordered coordinate list, a parallel tract-id list, the dataset's grid
// tag and extent, and its streamline budget. The ROI layout (header line,
// then one coordinate per seed) is generalized to the same framed-section
// style the rest of this repository's text formats use.
package seedindex

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hdistill/hclust/pkg/coordinate"
	"github.com/hdistill/hclust/pkg/hcerr"
)

// Index holds a loaded seed ROI: its ordered coordinates, the parallel
// tract-storage ids, the dataset grid/extent, and the streamline budget.
type Index struct {
	Grid      coordinate.Grid
	Extent    coordinate.Extent
	Streams   int
	Coords    []coordinate.Coord
	TrackIDs  []int
	Discarded []coordinate.Coord
}

// Load parses a ROI text file: a "#roi" section with a header line "x y z
// GRID streams" followed by one "x y z [trackID]" line per seed (trackID
// defaults to the seed's row position when omitted, mirroring the tree
// format's trackindex rule).
func Load(r io.Reader) (*Index, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var lines []string
	inSection := false
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "#roi":
			inSection = true
		case trimmed == "#endroi":
			inSection = false
		case inSection:
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, hcerr.IO("reading roi file", err)
	}
	if len(lines) == 0 {
		return nil, hcerr.Format("roi file has no #roi section", nil)
	}

	header := strings.Fields(lines[0])
	if len(header) != 5 {
		return nil, hcerr.Format("roi header must be \"x y z GRID streams\"", nil)
	}
	sx, e1 := strconv.Atoi(header[0])
	sy, e2 := strconv.Atoi(header[1])
	sz, e3 := strconv.Atoi(header[2])
	if e1 != nil || e2 != nil || e3 != nil {
		return nil, hcerr.Format("roi header extent must be integers", nil)
	}
	grid, err := coordinate.ParseGrid(header[3])
	if err != nil {
		return nil, hcerr.Format("roi header grid tag", err)
	}
	streams, err := strconv.Atoi(header[4])
	if err != nil {
		return nil, hcerr.Format("roi header streams must be an integer", err)
	}

	idx := &Index{
		Grid:    grid,
		Extent:  coordinate.Extent{SX: sx, SY: sy, SZ: sz},
		Streams: streams,
	}

	for i, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) != 3 && len(fields) != 4 {
			return nil, hcerr.Format(fmt.Sprintf("roi seed line %d malformed", i), nil)
		}
		x, e1 := strconv.Atoi(fields[0])
		y, e2 := strconv.Atoi(fields[1])
		z, e3 := strconv.Atoi(fields[2])
		if e1 != nil || e2 != nil || e3 != nil {
			return nil, hcerr.Format(fmt.Sprintf("roi seed line %d coordinates", i), nil)
		}
		trackID := i
		if len(fields) == 4 {
			trackID, err = strconv.Atoi(fields[3])
			if err != nil {
				return nil, hcerr.Format(fmt.Sprintf("roi seed line %d track id", i), err)
			}
		}
		idx.Coords = append(idx.Coords, coordinate.Coord{X: int16(x), Y: int16(y), Z: int16(z)})
		idx.TrackIDs = append(idx.TrackIDs, trackID)
	}

	if len(idx.Coords) == 0 {
		return nil, hcerr.Format("roi file has no seed coordinates", nil)
	}

	return idx, nil
}

// ToNifti returns a copy of the index with all coordinates converted to
// the nifti grid convention, leaving the original untouched.
func (idx *Index) ToNifti() *Index {
	return idx.convert(coordinate.GridNifti, coordinate.VistaToNifti)
}

// ToVista returns a copy of the index with all coordinates converted to
// the vista grid convention, leaving the original untouched.
func (idx *Index) ToVista() *Index {
	return idx.convert(coordinate.GridVista, coordinate.NiftiToVista)
}

func (idx *Index) convert(target coordinate.Grid, fn func(coordinate.Coord, coordinate.Extent) coordinate.Coord) *Index {
	if idx.Grid == target {
		return idx
	}
	out := &Index{
		Grid:     target,
		Extent:   idx.Extent,
		Streams:  idx.Streams,
		TrackIDs: append([]int(nil), idx.TrackIDs...),
	}
	out.Coords = make([]coordinate.Coord, len(idx.Coords))
	for i, c := range idx.Coords {
		out.Coords[i] = fn(c, idx.Extent)
	}
	out.Discarded = make([]coordinate.Coord, len(idx.Discarded))
	for i, c := range idx.Discarded {
		out.Discarded[i] = fn(c, idx.Extent)
	}
	return out
}
