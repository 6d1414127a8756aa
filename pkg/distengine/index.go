package distengine

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hdistill/hclust/pkg/coordinate"
	"github.com/hdistill/hclust/pkg/hcerr"
)

// IndexEntry is one seed's line in the distance index: its coordinate and
// its (block row, intra-block offset) address.
type IndexEntry struct {
	Coord      coordinate.Coord
	BlockRow   int
	RowOffset  int
}

// BuildIndex computes each seed's (block_row, intra_block_offset) address
// for a given outer block size.
func BuildIndex(coords []coordinate.Coord, blockSize int) []IndexEntry {
	out := make([]IndexEntry, len(coords))
	for i, c := range coords {
		out[i] = IndexEntry{Coord: c, BlockRow: i / blockSize, RowOffset: i % blockSize}
	}
	return out
}

// WriteIndex writes the "#distindex"/"#enddistindex" companion file: one
// line per seed, "x y z b <block_row> i <offset>".
func WriteIndex(path string, entries []IndexEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return hcerr.IO("creating distance index "+path, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	fmt.Fprintln(bw, "#distindex")
	for _, e := range entries {
		fmt.Fprintf(bw, "%s b %d i %d\n", e.Coord, e.BlockRow, e.RowOffset)
	}
	fmt.Fprintln(bw, "#enddistindex")
	return bw.Flush()
}

// ReadIndex parses a distance index file back into per-seed entries.
func ReadIndex(path string) ([]IndexEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, hcerr.IO("opening distance index "+path, err)
	}
	defer f.Close()

	var out []IndexEntry
	scanner := bufio.NewScanner(f)
	inSection := false
	for scanner.Scan() {
		line := scanner.Text()
		switch strings.TrimSpace(line) {
		case "#distindex":
			inSection = true
			continue
		case "#enddistindex":
			inSection = false
			continue
		}
		if !inSection || strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 7 || fields[3] != "b" || fields[5] != "i" {
			return nil, hcerr.Format("distance index line malformed: "+line, nil)
		}
		x, e1 := strconv.Atoi(fields[0])
		y, e2 := strconv.Atoi(fields[1])
		z, e3 := strconv.Atoi(fields[2])
		row, e4 := strconv.Atoi(fields[4])
		off, e5 := strconv.Atoi(fields[6])
		if e1 != nil || e2 != nil || e3 != nil || e4 != nil || e5 != nil {
			return nil, hcerr.Format("distance index line has non-integer field: "+line, nil)
		}
		out = append(out, IndexEntry{
			Coord:     coordinate.Coord{X: int16(x), Y: int16(y), Z: int16(z)},
			BlockRow:  row,
			RowOffset: off,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, hcerr.IO("reading distance index "+path, err)
	}
	return out, nil
}
