package tree

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/hdistill/hclust/pkg/coordinate"
	"github.com/hdistill/hclust/pkg/hcerr"
)

// section markers: each section is delimited by #tag ... #endtag.
const (
	secImageSize   = "imagesize"
	secStreams     = "streams"
	secLogFactor   = "logfactor"
	secCPCC        = "cpcc"
	secCoordinates = "coordinates"
	secTrackIndex  = "trackindex"
	secClusters    = "clusters"
	secDiscarded   = "discarded"
	secPartValues  = "partvalues"
	secPartitions  = "partitions"
	secPartColors  = "partcolors"
)

// Parse reads a tree in the line-oriented, section-tagged text format
// this package writes.
func Parse(r io.Reader) (*Tree, error) {
	sections, err := splitSections(r)
	if err != nil {
		return nil, err
	}

	t := &Tree{}

	imgLines, ok := sections[secImageSize]
	if !ok || len(imgLines) != 1 {
		return nil, hcerr.Format("imagesize section", nil)
	}
	fields := strings.Fields(imgLines[0])
	if len(fields) != 4 {
		return nil, hcerr.Format("imagesize must be \"x y z GRID\"", nil)
	}
	sx, err1 := strconv.Atoi(fields[0])
	sy, err2 := strconv.Atoi(fields[1])
	sz, err3 := strconv.Atoi(fields[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, hcerr.Format("imagesize extent must be integers", nil)
	}
	grid, err := coordinate.ParseGrid(fields[3])
	if err != nil {
		return nil, hcerr.Format("imagesize grid tag", err)
	}
	t.extent = coordinate.Extent{SX: sx, SY: sy, SZ: sz}
	t.grid = grid

	if lines, ok := sections[secStreams]; ok && len(lines) == 1 {
		s, err := strconv.Atoi(strings.TrimSpace(lines[0]))
		if err != nil {
			return nil, hcerr.Format("streams must be an integer", err)
		}
		t.streams = s
	}

	if lines, ok := sections[secLogFactor]; ok && len(lines) == 1 {
		f, err := strconv.ParseFloat(strings.TrimSpace(lines[0]), 64)
		if err != nil {
			return nil, hcerr.Format("logfactor must be a float", err)
		}
		if t.streams > 0 {
			want := log10(float64(t.streams))
			if diff := f - want; diff > 1e-5 || diff < -1e-5 {
				return nil, hcerr.Format("logfactor must equal log10(streams) within 1e-5", nil)
			}
		}
		t.logFactor = f
	}

	if lines, ok := sections[secCPCC]; ok && len(lines) == 1 {
		f, err := strconv.ParseFloat(strings.TrimSpace(lines[0]), 64)
		if err != nil {
			return nil, hcerr.Format("cpcc must be a float", err)
		}
		t.cpcc = &f
	}

	coordLines, ok := sections[secCoordinates]
	if !ok {
		return nil, hcerr.Format("coordinates section is required", nil)
	}
	coords := make([]coordinate.Coord, len(coordLines))
	for i, line := range coordLines {
		c, err := parseCoordLine(line)
		if err != nil {
			return nil, hcerr.Format(fmt.Sprintf("coordinates line %d", i), err)
		}
		coords[i] = c
	}
	t.coords = coords
	nl := len(coords)

	trackLines, hasTrack := sections[secTrackIndex]
	trackIDs := make([]int, nl)
	switch {
	case hasTrack:
		if len(trackLines) != nl {
			return nil, hcerr.Format("trackindex must have NL lines", nil)
		}
		for i, line := range trackLines {
			v, err := strconv.Atoi(strings.TrimSpace(line))
			if err != nil {
				return nil, hcerr.Format(fmt.Sprintf("trackindex line %d", i), err)
			}
			trackIDs[i] = v
		}
	case grid == coordinate.GridVista:
		for i := range trackIDs {
			trackIDs[i] = i
		}
	default:
		return nil, hcerr.Format("trackindex is required when grid is nifti", nil)
	}
	t.trackIDs = trackIDs

	leaves := make([]Node, nl)
	for i := range leaves {
		leaves[i] = Node{ID: FullID{Kind: Leaf, Index: i}, Size: 1, H: 0}
	}

	clusterLines, ok := sections[secClusters]
	if !ok {
		return nil, hcerr.Format("clusters section is required", nil)
	}
	nn := len(clusterLines)
	inner := make([]Node, nn)
	for i, line := range clusterLines {
		n, err := parseClusterLine(i, line)
		if err != nil {
			return nil, err
		}
		inner[i] = n
	}
	t.leaves = leaves
	t.inner = inner

	if err := t.rebuildParentsAndSizes(); err != nil {
		return nil, err
	}

	if lines, ok := sections[secDiscarded]; ok {
		discarded := make([]coordinate.Coord, len(lines))
		for i, line := range lines {
			c, err := parseCoordLine(line)
			if err != nil {
				return nil, hcerr.Format(fmt.Sprintf("discarded line %d", i), err)
			}
			discarded[i] = c
		}
		t.discarded = discarded
	}

	if err := t.parsePartitions(sections); err != nil {
		return nil, err
	}

	return t, nil
}

// rebuildParentsAndSizes recomputes parent pointers (from children lists),
// node sizes, and h levels after loading clusters: none of these are
// stored on disk, all are derived from the children lists on load.
func (t *Tree) rebuildParentsAndSizes() error {
	for i := range t.leaves {
		t.leaves[i].Parent = FullID{}
	}
	for i := range t.inner {
		id := FullID{Kind: Inner, Index: i}
		for _, c := range t.inner[i].Children {
			node, err := t.Node(c)
			if err != nil {
				return hcerr.Format("clusters reference out-of-range child", err)
			}
			_ = node
			if c.Kind == Leaf {
				t.leaves[c.Index].Parent = id
			} else {
				t.inner[c.Index].Parent = id
			}
		}
	}
	rootID := FullID{Kind: Inner, Index: len(t.inner) - 1}
	t.inner[rootID.Index].Parent = RootParentSentinel

	var sizeOf, hOf func(id FullID) int
	sizeOf = func(id FullID) int {
		if id.Kind == Leaf {
			return 1
		}
		total := 0
		for _, c := range t.inner[id.Index].Children {
			total += sizeOf(c)
		}
		t.inner[id.Index].Size = total
		return total
	}
	hOf = func(id FullID) int {
		if id.Kind == Leaf {
			return 0
		}
		maxChild := -1
		for _, c := range t.inner[id.Index].Children {
			if h := hOf(c); h > maxChild {
				maxChild = h
			}
		}
		t.inner[id.Index].H = maxChild + 1
		return t.inner[id.Index].H
	}
	for i := range t.inner {
		sizeOf(FullID{Kind: Inner, Index: i})
		hOf(FullID{Kind: Inner, Index: i})
	}
	return nil
}

func parseCoordLine(line string) (coordinate.Coord, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return coordinate.Coord{}, fmt.Errorf("expected \"x y z\", got %q", line)
	}
	x, err1 := strconv.Atoi(fields[0])
	y, err2 := strconv.Atoi(fields[1])
	z, err3 := strconv.Atoi(fields[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return coordinate.Coord{}, fmt.Errorf("non-integer coordinate in %q", line)
	}
	return coordinate.Coord{X: int16(x), Y: int16(y), Z: int16(z)}, nil
}

func parseClusterLine(index int, line string) (Node, error) {
	fields := strings.Fields(line)
	if len(fields) < 1 || (len(fields)-1)%2 != 0 {
		return Node{}, hcerr.Format(fmt.Sprintf("clusters line %d malformed", index), nil)
	}
	dist, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Node{}, hcerr.Format(fmt.Sprintf("clusters line %d distance", index), err)
	}
	var children []FullID
	for i := 1; i < len(fields); i += 2 {
		k, err1 := strconv.Atoi(fields[i])
		idx, err2 := strconv.Atoi(fields[i+1])
		if err1 != nil || err2 != nil || (k != int(Leaf) && k != int(Inner)) {
			return Node{}, hcerr.Format(fmt.Sprintf("clusters line %d child token", index), nil)
		}
		children = append(children, FullID{Kind: Kind(k), Index: idx})
	}
	return Node{
		ID:       FullID{Kind: Inner, Index: index},
		Dist:     dist,
		Children: children,
	}, nil
}

// WriteTo serializes the tree in the section-tagged text format Parse
// reads.
func (t *Tree) WriteTo(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "#%s\n%d %d %d %s\n#end%s\n", secImageSize, t.extent.SX, t.extent.SY, t.extent.SZ, t.grid, secImageSize)
	fmt.Fprintf(bw, "#%s\n%d\n#end%s\n", secStreams, t.streams, secStreams)
	fmt.Fprintf(bw, "#%s\n%s\n#end%s\n", secLogFactor, formatFloat(t.logFactor), secLogFactor)
	if t.cpcc != nil {
		fmt.Fprintf(bw, "#%s\n%s\n#end%s\n", secCPCC, formatFloat(*t.cpcc), secCPCC)
	}

	fmt.Fprintf(bw, "#%s\n", secCoordinates)
	for _, c := range t.coords {
		fmt.Fprintf(bw, "%s\n", c)
	}
	fmt.Fprintf(bw, "#end%s\n", secCoordinates)

	fmt.Fprintf(bw, "#%s\n", secTrackIndex)
	for _, id := range t.trackIDs {
		fmt.Fprintf(bw, "%d\n", id)
	}
	fmt.Fprintf(bw, "#end%s\n", secTrackIndex)

	fmt.Fprintf(bw, "#%s\n", secClusters)
	for _, n := range t.inner {
		fmt.Fprintf(bw, "%s", formatFloat(n.Dist))
		for _, c := range n.Children {
			fmt.Fprintf(bw, " %d %d", int(c.Kind), c.Index)
		}
		fmt.Fprintf(bw, "\n")
	}
	fmt.Fprintf(bw, "#end%s\n", secClusters)

	fmt.Fprintf(bw, "#%s\n", secDiscarded)
	for _, c := range t.discarded {
		fmt.Fprintf(bw, "%s\n", c)
	}
	fmt.Fprintf(bw, "#end%s\n", secDiscarded)

	if len(t.partitions) > 0 {
		t.writePartitions(bw)
	}

	return bw.Flush()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func log10(x float64) float64 {
	return math.Log10(x)
}
