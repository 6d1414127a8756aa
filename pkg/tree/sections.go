package tree

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hdistill/hclust/pkg/hcerr"
)

// splitSections scans a #tag/#endtag-framed text stream into a map of tag
// -> body lines. Sections may appear in any order.
func splitSections(r io.Reader) (map[string][]string, error) {
	sections := make(map[string][]string)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var open string
	var body []string

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		switch {
		case open == "" && strings.HasPrefix(trimmed, "#end"):
			return nil, hcerr.Format(fmt.Sprintf("unexpected %q with no open section", trimmed), nil)
		case open == "" && strings.HasPrefix(trimmed, "#"):
			open = strings.TrimPrefix(trimmed, "#")
			body = nil
		case open != "" && trimmed == "#end"+open:
			sections[open] = body
			open = ""
			body = nil
		default:
			if open != "" {
				body = append(body, line)
			}
			// lines outside any section are ignored (blank separators)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, hcerr.IO("reading tree", err)
	}
	if open != "" {
		return nil, hcerr.Format(fmt.Sprintf("section %q was never closed", open), nil)
	}
	return sections, nil
}

// parsePartitions loads the optional partvalues/partitions/partcolors
// aligned blocks.
func (t *Tree) parsePartitions(sections map[string][]string) error {
	valueLines, hasValues := sections[secPartValues]
	clusterLines, hasClusters := sections[secPartitions]
	colorLines, hasColors := sections[secPartColors]

	if !hasValues && !hasClusters {
		return nil
	}
	if hasValues != hasClusters {
		return hcerr.Format("partvalues/partitions must both be present or both absent", nil)
	}
	if len(valueLines) != len(clusterLines) {
		return hcerr.Format("partvalues and partitions must have the same length", nil)
	}
	if hasColors && len(colorLines) != len(clusterLines) {
		return hcerr.Format("partcolors must align with partitions", nil)
	}

	partitions := make([]SavedPartition, len(clusterLines))
	for k := range clusterLines {
		v, err := strconv.ParseFloat(strings.TrimSpace(valueLines[k]), 64)
		if err != nil {
			return hcerr.Format(fmt.Sprintf("partvalues line %d", k), err)
		}

		idxFields := strings.Fields(clusterLines[k])
		clusters := make([]int, len(idxFields))
		for i, f := range idxFields {
			idx, err := strconv.Atoi(f)
			if err != nil {
				return hcerr.Format(fmt.Sprintf("partitions line %d token %d", k, i), err)
			}
			clusters[i] = idx
		}

		var colors [][3]uint8
		if hasColors {
			colorFields := strings.Fields(colorLines[k])
			if len(colorFields) != len(clusters) {
				return hcerr.Format(fmt.Sprintf("partcolors line %d length mismatch", k), nil)
			}
			colors = make([][3]uint8, len(colorFields))
			for i, tok := range colorFields {
				c, err := parseColorToken(tok)
				if err != nil {
					return hcerr.Format(fmt.Sprintf("partcolors line %d token %d", k, i), err)
				}
				colors[i] = c
			}
		}

		partitions[k] = SavedPartition{Value: v, Clusters: clusters, Colors: colors}
	}
	t.partitions = partitions
	return nil
}

func (t *Tree) writePartitions(bw *bufio.Writer) {
	fmt.Fprintf(bw, "#%s\n", secPartValues)
	for _, p := range t.partitions {
		fmt.Fprintf(bw, "%s\n", formatFloat(p.Value))
	}
	fmt.Fprintf(bw, "#end%s\n", secPartValues)

	fmt.Fprintf(bw, "#%s\n", secPartitions)
	for _, p := range t.partitions {
		strs := make([]string, len(p.Clusters))
		for i, idx := range p.Clusters {
			strs[i] = strconv.Itoa(idx)
		}
		fmt.Fprintf(bw, "%s\n", strings.Join(strs, " "))
	}
	fmt.Fprintf(bw, "#end%s\n", secPartitions)

	anyColors := false
	for _, p := range t.partitions {
		if len(p.Colors) > 0 {
			anyColors = true
			break
		}
	}
	if !anyColors {
		return
	}

	fmt.Fprintf(bw, "#%s\n", secPartColors)
	for _, p := range t.partitions {
		strs := make([]string, len(p.Colors))
		for i, c := range p.Colors {
			strs[i] = formatColorToken(c)
		}
		fmt.Fprintf(bw, "%s\n", strings.Join(strs, " "))
	}
	fmt.Fprintf(bw, "#end%s\n", secPartColors)
}

// formatColorToken renders an RGB triple as the fixed 11-char "RRR;GGG;BBB"
// token.
func formatColorToken(c [3]uint8) string {
	return fmt.Sprintf("%03d;%03d;%03d", c[0], c[1], c[2])
}

func parseColorToken(tok string) ([3]uint8, error) {
	parts := strings.Split(tok, ";")
	if len(parts) != 3 {
		return [3]uint8{}, fmt.Errorf("expected \"RRR;GGG;BBB\", got %q", tok)
	}
	var out [3]uint8
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > 255 {
			return [3]uint8{}, fmt.Errorf("invalid color channel %q", p)
		}
		out[i] = uint8(v)
	}
	return out, nil
}
