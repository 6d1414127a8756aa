package match

import (
	"math/rand"

	"github.com/hdistill/hclust/pkg/tree"
)

var white = tree.Color{255, 255, 255}

// TransferColors applies the color-transfer step: B inherits the
// color of its matched A cluster; unmatched B clusters get white if
// exclusive, else a random color; when several B clusters matched the same
// A cluster, the one with the largest overlap keeps the pure color and the
// rest get shifted variants. A symmetric pass runs for A clusters matched
// multiply from B. Returns whether A's colors were altered.
func TransferColors(result OverlapResult, colorsA []tree.Color, exclusive bool) (colorsB []tree.Color, colorsAOut []tree.Color, aAltered bool) {
	overlapCounts := result.Overlap
	colorsB = make([]tree.Color, len(result.MatchA))
	colorsAOut = append([]tree.Color(nil), colorsA...)

	bestForA := make(map[int]int) // A index -> B index with largest overlap
	for j, i := range result.MatchB {
		if i == NoMatch {
			continue
		}
		cur, ok := bestForA[i]
		if !ok || overlapCounts[i][j] > overlapCounts[i][cur] {
			bestForA[i] = j
		}
	}

	shiftRank := make(map[int]int) // B index -> rank among clusters sharing an A match, 0 = pure
	for i, best := range bestForA {
		rank := 1
		for j, mi := range result.MatchB {
			if mi != i || j == best {
				continue
			}
			shiftRank[j] = rank
			rank++
		}
	}

	for j := range colorsB {
		i := result.MatchB[j]
		if i == NoMatch {
			if exclusive {
				colorsB[j] = white
			} else {
				colorsB[j] = randomColor()
			}
			continue
		}
		base := colorsA[i]
		if rank, shifted := shiftRank[j]; shifted {
			colorsB[j] = shiftColor(base, rank)
		} else {
			colorsB[j] = base
		}
	}

	bestForB := make(map[int]int)
	for i, j := range result.MatchA {
		if j == NoMatch {
			continue
		}
		cur, ok := bestForB[j]
		if !ok || overlapCounts[i][j] > overlapCounts[cur][j] {
			bestForB[j] = i
		}
	}
	aShiftRank := make(map[int]int)
	for j, best := range bestForB {
		rank := 1
		for i, mj := range result.MatchA {
			if mj != j || i == best {
				continue
			}
			aShiftRank[i] = rank
			rank++
		}
	}
	for i := range colorsAOut {
		j := result.MatchA[i]
		if j == NoMatch {
			continue
		}
		if rank, shifted := aShiftRank[i]; shifted {
			colorsAOut[i] = shiftColor(colorsB[j], rank)
			aAltered = true
		}
	}

	return colorsB, colorsAOut, aAltered
}

// shiftColor rotates through the three channel pairs (RG, GB, RB), adding
// ±30·(⌊k/3⌋+1) to each of the pair's two coordinates, direction chosen to
// stay within [0,255].
func shiftColor(c tree.Color, k int) tree.Color {
	if k <= 0 {
		return c
	}
	delta := 30 * (k/3 + 1)
	pair := k % 3
	out := c
	var a, b int
	switch pair {
	case 0:
		a, b = 0, 1
	case 1:
		a, b = 1, 2
	default:
		a, b = 0, 2
	}
	out[a] = shiftChannel(c[a], delta)
	out[b] = shiftChannel(c[b], delta)
	return out
}

func shiftChannel(v uint8, delta int) uint8 {
	up := int(v) + delta
	down := int(v) - delta
	if up <= 255 {
		return uint8(up)
	}
	if down >= 0 {
		return uint8(down)
	}
	return v
}

func randomColor() tree.Color {
	return tree.Color{uint8(rand.Intn(256)), uint8(rand.Intn(256)), uint8(rand.Intn(256))}
}
