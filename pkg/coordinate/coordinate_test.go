package coordinate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVistaNiftiRoundTrip(t *testing.T) {
	ext := Extent{SX: 10, SY: 12, SZ: 8}
	for x := int16(0); x < 10; x += 3 {
		for y := int16(0); y < 12; y += 3 {
			for z := int16(0); z < 8; z += 3 {
				c := Coord{X: x, Y: y, Z: z, Subject: 1}
				nifti := VistaToNifti(c, ext)
				back := NiftiToVista(nifti, ext)
				assert.Equal(t, c, back)
			}
		}
	}
}

func TestVistaToNiftiFlipsXAndZOnly(t *testing.T) {
	ext := Extent{SX: 10, SY: 12, SZ: 8}
	c := Coord{X: 2, Y: 5, Z: 1, Subject: 7}
	got := VistaToNifti(c, ext)
	assert.Equal(t, int16(7), got.X)
	assert.Equal(t, int16(5), got.Y)
	assert.Equal(t, int16(6), got.Z)
	assert.Equal(t, uint16(7), got.Subject)
}

func TestParseGrid(t *testing.T) {
	g, err := ParseGrid("vista")
	require.NoError(t, err)
	assert.Equal(t, GridVista, g)

	g, err = ParseGrid("nifti")
	require.NoError(t, err)
	assert.Equal(t, GridNifti, g)

	_, err = ParseGrid("bogus")
	assert.Error(t, err)
}

func TestGridString(t *testing.T) {
	assert.Equal(t, "vista", GridVista.String())
	assert.Equal(t, "nifti", GridNifti.String())
}

func TestCoordLess(t *testing.T) {
	a := Coord{Subject: 0, X: 1, Y: 1, Z: 1}
	b := Coord{Subject: 0, X: 1, Y: 1, Z: 2}
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
}

func TestPhysDist(t *testing.T) {
	a := Coord{X: 0, Y: 0, Z: 0}
	b := Coord{X: 3, Y: 4, Z: 0}
	assert.Equal(t, 5.0, a.PhysDist(b))
}
