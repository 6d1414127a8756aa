package cliutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockCoordSetParsesSpaceAndCommaSeparated(t *testing.T) {
	var b BlockCoord
	require.NoError(t, b.Set("3 5"))
	assert.Equal(t, 3, b.Row)
	assert.Equal(t, 5, b.Col)
	assert.True(t, b.IsSet())

	var c BlockCoord
	require.NoError(t, c.Set("3,5"))
	assert.Equal(t, b.Row, c.Row)
	assert.Equal(t, b.Col, c.Col)
}

func TestBlockCoordSetRejectsWrongFieldCount(t *testing.T) {
	var b BlockCoord
	assert.Error(t, b.Set("3"))
	assert.Error(t, b.Set("3 5 7"))
}

func TestBlockCoordSetRejectsNonIntegers(t *testing.T) {
	var b BlockCoord
	assert.Error(t, b.Set("a 5"))
	assert.Error(t, b.Set("3 b"))
}

func TestBlockCoordSetRejectsNegative(t *testing.T) {
	var b BlockCoord
	assert.Error(t, b.Set("-1 5"))
}

func TestBlockCoordStringReflectsState(t *testing.T) {
	var b BlockCoord
	assert.Equal(t, "", b.String())

	require.NoError(t, b.Set("2 4"))
	assert.Equal(t, "2 4", b.String())
}

func TestBlockCoordType(t *testing.T) {
	var b BlockCoord
	assert.Equal(t, "R C", b.Type())
}
