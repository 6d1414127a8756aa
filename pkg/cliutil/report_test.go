package cliutil

import (
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestByteSizeFormatsHumanReadable(t *testing.T) {
	assert.Equal(t, "0B", ByteSize(-1))
	assert.Equal(t, "1K", ByteSize(1024))
}

func TestColorSwatchHonorsNoColor(t *testing.T) {
	prev := color.NoColor
	defer func() { color.NoColor = prev }()

	color.NoColor = true
	assert.Equal(t, "c1", ColorSwatch(255, 0, 0, "c1"))

	color.NoColor = false
	out := ColorSwatch(255, 0, 0, "c1")
	assert.Contains(t, out, "c1")
	assert.Contains(t, out, "255;0;0")
}
