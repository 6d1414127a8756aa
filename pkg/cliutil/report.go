package cliutil

import (
	"fmt"
	"os"

	"github.com/cloudfoundry/bytefmt"
	"github.com/fatih/color"
	"github.com/sisatech/tablewriter"
)

// PlainTable prints rows to stdout as an aligned, borderless grid.
func PlainTable(header []string, rows [][]string) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetColumnSeparator("")
	table.SetHeader(header)
	for _, row := range rows {
		table.Append(row)
	}
	table.Render()
}

// ByteSize formats a byte count for log lines (tract sizes, block sizes)
// via cloudfoundry/bytefmt.
func ByteSize(n int64) string {
	if n < 0 {
		return "0B"
	}
	return bytefmt.ByteSize(uint64(n))
}

// ColorSwatch renders an RGB triple as a colored block of text on
// terminals that support it. It honors the same color.NoColor toggle
// elog.CLI.Format respects, returning label unchanged when it is set.
func ColorSwatch(r, g, b uint8, label string) string {
	if color.NoColor {
		return label
	}
	return fmt.Sprintf("\x1b[38;2;%d;%d;%dm%s\x1b[0m", r, g, b, label)
}
