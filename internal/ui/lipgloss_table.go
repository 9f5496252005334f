package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	summaryLabelStyle = lipgloss.NewStyle().Bold(true)
	tableHeaderStyle  = lipgloss.NewStyle().Bold(true)
)

// RenderSummary prints a label/value block (e.g. `status`'s container,
// ssh port, and forward lines) with bold, fixed-width labels on a TTY,
// and plain aligned text otherwise. Does nothing in quiet mode.
func RenderSummary(rows [][2]string) {
	if IsQuiet() || len(rows) == 0 {
		return
	}
	width := 0
	for _, r := range rows {
		if len(r[0]) > width {
			width = len(r[0])
		}
	}
	for _, r := range rows {
		padded := fmt.Sprintf("%-*s", width+1, r[0]+":")
		if IsTTY() {
			Println(summaryLabelStyle.Render(padded) + " " + r[1])
		} else {
			Println(padded + " " + r[1])
		}
	}
}

// RenderLipglossTable renders a column-aligned table with a bold header
// row on a TTY (`list`'s workspace table); plain aligned text otherwise.
// Does nothing in quiet mode.
func RenderLipglossTable(headers []string, rows [][]string) error {
	if IsQuiet() {
		return nil
	}
	if len(headers) == 0 {
		return nil
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	Println(formatRow(headers, widths, IsTTY()))
	for _, row := range rows {
		Println(formatRow(row, widths, false))
	}
	return nil
}

func formatRow(cells []string, widths []int, bold bool) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		padded := c
		if i < len(widths) {
			padded = fmt.Sprintf("%-*s", widths[i], c)
		}
		if bold {
			padded = tableHeaderStyle.Render(padded)
		}
		parts[i] = padded
	}
	return strings.Join(parts, "  ")
}
