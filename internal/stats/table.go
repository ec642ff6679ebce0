package stats

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

type align int

const (
	alignLeft align = iota
	alignRight
)

// column is one column of a plain text table.
type column struct {
	title string
	align align
}

// renderTable lays rows out under cols with one space between columns. Each
// column is as wide as its widest cell in display cells.
func renderTable(cols []column, rows [][]string) []string {
	widths := make([]int, len(cols))
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.title
		widths[i] = runewidth.StringWidth(c.title)
	}
	for _, row := range rows {
		for i := range min(len(row), len(cols)) {
			widths[i] = max(widths[i], runewidth.StringWidth(row[i]))
		}
	}

	lines := make([]string, 0, len(rows)+1)
	cells := make([]string, len(cols))
	for _, row := range append([][]string{header}, rows...) {
		for i, c := range cols {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			if c.align == alignRight {
				cells[i] = runewidth.FillLeft(cell, widths[i])
			} else {
				cells[i] = runewidth.FillRight(cell, widths[i])
			}
		}
		lines = append(lines, strings.Join(cells, " "))
	}
	return lines
}
