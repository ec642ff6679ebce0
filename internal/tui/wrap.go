package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/tuidice/internal/dice"
)

// segment is a styled word of a transcript line. Lines only break at space
// segments.
type segment struct {
	s       string
	width   int
	isSpace bool
}

var space = segment{s: " ", width: 1, isSpace: true}

func word(text string, style lipgloss.Style) segment {
	return segment{s: style.Render(text), width: runewidth.StringWidth(text)}
}

// recordSegments renders "3d20b2: [14 (3) 19] = 33" with kept and dropped
// faces styled individually.
func recordSegments(rec dice.RollRecord) []segment {
	segs := []segment{word(rec.Spec.String()+":", specStyle), space}
	for i, face := range rec.Faces {
		text := strconv.Itoa(face)
		style := keptStyle
		if i >= len(rec.Kept) || !rec.Kept[i] {
			text = "(" + text + ")"
			style = droppedStyle
		}
		if i == 0 {
			segs = append(segs, word("[", plainStyle))
		}
		segs = append(segs, word(text, style))
		if i == len(rec.Faces)-1 {
			segs = append(segs, word("]", plainStyle))
		} else {
			segs = append(segs, space)
		}
	}
	return append(segs, space, word("=", plainStyle), space, word(strconv.FormatInt(rec.Total, 10), totalStyle))
}

func renderSegments(segs []segment) string {
	var b strings.Builder
	for _, item := range segs {
		b.WriteString(item.s)
	}
	return b.String()
}

func wrapSegments(segs []segment, width int) string {
	if width <= 0 {
		return renderSegments(segs)
	}
	var out strings.Builder
	line := make([]segment, 0, len(segs))
	lineWidth := 0
	lastSpaceIdx := -1

	for i := 0; i < len(segs); {
		item := segs[i]
		if item.isSpace && len(line) == 0 {
			i++
			continue
		}
		if lineWidth+item.width > width && len(line) > 0 {
			if lastSpaceIdx >= 0 {
				out.WriteString(renderSegments(line[:lastSpaceIdx]))
				out.WriteRune('\n')
				line = append([]segment{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			} else {
				out.WriteString(renderSegments(line))
				out.WriteRune('\n')
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
			}
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		i++
	}
	out.WriteString(renderSegments(line))
	return out.String()
}

func lineWidthOf(line []segment) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []segment) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}
