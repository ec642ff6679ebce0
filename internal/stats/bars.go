package stats

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/verte-zerg/tuidice/internal/model"
)

const (
	barChar             = "#"
	minBarWidth         = 10
	terminalWidthBackup = 80
)

// RenderFaceBars prints a horizontal bar per face of a die with the given
// sides. A width of zero or less uses the terminal width when w is one.
func RenderFaceBars(w io.Writer, faces []model.FaceAggregate, sides, width int) error {
	counts := FaceCounts(faces, sides)
	maxCount := 0
	for _, c := range counts {
		maxCount = max(maxCount, c)
	}
	if maxCount == 0 {
		return nil
	}
	if width <= 0 {
		width = terminalWidth(w)
	}
	labelWidth := len(strconv.Itoa(sides))
	countWidth := len(strconv.Itoa(maxCount))
	barWidth := max(width-labelWidth-countWidth-4, minBarWidth)

	lines := []string{fmt.Sprintf("Faces d%d", sides)}
	for i, c := range counts {
		n := c * barWidth / maxCount
		if c > 0 && n == 0 {
			n = 1
		}
		lines = append(lines, fmt.Sprintf("%*d | %-*s %*d",
			labelWidth, i+1, barWidth, strings.Repeat(barChar, n), countWidth, c))
	}
	return writeLines(w, append(lines, ""))
}

func terminalWidth(w io.Writer) int {
	file, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return terminalWidthBackup
	}
	width, _, err := term.GetSize(int(file.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}
