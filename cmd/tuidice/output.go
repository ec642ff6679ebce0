package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/tuidice/internal/dice"
	"github.com/verte-zerg/tuidice/internal/export"
	"github.com/verte-zerg/tuidice/internal/model"
	"github.com/verte-zerg/tuidice/internal/roller"
)

const jailNotice = "The previous dice have been put in dice jail."

// renderResult uses the single-line layout for small results and the
// breakdown layout otherwise.
func renderResult(res dice.Result, maxRollsLen int) string {
	f := dice.Formatter{MaxRollsLen: maxRollsLen}
	if dice.Compact(res) {
		return f.Inline(res)
	}
	return f.Format(res)
}

func writeOutcome(w io.Writer, format export.Format, out roller.Outcome, maxRollsLen int) error {
	if format != export.FormatText {
		return export.Encode(w, format, out.Entry)
	}
	var b strings.Builder
	if out.Annotation != "" {
		fmt.Fprintf(&b, "Reason: %s\n", out.Annotation)
	}
	b.WriteString(renderResult(out.Result, maxRollsLen))
	_, err := fmt.Fprintln(w, b.String())
	return err
}

func writeBatch(w io.Writer, format export.Format, out roller.BatchOutcome, maxRollsLen int) error {
	if format != export.FormatText {
		return export.Encode(w, format, out.Entries)
	}
	lines := make([]string, 0, len(out.Results)+1)
	if out.Annotation != "" {
		lines = append(lines, "Reason: "+out.Annotation)
	}
	width := len(strconv.Itoa(len(out.Results)))
	f := dice.Formatter{MaxRollsLen: maxRollsLen}
	for i, res := range out.Results {
		line := dice.FormatValue(res.Value)
		if dice.Compact(res) && len(res.Rolls) > 0 {
			line = f.Inline(res)
		}
		lines = append(lines, fmt.Sprintf("%*d. %s", width, i+1, line))
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

func writeJail(w io.Writer, format export.Format, res dice.Result) error {
	if format != export.FormatText {
		return export.Encode(w, format, res.Rolls[0].Faces)
	}
	_, err := fmt.Fprintf(w, "%s\n%s\n", jailNotice, dice.Formatter{}.Format(res))
	return err
}

func writeSavedRolls(w io.Writer, format export.Format, rolls []model.SavedRoll) error {
	if format != export.FormatText {
		if rolls == nil {
			rolls = []model.SavedRoll{}
		}
		return export.Encode(w, format, rolls)
	}
	if len(rolls) == 0 {
		_, err := fmt.Fprintln(w, "No saved rolls.")
		return err
	}
	nameWidth := 0
	for _, r := range rolls {
		nameWidth = max(nameWidth, runewidth.StringWidth(r.Name))
	}
	for _, r := range rolls {
		pad := strings.Repeat(" ", nameWidth-runewidth.StringWidth(r.Name))
		if _, err := fmt.Fprintf(w, "%s%s  %s\n", r.Name, pad, r.Command); err != nil {
			return err
		}
	}
	return nil
}
