// Package stats contains roll history statistics and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/tuidice/internal/dice"
	"github.com/verte-zerg/tuidice/internal/model"
)

const sparkChars = " .:-=+*#%@"

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// Totals returns the result of every entry in order.
func Totals(entries []model.RollEntry) []float64 {
	out := make([]float64, len(entries))
	for i, e := range entries {
		out[i] = e.Total
	}
	return out
}

// RenderSummary prints a summary of the rolls.
func RenderSummary(w io.Writer, entries []model.RollEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No rolls found.")
		return err
	}
	var sum float64
	var diceRolled int64
	high, low := entries[0], entries[0]
	for _, e := range entries {
		sum += e.Total
		diceRolled += e.DiceCount
		if e.Total > high.Total {
			high = e
		}
		if e.Total < low.Total {
			low = e
		}
	}
	lines := []string{
		"Summary",
		fmt.Sprintf("Rolls: %d", len(entries)),
		fmt.Sprintf("Dice rolled: %d", diceRolled),
		fmt.Sprintf("Average result: %s", dice.FormatValue(sum/float64(len(entries)))),
		fmt.Sprintf("Highest: %s (%s)", dice.FormatValue(high.Total), high.Expression),
		fmt.Sprintf("Lowest: %s (%s)", dice.FormatValue(low.Total), low.Expression),
		fmt.Sprintf("First roll: %s", entries[0].RolledAt.Local().Format("2006-01-02 15:04")),
		"",
	}
	return writeLines(w, lines)
}

// RenderTotals prints a sparkline of roll results smoothed over window rolls.
func RenderTotals(w io.Writer, entries []model.RollEntry, window int) error {
	if len(entries) == 0 {
		return nil
	}
	values := MovingAverage(Totals(entries), window)
	label := "Results"
	if window > 1 {
		label = fmt.Sprintf("Results (avg of %d)", window)
	}
	return writeLines(w, []string{label, Sparkline(values), ""})
}

// RenderExpressionTable prints per-expression aggregates.
func RenderExpressionTable(w io.Writer, aggs []model.ExpressionAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No expressions found.")
		return err
	}
	cols := []column{
		{title: "Expression"},
		{title: "Rolls", align: alignRight},
		{title: "Average", align: alignRight},
		{title: "Min", align: alignRight},
		{title: "Max", align: alignRight},
	}
	rows := make([][]string, 0, len(aggs))
	for _, agg := range aggs {
		avg := 0.0
		if agg.Count > 0 {
			avg = agg.Sum / float64(agg.Count)
		}
		rows = append(rows, []string{
			agg.Expression,
			fmt.Sprintf("%d", agg.Count),
			dice.FormatValue(avg),
			dice.FormatValue(agg.Min),
			dice.FormatValue(agg.Max),
		})
	}
	lines := append([]string{"Per-Expression"}, renderTable(cols, rows)...)
	return writeLines(w, append(lines, ""))
}

// RenderLuckTable prints how each die size rolled against its expected mean,
// unluckiest first.
func RenderLuckTable(w io.Writer, faces []model.FaceAggregate) error {
	luck := DiceLuck(faces)
	if len(luck) == 0 {
		_, err := fmt.Fprintln(w, "No dice found.")
		return err
	}
	cols := []column{
		{title: "Die"},
		{title: "Faces", align: alignRight},
		{title: "Mean", align: alignRight},
		{title: "Expected", align: alignRight},
		{title: "Luck", align: alignRight},
		{title: "Kept", align: alignRight},
	}
	rows := make([][]string, 0, len(luck))
	for _, l := range luck {
		rows = append(rows, []string{
			fmt.Sprintf("d%d", l.Sides),
			fmt.Sprintf("%d", l.Count),
			fmt.Sprintf("%.2f", l.Mean),
			fmt.Sprintf("%.2f", l.Expected),
			fmt.Sprintf("%+.2f%%", l.Luck*100),
			fmt.Sprintf("%.0f%%", l.KeptRate*100),
		})
	}
	lines := append([]string{"Per-Die"}, renderTable(cols, rows)...)
	return writeLines(w, append(lines, ""))
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
