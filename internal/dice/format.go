package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// ClippedNotice replaces a roll listing longer than Formatter.MaxRollsLen.
const ClippedNotice = "…clipped because there were too many values"

// compactFaceLimit is the face count from which a single roll is shown in the
// multi-line layout.
const compactFaceLimit = 5

// Formatter renders a Result for people. Kept and Dropped decorate individual
// faces; nil means plain text for kept faces and parentheses for dropped ones.
// The zero value is ready to use.
type Formatter struct {
	Kept        func(string) string
	Dropped     func(string) string
	MaxRollsLen int // bytes of the undecorated listing; 0 disables clipping
}

// Format renders one line per roll record followed by the result line.
func (f Formatter) Format(res Result) string {
	var b strings.Builder
	if rolls := f.Breakdown(res); rolls != "" {
		b.WriteString(rolls)
		b.WriteByte('\n')
	}
	b.WriteString("Result: ")
	b.WriteString(FormatValue(res.Value))
	return b.String()
}

// Breakdown renders the roll records, one per line, e.g.
//
//	3d20b2: [14 (3) 19] = 33
func (f Formatter) Breakdown(res Result) string {
	if f.MaxRollsLen > 0 && len(Formatter{}.Breakdown(res)) > f.MaxRollsLen {
		return ClippedNotice
	}
	lines := make([]string, 0, len(res.Rolls))
	for _, rec := range res.Rolls {
		lines = append(lines, rec.Spec.String()+": "+f.faces(rec, true)+" = "+strconv.FormatInt(rec.Total, 10))
	}
	return strings.Join(lines, "\n")
}

// Inline renders the single-line layout: every face grouped per roll, then the
// result. The result is omitted when it only repeats a lone die.
func (f Formatter) Inline(res Result) string {
	rolls := f.inlineRolls(res.Rolls)
	if f.MaxRollsLen > 0 && len(Formatter{}.inlineRolls(res.Rolls)) > f.MaxRollsLen {
		rolls = ClippedNotice
	}
	if len(res.Rolls) == 1 && len(res.Rolls[0].Faces) == 1 && float64(res.Rolls[0].Faces[0]) == res.Value {
		return rolls
	}
	if rolls == "" {
		return "Result: " + FormatValue(res.Value)
	}
	return rolls + " Result: " + FormatValue(res.Value)
}

// Compact reports whether res is small enough for the Inline layout: at most
// one roll record with fewer than five faces.
func Compact(res Result) bool {
	switch len(res.Rolls) {
	case 0:
		return true
	case 1:
		return len(res.Rolls[0].Faces) < compactFaceLimit
	}
	return false
}

func (f Formatter) inlineRolls(rolls []RollRecord) string {
	if len(rolls) == 0 {
		return ""
	}
	parts := make([]string, 0, len(rolls))
	for _, rec := range rolls {
		parts = append(parts, f.faces(rec, len(rec.Faces) > 1))
	}
	out := strings.Join(parts, " ")
	if len(rolls) > 1 {
		out = "[" + out + "]"
	}
	return out
}

func (f Formatter) faces(rec RollRecord, bracket bool) string {
	parts := make([]string, len(rec.Faces))
	for i, face := range rec.Faces {
		text := strconv.Itoa(face)
		if i < len(rec.Kept) && rec.Kept[i] {
			parts[i] = f.kept(text)
		} else {
			parts[i] = f.dropped(text)
		}
	}
	out := strings.Join(parts, " ")
	if bracket {
		out = "[" + out + "]"
	}
	return out
}

func (f Formatter) kept(s string) string {
	if f.Kept == nil {
		return s
	}
	return f.Kept(s)
}

func (f Formatter) dropped(s string) string {
	if f.Dropped == nil {
		return "(" + s + ")"
	}
	return f.Dropped(s)
}

// FormatValue shows v with at most two decimals and no trailing zeros, so
// whole results print without a fraction: 600, 3.5, 0.33.
func FormatValue(v float64) string {
	out := fmt.Sprintf("%.2f", v)
	if !strings.Contains(out, ".") {
		return out
	}
	out = strings.TrimRight(out, "0")
	out = strings.TrimSuffix(out, ".")
	if out == "-0" {
		return "0"
	}
	return out
}
