package tui

import (
	"strings"
	"testing"

	"github.com/verte-zerg/tuidice/internal/dice"
)

func plainSegments(words ...string) []segment {
	var segs []segment
	for i, w := range words {
		if i > 0 {
			segs = append(segs, space)
		}
		segs = append(segs, segment{s: w, width: len(w)})
	}
	return segs
}

func TestWrapSegmentsBreaksAtSpaces(t *testing.T) {
	got := wrapSegments(plainSegments("3d6:", "[1", "2", "3]", "=", "6"), 8)
	want := "3d6: [1\n2 3] = 6"
	if got != want {
		t.Fatalf("wrapSegments() = %q, want %q", got, want)
	}
}

func TestWrapSegmentsLongWord(t *testing.T) {
	got := wrapSegments(plainSegments("abcdef", "gh"), 4)
	want := "abcdef\ngh"
	if got != want {
		t.Fatalf("wrapSegments() = %q, want %q", got, want)
	}
}

func TestWrapSegmentsNoWidth(t *testing.T) {
	segs := plainSegments("a", "b", "c")
	if got := wrapSegments(segs, 0); got != "a b c" {
		t.Fatalf("wrapSegments() = %q", got)
	}
}

func TestRecordSegmentsStyles(t *testing.T) {
	rec := dice.RollRecord{
		Spec:  dice.Spec{Count: 3, Size: 20, Keep: dice.Keep{Mode: dice.KeepBest, Amount: 2}},
		Faces: []int{14, 3, 19},
		Kept:  []bool{true, false, true},
		Total: 33,
	}
	segs := recordSegments(rec)
	out := renderSegments(segs)
	for _, want := range []string{
		specStyle.Render("3d20b2:"),
		keptStyle.Render("14"),
		droppedStyle.Render("(3)"),
		keptStyle.Render("19"),
		totalStyle.Render("33"),
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
	if w := lineWidthOf(segs); w != len("3d20b2: [14 (3) 19] = 33") {
		t.Fatalf("unexpected display width %d", w)
	}
}
