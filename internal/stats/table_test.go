package stats

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRenderTableAlignsColumns(t *testing.T) {
	cols := []column{
		{title: "Expression"},
		{title: "Rolls", align: alignRight},
		{title: "Average", align: alignRight},
	}
	rows := [][]string{
		{"d20", "12", "10.5"},
		{"4d6b3 + 2", "3"},
	}
	want := []string{
		"Expression Rolls Average",
		"d20           12    10.5",
		"4d6b3 + 2      3        ",
	}
	if diff := cmp.Diff(want, renderTable(cols, rows)); diff != "" {
		t.Fatalf("renderTable() mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderTableHeaderOnly(t *testing.T) {
	got := renderTable([]column{{title: "Die"}, {title: "Luck", align: alignRight}}, nil)
	if len(got) != 1 || got[0] != "Die Luck" {
		t.Fatalf("renderTable() = %q", got)
	}
}
