package stats

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/tuidice/internal/model"
	"github.com/verte-zerg/tuidice/internal/store"
)

func TestBuildReport(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "tuidice.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	faces := []int{3, 5, 6, 2}
	for i, face := range faces {
		entry := model.RollEntry{
			RolledAt:   base.Add(time.Duration(i) * time.Minute),
			Expression: "d6",
			Total:      float64(face),
			DiceCount:  1,
			Rolls: []model.DiceRoll{
				{Spec: "1d6", Sides: 6, Faces: []int{face}, Kept: []bool{true}, Total: int64(face)},
			},
		}
		if _, err := st.InsertRoll(ctx, entry); err != nil {
			t.Fatalf("insert roll: %v", err)
		}
	}
	if _, err := st.InsertRoll(ctx, model.RollEntry{RolledAt: base.Add(time.Hour), Expression: "2 + 2", Total: 4}); err != nil {
		t.Fatalf("insert roll: %v", err)
	}

	report, err := BuildReport(ctx, st, model.StatsConfig{Last: 3, Window: 2})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(report.Entries))
	}
	if report.Entries[2].Expression != "2 + 2" {
		t.Fatalf("expected newest entry last, got %+v", report.Entries[2])
	}
	if len(report.Expressions) != 2 || report.Expressions[0].Count != 4 {
		t.Fatalf("expected aggregates over the whole history, got %+v", report.Expressions)
	}
	if len(report.Faces) != 4 {
		t.Fatalf("expected 4 distinct faces, got %+v", report.Faces)
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, 40); err != nil {
		t.Fatalf("render report: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Summary", "Results (avg of 2)", "Per-Expression", "Per-Die", "Faces d6"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in report:\n%s", want, out)
		}
	}
}
