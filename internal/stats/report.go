package stats

import (
	"context"
	"fmt"
	"io"

	"github.com/verte-zerg/tuidice/internal/model"
)

// HistorySource is the read side of the roll history.
type HistorySource interface {
	ListHistory(ctx context.Context, cfg model.StatsConfig) ([]model.RollEntry, error)
	ListExpressionAggregates(ctx context.Context, cfg model.StatsConfig) ([]model.ExpressionAggregate, error)
	ListFaceAggregates(ctx context.Context, cfg model.StatsConfig) ([]model.FaceAggregate, error)
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Entries     []model.RollEntry           `json:"entries" yaml:"entries"`
	Expressions []model.ExpressionAggregate `json:"expressions" yaml:"expressions"`
	Faces       []model.FaceAggregate       `json:"faces" yaml:"faces"`
	Window      int                         `json:"window" yaml:"window"`
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, src HistorySource, cfg model.StatsConfig) (Report, error) {
	entries, err := src.ListHistory(ctx, cfg)
	if err != nil {
		return Report{}, fmt.Errorf("failed to load history: %w", err)
	}
	// Aggregates cover the whole filtered history, not just the last N rolls.
	aggCfg := cfg
	aggCfg.Last = 0
	exprs, err := src.ListExpressionAggregates(ctx, aggCfg)
	if err != nil {
		return Report{}, fmt.Errorf("failed to aggregate expressions: %w", err)
	}
	faces, err := src.ListFaceAggregates(ctx, aggCfg)
	if err != nil {
		return Report{}, fmt.Errorf("failed to aggregate faces: %w", err)
	}
	return Report{
		Entries:     entries,
		Expressions: exprs,
		Faces:       faces,
		Window:      cfg.Window,
	}, nil
}

// Render writes every section of the report. width sizes the face bars.
func (r Report) Render(w io.Writer, width int) error {
	if err := RenderSummary(w, r.Entries); err != nil {
		return err
	}
	if len(r.Entries) == 0 {
		return nil
	}
	if err := RenderTotals(w, r.Entries, r.Window); err != nil {
		return err
	}
	if err := RenderExpressionCurves(w, r.Entries, TopExpressions(r.Expressions, TopExpressionCurves), r.Window); err != nil {
		return err
	}
	if err := RenderExpressionTable(w, r.Expressions); err != nil {
		return err
	}
	if err := RenderLuckTable(w, r.Faces); err != nil {
		return err
	}
	for _, l := range DiceLuck(r.Faces) {
		if l.Sides > MaxBarSides {
			continue
		}
		if err := RenderFaceBars(w, r.Faces, l.Sides, width); err != nil {
			return err
		}
	}
	return nil
}

// TopExpressionCurves is how many expressions get their own sparkline.
// Dice with more than MaxBarSides sides get no face bars.
const (
	TopExpressionCurves = 3
	MaxBarSides         = 20
)

// RenderExpressionCurves prints a sparkline of results for each expression.
func RenderExpressionCurves(w io.Writer, entries []model.RollEntry, exprs []string, window int) error {
	if len(exprs) == 0 {
		return nil
	}
	lines := []string{"Per-Expression Results"}
	for _, expr := range exprs {
		var values []float64
		for _, e := range entries {
			if e.Expression == expr {
				values = append(values, e.Total)
			}
		}
		if len(values) < 2 {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", expr, Sparkline(MovingAverage(values, window))))
	}
	if len(lines) == 1 {
		return nil
	}
	return writeLines(w, append(lines, ""))
}
