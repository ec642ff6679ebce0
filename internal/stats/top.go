package stats

import (
	"sort"

	"github.com/verte-zerg/tuidice/internal/model"
)

// TopExpressions returns the n most rolled expressions.
func TopExpressions(aggs []model.ExpressionAggregate, n int) []string {
	if n <= 0 || len(aggs) == 0 {
		return nil
	}
	items := make([]model.ExpressionAggregate, len(aggs))
	copy(items, aggs)
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count == items[j].Count {
			return items[i].Expression < items[j].Expression
		}
		return items[i].Count > items[j].Count
	})
	n = min(n, len(items))
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, items[i].Expression)
	}
	return out
}
