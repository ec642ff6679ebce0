package stats

import (
	"sort"

	"github.com/verte-zerg/tuidice/internal/model"
)

// DieLuck compares the faces rolled on one die size with a fair die.
type DieLuck struct {
	Sides    int
	Count    int
	Mean     float64
	Expected float64
	// Luck is the relative deviation of Mean from Expected.
	Luck     float64
	KeptRate float64
}

// DiceLuck groups face counts per die size, sorted by lowest luck. Dice with
// a single side carry no information and are skipped.
func DiceLuck(faces []model.FaceAggregate) []DieLuck {
	bySides := map[int]*DieLuck{}
	sums := map[int]float64{}
	kept := map[int]int{}
	for _, f := range faces {
		if f.Sides <= 1 || f.Count == 0 {
			continue
		}
		l, ok := bySides[f.Sides]
		if !ok {
			l = &DieLuck{Sides: f.Sides, Expected: float64(f.Sides+1) / 2}
			bySides[f.Sides] = l
		}
		l.Count += f.Count
		sums[f.Sides] += float64(f.Face * f.Count)
		kept[f.Sides] += f.Kept
	}
	out := make([]DieLuck, 0, len(bySides))
	for sides, l := range bySides {
		l.Mean = sums[sides] / float64(l.Count)
		l.Luck = (l.Mean - l.Expected) / l.Expected
		l.KeptRate = float64(kept[sides]) / float64(l.Count)
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Luck == out[j].Luck {
			return out[i].Sides < out[j].Sides
		}
		return out[i].Luck < out[j].Luck
	})
	return out
}

// FaceCounts returns the count of each face 1..sides for one die size.
func FaceCounts(faces []model.FaceAggregate, sides int) []int {
	if sides <= 0 {
		return nil
	}
	counts := make([]int, sides)
	for _, f := range faces {
		if f.Sides == sides && f.Face >= 1 && f.Face <= sides {
			counts[f.Face-1] += f.Count
		}
	}
	return counts
}
