// Package stats derives progress and category distribution from the
// pending and completed lists.
package stats

import (
	"sort"
	"time"

	"github.com/sadopc/cumpli/internal/store"
)

type CategoryShare struct {
	Category store.Category
	Count    int
	Fraction float64
}

type Summary struct {
	Pending    int
	Completed  int
	Progress   float64
	ByCategory []CategoryShare
	FocusTime  time.Duration
}

func (s Summary) Total() int { return s.Pending + s.Completed }

// Compute is pure. Progress is completed/total, or 0 with no activities.
// ByCategory covers both lists, largest first; ties keep category order.
func Compute(pending, completed []store.Activity) Summary {
	sum := Summary{Pending: len(pending), Completed: len(completed)}
	total := sum.Total()
	if total == 0 {
		return sum
	}
	sum.Progress = float64(sum.Completed) / float64(total)

	counts := make(map[store.Category]int)
	for _, list := range [][]store.Activity{pending, completed} {
		for _, a := range list {
			counts[a.Category]++
			sum.FocusTime += a.Accumulated
		}
	}

	for _, c := range store.Categories {
		if n := counts[c]; n > 0 {
			sum.ByCategory = append(sum.ByCategory, CategoryShare{
				Category: c,
				Count:    n,
				Fraction: float64(n) / float64(total),
			})
		}
	}
	sort.SliceStable(sum.ByCategory, func(i, j int) bool {
		return sum.ByCategory[i].Count > sum.ByCategory[j].Count
	})
	return sum
}
