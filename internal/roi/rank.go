package roi

import (
	"math"
	"sort"
)

// RankByGoal 按月收入与目标的距离升序排序，距离相同按需求分降序；
// 两者都相同时保持原顺序。demandScore 为 nil 时需求分视为0。返回新切片，不修改入参
func RankByGoal[T any](items []T, goal float64, monthlyPotential func(T) float64, demandScore func(T) float64) []T {
	ranked := make([]T, len(items))
	copy(ranked, items)
	if monthlyPotential == nil {
		return ranked
	}
	demand := func(item T) float64 {
		if demandScore == nil {
			return 0
		}
		return demandScore(item)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		di := math.Abs(monthlyPotential(ranked[i]) - goal)
		dj := math.Abs(monthlyPotential(ranked[j]) - goal)
		if di != dj {
			return di < dj
		}
		return demand(ranked[i]) > demand(ranked[j])
	})
	return ranked
}
