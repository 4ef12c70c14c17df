// Package rank implements warehouse-style window ranking as sort-then-scan.
package rank

import (
	"sort"
)

// order returns the indexes of values sorted ascending (or descending),
// stable on input position so equal values keep first-seen order.
func order(values []float64, desc bool) []int {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if desc {
			return values[idx[a]] > values[idx[b]]
		}
		return values[idx[a]] < values[idx[b]]
	})
	return idx
}

// PercentRank returns, for each input value, (r-1)/(n-1) where r is the
// 1-based position of the first value of its tie group in ascending order.
// A single value ranks 0. Results are aligned with the input.
func PercentRank(values []float64) []float64 {
	n := len(values)
	out := make([]float64, n)
	if n <= 1 {
		return out
	}

	idx := order(values, false)
	denom := float64(n - 1)
	groupStart := 0
	for pos, i := range idx {
		if pos > 0 && values[i] != values[idx[pos-1]] {
			groupStart = pos
		}
		out[i] = float64(groupStart) / denom
	}
	return out
}

// DenseRank returns 1-based ranks without gaps; equal values share a rank.
func DenseRank(values []float64, desc bool) []int {
	out := make([]int, len(values))
	idx := order(values, desc)
	r := 0
	for pos, i := range idx {
		if pos == 0 || values[i] != values[idx[pos-1]] {
			r++
		}
		out[i] = r
	}
	return out
}

// RowNumber returns 1-based positions in sorted order; ties are broken by
// input position.
func RowNumber(values []float64, desc bool) []int {
	out := make([]int, len(values))
	for pos, i := range order(values, desc) {
		out[i] = pos + 1
	}
	return out
}

// Row is one value inside a partition, e.g. a product's sales in its category.
type Row struct {
	Group string
	Key   string
	Value float64
}

// Ranked is a Row with its dense rank inside its group.
type Ranked struct {
	Row
	Rank int
}

// TopNPerGroup keeps the rows whose dense rank by value (descending) within
// their group is at most n. Ties can return more than n rows for a group.
// Groups appear in first-seen order, rows within a group by rank then input
// order.
func TopNPerGroup(rows []Row, n int) []Ranked {
	if n <= 0 || len(rows) == 0 {
		return nil
	}

	var groups []string
	members := make(map[string][]int)
	for i, r := range rows {
		if _, ok := members[r.Group]; !ok {
			groups = append(groups, r.Group)
		}
		members[r.Group] = append(members[r.Group], i)
	}

	var out []Ranked
	for _, g := range groups {
		ids := members[g]
		values := make([]float64, len(ids))
		for j, id := range ids {
			values[j] = rows[id].Value
		}
		ranks := DenseRank(values, true)
		for _, j := range order(values, true) {
			if ranks[j] > n {
				break
			}
			out = append(out, Ranked{Row: rows[ids[j]], Rank: ranks[j]})
		}
	}
	return out
}
