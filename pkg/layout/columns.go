package layout

import "sort"

// Assignment places one item inside its overlap group.
type Assignment struct {
	GroupIndex int
	Column     int
	GroupWidth int
}

// PackColumns assigns a column to every item of a group so that items sharing a
// column never overlap. Items are visited by start time (stable on ties) and go
// into the leftmost column whose last item has already ended. The returned
// slice is aligned with group; width is the number of columns opened.
func PackColumns(group []Item) (columns []int, width int) {
	order := make([]int, len(group))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return group[order[a]].Start.Before(group[order[b]].Start)
	})

	columns = make([]int, len(group))
	// last item placed in each column
	var tails []Item
	for _, i := range order {
		item := group[i]
		placed := false
		for col, tail := range tails {
			if !item.Start.Before(tail.End) {
				tails[col] = item
				columns[i] = col
				placed = true
				break
			}
		}
		if !placed {
			tails = append(tails, item)
			columns[i] = len(tails) - 1
		}
	}
	return columns, len(tails)
}

// Assign groups the items and packs each group, returning one Assignment per
// input item in input order.
func Assign(items []Item) []Assignment {
	assignments := make([]Assignment, len(items))
	for groupIndex, members := range groupIndices(items) {
		group := make([]Item, len(members))
		for k, i := range members {
			group[k] = items[i]
		}
		columns, width := PackColumns(group)
		for k, i := range members {
			assignments[i] = Assignment{
				GroupIndex: groupIndex,
				Column:     columns[k],
				GroupWidth: width,
			}
		}
	}
	return assignments
}
