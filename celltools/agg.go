package celltools

import "sort"

func CountByCategory(cells []GridCell) map[int]int {
	counts := make(map[int]int)
	for _, cell := range cells {
		counts[cell.LithiumCategory]++
	}
	return counts
}

func CountByWellType(cells []GridCell) map[WellType]int {
	counts := make(map[WellType]int)
	for _, cell := range cells {
		counts[cell.WellType]++
	}
	return counts
}

// SortedKeys returns the categories of counts in ascending order.
func SortedKeys(counts map[int]int) []int {
	keys := make([]int, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
