package dbload

import (
	"math"
	"strconv"
	"strings"
)

// CountyCodeColumn returns the position of the first column whose name
// mentions both "county" and "code", or -1.
func CountyCodeColumn(cols []string) int {
	for i, col := range cols {
		lower := strings.ToLower(col)
		if strings.Contains(lower, "county") && strings.Contains(lower, "code") {
			return i
		}
	}
	return -1
}

// validCountyCode reports whether v is a number strictly greater than 0.
func validCountyCode(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" || isNA(v) {
		return false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) {
		return false
	}
	return f > 0
}

// FilterCountyCodes keeps only the rows with a valid county code and
// returns how many were removed. Frames without a county code column are
// left alone.
func FilterCountyCodes(f *Frame) int {
	col := CountyCodeColumn(f.Columns)
	if col < 0 {
		return 0
	}
	kept := f.Rows[:0]
	for _, row := range f.Rows {
		if validCountyCode(row[col]) {
			kept = append(kept, row)
		}
	}
	removed := len(f.Rows) - len(kept)
	f.Rows = kept
	return removed
}

// DropNotes removes every column named "notes", ignoring case and
// surrounding space, and returns the dropped names.
func DropNotes(f *Frame) []string {
	drop := make(map[int]bool)
	var names []string
	for i, col := range f.Columns {
		if strings.ToLower(strings.TrimSpace(col)) == "notes" {
			drop[i] = true
			names = append(names, col)
		}
	}
	f.dropColumns(drop)
	return names
}
