// Package dbload bulk-loads delimited and spreadsheet files into a
// database, one table per file.
package dbload

import (
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
)

// safeIdent replaces every rune that is not a letter, digit or underscore
// with an underscore.
func safeIdent(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, s)
}

func startsWithDigit(s string) bool {
	for _, r := range s {
		return unicode.IsDigit(r)
	}
	return false
}

// TableName derives a table identifier from a file name: the stem with
// spaces and dashes as underscores, commas removed, other unsafe runes
// replaced and a leading digit prefixed with "_".
func TableName(filename string) string {
	base := filepath.Base(filename)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = strings.NewReplacer(" ", "_", "-", "_", ",", "").Replace(name)
	name = safeIdent(name)
	if startsWithDigit(name) {
		name = "_" + name
	}
	if name == "" {
		return "table"
	}
	return name
}

// SanitizeColumns turns raw header names into unique identifiers. Names
// that are empty or start with a digit after cleaning become
// col_<position>; collisions get a _<n> suffix.
func SanitizeColumns(cols []string) []string {
	out := make([]string, len(cols))
	used := make(map[string]bool, len(cols))
	for i, col := range cols {
		name := strings.NewReplacer(" ", "_", "-", "_", ".", "_").Replace(strings.TrimSpace(col))
		name = safeIdent(name)
		if name == "" || startsWithDigit(name) {
			name = "col_" + strconv.Itoa(i)
		}
		base := name
		for n := 1; used[strings.ToLower(name)]; n++ {
			name = base + "_" + strconv.Itoa(n)
		}
		used[strings.ToLower(name)] = true
		out[i] = name
	}
	return out
}

// quoteIdent double-quotes an identifier for SQL.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
