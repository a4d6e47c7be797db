package dbload

import (
	"strconv"
	"strings"
)

// ColumnType is the storage class inferred for a column.
type ColumnType int

const (
	Integer ColumnType = iota
	Double
	Text
)

func (t ColumnType) String() string {
	switch t {
	case Integer:
		return "integer"
	case Double:
		return "double"
	default:
		return "text"
	}
}

// naValues are the cell texts read as missing values.
var naValues = map[string]bool{
	"": true, "NA": true, "N/A": true, "n/a": true, "NaN": true, "nan": true,
	"-NaN": true, "-nan": true, "NULL": true, "null": true, "None": true,
	"<NA>": true, "#N/A": true, "#NA": true, "#N/A N/A": true,
	"1.#IND": true, "-1.#IND": true, "1.#QNAN": true, "-1.#QNAN": true,
}

func isNA(v string) bool { return naValues[strings.TrimSpace(v)] }

// InferTypes picks Integer when every present value of a column parses as
// an integer, Double when every one parses as a float, otherwise Text. A
// column with no values is Text.
func InferTypes(f *Frame) []ColumnType {
	types := make([]ColumnType, len(f.Columns))
	for c := range f.Columns {
		types[c] = inferColumn(f.Rows, c)
	}
	return types
}

func inferColumn(rows [][]string, c int) ColumnType {
	t, present := Integer, false
	for _, row := range rows {
		v := strings.TrimSpace(row[c])
		if isNA(v) {
			continue
		}
		present = true
		if t == Integer {
			if _, err := strconv.ParseInt(v, 10, 64); err == nil {
				continue
			}
			t = Double
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return Text
		}
	}
	if !present {
		return Text
	}
	return t
}

// Values converts the frame's cells to typed values. Missing values are
// nil.
func Values(f *Frame, types []ColumnType) ([][]any, error) {
	out := make([][]any, len(f.Rows))
	for r, row := range f.Rows {
		vals := make([]any, len(row))
		for c, raw := range row {
			v := strings.TrimSpace(raw)
			if isNA(v) {
				continue
			}
			switch types[c] {
			case Integer:
				n, err := strconv.ParseInt(v, 10, 64)
				if err != nil {
					return nil, err
				}
				vals[c] = n
			case Double:
				x, err := strconv.ParseFloat(v, 64)
				if err != nil {
					return nil, err
				}
				vals[c] = x
			default:
				vals[c] = raw
			}
		}
		out[r] = vals
	}
	return out, nil
}
