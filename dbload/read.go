package dbload

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/encoding/charmap"
)

// Frame is a file's contents as text: a header and rows of equal width.
type Frame struct {
	Columns []string
	Rows    [][]string
}

func (f *Frame) NumRows() int { return len(f.Rows) }

// dropColumns removes the columns at the given positions.
func (f *Frame) dropColumns(drop map[int]bool) {
	if len(drop) == 0 {
		return
	}
	keep := func(row []string) []string {
		out := make([]string, 0, len(row)-len(drop))
		for i, v := range row {
			if !drop[i] {
				out = append(out, v)
			}
		}
		return out
	}
	f.Columns = keep(f.Columns)
	for i, row := range f.Rows {
		f.Rows[i] = keep(row)
	}
}

// ReadFile reads a .csv, .tsv, .xls (tab separated text) or .xlsx file.
func ReadFile(path string) (*Frame, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readDelimited(path, ',')
	case ".tsv", ".xls":
		return readDelimited(path, '\t')
	case ".xlsx":
		return readXLSX(path)
	default:
		return nil, eris.Errorf("dbload: unsupported file type %s", path)
	}
}

// decodeText strips a UTF-8 byte order mark and falls back to Latin-1
// when the content is not valid UTF-8.
func decodeText(data []byte, path string) ([]byte, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return data, nil
	}
	logrus.Warnf("%s is not valid UTF-8, reading as Latin-1", path)
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return nil, eris.Wrapf(err, "dbload: decode %s as latin-1", path)
	}
	return decoded, nil
}

func readDelimited(path string, sep rune) (*Frame, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dbload: read %s", path)
	}
	data, err := decodeText(raw, path)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sep
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, eris.Errorf("dbload: %s is empty", path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "dbload: read header of %s", path)
	}

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "dbload: read %s", path)
		}
		rows = append(rows, rec)
	}
	return newFrame(header, rows, path)
}

func readXLSX(path string) (*Frame, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dbload: open workbook %s", path)
	}
	if len(f.Sheets) == 0 || len(f.Sheets[0].Rows) == 0 {
		return nil, eris.Errorf("dbload: %s has no rows", path)
	}

	sheet := f.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	// sheets often carry formatted but empty rows past the data
	for len(rows) > 1 && isBlank(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	return newFrame(rows[0], rows[1:], path)
}

// newFrame names unnamed and duplicate header cells and pads short rows.
// Rows of empty cells are kept as all-NULL rows; a row wider than the
// header is an error.
func newFrame(header []string, rows [][]string, path string) (*Frame, error) {
	frame := &Frame{Columns: mangleHeader(header), Rows: make([][]string, 0, len(rows))}
	width := len(frame.Columns)
	for i, row := range rows {
		if len(row) > width {
			return nil, eris.Errorf("dbload: %s row %d has %d fields, expected %d", path, i+2, len(row), width)
		}
		for len(row) < width {
			row = append(row, "")
		}
		frame.Rows = append(frame.Rows, row)
	}
	return frame, nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// mangleHeader names empty header cells "Unnamed: <i>" and renames
// repeats to name.1, name.2, ...
func mangleHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, name := range header {
		if strings.TrimSpace(name) == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if n, ok := seen[name]; ok {
			k := n
			candidate := name + "." + strconv.Itoa(k)
			for seen[candidate] > 0 {
				k++
				candidate = name + "." + strconv.Itoa(k)
			}
			seen[name] = k + 1
			name = candidate
		}
		seen[name]++
		out[i] = name
	}
	return out
}
