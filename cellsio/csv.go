package cellsio

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"github.com/Mike-Morrow/Lithium-Analysis/celltools"
)

const logEvery = 100000

var (
	CellColumns     = []string{"longitude", "latitude", "well_type", "lithium_category"}
	EnrichedColumns = []string{"longitude", "latitude", "well_type", "county_code", "county_name", "lithium_category"}
)

// FormatFloat renders v the way the downstream tables expect: shortest
// round-trip form, with a trailing ".0" on integral values.
func FormatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

// WriteRecords writes header and records to path as comma separated text,
// replacing any existing file.
func WriteRecords(path string, header []string, records [][]string) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "cellsio: create output dir %s", dir)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "cellsio: create %s", path)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	buf := bufio.NewWriter(f)
	w := csv.NewWriter(buf)
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "cellsio: write header")
	}
	for i, record := range records {
		if i > 0 && i%logEvery == 0 {
			logrus.Infof("Writing row %d", i)
		}
		if err := w.Write(record); err != nil {
			return eris.Wrapf(err, "cellsio: write row %d", i)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "cellsio: flush csv")
	}
	if err := buf.Flush(); err != nil {
		return eris.Wrap(err, "cellsio: flush buffer")
	}
	if err = f.Sync(); err != nil {
		return eris.Wrapf(err, "cellsio: sync %s", path)
	}
	return nil
}

func WriteCellsCSV(cells []celltools.GridCell, path string) error {
	records := make([][]string, len(cells))
	for i, cell := range cells {
		records[i] = []string{
			FormatFloat(cell.Longitude),
			FormatFloat(cell.Latitude),
			string(cell.WellType),
			strconv.Itoa(cell.LithiumCategory),
		}
	}
	return WriteRecords(path, CellColumns, records)
}

// WriteEnrichedCSV writes enriched cells. Missing county fields are written
// as empty strings.
func WriteEnrichedCSV(cells []celltools.EnrichedCell, path string) error {
	records := make([][]string, len(cells))
	for i, cell := range cells {
		records[i] = []string{
			FormatFloat(cell.Longitude),
			FormatFloat(cell.Latitude),
			string(cell.WellType),
			cell.CountyCode,
			cell.CountyName,
			strconv.Itoa(cell.LithiumCategory),
		}
	}
	return WriteRecords(path, EnrichedColumns, records)
}

// table is a header-indexed view over a CSV file.
type table struct {
	path  string
	index map[string]int
	rows  [][]string
}

func readTable(path string, required []string) (*table, error) {
	if err := celltools.RequireFile(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "cellsio: open %s", path)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logrus.Error(err)
		}
	}()

	r := csv.NewReader(bufio.NewReader(f))
	header, err := r.Read()
	if err == io.EOF {
		return nil, eris.Errorf("cellsio: %s is empty", path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "cellsio: read header of %s", path)
	}

	t := &table{path: path, index: make(map[string]int, len(header))}
	for i, name := range header {
		t.index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, col := range required {
		if _, ok := t.index[col]; !ok {
			return nil, eris.Errorf("cellsio: %s has no %q column", path, col)
		}
	}

	t.rows, err = r.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "cellsio: read %s", path)
	}
	return t, nil
}

func (t *table) field(row []string, col string) string {
	return row[t.index[col]]
}

func (t *table) number(row []string, line int, col string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(t.field(row, col)), 64)
	if err != nil {
		return 0, eris.Wrapf(err, "cellsio: %s line %d: bad %s", t.path, line, col)
	}
	return v, nil
}

func (t *table) integer(row []string, line int, col string) (int, error) {
	raw := strings.TrimSpace(t.field(row, col))
	if v, err := strconv.Atoi(raw); err == nil {
		return v, nil
	}
	// categories written as floats ("2.0") are accepted
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "cellsio: %s line %d: bad %s", t.path, line, col)
	}
	return int(f), nil
}

func (t *table) gridCell(row []string, line int) (celltools.GridCell, error) {
	lng, err := t.number(row, line, "longitude")
	if err != nil {
		return celltools.GridCell{}, err
	}
	lat, err := t.number(row, line, "latitude")
	if err != nil {
		return celltools.GridCell{}, err
	}
	cat, err := t.integer(row, line, "lithium_category")
	if err != nil {
		return celltools.GridCell{}, err
	}
	return celltools.GridCell{
		Longitude:       lng,
		Latitude:        lat,
		WellType:        celltools.WellType(strings.TrimSpace(t.field(row, "well_type"))),
		LithiumCategory: cat,
	}, nil
}

func ReadCellsCSV(path string) ([]celltools.GridCell, error) {
	t, err := readTable(path, CellColumns)
	if err != nil {
		return nil, err
	}
	cells := make([]celltools.GridCell, 0, len(t.rows))
	for i, row := range t.rows {
		cell, err := t.gridCell(row, i+2)
		if err != nil {
			return nil, err
		}
		cells = append(cells, cell)
	}
	return cells, nil
}

// ReadEnrichedCSV reads a county-enriched table. county_code is kept as
// text so leading zeros survive.
func ReadEnrichedCSV(path string) ([]celltools.EnrichedCell, error) {
	t, err := readTable(path, EnrichedColumns)
	if err != nil {
		return nil, err
	}
	cells := make([]celltools.EnrichedCell, 0, len(t.rows))
	for i, row := range t.rows {
		cell, err := t.gridCell(row, i+2)
		if err != nil {
			return nil, err
		}
		cells = append(cells, celltools.EnrichedCell{
			GridCell:   cell,
			CountyCode: strings.TrimSpace(t.field(row, "county_code")),
			CountyName: t.field(row, "county_name"),
		})
	}
	return cells, nil
}
