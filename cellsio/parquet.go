package cellsio

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/rotisserie/eris"

	"github.com/Mike-Morrow/Lithium-Analysis/celltools"
)

type CellRow struct {
	Longitude       float64 `parquet:"longitude"`
	Latitude        float64 `parquet:"latitude"`
	WellType        string  `parquet:"well_type"`
	LithiumCategory int64   `parquet:"lithium_category"`
}

// Formats accepted by WriteCells.
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// WriteCellsParquet writes cells as a snappy-compressed parquet file.
func WriteCellsParquet(cells []celltools.GridCell, path string) (err error) {
	output, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "cellsio: create %s", path)
	}

	schema := parquet.SchemaOf(new(CellRow))
	writer := parquet.NewGenericWriter[CellRow](output, schema, parquet.Compression(&parquet.Snappy))
	defer func() {
		err = errors.Join(err, writer.Close(), output.Close())
	}()

	rows := make([]CellRow, len(cells))
	for i, cell := range cells {
		rows[i] = CellRow{
			Longitude:       cell.Longitude,
			Latitude:        cell.Latitude,
			WellType:        string(cell.WellType),
			LithiumCategory: int64(cell.LithiumCategory),
		}
	}
	if _, err := writer.Write(rows); err != nil {
		return eris.Wrapf(err, "cellsio: write parquet rows to %s", path)
	}
	return nil
}

func ReadCellsParquet(path string) ([]celltools.GridCell, error) {
	if err := celltools.RequireFile(path); err != nil {
		return nil, err
	}
	rows, err := parquet.ReadFile[CellRow](path)
	if err != nil {
		return nil, eris.Wrapf(err, "cellsio: read parquet %s", path)
	}
	cells := make([]celltools.GridCell, len(rows))
	for i, row := range rows {
		cells[i] = celltools.GridCell{
			Longitude:       row.Longitude,
			Latitude:        row.Latitude,
			WellType:        celltools.WellType(row.WellType),
			LithiumCategory: int(row.LithiumCategory),
		}
	}
	return cells, nil
}

// WriteCells writes cells in the named format.
func WriteCells(cells []celltools.GridCell, path, format string) error {
	switch strings.ToLower(format) {
	case "", FormatCSV:
		return WriteCellsCSV(cells, path)
	case FormatParquet:
		return WriteCellsParquet(cells, path)
	default:
		return eris.Errorf("cellsio: unknown output format %q", format)
	}
}

// ReadCells picks the reader from the file extension.
func ReadCells(path string) ([]celltools.GridCell, error) {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return ReadCellsParquet(path)
	}
	return ReadCellsCSV(path)
}
