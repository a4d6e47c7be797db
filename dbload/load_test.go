package dbload

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setUpLoadDir(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "well readings.csv", []byte("Site,Notes,1st_Reading\nA,x,1.5\nB,y,2\nC,,3\n"))
	writeFile(t, dir, "legacy-counties.xls", []byte("County Code\tName\n1001\tAutauga\n0\tNone\n\tBlank\n1003\tBaldwin\n"))
	writeFile(t, dir, "broken.csv", []byte("a,b\n1,2,3\n"))
	writeFile(t, dir, "lithium_categories.csv", []byte("longitude,latitude\n1,2\n"))
	writeFile(t, dir, "readme.txt", []byte("skip me"))
	return dir
}

var (
	loadExts    = []string{".csv", ".xls", ".tsv", ".xlsx"}
	loadExclude = []string{"lithium_categories.csv", "lithium_categories_with_counties.csv"}
)

func TestScanDir(t *testing.T) {
	dir := setUpLoadDir(t)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.csv"), 0o755))

	files, err := ScanDir(dir, loadExts, loadExclude)
	require.NoError(t, err)
	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	assert.Equal(t, []string{"broken.csv", "legacy-counties.xls", "well readings.csv"}, names)
}

func TestRun_SQLite(t *testing.T) {
	ctx := context.Background()
	dir := setUpLoadDir(t)
	dbPath := filepath.Join(t.TempDir(), "data.sqlite")
	require.NoError(t, os.WriteFile(dbPath, []byte("stale"), 0o644))

	target, err := Open(ctx, DriverSQLite, dbPath)
	require.NoError(t, err)
	defer target.Close()

	files, err := ScanDir(dir, loadExts, loadExclude)
	require.NoError(t, err)
	results := Run(ctx, target, files)
	require.Len(t, results, 3)

	assert.Error(t, results[0].Err, "broken.csv isolated")
	assert.Equal(t, "broken", results[0].Table)

	assert.NoError(t, results[1].Err)
	assert.Equal(t, "legacy_counties", results[1].Table)
	assert.Equal(t, int64(2), results[1].Rows)
	assert.Equal(t, 2, results[1].Filtered)

	assert.NoError(t, results[2].Err)
	assert.Equal(t, "well_readings", results[2].Table)
	assert.Equal(t, int64(3), results[2].Rows)
	assert.Equal(t, []string{"Notes"}, results[2].Dropped)

	tables, err := target.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Table{
		{Name: "legacy_counties", Rows: 2, Columns: []string{"County_Code", "Name"}},
		{Name: "well_readings", Rows: 3, Columns: []string{"Site", "col_1"}},
	}, tables)

	var buf bytes.Buffer
	RenderTables(&buf, tables)
	assert.Contains(t, buf.String(), "well_readings")
	assert.Contains(t, buf.String(), "Site, col_1")
}

func TestRun_DuckDB(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, dir, "counts.csv", []byte("GEOID,cells,share\n06029,10,0.5\n06037,,0.25\n"))
	dbPath := filepath.Join(t.TempDir(), "data.duckdb")

	target, err := Open(ctx, DriverDuckDB, dbPath)
	require.NoError(t, err)
	defer target.Close()

	results := Run(ctx, target, []string{filepath.Join(dir, "counts.csv")})
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, int64(2), results[0].Rows)

	tables, err := target.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Table{{Name: "counts", Rows: 2, Columns: []string{"GEOID", "cells", "share"}}}, tables)
}

func TestRun_StopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := Run(ctx, nil, []string{"a.csv"})
	assert.Empty(t, results)
}

func TestPostgresTarget_ReplaceTable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta(`DROP TABLE IF EXISTS "readings"`)).
		WillReturnResult(pgxmock.NewResult("DROP", 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE "readings" ("site" TEXT, "value" DOUBLE PRECISION)`)).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"readings"}, []string{"site", "value"}).WillReturnResult(2)

	target := NewPostgresTarget(mock)
	n, err := target.ReplaceTable(context.Background(), "readings",
		[]string{"site", "value"}, []ColumnType{Text, Double},
		[][]any{{"a", 1.5}, {"b", nil}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTarget_ReplaceTableDropsOnCopyError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("DROP TABLE").WillReturnResult(pgxmock.NewResult("DROP", 0))
	mock.ExpectExec("CREATE TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"readings"}, []string{"id"}).WillReturnError(errors.New("copy failed"))
	mock.ExpectExec("DROP TABLE").WillReturnResult(pgxmock.NewResult("DROP", 0))

	target := NewPostgresTarget(mock)
	_, err = target.ReplaceTable(context.Background(), "readings", []string{"id"}, []ColumnType{Integer}, [][]any{{int64(1)}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO readings")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTarget_Tables(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("information_schema.tables").
		WillReturnRows(mock.NewRows([]string{"table_name"}).AddRow("readings"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM "readings"`)).
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(int64(7)))
	mock.ExpectQuery("information_schema.columns").WithArgs("readings").
		WillReturnRows(mock.NewRows([]string{"column_name"}).AddRow("site").AddRow("value"))

	tables, err := NewPostgresTarget(mock).Tables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Table{{Name: "readings", Rows: 7, Columns: []string{"site", "value"}}}, tables)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen_UnknownDriver(t *testing.T) {
	target, err := Open(context.Background(), "oracle", "x")
	require.Error(t, err)
	assert.Nil(t, target)
}

func TestColumnPreview(t *testing.T) {
	assert.Equal(t, "a, b", columnPreview([]string{"a", "b"}))
	assert.Equal(t, "a, b, c, d, e...", columnPreview([]string{"a", "b", "c", "d", "e", "f"}))
}
