package dbload

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

func sqliteType(t ColumnType) string {
	switch t {
	case Integer:
		return "INTEGER"
	case Double:
		return "REAL"
	default:
		return "TEXT"
	}
}

func openSQLite(path string) (*sqlTarget, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrapf(err, "dbload: open sqlite %s", path)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, eris.Wrapf(err, "dbload: connect sqlite %s", path)
	}
	// an in-memory database exists per connection
	db.SetMaxOpenConns(1)
	return &sqlTarget{
		db:          db,
		driver:      DriverSQLite,
		sqlType:     sqliteType,
		listTables:  "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name",
		listColumns: "SELECT name FROM pragma_table_info(?) ORDER BY cid",
		load:        sqliteInsert,
	}, nil
}

// sqliteInsert inserts rows with one prepared statement in a single
// transaction.
func sqliteInsert(ctx context.Context, db *sql.DB, table string, columns []string, rows [][]any) (n int64, err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "begin")
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = quoteIdent(col)
	}
	query := "INSERT INTO " + quoteIdent(table) + " (" + strings.Join(quoted, ", ") +
		") VALUES (" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, eris.Wrap(err, "prepare insert")
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, eris.Wrapf(err, "insert row %d", n+1)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "commit")
	}
	return n, nil
}
