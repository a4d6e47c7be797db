package dbload

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// bulkLoader inserts rows into an existing table.
type bulkLoader func(ctx context.Context, db *sql.DB, table string, columns []string, rows [][]any) (int64, error)

// sqlTarget is a Target over database/sql. Dialects differ in column
// types, catalog queries and the bulk insert path.
type sqlTarget struct {
	db          *sql.DB
	driver      string
	sqlType     func(ColumnType) string
	listTables  string
	listColumns string
	load        bulkLoader
}

func (t *sqlTarget) ReplaceTable(ctx context.Context, name string, columns []string, types []ColumnType, rows [][]any) (int64, error) {
	if _, err := t.db.ExecContext(ctx, dropTableSQL(name)); err != nil {
		return 0, eris.Wrapf(err, "dbload: %s: drop %s", t.driver, name)
	}
	if _, err := t.db.ExecContext(ctx, createTableSQL(name, columns, types, t.sqlType)); err != nil {
		return 0, eris.Wrapf(err, "dbload: %s: create %s", t.driver, name)
	}
	n, err := t.load(ctx, t.db, name, columns, rows)
	if err != nil {
		if _, dropErr := t.db.ExecContext(ctx, dropTableSQL(name)); dropErr != nil {
			logrus.Errorf("Failed to drop partial table %s: %v", name, dropErr)
		}
		return 0, eris.Wrapf(err, "dbload: %s: load %s", t.driver, name)
	}
	return n, nil
}

func (t *sqlTarget) Tables(ctx context.Context) ([]Table, error) {
	names, err := t.queryStrings(ctx, t.listTables)
	if err != nil {
		return nil, eris.Wrapf(err, "dbload: %s: list tables", t.driver)
	}

	tables := make([]Table, 0, len(names))
	for _, name := range names {
		table := Table{Name: name}
		row := t.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(name))
		if err := row.Scan(&table.Rows); err != nil {
			return nil, eris.Wrapf(err, "dbload: %s: count %s", t.driver, name)
		}
		if table.Columns, err = t.queryStrings(ctx, t.listColumns, name); err != nil {
			return nil, eris.Wrapf(err, "dbload: %s: describe %s", t.driver, name)
		}
		tables = append(tables, table)
	}
	return tables, nil
}

func (t *sqlTarget) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (t *sqlTarget) Close() error {
	return eris.Wrapf(t.db.Close(), "dbload: close %s", t.driver)
}
