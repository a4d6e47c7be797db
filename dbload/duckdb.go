package dbload

import (
	"context"
	"database/sql"
	"database/sql/driver"

	"github.com/marcboeker/go-duckdb/v2"
	"github.com/rotisserie/eris"
)

func duckdbType(t ColumnType) string {
	switch t {
	case Integer:
		return "BIGINT"
	case Double:
		return "DOUBLE"
	default:
		return "VARCHAR"
	}
}

func openDuckDB(path string) (*sqlTarget, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, eris.Wrapf(err, "dbload: open duckdb %s", path)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, eris.Wrapf(err, "dbload: connect duckdb %s", path)
	}
	return &sqlTarget{
		db:          db,
		driver:      DriverDuckDB,
		sqlType:     duckdbType,
		listTables:  "SELECT table_name FROM information_schema.tables WHERE table_schema = 'main' ORDER BY table_name",
		listColumns: "SELECT column_name FROM information_schema.columns WHERE table_schema = 'main' AND table_name = ? ORDER BY ordinal_position",
		load:        duckdbAppend,
	}, nil
}

// duckdbAppend loads rows through the DuckDB appender on a dedicated
// connection.
func duckdbAppend(ctx context.Context, db *sql.DB, table string, _ []string, rows [][]any) (int64, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "acquire connection")
	}
	defer conn.Close()

	var n int64
	err = conn.Raw(func(raw any) error {
		dc, ok := raw.(driver.Conn)
		if !ok {
			return eris.Errorf("unexpected driver connection %T", raw)
		}
		appender, err := duckdb.NewAppenderFromConn(dc, "", table)
		if err != nil {
			return eris.Wrap(err, "create appender")
		}

		vals := make([]driver.Value, 0)
		for _, row := range rows {
			vals = vals[:0]
			for _, v := range row {
				vals = append(vals, v)
			}
			if err := appender.AppendRow(vals...); err != nil {
				_ = appender.Close()
				return eris.Wrapf(err, "append row %d", n+1)
			}
			n++
		}
		return appender.Close()
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
