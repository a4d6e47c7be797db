package dbload

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// Supported target drivers.
const (
	DriverDuckDB   = "duckdb"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Table describes one loaded table.
type Table struct {
	Name    string
	Rows    int64
	Columns []string
}

// Target is a database that tables can be replaced in.
type Target interface {
	// ReplaceTable drops any table called name, creates it with the given
	// columns and bulk-loads rows. On failure no table is left behind.
	ReplaceTable(ctx context.Context, name string, columns []string, types []ColumnType, rows [][]any) (int64, error)
	// Tables lists every table in the target in name order.
	Tables(ctx context.Context) ([]Table, error)
	Close() error
}

// Open connects to the target named by driver. File-backed targets start
// from an empty database: any existing file at dsn is removed first.
func Open(ctx context.Context, driver, dsn string) (Target, error) {
	switch strings.ToLower(driver) {
	case "", DriverDuckDB:
		if err := removeExisting(dsn, dsn+".wal"); err != nil {
			return nil, err
		}
		return wrapOpen(openDuckDB(dsn))
	case DriverSQLite:
		if err := removeExisting(dsn, dsn+"-journal", dsn+"-wal"); err != nil {
			return nil, err
		}
		return wrapOpen(openSQLite(dsn))
	case DriverPostgres:
		return wrapOpen(openPostgres(ctx, dsn))
	default:
		return nil, eris.Errorf("dbload: unknown driver %q", driver)
	}
}

// wrapOpen keeps a failed open from yielding a non-nil Target.
func wrapOpen[T Target](t T, err error) (Target, error) {
	if err != nil {
		return nil, err
	}
	return t, nil
}

func removeExisting(paths ...string) error {
	for _, p := range paths {
		if p == "" || strings.HasPrefix(p, ":memory:") {
			continue
		}
		err := os.Remove(p)
		if err == nil {
			logrus.Infof("Removed existing database file: %s", p)
			continue
		}
		if !os.IsNotExist(err) {
			return eris.Wrapf(err, "dbload: remove %s", p)
		}
	}
	return nil
}

// createTableSQL renders a CREATE TABLE statement with the dialect's
// column types.
func createTableSQL(name string, columns []string, types []ColumnType, sqlType func(ColumnType) string) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(quoteIdent(name))
	b.WriteString(" (")
	for i, col := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(col))
		b.WriteString(" ")
		b.WriteString(sqlType(types[i]))
	}
	b.WriteString(")")
	return b.String()
}

func dropTableSQL(name string) string {
	return "DROP TABLE IF EXISTS " + quoteIdent(name)
}
