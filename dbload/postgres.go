package dbload

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// Pool is the subset of *pgxpool.Pool the postgres target uses.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Close()
}

const (
	pgListTables  = "SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() AND table_type = 'BASE TABLE' ORDER BY table_name"
	pgListColumns = "SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1 ORDER BY ordinal_position"
)

func postgresType(t ColumnType) string {
	switch t {
	case Integer:
		return "BIGINT"
	case Double:
		return "DOUBLE PRECISION"
	default:
		return "TEXT"
	}
}

// PostgresTarget loads tables with the COPY protocol.
type PostgresTarget struct {
	pool Pool
}

func NewPostgresTarget(pool Pool) *PostgresTarget {
	return &PostgresTarget{pool: pool}
}

func openPostgres(ctx context.Context, dsn string) (*PostgresTarget, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, eris.Wrap(err, "dbload: postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "dbload: postgres: ping")
	}
	return NewPostgresTarget(pool), nil
}

func (t *PostgresTarget) ReplaceTable(ctx context.Context, name string, columns []string, types []ColumnType, rows [][]any) (int64, error) {
	if _, err := t.pool.Exec(ctx, dropTableSQL(name)); err != nil {
		return 0, eris.Wrapf(err, "dbload: postgres: drop %s", name)
	}
	if _, err := t.pool.Exec(ctx, createTableSQL(name, columns, types, postgresType)); err != nil {
		return 0, eris.Wrapf(err, "dbload: postgres: create %s", name)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := t.pool.CopyFrom(ctx, pgx.Identifier{name}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		if _, dropErr := t.pool.Exec(ctx, dropTableSQL(name)); dropErr != nil {
			logrus.Errorf("Failed to drop partial table %s: %v", name, dropErr)
		}
		return 0, eris.Wrapf(err, "dbload: postgres: COPY INTO %s", name)
	}
	return n, nil
}

func (t *PostgresTarget) Tables(ctx context.Context) ([]Table, error) {
	names, err := t.queryStrings(ctx, pgListTables)
	if err != nil {
		return nil, eris.Wrap(err, "dbload: postgres: list tables")
	}

	tables := make([]Table, 0, len(names))
	for _, name := range names {
		table := Table{Name: name}
		if err := t.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+quoteIdent(name)).Scan(&table.Rows); err != nil {
			return nil, eris.Wrapf(err, "dbload: postgres: count %s", name)
		}
		if table.Columns, err = t.queryStrings(ctx, pgListColumns, name); err != nil {
			return nil, eris.Wrapf(err, "dbload: postgres: describe %s", name)
		}
		tables = append(tables, table)
	}
	return tables, nil
}

func (t *PostgresTarget) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := t.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (t *PostgresTarget) Close() error {
	t.pool.Close()
	return nil
}
