// Package sqlite provides an embedded warehouse executor backed by
// modernc.org/sqlite. Used for local development and tests, where standing
// up a PostgreSQL warehouse is not worth the trouble.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/fleetlens/mrrpv-engine/pkg/adapters/warehouse"
)

// Executor runs queries against a SQLite database file (or :memory:).
type Executor struct {
	db *sql.DB
}

// NewExecutor opens a SQLite database at the given path.
func NewExecutor(path string) (*Executor, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	return &Executor{db: db}, nil
}

// NewExecutorFromDB wraps an existing handle (the caller keeps ownership for
// in-memory test databases that must not be reopened).
func NewExecutorFromDB(db *sql.DB) *Executor {
	return &Executor{db: db}
}

var _ warehouse.QueryExecutor = (*Executor)(nil)

// Query implements warehouse.QueryExecutor. The compiler asks Placeholder
// for the dialect syntax, so queries arriving here use ? markers bound
// positionally.
func (e *Executor) Query(ctx context.Context, sqlQuery string, params []any, limit int) (*warehouse.QueryResult, error) {
	wrapped := fmt.Sprintf("SELECT * FROM (%s) AS _limited LIMIT %d",
		sqlQuery, warehouse.EffectiveLimit(limit))

	rows, err := e.db.QueryContext(ctx, wrapped, params...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	colNames, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("read column types: %w", err)
	}

	columns := make([]warehouse.ColumnInfo, len(colNames))
	for i, name := range colNames {
		columns[i] = warehouse.ColumnInfo{Name: name, Type: colTypes[i].DatabaseTypeName()}
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(colNames))
		ptrs := make([]any, len(colNames))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rowMap := make(map[string]any, len(colNames))
		for i, name := range colNames {
			rowMap[name] = values[i]
		}
		resultRows = append(resultRows, rowMap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return &warehouse.QueryResult{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
	}, nil
}

// QuoteIdentifier implements warehouse.QueryExecutor.
func (e *Executor) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Placeholder implements warehouse.QueryExecutor.
func (e *Executor) Placeholder(n int) string {
	return "?"
}

// Close implements warehouse.QueryExecutor.
func (e *Executor) Close() error {
	return e.db.Close()
}
