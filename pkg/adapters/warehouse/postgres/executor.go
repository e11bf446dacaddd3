// Package postgres provides the PostgreSQL warehouse executor.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetlens/mrrpv-engine/pkg/adapters/warehouse"
)

// Executor runs queries against a PostgreSQL warehouse.
type Executor struct {
	pool      *pgxpool.Pool
	ownedPool bool
}

// NewExecutor creates an executor from a connection string, owning its pool.
func NewExecutor(ctx context.Context, connString string) (*Executor, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Executor{pool: pool, ownedPool: true}, nil
}

// NewExecutorFromPool wraps an existing pool (the caller keeps ownership).
func NewExecutorFromPool(pool *pgxpool.Pool) *Executor {
	return &Executor{pool: pool}
}

var _ warehouse.QueryExecutor = (*Executor)(nil)

// Query implements warehouse.QueryExecutor.
func (e *Executor) Query(ctx context.Context, sqlQuery string, params []any, limit int) (*warehouse.QueryResult, error) {
	wrapped := fmt.Sprintf("SELECT * FROM (%s) AS _limited LIMIT %d",
		sqlQuery, warehouse.EffectiveLimit(limit))

	rows, err := e.pool.Query(ctx, wrapped, params...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]warehouse.ColumnInfo, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = warehouse.ColumnInfo{Name: string(fd.Name), Type: fmt.Sprintf("oid:%d", fd.DataTypeOID)}
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row values: %w", err)
		}
		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col.Name] = normalizeValue(values[i])
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

// normalizeValue converts pgx-specific value types to plain Go values before
// they leave the adapter. NUMERIC columns arrive from rows.Values() as
// pgtype.Numeric, which downstream numeric coercion cannot read; every
// ROUND and SUM over a NUMERIC column produces one.
func normalizeValue(v any) any {
	switch n := v.(type) {
	case pgtype.Numeric:
		f, err := n.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	default:
		return v
	}
}

// QuoteIdentifier implements warehouse.QueryExecutor.
func (e *Executor) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Placeholder implements warehouse.QueryExecutor.
func (e *Executor) Placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// Close implements warehouse.QueryExecutor.
func (e *Executor) Close() error {
	if e.ownedPool && e.pool != nil {
		e.pool.Close()
	}
	return nil
}
