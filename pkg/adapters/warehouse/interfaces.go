// Package warehouse defines the query-execution boundary between the metric
// compiler and the underlying analytics store.
package warehouse

import "context"

// MaxQueryLimit is the hard cap on rows returned by Query.
// Protects against unbounded queries that could crash the server.
const MaxQueryLimit = 1000

// ColumnInfo describes a result column.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryResult holds the results from executing a query.
type QueryResult struct {
	Columns  []ColumnInfo     `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}

// QueryExecutor executes read-only SQL against the warehouse.
//
// Queries are always SELECT aggregations built by the metric compiler;
// identifiers come from the closed source registry and values are bound
// parameters, so no user-controlled string reaches an identifier position.
// Each implementation owns its connection and must be closed when done.
type QueryExecutor interface {
	// Query runs a parameterized SELECT with bounded results. Placeholders
	// in the SQL come from Placeholder; params provides values in order.
	//
	// Limit behavior:
	//   - limit <= 0: uses MaxQueryLimit
	//   - limit > MaxQueryLimit: capped to MaxQueryLimit
	Query(ctx context.Context, sqlQuery string, params []any, limit int) (*QueryResult, error)

	// QuoteIdentifier quotes a table or column name for this dialect.
	QuoteIdentifier(name string) string

	// Placeholder returns the bound-parameter placeholder for position n
	// (1-based), e.g. "$1" for PostgreSQL or "?" for SQLite.
	Placeholder(n int) string

	// Close releases any resources held by the executor.
	Close() error
}

// EffectiveLimit normalizes a requested limit per the Query contract.
func EffectiveLimit(limit int) int {
	if limit <= 0 || limit > MaxQueryLimit {
		return MaxQueryLimit
	}
	return limit
}
