package metrics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fleetlens/mrrpv-engine/pkg/adapters/warehouse"
	"github.com/fleetlens/mrrpv-engine/pkg/apperrors"
)

// Compiler builds aggregation queries from validated parameters, executes
// them against the warehouse, and reshapes the engine's output into the
// normalized Result form.
type Compiler struct {
	exec    warehouse.QueryExecutor
	logger  *zap.Logger
	timeout time.Duration
}

// NewCompiler creates a compiler. A zero timeout disables the per-query
// deadline (the caller's context still applies).
func NewCompiler(exec warehouse.QueryExecutor, logger *zap.Logger, timeout time.Duration) *Compiler {
	return &Compiler{
		exec:    exec,
		logger:  logger.Named("compiler"),
		timeout: timeout,
	}
}

// Run validates params, compiles the aggregate query, executes it, and
// derives the Overall summary.
func (c *Compiler) Run(ctx context.Context, params QueryParams) (*Result, error) {
	desc, err := params.Validate()
	if err != nil {
		return nil, err
	}

	clauses, err := ResolveFilters(desc, &params)
	if err != nil {
		return nil, err
	}
	productCols, err := ResolveProducts(desc, params.Products)
	if err != nil {
		return nil, err
	}

	q := c.buildQuery(desc, &params, clauses, productCols)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := c.exec.Query(ctx, q.sql, q.args, 0)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.logger.Warn("query timed out",
				zap.String("source", desc.Key),
				zap.Duration("elapsed", time.Since(start)))
			return nil, fmt.Errorf("%w: narrow the time window and retry", apperrors.ErrTimeout)
		}
		return nil, &apperrors.ExecutionError{Cause: err}
	}

	c.logger.Debug("query executed",
		zap.String("source", desc.Key),
		zap.Int("rows", raw.RowCount),
		zap.Duration("elapsed", time.Since(start)))

	rows := reshape(raw, q.columns)
	if !q.grouped {
		rows = dropEmptyAggregate(rows)
	}

	return &Result{
		Columns:  q.columns,
		Rows:     rows,
		RowCount: len(rows),
		Overall:  deriveOverall(rows, params.IncludeACV),
	}, nil
}

// builtQuery carries the compiled SQL alongside the expected column list.
type builtQuery struct {
	sql     string
	args    []any
	columns []string
	grouped bool
}

func (c *Compiler) buildQuery(desc *SourceDescriptor, params *QueryParams, clauses []FilterClause, productCols []string) builtQuery {
	quote := c.exec.QuoteIdentifier

	var groupCols []string
	if params.GroupBy != "" {
		// Validate already checked the dimension.
		groupCols, _ = desc.GroupColumns(params.GroupBy)
	}
	// Dimension grouping always groups jointly with the time column; a
	// multi-period window with no dimension groups by time alone. No
	// grouping at all collapses to a single constant-group aggregate.
	timeGrouped := len(groupCols) > 0 || len(params.TimeWindow) > 1

	var selects, groupBy, orderBy, columns []string
	for _, col := range groupCols {
		selects = append(selects, quote(col))
		groupBy = append(groupBy, quote(col))
		columns = append(columns, col)
	}
	if timeGrouped {
		selects = append(selects, quote(desc.TimeCol))
		groupBy = append(groupBy, quote(desc.TimeCol))
		columns = append(columns, desc.TimeCol)
		orderBy = append(orderBy, quote(desc.TimeCol))
	}
	for _, col := range groupCols {
		orderBy = append(orderBy, quote(col))
	}

	selects = append(selects, rateExpr(desc, quote)+" AS "+quote(ColRate))
	columns = append(columns, ColRate)
	selects = append(selects, fmt.Sprintf("SUM(%s) AS %s", quote(desc.CountCol), quote(ColVehicles)))
	columns = append(columns, ColVehicles)

	// ACV is omitted entirely when the caller declines it.
	if params.IncludeACV || params.IncludeAvgDeal {
		selects = append(selects, fmt.Sprintf("SUM(%s) AS %s", quote(desc.ACVCol), quote(ColTotalACV)))
		columns = append(columns, ColTotalACV)
	}
	// Distinct accounts is opt-in: adding it unconditionally would change
	// the aggregate's cost and invite misuse as a grouping column.
	if params.IncludeAccounts || params.IncludeAvgDeal {
		selects = append(selects, fmt.Sprintf("COUNT(DISTINCT %s) AS %s", quote(desc.AccountCol), quote(ColAccounts)))
		columns = append(columns, ColAccounts)
	}
	if params.IncludeAvgDeal {
		selects = append(selects, fmt.Sprintf(
			"ROUND(SUM(%s) * 1.0 / NULLIF(COUNT(DISTINCT %s), 0), 2) AS %s",
			quote(desc.ACVCol), quote(desc.AccountCol), quote(ColAvgDealSize)))
		columns = append(columns, ColAvgDealSize)
	}

	var where []string
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return c.exec.Placeholder(len(args))
	}

	if len(params.TimeWindow) > 0 {
		phs := make([]string, len(params.TimeWindow))
		for i, period := range params.TimeWindow {
			phs[i] = next(period)
		}
		where = append(where, fmt.Sprintf("%s IN (%s)", quote(desc.TimeCol), strings.Join(phs, ", ")))
	}
	for _, clause := range clauses {
		phs := make([]string, len(clause.Values))
		for i, v := range clause.Values {
			phs[i] = next(v)
		}
		op := "IN"
		if clause.Op == OpNotIn {
			op = "NOT IN"
		}
		where = append(where, fmt.Sprintf("%s %s (%s)", quote(clause.Column), op, strings.Join(phs, ", ")))
	}
	// Product filters AND together: a row must have licenses for every
	// requested product.
	for _, col := range productCols {
		where = append(where, fmt.Sprintf("%s > 0", quote(col)))
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(selects, ", "))
	b.WriteString(" FROM ")
	b.WriteString(quote(desc.Table))
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	if len(groupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(groupBy, ", "))
	}
	if len(orderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(orderBy, ", "))
	}

	return builtQuery{
		sql:     b.String(),
		args:    args,
		columns: columns,
		grouped: len(groupBy) > 0,
	}
}

// rateExpr builds the aggregate rate expression for the source's value
// shape. The asymmetry is deliberate: per-row monthly metrics are weighted
// row averages, annual revenue is aggregated first and divided by 12.
func rateExpr(desc *SourceDescriptor, quote func(string) string) string {
	if desc.ValueCol != "" {
		return fmt.Sprintf("ROUND(SUM(%s * %s) * 1.0 / NULLIF(SUM(%s), 0), 2)",
			quote(desc.ValueCol), quote(desc.CountCol), quote(desc.CountCol))
	}
	if desc.Annual {
		return fmt.Sprintf("ROUND(SUM(%s) * 1.0 / NULLIF(SUM(%s), 0) / 12, 2)",
			quote(desc.ARRCol), quote(desc.CountCol))
	}
	return fmt.Sprintf("ROUND(SUM(%s) * 1.0 / NULLIF(SUM(%s), 0), 2)",
		quote(desc.ARRCol), quote(desc.CountCol))
}

// reshape normalizes engine rows onto the expected column list so downstream
// shaping never indexes past the end, even if the engine reports columns
// differently. Metric columns are coerced to numeric.
func reshape(raw *warehouse.QueryResult, columns []string) []map[string]any {
	numeric := map[string]bool{
		ColRate: true, ColVehicles: true, ColTotalACV: true,
		ColAccounts: true, ColAvgDealSize: true,
	}
	rows := make([]map[string]any, 0, len(raw.Rows))
	for _, rawRow := range raw.Rows {
		row := make(map[string]any, len(columns))
		for _, col := range columns {
			v, ok := rawRow[col]
			if !ok {
				row[col] = nil
				continue
			}
			if numeric[col] && v != nil {
				row[col] = coerceFloat(v)
			} else {
				row[col] = v
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// dropEmptyAggregate removes the all-NULL row a constant-group aggregate
// produces over zero input rows: an empty result must surface as an empty
// row list with a nil Overall, not as one meaningless row.
func dropEmptyAggregate(rows []map[string]any) []map[string]any {
	if len(rows) != 1 {
		return rows
	}
	row := rows[0]
	if row[ColRate] == nil && coerceFloat(row[ColVehicles]) == 0 {
		return rows[:0]
	}
	return rows
}
