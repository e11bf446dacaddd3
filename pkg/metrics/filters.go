package metrics

import (
	"github.com/fleetlens/mrrpv-engine/pkg/apperrors"
)

// ClauseOp is the WHERE-clause semantics of a resolved filter.
type ClauseOp int

const (
	OpIn ClauseOp = iota
	OpNotIn
)

// FilterClause is a resolved conjunctive predicate over one column.
type FilterClause struct {
	Column string
	Op     ClauseOp
	Values []string
}

// ResolveFilters turns the raw per-dimension filter arguments into WHERE
// clauses, expanding each phrase through the glossary. Precedence per
// dimension is include-list > exclude-list > single scalar; only one is
// applied. Dimension order is fixed (geo, segment, industry) so the compiled
// SQL is deterministic for identical parameters.
func ResolveFilters(desc *SourceDescriptor, params *QueryParams) ([]FilterClause, error) {
	clauses := make([]FilterClause, 0, len(params.Filters))
	for _, dim := range []Dimension{DimGeo, DimSegment, DimIndustry} {
		f, ok := params.Filters[dim]
		if !ok || f.IsZero() {
			continue
		}
		cols, ok := desc.GroupBy[dim]
		if !ok {
			// Validate rejects this earlier; kept for direct callers.
			allowed := make([]string, len(desc.AllowedGroupBy))
			for i, a := range desc.AllowedGroupBy {
				allowed[i] = string(a)
			}
			return nil, apperrors.NewInvalidParameter("filter_dimension", string(dim), allowed)
		}
		col := cols[0]

		switch {
		case len(f.Include) > 0:
			clauses = append(clauses, FilterClause{Column: col, Op: OpIn, Values: expandAll(dim, f.Include)})
		case len(f.Exclude) > 0:
			clauses = append(clauses, FilterClause{Column: col, Op: OpNotIn, Values: expandAll(dim, f.Exclude)})
		case f.Value != "":
			clauses = append(clauses, FilterClause{Column: col, Op: OpIn, Values: ResolveDimensionValues(dim, f.Value)})
		}
	}
	return clauses, nil
}

// ResolveProducts maps product phrases to the source's license-count
// columns. Unknown products are hard rejections enumerating the allowed set.
// Duplicate phrases resolving to the same key collapse to one predicate.
func ResolveProducts(desc *SourceDescriptor, products []string) ([]string, error) {
	seen := make(map[string]bool, len(products))
	cols := make([]string, 0, len(products))
	for _, phrase := range products {
		key, ok := ResolveProductKey(phrase)
		if !ok {
			return nil, apperrors.NewInvalidParameter("product", phrase, desc.ProductKeys())
		}
		col, ok := desc.ProductCols[key]
		if !ok {
			return nil, apperrors.NewInvalidParameter("product", phrase, desc.ProductKeys())
		}
		if !seen[key] {
			seen[key] = true
			cols = append(cols, col)
		}
	}
	return cols, nil
}

// expandAll resolves each phrase and unions the results, preserving first
// occurrence order. "EMEA" expands to four geo codes; "public sector"
// expands to both historical spellings.
func expandAll(dim Dimension, phrases []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(phrases))
	for _, phrase := range phrases {
		for _, v := range ResolveDimensionValues(dim, phrase) {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}
