package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetlens/mrrpv-engine/pkg/apperrors"
)

func mustDescribe(t *testing.T, key string) *SourceDescriptor {
	t.Helper()
	desc, err := Describe(key)
	require.NoError(t, err)
	return desc
}

func TestResolveFilters_Precedence(t *testing.T) {
	desc := mustDescribe(t, "fleet")

	tests := []struct {
		name string
		arg  FilterArg
		want FilterClause
	}{
		{
			"include wins over exclude and scalar",
			FilterArg{Value: "NA", Include: []string{"UK"}, Exclude: []string{"FR"}},
			FilterClause{Column: "geo", Op: OpIn, Values: []string{"UK"}},
		},
		{
			"exclude wins over scalar",
			FilterArg{Value: "NA", Exclude: []string{"FR"}},
			FilterClause{Column: "geo", Op: OpNotIn, Values: []string{"FR"}},
		},
		{
			"scalar alone",
			FilterArg{Value: "NA"},
			FilterClause{Column: "geo", Op: OpIn, Values: []string{"NA"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := QueryParams{Source: "fleet", Filters: map[Dimension]FilterArg{DimGeo: tt.arg}}
			clauses, err := ResolveFilters(desc, &params)
			require.NoError(t, err)
			require.Len(t, clauses, 1)
			assert.Equal(t, tt.want, clauses[0])
		})
	}
}

func TestResolveFilters_GlossaryExpansion(t *testing.T) {
	desc := mustDescribe(t, "fleet")

	params := QueryParams{
		Source: "fleet",
		Filters: map[Dimension]FilterArg{
			DimGeo: {Exclude: []string{"EMEA"}},
		},
	}
	clauses, err := ResolveFilters(desc, &params)
	require.NoError(t, err)
	require.Len(t, clauses, 1)
	assert.Equal(t, OpNotIn, clauses[0].Op)
	assert.Equal(t, []string{"UK", "DACH", "FR", "BNL"}, clauses[0].Values)
}

func TestResolveFilters_ExpansionUnionDedupes(t *testing.T) {
	desc := mustDescribe(t, "fleet")

	// EMEA already covers UK; the union must not produce UK twice.
	params := QueryParams{
		Source: "fleet",
		Filters: map[Dimension]FilterArg{
			DimGeo: {Include: []string{"EMEA", "UK", "NA"}},
		},
	}
	clauses, err := ResolveFilters(desc, &params)
	require.NoError(t, err)
	require.Len(t, clauses, 1)
	assert.Equal(t, []string{"UK", "DACH", "FR", "BNL", "NA"}, clauses[0].Values)
}

func TestResolveFilters_DeterministicOrder(t *testing.T) {
	desc := mustDescribe(t, "first_purchase")

	params := QueryParams{
		Source: "first_purchase",
		Filters: map[Dimension]FilterArg{
			DimIndustry: {Value: "Transportation"},
			DimGeo:      {Value: "UK"},
			DimSegment:  {Value: "ENT"},
		},
	}
	clauses, err := ResolveFilters(desc, &params)
	require.NoError(t, err)
	require.Len(t, clauses, 3)
	assert.Equal(t, "geo", clauses[0].Column)
	assert.Equal(t, "segment", clauses[1].Column)
	assert.Equal(t, "industry", clauses[2].Column)
}

func TestResolveFilters_EmptyArgSkipped(t *testing.T) {
	desc := mustDescribe(t, "fleet")
	params := QueryParams{
		Source:  "fleet",
		Filters: map[Dimension]FilterArg{DimGeo: {}},
	}
	clauses, err := ResolveFilters(desc, &params)
	require.NoError(t, err)
	assert.Empty(t, clauses)
}

func TestResolveProducts(t *testing.T) {
	desc := mustDescribe(t, "fleet")

	cols, err := ResolveProducts(desc, []string{"camera", "telematics"})
	require.NoError(t, err)
	assert.Equal(t, []string{"cm_licenses", "vg_licenses"}, cols)

	// Synonyms for the same product collapse to one predicate.
	cols, err = ResolveProducts(desc, []string{"camera", "dashcam", "cm"})
	require.NoError(t, err)
	assert.Equal(t, []string{"cm_licenses"}, cols)

	_, err = ResolveProducts(desc, []string{"forklift"})
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidParameter(err))
	assert.Contains(t, err.Error(), "cm")
}
