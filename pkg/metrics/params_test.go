package metrics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetlens/mrrpv-engine/pkg/apperrors"
)

func TestQueryParams_Validate_Source(t *testing.T) {
	p := QueryParams{Source: "fleet"}
	desc, err := p.Validate()
	require.NoError(t, err)
	assert.Equal(t, "fleet", desc.Key)

	p = QueryParams{Source: "all_revenue"}
	_, err = p.Validate()
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidParameter(err))
}

func TestQueryParams_Validate_GroupBy(t *testing.T) {
	p := QueryParams{Source: "fleet", GroupBy: DimGeo}
	_, err := p.Validate()
	require.NoError(t, err)

	// Industry is not a fleet dimension.
	p = QueryParams{Source: "fleet", GroupBy: DimIndustry}
	_, err = p.Validate()
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidParameter(err))

	p = QueryParams{Source: "upsell", GroupBy: DimGeoSegment}
	_, err = p.Validate()
	require.NoError(t, err)
}

func TestQueryParams_Validate_Caps(t *testing.T) {
	longList := make([]string, MaxFilterValues+1)
	for i := range longList {
		longList[i] = "v"
	}

	tests := []struct {
		name   string
		params QueryParams
	}{
		{
			"too many time periods",
			QueryParams{Source: "fleet", TimeWindow: make([]string, MaxTimePeriods+1)},
		},
		{
			"include list over cap",
			QueryParams{Source: "fleet", Filters: map[Dimension]FilterArg{DimGeo: {Include: longList}}},
		},
		{
			"exclude list over cap",
			QueryParams{Source: "fleet", Filters: map[Dimension]FilterArg{DimGeo: {Exclude: longList}}},
		},
		{
			"value over length cap",
			QueryParams{Source: "fleet", Filters: map[Dimension]FilterArg{DimGeo: {Value: strings.Repeat("x", MaxFilterLen+1)}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.params.Validate()
			require.Error(t, err)
			assert.True(t, apperrors.IsFilterTooLarge(err), "got %v", err)
		})
	}
}

func TestQueryParams_Validate_FilterDimensions(t *testing.T) {
	// geo_segment is a grouping-only dimension; filter the parts instead.
	p := QueryParams{
		Source:  "fleet",
		Filters: map[Dimension]FilterArg{DimGeoSegment: {Value: "UK"}},
	}
	_, err := p.Validate()
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidParameter(err))

	// Industry filter against a source with no industry column.
	p = QueryParams{
		Source:  "fleet",
		Filters: map[Dimension]FilterArg{DimIndustry: {Value: "Transportation"}},
	}
	_, err = p.Validate()
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidParameter(err))
}

func TestQueryParams_Validate_InjectionScreen(t *testing.T) {
	hostile := []string{
		"' OR 1=1 --",
		"UK'; DROP TABLE fleet_revenue; --",
		"1 UNION SELECT password FROM users",
	}
	for _, v := range hostile {
		p := QueryParams{
			Source:  "fleet",
			Filters: map[Dimension]FilterArg{DimGeo: {Value: v}},
		}
		_, err := p.Validate()
		require.Error(t, err, "value %q", v)
		assert.True(t, apperrors.IsInvalidParameter(err), "value %q", v)
	}

	// Legitimate values with punctuation pass.
	p := QueryParams{
		Source:  "first_purchase",
		Filters: map[Dimension]FilterArg{DimIndustry: {Value: "Food & Beverage"}},
	}
	_, err := p.Validate()
	require.NoError(t, err)
}

func TestQueryParams_Clone_Independent(t *testing.T) {
	orig := QueryParams{
		Source:     "fleet",
		TimeWindow: []string{"FY26 Q1"},
		Filters:    map[Dimension]FilterArg{DimGeo: {Exclude: []string{"UK"}}},
		Products:   []string{"cm"},
	}

	clone := orig.Clone()
	clone.TimeWindow[0] = "FY26 Q2"
	clone.Products[0] = "vg"
	f := clone.Filters[DimGeo]
	f.Exclude[0] = "FR"
	clone.Filters[DimGeo] = f

	assert.Equal(t, []string{"FY26 Q1"}, orig.TimeWindow)
	assert.Equal(t, []string{"cm"}, orig.Products)
	assert.Equal(t, []string{"UK"}, orig.Filters[DimGeo].Exclude)
}

func TestFilterArg_IsZero(t *testing.T) {
	assert.True(t, FilterArg{}.IsZero())
	assert.False(t, FilterArg{Value: "UK"}.IsZero())
	assert.False(t, FilterArg{Include: []string{"UK"}}.IsZero())
	assert.False(t, FilterArg{Exclude: []string{"UK"}}.IsZero())
}
