package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetlens/mrrpv-engine/pkg/apperrors"
)

func TestDefaultPresets(t *testing.T) {
	store := DefaultPresets()
	assert.Equal(t, []string{"first_purchase_mrr", "fleet_mrr", "upsell_mrr"}, store.Keys())

	p, err := store.Get("fleet_mrr")
	require.NoError(t, err)
	assert.Equal(t, "fleet", p.Source)
	assert.Equal(t, string(DimGeo), p.GroupBy)
}

func TestPresetStore_Get_Unknown(t *testing.T) {
	store := DefaultPresets()
	_, err := store.Get("quarterly_pipeline")
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidParameter(err))
	assert.Contains(t, err.Error(), "fleet_mrr")
}

func TestNewPresetStore_RejectsBadTemplates(t *testing.T) {
	tests := []struct {
		name    string
		presets []*Preset
	}{
		{"empty key", []*Preset{{Key: "", Source: "fleet"}}},
		{"unknown source", []*Preset{{Key: "p", Source: "pipeline"}}},
		{"bad group_by", []*Preset{{Key: "p", Source: "fleet", GroupBy: "industry"}}},
		{"duplicate key", []*Preset{{Key: "p", Source: "fleet"}, {Key: "p", Source: "upsell"}}},
		{"grouping-only filter dimension", []*Preset{{Key: "p", Source: "fleet",
			Filters: map[string]FilterArg{"geo_segment": {Value: "NA|ENT"}}}}},
		{"filter dimension foreign to source", []*Preset{{Key: "p", Source: "fleet",
			Filters: map[string]FilterArg{"industry": {Value: "Transportation"}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPresetStore(tt.presets)
			require.Error(t, err)
		})
	}
}

func TestPreset_Apply(t *testing.T) {
	p := &Preset{
		Key:        "fleet_mrr",
		Source:     "fleet",
		TimeWindow: []string{"FY26 Q2"},
		GroupBy:    string(DimGeo),
	}

	// Unset fields fill from the template.
	out := p.Apply(QueryParams{})
	assert.Equal(t, "fleet_mrr", out.Preset)
	assert.Equal(t, "fleet", out.Source)
	assert.Equal(t, []string{"FY26 Q2"}, out.TimeWindow)
	assert.Equal(t, DimGeo, out.GroupBy)

	// Caller-set fields survive; the source is always pinned.
	out = p.Apply(QueryParams{
		Source:     "upsell",
		TimeWindow: []string{"FY26 Q4"},
		GroupBy:    DimSegment,
	})
	assert.Equal(t, "fleet", out.Source)
	assert.Equal(t, []string{"FY26 Q4"}, out.TimeWindow)
	assert.Equal(t, DimSegment, out.GroupBy)
}

func TestPreset_Apply_Filters(t *testing.T) {
	p := &Preset{
		Key:     "emea_fleet_mrr",
		Source:  "fleet",
		GroupBy: string(DimGeo),
		Filters: map[string]FilterArg{
			"geo": {Include: []string{"EMEA"}},
		},
	}

	// The template filter lands on an empty parameter set.
	out := p.Apply(QueryParams{})
	assert.Equal(t, []string{"EMEA"}, out.Filters[DimGeo].Include)

	// A caller filter on the same dimension wins over the template.
	out = p.Apply(QueryParams{Filters: map[Dimension]FilterArg{
		DimGeo: {Include: []string{"UK"}},
	}})
	assert.Equal(t, []string{"UK"}, out.Filters[DimGeo].Include)

	// Filters on other dimensions coexist with the template's.
	out = p.Apply(QueryParams{Filters: map[Dimension]FilterArg{
		DimSegment: {Value: "ENT"},
	}})
	assert.Equal(t, []string{"EMEA"}, out.Filters[DimGeo].Include)
	assert.Equal(t, "ENT", out.Filters[DimSegment].Value)

	// The applied filter is a copy, never the template's slice.
	out = p.Apply(QueryParams{})
	out.Filters[DimGeo].Include[0] = "NA"
	assert.Equal(t, []string{"EMEA"}, p.Filters["geo"].Include)
}

func TestLoadPresets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "presets.yaml")
	doc := `presets:
  - key: fleet_mrr
    label: Fleet MRR per Vehicle
    data_source: fleet
    group_by: geo
    overridable: [time_window, filters]
  - key: emea_fleet_mrr
    label: EMEA Fleet MRR per Vehicle
    data_source: fleet
    group_by: geo
    filters:
      geo:
        include: [EMEA]
  - key: upsell_mrr
    label: Upsell MRR per Vehicle
    data_source: upsell
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	store, err := LoadPresets(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"emea_fleet_mrr", "fleet_mrr", "upsell_mrr"}, store.Keys())

	p, err := store.Get("fleet_mrr")
	require.NoError(t, err)
	assert.Equal(t, []string{"time_window", "filters"}, p.Overridable)

	emea, err := store.Get("emea_fleet_mrr")
	require.NoError(t, err)
	assert.Equal(t, []string{"EMEA"}, emea.Filters["geo"].Include)
}

func TestLoadPresets_MissingFile(t *testing.T) {
	_, err := LoadPresets(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
