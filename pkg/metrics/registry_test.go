package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetlens/mrrpv-engine/pkg/apperrors"
)

func TestValidateRegistry(t *testing.T) {
	require.NoError(t, ValidateRegistry())
}

func TestSourceKeys_Sorted(t *testing.T) {
	assert.Equal(t, []string{"first_purchase", "fleet", "upsell"}, SourceKeys())
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"fleet", "fleet", false},
		{"first purchase", "first_purchase", false},
		{"upsell", "upsell", false},
		{"unknown", "pipeline", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc, err := Describe(tt.key)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsInvalidParameter(err))
				// Rejections must enumerate the allowed sources.
				assert.Contains(t, err.Error(), "fleet")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.key, desc.Key)
		})
	}
}

func TestSourceDescriptor_ValueShapes(t *testing.T) {
	fleet, err := Describe("fleet")
	require.NoError(t, err)
	assert.NotEmpty(t, fleet.ARRCol)
	assert.True(t, fleet.Annual)
	assert.Empty(t, fleet.ValueCol)

	for _, key := range []string{"first_purchase", "upsell"} {
		desc, err := Describe(key)
		require.NoError(t, err)
		assert.NotEmpty(t, desc.ValueCol, key)
		assert.Empty(t, desc.ARRCol, key)
	}
}

func TestGroupColumns(t *testing.T) {
	fleet, err := Describe("fleet")
	require.NoError(t, err)

	cols, err := fleet.GroupColumns(DimGeo)
	require.NoError(t, err)
	assert.Equal(t, []string{"geo"}, cols)

	// Composite dimension expands to both physical columns.
	cols, err = fleet.GroupColumns(DimGeoSegment)
	require.NoError(t, err)
	assert.Equal(t, []string{"geo", "segment"}, cols)

	// The fleet table has no industry column.
	_, err = fleet.GroupColumns(DimIndustry)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidParameter(err))

	fp, err := Describe("first_purchase")
	require.NoError(t, err)
	cols, err = fp.GroupColumns(DimIndustry)
	require.NoError(t, err)
	assert.Equal(t, []string{"industry"}, cols)
}

func TestProductKeys_Sorted(t *testing.T) {
	fleet, err := Describe("fleet")
	require.NoError(t, err)
	assert.Equal(t, []string{"at", "cm", "vg"}, fleet.ProductKeys())
}
