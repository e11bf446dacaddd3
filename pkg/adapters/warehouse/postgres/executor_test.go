package postgres

import (
	"math/big"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeValue_Numeric(t *testing.T) {
	tests := []struct {
		name string
		in   pgtype.Numeric
		want float64
	}{
		{"rounded rate", pgtype.Numeric{Int: big.NewInt(3215), Exp: -2, Valid: true}, 32.15},
		{"whole number", pgtype.Numeric{Int: big.NewInt(4300), Exp: 0, Valid: true}, 4300},
		{"scaled sum", pgtype.Numeric{Int: big.NewInt(552), Exp: 3, Valid: true}, 552000},
		{"negative", pgtype.Numeric{Int: big.NewInt(-1050), Exp: -2, Valid: true}, -10.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeValue(tt.in)
			f, ok := got.(float64)
			require.True(t, ok, "expected float64, got %T", got)
			assert.InDelta(t, tt.want, f, 1e-9)
		})
	}
}

func TestNormalizeValue_NullNumeric(t *testing.T) {
	assert.Nil(t, normalizeValue(pgtype.Numeric{Valid: false}))
}

func TestNormalizeValue_Passthrough(t *testing.T) {
	assert.Equal(t, int64(42), normalizeValue(int64(42)))
	assert.Equal(t, 1.5, normalizeValue(1.5))
	assert.Equal(t, "NA", normalizeValue("NA"))
	assert.Nil(t, normalizeValue(nil))
}

func TestExecutor_Dialect(t *testing.T) {
	e := &Executor{}

	assert.Equal(t, `"geo"`, e.QuoteIdentifier("geo"))
	assert.Equal(t, `"a""b"`, e.QuoteIdentifier(`a"b`))
	assert.Equal(t, "$1", e.Placeholder(1))
	assert.Equal(t, "$12", e.Placeholder(12))
}
