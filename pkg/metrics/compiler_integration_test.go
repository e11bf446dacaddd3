package metrics

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	sqlitewarehouse "github.com/fleetlens/mrrpv-engine/pkg/adapters/warehouse/sqlite"
	"github.com/fleetlens/mrrpv-engine/pkg/database"
)

// newWarehouseCompiler migrates a throwaway SQLite warehouse (schema plus
// seed rows) and returns a compiler running real SQL against it, along with
// the handle so tests can install their own fixture rows.
func newWarehouseCompiler(t *testing.T) (*Compiler, *sql.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "warehouse.db")

	// The migration driver closes the handle it is given.
	migrationDB, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(migrationDB, "sqlite", "../../migrations", zap.NewNop()))
	_ = migrationDB.Close()

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	exec := sqlitewarehouse.NewExecutorFromDB(db)
	return NewCompiler(exec, zap.NewNop(), 5*time.Second), db
}

func clearTable(t *testing.T, db *sql.DB, table string) {
	t.Helper()
	_, err := db.Exec("DELETE FROM " + table)
	require.NoError(t, err)
}

func insertFleetRow(t *testing.T, db *sql.DB, quarter, geo string, totalARR float64, vehicles int) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO fleet_revenue
		(fiscal_quarter, geo, segment, account_id, total_arr, acv, vehicle_count, cm_licenses, vg_licenses, at_licenses)
		VALUES (?, ?, 'ENT', 'acct-' || ?, ?, ?, ?, 0, 0, 0)`,
		quarter, geo, geo, totalARR, totalARR/3, vehicles)
	require.NoError(t, err)
}

func TestCompiler_Run_SeededFleetByGeo(t *testing.T) {
	c, _ := newWarehouseCompiler(t)

	res, err := c.Run(context.Background(), QueryParams{
		Source:     "fleet",
		GroupBy:    DimGeo,
		TimeWindow: []string{"FY26 Q1"},
	})
	require.NoError(t, err)

	require.Equal(t, 7, res.RowCount)
	geos := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		geos = append(geos, row["geo"].(string))
	}
	assert.Equal(t, []string{"ANZ", "APAC", "BNL", "DACH", "FR", "NA", "UK"}, geos)

	// UK = two accounts: 540000+180000 ARR over 1500+560 vehicles.
	uk := res.Rows[6]
	assert.InDelta(t, 29.13, uk[ColRate].(float64), 0.001)
	assert.InDelta(t, 2060, uk[ColVehicles].(float64), 0.001)

	require.NotNil(t, res.Overall)
	assert.InDelta(t, 11700, res.Overall.Vehicles, 0.001)
	assert.Greater(t, res.Overall.MRRPerVehicle, 0.0)
}

func TestCompiler_Run_FleetByGeoFixedRows(t *testing.T) {
	c, db := newWarehouseCompiler(t)
	clearTable(t, db, "fleet_revenue")
	insertFleetRow(t, db, "FY26 Q4", "NA", 144000, 1000)
	insertFleetRow(t, db, "FY26 Q4", "UK", 288000, 1200)

	res, err := c.Run(context.Background(), QueryParams{
		Source:     "fleet",
		GroupBy:    DimGeo,
		TimeWindow: []string{"FY26 Q4"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, res.RowCount)

	// Annual shape: rate = (ΣARR / Σvehicles) / 12.
	assert.Equal(t, "NA", res.Rows[0]["geo"])
	assert.InDelta(t, 12.00, res.Rows[0][ColRate].(float64), 0.001)
	assert.Equal(t, "UK", res.Rows[1]["geo"])
	assert.InDelta(t, 20.00, res.Rows[1][ColRate].(float64), 0.001)

	// Overall weights by vehicles: (12×1000 + 20×1200) / 2200.
	require.NotNil(t, res.Overall)
	assert.InDelta(t, 16.36, res.Overall.MRRPerVehicle, 0.001)
	assert.InDelta(t, 2200, res.Overall.Vehicles, 0.001)
}

func TestCompiler_Run_FirstPurchaseUngrouped(t *testing.T) {
	c, db := newWarehouseCompiler(t)
	clearTable(t, db, "first_purchase_deals")
	for _, deal := range []struct {
		account  string
		rate     float64
		vehicles int
	}{
		{"acct-1", 20, 10},
		{"acct-2", 30, 30},
	} {
		_, err := db.Exec(`INSERT INTO first_purchase_deals
			(fiscal_quarter, geo, segment, industry, account_id, mrr_per_vehicle, acv, vehicle_count, cm_licenses, vg_licenses, at_licenses)
			VALUES ('FY26 Q2', 'NA', 'ENT', 'Transportation', ?, ?, ?, ?, 0, 0, 0)`,
			deal.account, deal.rate, deal.rate*float64(deal.vehicles)*12, deal.vehicles)
		require.NoError(t, err)
	}

	res, err := c.Run(context.Background(), QueryParams{
		Source:     "first_purchase",
		TimeWindow: []string{"FY26 Q2"},
	})
	require.NoError(t, err)

	// No grouping and one period: a single constant-group row whose rate is
	// the vehicle-weighted deal average (20×10 + 30×30) / 40.
	require.Equal(t, 1, res.RowCount)
	assert.Equal(t, []string{ColRate, ColVehicles}, res.Columns)
	assert.InDelta(t, 27.5, res.Rows[0][ColRate].(float64), 0.001)
	assert.InDelta(t, 40, res.Rows[0][ColVehicles].(float64), 0.001)
	require.NotNil(t, res.Overall)
	assert.InDelta(t, 27.5, res.Overall.MRRPerVehicle, 0.001)
}

func TestCompiler_Run_ExcludePhraseExpansion(t *testing.T) {
	c, db := newWarehouseCompiler(t)
	clearTable(t, db, "fleet_revenue")
	insertFleetRow(t, db, "FY26 Q4", "NA", 144000, 1000)
	insertFleetRow(t, db, "FY26 Q4", "UK", 288000, 1200)
	insertFleetRow(t, db, "FY26 Q4", "FR", 60000, 500)
	insertFleetRow(t, db, "FY26 Q4", "DACH", 120000, 800)

	res, err := c.Run(context.Background(), QueryParams{
		Source:     "fleet",
		GroupBy:    DimGeo,
		TimeWindow: []string{"FY26 Q4"},
		Filters: map[Dimension]FilterArg{
			DimGeo: {Exclude: []string{"EMEA"}},
		},
	})
	require.NoError(t, err)

	// EMEA expands to its member geos; only NA survives.
	require.Equal(t, 1, res.RowCount)
	assert.Equal(t, "NA", res.Rows[0]["geo"])
	assert.InDelta(t, 12.00, res.Rows[0][ColRate].(float64), 0.001)
}
