package metrics

import (
	"fmt"
	"math"
	"strconv"
)

// Canonical output column names emitted by the compiler.
const (
	ColRate        = "mrr_per_vehicle"
	ColVehicles    = "vehicles"
	ColTotalACV    = "total_acv"
	ColAccounts    = "accounts"
	ColAvgDealSize = "avg_deal_size"
)

// Result is the normalized shape of one compiled-and-executed query.
type Result struct {
	Columns  []string         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
	Overall  *Overall         `json:"overall,omitempty"`
}

// Overall is the derived summary of a result set: the vehicle-count-weighted
// aggregate of the returned rows, never a re-query. It exists so the caller
// can state one headline number even when the result is broken out by
// dimension or time.
type Overall struct {
	MRRPerVehicle float64  `json:"mrr_per_vehicle"`
	Vehicles      float64  `json:"vehicles"`
	TotalACV      *float64 `json:"total_acv,omitempty"`
	Accounts      *float64 `json:"accounts,omitempty"`
	AvgDealSize   *float64 `json:"avg_deal_size,omitempty"`
}

// deriveOverall computes the Overall summary per the weighting rule:
// rate = round(Σ(rate_i × weight_i) / Σ(weight_i), 2). A plain average would
// overweight small groups. Empty input yields nil; a single row passes
// through with numeric coercion only.
func deriveOverall(rows []map[string]any, includeACV bool) *Overall {
	if len(rows) == 0 {
		return nil
	}

	var rateWeighted, weightSum, acvSum, accountSum float64
	var sawACV, sawAccounts bool
	for _, row := range rows {
		w := coerceFloat(row[ColVehicles])
		rateWeighted += coerceFloat(row[ColRate]) * w
		weightSum += w
		if v, ok := row[ColTotalACV]; ok {
			sawACV = true
			acvSum += coerceFloat(v)
		}
		if v, ok := row[ColAccounts]; ok {
			sawAccounts = true
			accountSum += coerceFloat(v)
		}
	}

	overall := &Overall{Vehicles: weightSum}
	if weightSum > 0 {
		overall.MRRPerVehicle = round2(rateWeighted / weightSum)
	}
	if sawACV && includeACV {
		acv := acvSum
		overall.TotalACV = &acv
	}
	if sawAccounts {
		accounts := accountSum
		overall.Accounts = &accounts
		if accountSum > 0 && sawACV {
			avg := round2(acvSum / accountSum)
			overall.AvgDealSize = &avg
		}
	}
	return overall
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// coerceFloat converts engine values to float64. Drivers hand back a mix of
// int64, float64, and string/byte numerics depending on the column type.
func coerceFloat(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	case int:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	case []byte:
		f, err := strconv.ParseFloat(string(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		f, err := strconv.ParseFloat(fmt.Sprint(n), 64)
		if err != nil {
			return 0
		}
		return f
	}
}
