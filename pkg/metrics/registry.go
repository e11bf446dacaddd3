// Package metrics implements the MRR-per-Vehicle query layer: the source
// registry, the dimension glossary, filter resolution, and the aggregate
// query compiler.
package metrics

import (
	"fmt"
	"sort"

	"github.com/fleetlens/mrrpv-engine/pkg/apperrors"
)

// Dimension is a canonical grouping dimension name.
type Dimension string

const (
	DimIndustry   Dimension = "industry"
	DimSegment    Dimension = "segment"
	DimGeo        Dimension = "geo"
	DimGeoSegment Dimension = "geo_segment"
)

// SourceDescriptor describes one of the predefined warehouse tables.
//
// Value shape is one of:
//   - ARRCol set with Annual: pre-aggregated annual revenue; the aggregate
//     rate is (SUM(arr)/SUM(count))/12
//   - ValueCol set: per-row already-monthly metric; the aggregate rate is
//     the count-weighted row average SUM(value*count)/SUM(count)
//
// The two are not equivalent when group sizes vary and must not be unified.
type SourceDescriptor struct {
	Key        string
	Label      string
	Table      string
	TimeCol    string
	ARRCol     string
	Annual     bool
	ValueCol   string
	CountCol   string
	ACVCol     string
	AccountCol string

	// GroupBy maps a dimension to its physical column(s). Composite
	// dimensions map to more than one column and emit all of them.
	GroupBy        map[Dimension][]string
	AllowedGroupBy []Dimension

	// ProductCols maps a product key to its license-count column; a product
	// filter restricts rows to count > 0.
	ProductCols map[string]string
}

var sources = map[string]*SourceDescriptor{
	"fleet": {
		Key:        "fleet",
		Label:      "Fleet install base",
		Table:      "fleet_revenue",
		TimeCol:    "fiscal_quarter",
		ARRCol:     "total_arr",
		Annual:     true,
		CountCol:   "vehicle_count",
		ACVCol:     "acv",
		AccountCol: "account_id",
		GroupBy: map[Dimension][]string{
			DimSegment:    {"segment"},
			DimGeo:        {"geo"},
			DimGeoSegment: {"geo", "segment"},
		},
		// fleet has no industry column
		AllowedGroupBy: []Dimension{DimSegment, DimGeo, DimGeoSegment},
		ProductCols: map[string]string{
			"cm": "cm_licenses",
			"vg": "vg_licenses",
			"at": "at_licenses",
		},
	},
	"first_purchase": {
		Key:        "first_purchase",
		Label:      "First purchase deals",
		Table:      "first_purchase_deals",
		TimeCol:    "fiscal_quarter",
		ValueCol:   "mrr_per_vehicle",
		CountCol:   "vehicle_count",
		ACVCol:     "acv",
		AccountCol: "account_id",
		GroupBy: map[Dimension][]string{
			DimIndustry:   {"industry"},
			DimSegment:    {"segment"},
			DimGeo:        {"geo"},
			DimGeoSegment: {"geo", "segment"},
		},
		AllowedGroupBy: []Dimension{DimIndustry, DimSegment, DimGeo, DimGeoSegment},
		ProductCols: map[string]string{
			"cm": "cm_licenses",
			"vg": "vg_licenses",
			"at": "at_licenses",
		},
	},
	"upsell": {
		Key:        "upsell",
		Label:      "Upsell deals",
		Table:      "upsell_deals",
		TimeCol:    "fiscal_quarter",
		ValueCol:   "mrr_per_vehicle",
		CountCol:   "vehicle_count",
		ACVCol:     "acv",
		AccountCol: "account_id",
		GroupBy: map[Dimension][]string{
			DimIndustry:   {"industry"},
			DimSegment:    {"segment"},
			DimGeo:        {"geo"},
			DimGeoSegment: {"geo", "segment"},
		},
		AllowedGroupBy: []Dimension{DimIndustry, DimSegment, DimGeo, DimGeoSegment},
		ProductCols: map[string]string{
			"cm": "cm_licenses",
			"vg": "vg_licenses",
			"at": "at_licenses",
		},
	},
}

func init() {
	if err := ValidateRegistry(); err != nil {
		panic(fmt.Sprintf("metrics: source registry misconfigured: %v", err))
	}
}

// ValidateRegistry checks registry self-consistency: every source defines
// CountCol and exactly one value shape, and every allowed grouping dimension
// has a column mapping.
func ValidateRegistry() error {
	for key, d := range sources {
		if d.CountCol == "" {
			return fmt.Errorf("source %s: missing count column", key)
		}
		hasARR := d.ARRCol != ""
		hasValue := d.ValueCol != ""
		if hasARR == hasValue {
			return fmt.Errorf("source %s: exactly one of arr column or value column must be set", key)
		}
		for _, dim := range d.AllowedGroupBy {
			if len(d.GroupBy[dim]) == 0 {
				return fmt.Errorf("source %s: dimension %s allowed but unmapped", key, dim)
			}
		}
	}
	return nil
}

// SourceKeys returns the registered source keys, sorted.
func SourceKeys() []string {
	keys := make([]string, 0, len(sources))
	for k := range sources {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Describe looks up a source descriptor. Unknown keys are rejected with the
// allowed set enumerated, so the calling model can self-correct.
func Describe(sourceKey string) (*SourceDescriptor, error) {
	d, ok := sources[sourceKey]
	if !ok {
		return nil, apperrors.NewInvalidParameter("data_source", sourceKey, SourceKeys())
	}
	return d, nil
}

// GroupColumns resolves a requested grouping dimension to physical columns.
func (d *SourceDescriptor) GroupColumns(dim Dimension) ([]string, error) {
	if cols, ok := d.GroupBy[dim]; ok && d.allowsGroupBy(dim) {
		return cols, nil
	}
	allowed := make([]string, len(d.AllowedGroupBy))
	for i, a := range d.AllowedGroupBy {
		allowed[i] = string(a)
	}
	return nil, apperrors.NewInvalidParameter("group_by", string(dim), allowed)
}

func (d *SourceDescriptor) allowsGroupBy(dim Dimension) bool {
	for _, a := range d.AllowedGroupBy {
		if a == dim {
			return true
		}
	}
	return false
}

// ProductKeys returns the product keys this source can filter on, sorted.
func (d *SourceDescriptor) ProductKeys() []string {
	keys := make([]string, 0, len(d.ProductCols))
	for k := range d.ProductCols {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
