package metrics

import (
	"fmt"

	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/fleetlens/mrrpv-engine/pkg/apperrors"
)

// Caps on caller-supplied lists and strings. Violations are hard rejections.
const (
	MaxFilterValues   = 20
	MaxFilterLen      = 64
	MaxTimePeriods    = 8
	MaxUtteranceBytes = 4096
)

// FilterArg carries the raw filter arguments for one dimension: a single
// scalar, an include-list, or an exclude-list. A well-formed caller sets at
// most one; precedence when several are set is include > exclude > scalar.
type FilterArg struct {
	Value   string   `json:"value,omitempty" yaml:"value,omitempty"`
	Include []string `json:"include,omitempty" yaml:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
}

// IsZero reports whether no filter argument is set.
func (f FilterArg) IsZero() bool {
	return f.Value == "" && len(f.Include) == 0 && len(f.Exclude) == 0
}

// QueryParams is the validated parameter set for one aggregation query.
// Validate must pass before the compiler trusts the value.
type QueryParams struct {
	Source     string                  `json:"data_source"`
	Preset     string                  `json:"preset,omitempty"`
	TimeWindow []string                `json:"time_window,omitempty"`
	GroupBy    Dimension               `json:"group_by,omitempty"`
	Filters    map[Dimension]FilterArg `json:"filters,omitempty"`
	Products   []string                `json:"products,omitempty"`

	IncludeAccounts bool `json:"include_accounts,omitempty"`
	IncludeAvgDeal  bool `json:"include_avg_deal,omitempty"`
	IncludeACV      bool `json:"include_acv,omitempty"`
}

// Clone returns a deep copy. The reconciler mutates copies, never the
// caller's current view.
func (p QueryParams) Clone() QueryParams {
	out := p
	out.TimeWindow = append([]string(nil), p.TimeWindow...)
	out.Products = append([]string(nil), p.Products...)
	if p.Filters != nil {
		out.Filters = make(map[Dimension]FilterArg, len(p.Filters))
		for dim, f := range p.Filters {
			out.Filters[dim] = FilterArg{
				Value:   f.Value,
				Include: append([]string(nil), f.Include...),
				Exclude: append([]string(nil), f.Exclude...),
			}
		}
	}
	return out
}

// Validate checks the parameter set against the registry and the caps, and
// screens every caller-supplied string for SQL injection patterns. It
// returns the source descriptor so callers do not look it up twice.
func (p *QueryParams) Validate() (*SourceDescriptor, error) {
	desc, err := Describe(p.Source)
	if err != nil {
		return nil, err
	}

	if p.GroupBy != "" {
		if _, err := desc.GroupColumns(p.GroupBy); err != nil {
			return nil, err
		}
	}

	if len(p.TimeWindow) > MaxTimePeriods {
		return nil, &apperrors.FilterTooLargeError{Field: "time_window", Count: len(p.TimeWindow), Max: MaxTimePeriods}
	}
	for _, period := range p.TimeWindow {
		if err := checkValue("time_window", period); err != nil {
			return nil, err
		}
	}

	for dim, f := range p.Filters {
		if dim == DimGeoSegment {
			return nil, apperrors.NewInvalidParameter("filter_dimension", string(dim),
				[]string{string(DimGeo), string(DimSegment), string(DimIndustry)})
		}
		if _, ok := desc.GroupBy[dim]; !ok {
			allowed := make([]string, 0, len(desc.AllowedGroupBy))
			for _, a := range desc.AllowedGroupBy {
				if a != DimGeoSegment {
					allowed = append(allowed, string(a))
				}
			}
			return nil, apperrors.NewInvalidParameter("filter_dimension", string(dim), allowed)
		}
		for listName, list := range map[string][]string{"include": f.Include, "exclude": f.Exclude} {
			if len(list) > MaxFilterValues {
				return nil, &apperrors.FilterTooLargeError{
					Field: fmt.Sprintf("%s_%s", listName, dim),
					Count: len(list),
					Max:   MaxFilterValues,
				}
			}
			for _, v := range list {
				if err := checkValue(string(dim), v); err != nil {
					return nil, err
				}
			}
		}
		if f.Value != "" {
			if err := checkValue(string(dim), f.Value); err != nil {
				return nil, err
			}
		}
	}

	if len(p.Products) > len(desc.ProductCols) {
		return nil, &apperrors.FilterTooLargeError{Field: "products", Count: len(p.Products), Max: len(desc.ProductCols)}
	}

	return desc, nil
}

// checkValue enforces the string-length cap and screens the value with
// libinjection. Filter values only ever reach the query as bound parameters;
// the screen is an early, observable rejection of obviously hostile input.
func checkValue(field, value string) error {
	if len(value) > MaxFilterLen {
		return &apperrors.FilterTooLargeError{Field: field, Count: len(value), Max: MaxFilterLen}
	}
	if isSQLi, _ := libinjection.IsSQLi(value); isSQLi {
		return apperrors.NewInvalidParameter(field, value, nil)
	}
	return nil
}
