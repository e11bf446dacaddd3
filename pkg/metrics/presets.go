package metrics

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/fleetlens/mrrpv-engine/pkg/apperrors"
)

// Preset is a named parameter template exposed for one-call execution.
// Overridable lists the fields a caller may change without leaving the
// preset; everything else is pinned to the template.
type Preset struct {
	Key         string   `yaml:"key" json:"key"`
	Label       string   `yaml:"label" json:"label"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Source      string   `yaml:"data_source" json:"data_source"`
	TimeWindow  []string `yaml:"time_window,omitempty" json:"time_window,omitempty"`
	GroupBy     string   `yaml:"group_by,omitempty" json:"group_by,omitempty"`
	IncludeACV  bool     `yaml:"include_acv,omitempty" json:"include_acv,omitempty"`
	Overridable []string `yaml:"overridable,omitempty" json:"overridable,omitempty"`

	// Filters are default filter arguments keyed by dimension. Glossary
	// phrases are allowed; they expand at resolve time like any caller
	// value.
	Filters map[string]FilterArg `yaml:"filters,omitempty" json:"filters,omitempty"`
}

// PresetStore holds the loaded preset templates.
type PresetStore struct {
	byKey map[string]*Preset
}

// LoadPresets reads preset templates from a YAML file. Every preset must
// reference a registered source.
func LoadPresets(path string) (*PresetStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets %s: %w", path, err)
	}
	var doc struct {
		Presets []*Preset `yaml:"presets"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse presets %s: %w", path, err)
	}
	return NewPresetStore(doc.Presets)
}

// NewPresetStore builds a store from templates, validating each against the
// source registry.
func NewPresetStore(presets []*Preset) (*PresetStore, error) {
	byKey := make(map[string]*Preset, len(presets))
	for _, p := range presets {
		if p.Key == "" {
			return nil, fmt.Errorf("preset with empty key")
		}
		desc, err := Describe(p.Source)
		if err != nil {
			return nil, fmt.Errorf("preset %s: %w", p.Key, err)
		}
		if p.GroupBy != "" {
			if _, err := desc.GroupColumns(Dimension(p.GroupBy)); err != nil {
				return nil, fmt.Errorf("preset %s: %w", p.Key, err)
			}
		}
		for dim := range p.Filters {
			d := Dimension(dim)
			if d == DimGeoSegment {
				return nil, fmt.Errorf("preset %s: dimension %s is grouping-only, not filterable", p.Key, dim)
			}
			if _, ok := desc.GroupBy[d]; !ok {
				return nil, fmt.Errorf("preset %s: source %s has no dimension %s", p.Key, p.Source, dim)
			}
		}
		if _, dup := byKey[p.Key]; dup {
			return nil, fmt.Errorf("duplicate preset key %s", p.Key)
		}
		byKey[p.Key] = p
	}
	return &PresetStore{byKey: byKey}, nil
}

// DefaultPresets returns the built-in templates used when no presets file is
// configured: one per source, broken out by geo for the current quarter.
func DefaultPresets() *PresetStore {
	store, err := NewPresetStore([]*Preset{
		{
			Key:         "fleet_mrr",
			Label:       "Fleet MRR per Vehicle",
			Description: "Installed-base MRR per vehicle from annual fleet revenue",
			Source:      "fleet",
			GroupBy:     string(DimGeo),
			Overridable: []string{"time_window", "group_by", "filters", "products"},
		},
		{
			Key:         "first_purchase_mrr",
			Label:       "First Purchase MRR per Vehicle",
			Description: "New-logo deal MRR per vehicle",
			Source:      "first_purchase",
			Overridable: []string{"time_window", "group_by", "filters", "products", "include_acv"},
		},
		{
			Key:         "upsell_mrr",
			Label:       "Upsell MRR per Vehicle",
			Description: "Expansion deal MRR per vehicle",
			Source:      "upsell",
			Overridable: []string{"time_window", "group_by", "filters", "products", "include_acv"},
		},
	})
	if err != nil {
		// Built-ins reference only registered sources; failure here is a
		// programming error.
		panic(err)
	}
	return store
}

// Get looks up a preset, rejecting unknown keys with the allowed set.
func (s *PresetStore) Get(key string) (*Preset, error) {
	p, ok := s.byKey[key]
	if !ok {
		return nil, apperrors.NewInvalidParameter("preset", key, s.Keys())
	}
	return p, nil
}

// Keys returns the preset keys, sorted.
func (s *PresetStore) Keys() []string {
	keys := make([]string, 0, len(s.byKey))
	for k := range s.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// List returns all presets sorted by key.
func (s *PresetStore) List() []*Preset {
	out := make([]*Preset, 0, len(s.byKey))
	for _, k := range s.Keys() {
		out = append(out, s.byKey[k])
	}
	return out
}

// Apply fills params from the preset for every field the caller left unset.
// The preset pins the data source unconditionally: a preset's identity is
// its source.
func (p *Preset) Apply(params QueryParams) QueryParams {
	out := params.Clone()
	out.Preset = p.Key
	out.Source = p.Source
	if len(out.TimeWindow) == 0 {
		out.TimeWindow = append([]string(nil), p.TimeWindow...)
	}
	if out.GroupBy == "" && p.GroupBy != "" {
		out.GroupBy = Dimension(p.GroupBy)
	}
	for dim, f := range p.Filters {
		d := Dimension(dim)
		if existing, ok := out.Filters[d]; ok && !existing.IsZero() {
			continue
		}
		if out.Filters == nil {
			out.Filters = make(map[Dimension]FilterArg, len(p.Filters))
		}
		out.Filters[d] = FilterArg{
			Value:   f.Value,
			Include: append([]string(nil), f.Include...),
			Exclude: append([]string(nil), f.Exclude...),
		}
	}
	if p.IncludeACV {
		out.IncludeACV = true
	}
	return out
}
