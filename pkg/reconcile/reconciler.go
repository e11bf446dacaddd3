package reconcile

import (
	"go.uber.org/zap"

	"github.com/fleetlens/mrrpv-engine/pkg/metrics"
)

// Outcome describes what the reconciler did with a proposal, for logging and
// offline review of the intent heuristics.
type Outcome struct {
	Intent           Intent `json:"intent"`
	ForcedStructural bool   `json:"forced_structural"`
	Ambiguous        bool   `json:"ambiguous"`
}

// Reconciler merges the model's proposed parameters into the conversation's
// current view. Its core invariant: the model's own drift on groupBy,
// preset, and time window never reaches the compiler unless the user
// explicitly asked for a different view. False negatives (failing to apply a
// requested change) are preferred over false positives (silently switching
// the view), because the latter is invisible until the user notices the
// table shape changed.
type Reconciler struct {
	classifier Classifier
	presets    *metrics.PresetStore
	logger     *zap.Logger
}

// New creates a Reconciler.
func New(classifier Classifier, presets *metrics.PresetStore, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		classifier: classifier,
		presets:    presets,
		logger:     logger.Named("reconciler"),
	}
}

// Reconcile produces the effective parameters for this turn. current is nil
// on the first query of a conversation, in which case the proposal passes
// through (with its preset template applied, if any).
func (r *Reconciler) Reconcile(current *metrics.QueryParams, proposed metrics.QueryParams, utterance string) (metrics.QueryParams, Outcome) {
	proposed = r.applyPreset(proposed)

	if current == nil {
		return proposed, Outcome{Intent: IntentViewChange}
	}

	intent := r.classifier.Classify(utterance)
	outcome := Outcome{Intent: intent}

	var effective metrics.QueryParams
	switch intent {
	case IntentViewChange:
		// Explicit request for a different breakdown or preset: the
		// proposal becomes the new view untouched.
		effective = proposed

	case IntentReset:
		effective = current.Clone()
		effective.Filters = nil
		effective.Products = nil
		effective.TimeWindow = r.presetDefaultWindow(effective.Preset)

	case IntentProductAdd:
		effective = r.mergeFilters(current, proposed)
		outcome.ForcedStructural = true

	case IntentFilterEdit:
		effective = r.mergeFilters(current, proposed)
		outcome.ForcedStructural = true

	default:
		// Could not determine intent confidently: preserve the current
		// view's structure and merge conservatively rather than trust the
		// proposal. Observable so the heuristics can be reviewed offline.
		effective = r.mergeFilters(current, proposed)
		outcome.ForcedStructural = true
		outcome.Ambiguous = true
		r.logger.Info("ambiguous reconciliation, preserving current view",
			zap.String("utterance", utterance),
			zap.String("preset", current.Preset))
	}

	return effective, outcome
}

// applyPreset expands the proposal's preset template, if one is named.
func (r *Reconciler) applyPreset(proposed metrics.QueryParams) metrics.QueryParams {
	if proposed.Preset == "" || r.presets == nil {
		return proposed
	}
	preset, err := r.presets.Get(proposed.Preset)
	if err != nil {
		// Unknown preset names fail later at validation with the allowed
		// set; don't mask that here.
		return proposed
	}
	return preset.Apply(proposed)
}

func (r *Reconciler) presetDefaultWindow(presetKey string) []string {
	if r.presets == nil || presetKey == "" {
		return nil
	}
	preset, err := r.presets.Get(presetKey)
	if err != nil {
		return nil
	}
	return append([]string(nil), preset.TimeWindow...)
}

// mergeFilters is the filter-only edit path: structural fields are forced
// from the current view regardless of what the model proposed, exclude-lists
// are unioned, include requests are subtracted from existing exclude-lists,
// and product filters accumulate.
func (r *Reconciler) mergeFilters(current *metrics.QueryParams, proposed metrics.QueryParams) metrics.QueryParams {
	effective := proposed.Clone()

	// Force structural fields. Model drift on these is the primary defect
	// this component exists to prevent.
	effective.Preset = current.Preset
	effective.Source = current.Source
	effective.GroupBy = current.GroupBy
	effective.TimeWindow = append([]string(nil), current.TimeWindow...)

	effective.Filters = mergeDimensionFilters(current.Filters, proposed.Filters)
	effective.Products = unionStrings(current.Products, proposed.Products)

	// Visibility flags stick to the view unless the proposal turns them on.
	effective.IncludeACV = effective.IncludeACV || current.IncludeACV
	effective.IncludeAccounts = effective.IncludeAccounts || current.IncludeAccounts
	effective.IncludeAvgDeal = effective.IncludeAvgDeal || current.IncludeAvgDeal

	return effective
}

// mergeDimensionFilters merges the per-dimension filter arguments.
//
// Exclusions union: "also exclude FR" on an existing {UK} exclusion yields
// {UK, FR}. Inclusions subtract: "include EMEA again" removes the EMEA geo
// codes from the exclude-list, and a list that empties is dropped entirely;
// an empty exclude-list and no filter must be indistinguishable downstream.
// Matching happens on glossary-expanded value sets so that excluding four
// geo codes and restoring the phrase "EMEA" cancel out.
func mergeDimensionFilters(current, proposed map[metrics.Dimension]metrics.FilterArg) map[metrics.Dimension]metrics.FilterArg {
	merged := make(map[metrics.Dimension]metrics.FilterArg, len(current)+len(proposed))
	for dim, f := range current {
		merged[dim] = cloneFilter(f)
	}

	for dim, prop := range proposed {
		cur, exists := merged[dim]

		switch {
		case len(prop.Exclude) > 0:
			if exists && len(cur.Exclude) > 0 {
				cur.Exclude = unionExpanded(dim, cur.Exclude, prop.Exclude)
				merged[dim] = cur
			} else {
				merged[dim] = metrics.FilterArg{Exclude: append([]string(nil), prop.Exclude...)}
			}

		case len(prop.Include) > 0:
			if exists && len(cur.Exclude) > 0 {
				remaining := subtractExpanded(dim, cur.Exclude, prop.Include)
				if len(remaining) == 0 {
					delete(merged, dim)
				} else {
					merged[dim] = metrics.FilterArg{Exclude: remaining}
				}
			} else {
				// No exclusion to restore against: this is a restriction.
				merged[dim] = metrics.FilterArg{Include: append([]string(nil), prop.Include...)}
			}

		case prop.Value != "":
			merged[dim] = metrics.FilterArg{Value: prop.Value}
		}
	}

	if len(merged) == 0 {
		return nil
	}
	return merged
}

func cloneFilter(f metrics.FilterArg) metrics.FilterArg {
	return metrics.FilterArg{
		Value:   f.Value,
		Include: append([]string(nil), f.Include...),
		Exclude: append([]string(nil), f.Exclude...),
	}
}

// unionExpanded unions two phrase lists, deduplicating on glossary-expanded
// values while keeping the original phrases.
func unionExpanded(dim metrics.Dimension, base, extra []string) []string {
	covered := make(map[string]bool)
	for _, phrase := range base {
		for _, v := range metrics.ResolveDimensionValues(dim, phrase) {
			covered[v] = true
		}
	}
	out := append([]string(nil), base...)
	for _, phrase := range extra {
		novel := false
		for _, v := range metrics.ResolveDimensionValues(dim, phrase) {
			if !covered[v] {
				covered[v] = true
				novel = true
			}
		}
		if novel {
			out = append(out, phrase)
		}
	}
	return out
}

// subtractExpanded removes from base every phrase whose expanded values are
// all covered by the expansion of the restore list.
func subtractExpanded(dim metrics.Dimension, base, restore []string) []string {
	restored := make(map[string]bool)
	for _, phrase := range restore {
		for _, v := range metrics.ResolveDimensionValues(dim, phrase) {
			restored[v] = true
		}
	}
	var remaining []string
	for _, phrase := range base {
		allRestored := true
		for _, v := range metrics.ResolveDimensionValues(dim, phrase) {
			if !restored[v] {
				allRestored = false
				break
			}
		}
		if !allRestored {
			remaining = append(remaining, phrase)
		}
	}
	return remaining
}

func unionStrings(base, extra []string) []string {
	seen := make(map[string]bool, len(base))
	out := append([]string(nil), base...)
	for _, v := range base {
		seen[v] = true
	}
	for _, v := range extra {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
