// Package reconcile keeps a multi-turn conversation's current view
// consistent: it classifies the user's utterance and merges the language
// model's proposed parameters into the last-applied view so that refining a
// filter never silently changes the table the user is looking at.
package reconcile

import (
	"regexp"
	"strings"
)

// Intent is the classified purpose of one user utterance.
type Intent string

const (
	// IntentFilterEdit narrows or restores row filters on the current view.
	IntentFilterEdit Intent = "filter_edit"
	// IntentViewChange explicitly requests a different breakdown or preset.
	IntentViewChange Intent = "view_change"
	// IntentProductAdd adds a product constraint on top of existing ones.
	IntentProductAdd Intent = "product_add"
	// IntentReset clears all filters and restores the preset defaults.
	IntentReset Intent = "reset"
	// IntentUnknown could not be classified confidently.
	IntentUnknown Intent = "unknown"
)

// Classifier maps a free-text utterance to an intent tag. The regex
// heuristics below are one concrete implementation; the interface exists so
// they can be replaced (or unit-tested) independently of the state-merging
// logic.
type Classifier interface {
	Classify(utterance string) Intent
}

// RegexClassifier classifies utterances with word-boundary pattern matching.
type RegexClassifier struct{}

var (
	resetRe = regexp.MustCompile(`(?i)\b(start over|reset|clear (the |all )?filters?|remove (all|every) filters?|unfiltered|show everything)\b`)

	viewChangeRe = regexp.MustCompile(`(?i)\b(group(ed)? by|break(ing)? (it |that |this )?down|breakdown|split by|switch( to)?|instead|pivot|by (industry|segment|geo|region|quarter)|different (view|breakdown|preset))\b`)

	filterEditRe = regexp.MustCompile(`(?i)\b(remove|exclud\w*|without|drop|filter( out)?|includ\w*|restor\w*|add back|bring back|put back|only|just|restrict|narrow|hide)\b`)

	productWordRe = regexp.MustCompile(`(?i)\b(camera|dash ?cam|telematics|gateway|asset track\w*|product|licences?|licenses?|\bcm\b|\bvg\b|\bat\b)`)
	alsoRe        = regexp.MustCompile(`(?i)\b(also|additionally|as well|on top|add|plus)\b`)
)

// Classify implements Classifier. Order matters: an utterance that names a
// different breakdown is a view change even if it also mentions filtering,
// which is exactly the case where forcing structural fields would be wrong.
func (RegexClassifier) Classify(utterance string) Intent {
	u := strings.TrimSpace(utterance)
	if u == "" {
		return IntentUnknown
	}
	switch {
	case resetRe.MatchString(u):
		return IntentReset
	case viewChangeRe.MatchString(u):
		return IntentViewChange
	case alsoRe.MatchString(u) && productWordRe.MatchString(u):
		return IntentProductAdd
	case filterEditRe.MatchString(u):
		return IntentFilterEdit
	default:
		return IntentUnknown
	}
}
