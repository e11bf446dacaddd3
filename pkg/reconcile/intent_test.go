package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegexClassifier(t *testing.T) {
	tests := []struct {
		utterance string
		want      Intent
	}{
		{"remove EMEA from the results", IntentFilterEdit},
		{"exclude public sector accounts", IntentFilterEdit},
		{"without France please", IntentFilterEdit},
		{"include EMEA again", IntentFilterEdit},
		{"add back the UK", IntentFilterEdit},
		{"only enterprise accounts", IntentFilterEdit},

		{"break it down by industry instead", IntentViewChange},
		{"group by segment", IntentViewChange},
		{"switch to the upsell view", IntentViewChange},
		{"show me a different breakdown", IntentViewChange},
		// Mentions filtering, but the named breakdown wins.
		{"group by geo and drop SMB", IntentViewChange},

		{"also filter to accounts with cameras", IntentProductAdd},
		{"add telematics as well", IntentProductAdd},

		{"start over", IntentReset},
		{"clear all filters", IntentReset},
		{"reset the view", IntentReset},

		{"what was MRR per vehicle last quarter?", IntentUnknown},
		{"", IntentUnknown},
		{"thanks, that looks right", IntentUnknown},
	}

	c := RegexClassifier{}
	for _, tt := range tests {
		t.Run(tt.utterance, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.utterance))
		})
	}
}
