package metrics

import "strings"

// The glossary maps plain-English phrases to the exact strings stored in the
// warehouse tables. Matching is case-insensitive. Resolving one phrase may
// yield a SET of stored values: the data carries two historical spellings of
// the public-sector segment code, and both must be produced whenever the
// segment is filtered, or an exclusion would leave half the rows behind.
//
// Whether the double spelling and the three-part MM-EXP-EU code are
// intentional modeling or accumulated inconsistency is not determinable from
// the data; both forms are preserved rather than guessing a canonical one.

var geoGlossary = map[string][]string{
	"na":             {"NA"},
	"north america":  {"NA"},
	"us":             {"NA"},
	"usa":            {"NA"},
	"uk":             {"UK"},
	"united kingdom": {"UK"},
	"britain":        {"UK"},
	"dach":           {"DACH"},
	"germany":        {"DACH"},
	"fr":             {"FR"},
	"france":         {"FR"},
	"bnl":            {"BNL"},
	"benelux":        {"BNL"},
	"anz":            {"ANZ"},
	"australia":      {"ANZ"},
	"apac":           {"APAC"},
	"asia pacific":   {"APAC"},
	"emea":           {"UK", "DACH", "FR", "BNL"},
	"europe":         {"UK", "DACH", "FR", "BNL"},
}

var segmentGlossary = map[string][]string{
	"ent":                  {"ENT"},
	"enterprise":           {"ENT"},
	"mm":                   {"MM"},
	"mid-market":           {"MM"},
	"mid market":           {"MM"},
	"midmarket":            {"MM"},
	"smb":                  {"SMB"},
	"small business":       {"SMB"},
	"pubsec":               {"PUBSEC", "PUB SEC"},
	"pub sec":              {"PUBSEC", "PUB SEC"},
	"public sector":        {"PUBSEC", "PUB SEC"},
	"government":           {"PUBSEC", "PUB SEC"},
	"mm-exp-eu":            {"MM-EXP-EU"},
	"mid-market expansion": {"MM-EXP-EU"},
	"expansion europe":     {"MM-EXP-EU"},
}

var industryGlossary = map[string][]string{
	"transportation":        {"Transportation"},
	"trucking":              {"Transportation"},
	"logistics":             {"Transportation"},
	"construction":          {"Construction"},
	"field services":        {"Field Services"},
	"field service":         {"Field Services"},
	"food and beverage":     {"Food & Beverage"},
	"food & beverage":       {"Food & Beverage"},
	"passenger transit":     {"Passenger Transit"},
	"transit":               {"Passenger Transit"},
	"utilities":             {"Utilities"},
	"oil and gas":           {"Oil & Gas"},
	"oil & gas":             {"Oil & Gas"},
	"energy":                {"Oil & Gas"},
	"state and local gov":   {"Government"},
	"government":            {"Government"},
	"public administration": {"Government"},
}

var productGlossary = map[string]string{
	"cm":              "cm",
	"camera":          "cm",
	"cameras":         "cm",
	"dashcam":         "cm",
	"dashcams":        "cm",
	"dash cam":        "cm",
	"safety camera":   "cm",
	"vg":              "vg",
	"telematics":      "vg",
	"vehicle gateway": "vg",
	"gateway":         "vg",
	"gps":             "vg",
	"tracking":        "vg",
	"at":              "at",
	"asset tracker":   "at",
	"asset trackers":  "at",
	"asset tracking":  "at",
}

func glossaryFor(dim Dimension) map[string][]string {
	switch dim {
	case DimGeo:
		return geoGlossary
	case DimSegment:
		return segmentGlossary
	case DimIndustry:
		return industryGlossary
	default:
		return nil
	}
}

// ResolveDimensionValues maps a phrase to the stored value set for the given
// dimension. When no mapping exists the phrase is returned literally, since
// callers may already supply exact table values.
func ResolveDimensionValues(dim Dimension, phrase string) []string {
	g := glossaryFor(dim)
	if g == nil {
		return []string{phrase}
	}
	if values, ok := g[strings.ToLower(strings.TrimSpace(phrase))]; ok {
		out := make([]string, len(values))
		copy(out, values)
		return out
	}
	return []string{phrase}
}

// ResolveProductKey maps a product phrase to its internal key. Returns
// ("", false) when the phrase is unknown.
func ResolveProductKey(phrase string) (string, bool) {
	key, ok := productGlossary[strings.ToLower(strings.TrimSpace(phrase))]
	return key, ok
}
