package constants

import (
	"strings"
)

type Category string

const (
	Steel     Category = "steel"
	Transport Category = "transport"
	Packaging Category = "packaging"
	Other     Category = "other"
)

// allCategories is in classification priority order; Other is always last.
var allCategories = []Category{
	Steel,
	Transport,
	Packaging,
	Other,
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Canonicalize maps a free-form category hint (e.g. from the extraction service)
// onto one of the known categories.
func Canonicalize(input string) (Category, bool) {
	if input == "" {
		return Other, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	// synonyms map
	synonyms := map[string]Category{
		"metal":     Steel,
		"metals":    Steel,
		"iron":      Steel,
		"freight":   Transport,
		"logistics": Transport,
		"shipping":  Transport,
		"trucking":  Transport,
		"pallets":   Packaging,
		"boxes":     Packaging,
		"cartons":   Packaging,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	// check if it matches any category string
	for _, cat := range allCategories {
		if normalized == string(cat) {
			return cat, true
		}
	}

	return Other, false
}
