// Package categorize classifies free-text line item descriptions by keyword.
package categorize

import (
	"strings"

	"github.com/joseph-ayodele/scope3-tracker/constants"
)

type rule struct {
	category constants.Category
	keywords []string
}

// rules are checked in order; steel must win over transport, which must win over packaging.
var rules = []rule{
	{constants.Steel, []string{"steel", "coil", "beam", "rebar"}},
	{constants.Transport, []string{"freight", "transport", "shipping", "truck", "rail", "ship"}},
	{constants.Packaging, []string{"package", "packaging", "pallet", "box", "carton"}},
}

// Categorize returns the first category whose keywords appear in description.
func Categorize(description string) (constants.Category, bool) {
	desc := strings.ToLower(description)
	if strings.TrimSpace(desc) == "" {
		return "", false
	}
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(desc, kw) {
				return r.category, true
			}
		}
	}
	return "", false
}
