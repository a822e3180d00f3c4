package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/scope3-tracker/internal/entity"
)

// number accepts thousands separators ("1,200.50") as well as plain digits ("1200.5").
const number = `(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)`

var (
	qtyPattern      = regexp.MustCompile(`(?i)` + number + `\s*(?:kg|kilogram)`)
	tonPattern      = regexp.MustCompile(`(?i)` + number + `\s*(?:ton|tons|tonne)`)
	distancePattern = regexp.MustCompile(`(?i)` + number + `\s*(?:km|kilometer|kilometre)`)

	// currencyPattern is an amount marked as money, by a leading "$" or a trailing "usd".
	currencyPattern = regexp.MustCompile(`(?i)\$\s*` + number + `|` + number + `\s*usd\b`)
	// barePattern is any number; used for the amount when nothing is marked as money.
	barePattern = regexp.MustCompile(number)
)

// ParseWithRules turns raw invoice text into candidate line items using line heuristics.
// Non-blank input always yields at least one item.
func ParseWithRules(text string) []entity.LineItem {
	lines := splitLines(text)
	if len(lines) == 0 {
		return []entity.LineItem{}
	}

	supplier := detectSupplier(lines)
	current := supplier
	items := make([]entity.LineItem, 0, len(lines))

	for _, line := range lines {
		if isSupplierLine(line) {
			current = supplierValue(line, supplier)
			continue
		}

		item := entity.LineItem{Supplier: current, Description: line}
		matched := false

		var unitSpans [][]int
		if v, span, ok := firstNumber(qtyPattern, line); ok {
			item.QtyKg = entity.Float(v)
			unitSpans = append(unitSpans, span)
			matched = true
		}
		if v, span, ok := firstNumber(tonPattern, line); ok {
			item.WeightTons = entity.Float(v)
			unitSpans = append(unitSpans, span)
			matched = true
		}
		if v, span, ok := firstNumber(distancePattern, line); ok {
			item.DistanceKm = entity.Float(v)
			unitSpans = append(unitSpans, span)
			matched = true
		}
		if v, ok := amount(line, unitSpans); ok {
			item.AmountUSD = entity.Float(v)
			matched = true
		}

		if matched {
			items = append(items, item)
		}
	}

	if len(items) == 0 {
		items = append(items, entity.LineItem{Supplier: supplier, Description: lines[0]})
	}
	return items
}

func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(raw))
	for _, ln := range raw {
		if s := strings.TrimSpace(ln); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isSupplierLine(line string) bool {
	lower := strings.ToLower(line)
	return strings.Contains(lower, "supplier") ||
		strings.Contains(lower, "vendor") ||
		strings.HasPrefix(lower, "from:")
}

// detectSupplier finds the invoice-level supplier. It is looser than isSupplierLine and
// accepts "from:" anywhere in the line.
func detectSupplier(lines []string) string {
	for _, line := range lines {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "supplier") || strings.Contains(lower, "vendor") || strings.Contains(lower, "from:") {
			return supplierValue(line, entity.UnknownSupplier)
		}
	}
	return entity.UnknownSupplier
}

func supplierValue(line, fallback string) string {
	v := line
	if _, after, ok := strings.Cut(line, ":"); ok {
		v = after
	}
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}

func firstNumber(re *regexp.Regexp, line string) (float64, []int, bool) {
	m := re.FindStringSubmatchIndex(line)
	if m == nil {
		return 0, nil, false
	}
	v, ok := parseNumber(line[m[2]:m[3]])
	if !ok {
		return 0, nil, false
	}
	return v, m[:2], true
}

// amount prefers a number marked as money. Otherwise it takes the first number that is not
// already a quantity, weight or distance.
func amount(line string, unitSpans [][]int) (float64, bool) {
	if m := currencyPattern.FindStringSubmatchIndex(line); m != nil {
		for g := 2; g+1 < len(m); g += 2 {
			if m[g] >= 0 {
				return parseNumber(line[m[g]:m[g+1]])
			}
		}
	}
	for _, m := range barePattern.FindAllStringIndex(line, -1) {
		if overlaps(m, unitSpans) {
			continue
		}
		return parseNumber(line[m[0]:m[1]])
	}
	return 0, false
}

func overlaps(span []int, others [][]int) bool {
	for _, o := range others {
		if span[0] < o[1] && o[0] < span[1] {
			return true
		}
	}
	return false
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
